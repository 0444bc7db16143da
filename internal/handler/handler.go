package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/fund-advisor/internal/export"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/service"
	"github.com/Dan9191/fund-advisor/internal/utils"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
	now func() time.Time
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// Register mounts the API routes on r. Every route except login goes
// through protect.
func (h *Handler) Register(r *mux.Router, protect ...mux.MiddlewareFunc) {
	// Public routes
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	// Protected routes
	api := r.NewRoute().Subrouter()
	api.Use(protect...)
	api.HandleFunc("/investors", h.ListInvestors).Methods(http.MethodGet)
	api.HandleFunc("/investors", h.CreateInvestor).Methods(http.MethodPost)
	api.HandleFunc("/recommendations/{id:[0-9]+}", h.Recommendations).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/{id:[0-9]+}", h.GetPortfolio).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/{id:[0-9]+}", h.SavePortfolio).Methods(http.MethodPost)
	api.HandleFunc("/portfolio/{id:[0-9]+}/export.xml", h.ExportPortfolio).Methods(http.MethodGet)
}

// Login handles admin authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, err := h.svc.Login(req.Password)
	switch {
	case errors.Is(err, service.ErrAuthDisabled):
		writeError(w, http.StatusNotFound, "Authentication is disabled")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case err != nil:
		h.serverError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// ListInvestors returns all registered investors
func (h *Handler) ListInvestors(w http.ResponseWriter, r *http.Request) {
	investors, err := h.svc.ListInvestors(r.Context())
	if err != nil {
		h.logger(r).Errorf("Failed to list investors: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve investors: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, investors)
}

// CreateInvestor registers an investor from the questionnaire payload
func (h *Handler) CreateInvestor(w http.ResponseWriter, r *http.Request) {
	var req models.InvestorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	_, err := h.svc.RegisterInvestor(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "Investor created successfully"})
}

// Recommendations returns the advisory answer for an investor
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := investorID(w, r)
	if !ok {
		return
	}
	set, err := h.svc.Recommend(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// GetPortfolio returns the latest portfolio with its ETag
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := investorID(w, r)
	if !ok {
		return
	}
	view, fp, err := h.svc.LatestPortfolio(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", utils.ETag(fp))
	writeJSON(w, http.StatusOK, view)
}

// SavePortfolio stores a new portfolio if the conditional headers still hold
func (h *Handler) SavePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := investorID(w, r)
	if !ok {
		return
	}
	var req models.SavePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	pc := service.Precondition{
		IfMatch:     r.Header.Get("If-Match"),
		IfNoneMatch: r.Header.Get("If-None-Match"),
	}
	p, fp, err := h.svc.SavePortfolio(r.Context(), id, &req, pc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", utils.ETag(fp))
	writeJSON(w, http.StatusCreated, models.SavePortfolioResponse{
		Message:     "Portfolio created successfully",
		PortfolioID: p.ID,
	})
}

// ExportPortfolio returns the latest portfolio as an XML statement
func (h *Handler) ExportPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := investorID(w, r)
	if !ok {
		return
	}
	inv, view, err := h.svc.PortfolioDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	doc := export.Statement(inv, view, h.now())
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="portfolio-%d.xml"`, view.PortfolioID))
	if _, err := doc.WriteTo(w); err != nil {
		h.logger(r).Errorf("Failed to write statement: %v", err)
	}
}

func investorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid investor id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvestorNotFound), errors.Is(err, service.ErrPortfolioNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPreconditionFailed):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger(r).Errorf("Request failed: %v", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (h *Handler) logger(r *http.Request) *logrus.Entry {
	return h.log.WithField("request_id", chimw.GetReqID(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
