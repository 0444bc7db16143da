// Package web serves the server-rendered investor dashboard. Every browser
// gets its own advisor session, keyed by a cookie.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Dan9191/fund-advisor/internal/advisor"
	"github.com/Dan9191/fund-advisor/internal/risk"
	"github.com/Dan9191/fund-advisor/internal/view"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const cookieName = "advisor_session"

//go:embed templates/*.html
var templates embed.FS

// Server holds the sessions of all connected browsers.
type Server struct {
	api       advisor.API
	formatter *view.Formatter
	log       *logrus.Logger
	tmpl      *template.Template

	mu       sync.Mutex
	sessions map[string]*advisor.Session
	clock    func() time.Time
}

// NewServer parses the templates and returns a server with no sessions.
func NewServer(api advisor.API, f *view.Formatter, log *logrus.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"trailing": trailing,
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		api:       api,
		formatter: f,
		log:       log,
		tmpl:      tmpl,
		sessions:  make(map[string]*advisor.Session),
		clock:     time.Now,
	}, nil
}

// Register mounts the dashboard routes on r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/", s.Index).Methods(http.MethodGet)
	r.HandleFunc("/ui/investors", s.RegisterInvestor).Methods(http.MethodPost)
	r.HandleFunc("/ui/investors/{id:[0-9]+}/recommendations", s.action(func(r *http.Request, sess *advisor.Session, id int64) error {
		return sess.GetRecommendations(r.Context(), id)
	})).Methods(http.MethodPost)
	r.HandleFunc("/ui/investors/{id:[0-9]+}/portfolio", s.action(func(r *http.Request, sess *advisor.Session, id int64) error {
		return sess.GetPortfolio(r.Context(), id)
	})).Methods(http.MethodPost)
	r.HandleFunc("/ui/investors/{id:[0-9]+}/save", s.action(func(r *http.Request, sess *advisor.Session, id int64) error {
		return sess.Save(r.Context(), id)
	})).Methods(http.MethodPost)
}

// Index reloads the investor list and renders the dashboard.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	// a failed load is part of the rendered state
	_ = sess.LoadInvestors(r.Context())
	s.render(w, r, sess, "", nil)
}

// RegisterInvestor submits the registration form. A rejected form is shown
// again with the values the user entered.
func (s *Server) RegisterInvestor(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, sess, "Error: "+err.Error(), nil)
		return
	}
	req, err := decodeInvestor(r.PostForm)
	if err != nil {
		s.render(w, r, sess, "Error: "+err.Error(), r.PostForm)
		return
	}
	res, err := sess.Register(r.Context(), req)
	if err != nil {
		s.render(w, r, sess, res.Alert, r.PostForm)
		return
	}
	s.render(w, r, sess, res.Alert, nil)
}

func (s *Server) action(run func(r *http.Request, sess *advisor.Session, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.session(w, r)
		id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err := run(r, sess, id); errors.Is(err, advisor.ErrUnknownInvestor) {
			http.Error(w, "Investor not found", http.StatusNotFound)
			return
		}
		// other failures are already part of the card state
		s.render(w, r, sess, "", nil)
	}
}

// Sweep closes sessions that were not used for maxIdle and returns how many
// were removed.
func (s *Server) Sweep(maxIdle time.Duration) int {
	cutoff := s.clock().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) {
			sess.Close()
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *advisor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(cookieName); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			return sess
		}
	}
	id := uuid.NewString()
	sess := advisor.NewSession(s.api, s.log)
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

type pageData struct {
	view.Page
	Alert            string
	Form             url.Values
	RiskQuestions    []string
	ProfileQuestions []string
	Answers          []string
	Choices          map[string][]string
	Horizons         []string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *advisor.Session, alert string, form url.Values) {
	data := pageData{
		Page:             s.formatter.Page(sess.Snapshot()),
		Alert:            alert,
		Form:             form,
		RiskQuestions:    questionNames("risk_q", 12),
		ProfileQuestions: questionNames("profile_q", 7),
		Answers:          []string{"A", "B", "C", "D"},
		Choices:          risk.Choices(),
		Horizons:         []string{"Upto 3 years", "3-5 years", "5+ years", "7+ years"},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.WithField("request_id", chimw.GetReqID(r.Context())).Errorf("Failed to render page: %v", err)
	}
}

func questionNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i+1)
	}
	return names
}

// trailing returns one element per cell to the right of a table total.
func trailing(t view.Table) []struct{} {
	if t.Total == nil {
		return nil
	}
	n := len(t.Header) - t.Total.Column - 1
	if n < 0 {
		n = 0
	}
	return make([]struct{}, n)
}
