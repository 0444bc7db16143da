// Package advisor holds the client-side controller: the view state of the
// investor cards and the fetch-compare-then-save protocol.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/fund-advisor/internal/client"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

// Messages shown to the user.
const (
	MsgLoadInvestorsFailed = "Could not load investors."
	MsgLoadingRecs         = "Loading recommendations..."
	MsgLoadingPortfolio    = "Loading portfolio..."
	MsgNoRecommendations   = "Please get the latest recommendations before saving."
	MsgChecking            = "Checking existing portfolio..."
	MsgCheckFailed         = "Could not check existing portfolio."
	MsgUpToDate            = "No changes detected. Portfolio is already up-to-date."
	MsgSaving              = "Saving new portfolio..."
	MsgNoSuitableFunds     = "No suitable funds found for this profile."

	fallbackServer     = "Server error"
	fallbackPortfolio  = "Could not load portfolio."
	fallbackSave       = "Failed to save portfolio."
	fallbackValidation = "Validation failed"
)

var (
	// ErrNoRecommendations is returned by Save when the card has no cached,
	// non-empty recommendation set.
	ErrNoRecommendations = errors.New(MsgNoRecommendations)
	// ErrSuperseded is returned when a fetch finished after a newer action
	// replaced it. Its result was discarded.
	ErrSuperseded = errors.New("request superseded by a newer action")
	// ErrUnknownInvestor is returned for ids that are not in the loaded list.
	ErrUnknownInvestor = errors.New("investor is not in the list")
)

// API is the part of the REST client the session uses.
type API interface {
	ListInvestors(ctx context.Context) ([]models.InvestorSummary, error)
	CreateInvestor(ctx context.Context, req *models.InvestorRequest) (string, error)
	Recommendations(ctx context.Context, investorID int64) (*models.RecommendationSet, error)
	Portfolio(ctx context.Context, investorID int64) (*client.Portfolio, error)
	SavePortfolio(ctx context.Context, investorID int64, req *models.SavePortfolioRequest, cond client.Condition) (*models.SavePortfolioResponse, error)
}

// Session is the controller of one user's view. It is safe for concurrent
// use; network calls are made without holding the lock.
type Session struct {
	api API
	log *logrus.Logger
	now func() time.Time

	mu       sync.Mutex
	cards    map[int64]*Card
	order    []int64
	listErr  string
	cache    map[int64]models.Recommendations
	gen      uint64
	cancel   context.CancelFunc
	lastUsed time.Time
}

// NewSession creates an empty session.
func NewSession(api API, log *logrus.Logger) *Session {
	return &Session{
		api:      api,
		log:      log,
		now:      time.Now,
		cards:    make(map[int64]*Card),
		cache:    make(map[int64]models.Recommendations),
		lastUsed: time.Now(),
	}
}

// WithClock replaces the time source used for portfolio names.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Snapshot returns a copy of the current view state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{ListError: s.listErr, Cards: make([]Card, 0, len(s.order))}
	for _, id := range s.order {
		st.Cards = append(st.Cards, *s.cards[id])
	}
	return st
}

// LastUsed reports when the session last ran an action.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close cancels any in-flight fetch.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// LoadInvestors fetches the investor list and rebuilds the cards. Cards of
// investors that are still listed keep their state.
func (s *Session) LoadInvestors(ctx context.Context) error {
	investors, err := s.api.ListInvestors(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	if err != nil {
		s.log.WithError(err).Error("Error loading investors")
		s.listErr = MsgLoadInvestorsFailed
		s.cards = make(map[int64]*Card)
		s.order = nil
		return err
	}

	s.listErr = ""
	cards := make(map[int64]*Card, len(investors))
	order := make([]int64, 0, len(investors))
	for _, inv := range investors {
		c, ok := s.cards[inv.ID]
		if !ok {
			c = &Card{}
		}
		c.Investor = inv
		cards[inv.ID] = c
		order = append(order, inv.ID)
	}
	for id := range s.cache {
		if _, ok := cards[id]; !ok {
			delete(s.cache, id)
		}
	}
	s.cards, s.order = cards, order
	return nil
}

// Registration is the outcome of a registration attempt, shown as an alert.
type Registration struct {
	OK    bool
	Alert string
}

// Register submits a new investor. On success the list is reloaded; on
// failure nothing else changes and the server message is returned in the
// alert.
func (s *Session) Register(ctx context.Context, req *models.InvestorRequest) (Registration, error) {
	msg, err := s.api.CreateInvestor(ctx, req)
	if err != nil {
		s.log.WithError(err).Warn("Registration error")
		return Registration{Alert: "Error: " + client.Message(err, fallbackValidation)}, err
	}
	// a failed reload shows up as the list error
	_ = s.LoadInvestors(ctx)
	return Registration{OK: true, Alert: msg}, nil
}

// activate makes id the active card: it cancels the previous fetch, clears
// every other card and drops their cached recommendations. It returns the
// generation of the new fetch and its context. s.mu must be held.
func (s *Session) activate(ctx context.Context, id int64, loadingText string) (uint64, context.Context, context.CancelFunc) {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lastUsed = s.now()

	for otherID, c := range s.cards {
		if otherID == id {
			continue
		}
		c.clear()
		c.SaveEnabled = false
		delete(s.cache, otherID)
	}
	s.cards[id].loading(loadingText)
	return s.gen, cctx, cancel
}

// finish reports whether the fetch of generation g is still current and
// releases its context. s.mu must be held.
func (s *Session) finish(g uint64, cancel context.CancelFunc) bool {
	cancel()
	if g != s.gen {
		return false
	}
	s.cancel = nil
	return true
}

// GetRecommendations fetches and caches the recommendation set of id. The
// previous set of id is dropped first, so a failed refetch leaves nothing
// to save.
func (s *Session) GetRecommendations(ctx context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.cards[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownInvestor
	}
	g, cctx, cancel := s.activate(ctx, id, MsgLoadingRecs)
	delete(s.cache, id)
	s.cards[id].SaveEnabled = false
	s.mu.Unlock()

	set, err := s.api.Recommendations(cctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(g, cancel) {
		s.log.WithField("investor_id", id).Debug("Discarding superseded recommendations")
		return ErrSuperseded
	}
	card, ok := s.cards[id]
	if !ok {
		// the list was reloaded without id while the fetch ran
		return ErrUnknownInvestor
	}
	if err != nil {
		s.log.WithError(err).WithField("investor_id", id).Error("Error getting recommendations")
		card.fail("Error: " + client.Message(err, fallbackServer))
		return err
	}
	s.cache[id] = set.Recommendations
	card.Content = ContentRecommendations
	card.Text = ""
	card.Recommendations = set
	card.SaveEnabled = true
	return nil
}

// GetPortfolio fetches the saved portfolio of id. It drops the cached
// recommendations of every investor, id included.
func (s *Session) GetPortfolio(ctx context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.cards[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownInvestor
	}
	g, cctx, cancel := s.activate(ctx, id, MsgLoadingPortfolio)
	delete(s.cache, id)
	s.cards[id].SaveEnabled = false
	s.mu.Unlock()

	p, err := s.api.Portfolio(cctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(g, cancel) {
		s.log.WithField("investor_id", id).Debug("Discarding superseded portfolio")
		return ErrSuperseded
	}
	card, ok := s.cards[id]
	if !ok {
		// the list was reloaded without id while the fetch ran
		return ErrUnknownInvestor
	}
	if err != nil {
		s.log.WithError(err).WithField("investor_id", id).Error("Error getting portfolio")
		card.fail("Error: " + client.Message(err, fallbackPortfolio))
		return err
	}
	card.Content = ContentPortfolio
	card.Text = ""
	card.Portfolio = p.View
	return nil
}

// Save stores the cached recommendations of id as a new portfolio unless
// the saved portfolio already holds the same funds and amounts.
func (s *Session) Save(ctx context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.cards[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownInvestor
	}
	s.lastUsed = s.now()
	recs := s.cache[id]
	if len(recs) == 0 {
		s.cards[id].Banner = Banner{Level: LevelError, Text: MsgNoRecommendations}
		s.mu.Unlock()
		return ErrNoRecommendations
	}
	recs = append(models.Recommendations(nil), recs...)
	s.cards[id].Banner = Banner{Level: LevelInfo, Text: MsgChecking}
	s.mu.Unlock()

	logger := s.log.WithField("investor_id", id)

	var saved []models.Holding
	cond := client.Condition{IfNoneMatch: "*"}
	current, err := s.api.Portfolio(ctx, id)
	switch {
	case err == nil:
		saved = current.View.Holdings()
		cond = client.Condition{IfMatch: current.ETag}
	case client.IsNotFound(err):
	default:
		logger.WithError(err).Error("Error checking existing portfolio")
		s.setBanner(id, LevelError, "Error: "+MsgCheckFailed)
		return fmt.Errorf("check existing portfolio: %w", err)
	}

	if models.EqualHoldings(saved, recs.Holdings()) {
		s.setBanner(id, LevelSuccess, MsgUpToDate)
		return nil
	}

	s.setBanner(id, LevelInfo, MsgSaving)
	req := &models.SavePortfolioRequest{
		Name:  fmt.Sprintf("Portfolio for %d - %s", id, s.now().UTC().Format("2006-01-02")),
		Funds: recs.FundInputs(),
	}
	resp, err := s.api.SavePortfolio(ctx, id, req, cond)
	if err != nil {
		logger.WithError(err).Error("Error saving portfolio")
		s.setBanner(id, LevelError, "Error: "+client.Message(err, fallbackSave))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cards[id]; ok {
		c.Banner = Banner{Level: LevelSuccess, Text: fmt.Sprintf("Portfolio saved successfully! Portfolio ID: %d", resp.PortfolioID)}
		c.SaveEnabled = false
	}
	logger.WithField("portfolio_id", resp.PortfolioID).Info("Portfolio saved")
	return nil
}

func (s *Session) setBanner(id int64, level Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cards[id]; ok {
		c.Banner = Banner{Level: level, Text: text}
	}
}
