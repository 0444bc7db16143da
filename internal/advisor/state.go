package advisor

import "github.com/Dan9191/fund-advisor/internal/models"

// Content is what an investor card currently displays.
type Content int

const (
	ContentEmpty Content = iota
	ContentLoading
	ContentRecommendations
	ContentPortfolio
	ContentError
)

func (c Content) String() string {
	switch c {
	case ContentLoading:
		return "loading"
	case ContentRecommendations:
		return "recommendations"
	case ContentPortfolio:
		return "portfolio"
	case ContentError:
		return "error"
	default:
		return "empty"
	}
}

// Level is the kind of a message banner.
type Level string

const (
	LevelNone    Level = ""
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Banner is the message area of a card.
type Banner struct {
	Level Level
	Text  string
}

// Card is the view state of one investor.
type Card struct {
	Investor models.InvestorSummary
	Content  Content
	// Text is the loading placeholder or the inline error, depending on
	// Content.
	Text            string
	Recommendations *models.RecommendationSet
	Portfolio       *models.PortfolioView
	Banner          Banner
	SaveEnabled     bool
}

func (c *Card) clear() {
	c.Content = ContentEmpty
	c.Text = ""
	c.Recommendations = nil
	c.Portfolio = nil
	c.Banner = Banner{}
}

func (c *Card) loading(text string) {
	c.clear()
	c.Content = ContentLoading
	c.Text = text
}

func (c *Card) fail(text string) {
	c.Content = ContentError
	c.Text = text
	c.Recommendations = nil
	c.Portfolio = nil
}

// State is a snapshot of a session for rendering.
type State struct {
	// ListError replaces the investor list when it could not be loaded.
	ListError string
	Cards     []Card
}

// Card returns the card of an investor in the snapshot.
func (s *State) Card(id int64) (Card, bool) {
	for _, c := range s.Cards {
		if c.Investor.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
