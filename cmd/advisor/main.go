// Command advisor drives the fund-advisor API from a terminal. It uses the
// same controller as the web dashboard and prints its views as tables.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path"
	"time"

	"github.com/Dan9191/fund-advisor/internal/advisor"
	"github.com/Dan9191/fund-advisor/internal/client"
	"github.com/Dan9191/fund-advisor/internal/view"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	apiURL   string
	token    string
	timeout  time.Duration
	locale   string
	currency string
	verbose  bool
)

// setFlags registers the global flags. Defaults come from the environment,
// so it runs after .env is loaded.
func setFlags(f *flag.FlagSet) {
	f.StringVar(&apiURL, "api", envOr("API_BASE_URL", "http://localhost:8080"), "base URL of the fund-advisor API")
	f.StringVar(&token, "token", os.Getenv("API_TOKEN"), "bearer token for write requests")
	f.DurationVar(&timeout, "timeout", 30*time.Second, "timeout of each API request")
	f.StringVar(&locale, "locale", envOr("LOCALE", "en-IN"), "locale used to format amounts")
	f.StringVar(&currency, "currency", envOr("CURRENCY", "INR"), "ISO 4217 currency of the amounts")
	f.BoolVar(&verbose, "v", false, "log requests and errors to stderr")
}

func main() {
	_ = godotenv.Load()
	setFlags(flag.CommandLine)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// app is what every command works with, built from the global flags.
type app struct {
	client  *client.Client
	session *advisor.Session
	format  *view.Formatter
	log     *logrus.Logger
}

func newApp() (*app, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetOutput(io.Discard)
	}

	format, err := view.NewFormatter(locale, currency)
	if err != nil {
		return nil, err
	}
	opts := []client.Option{client.WithTimeout(timeout), client.WithLogger(log)}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c := client.New(apiURL, opts...)
	return &app{
		client:  c,
		session: advisor.NewSession(c, log),
		format:  format,
		log:     log,
	}, nil
}

// card renders the card of id from the current session state.
func (a *app) card(w io.Writer, id int64) error {
	st := a.session.Snapshot()
	c, ok := st.Card(id)
	if !ok {
		return advisor.ErrUnknownInvestor
	}
	return view.WriteCardText(w, a.format.Card(c))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
