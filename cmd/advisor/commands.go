package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/view"
	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&investorsCmd{},
	&registerCmd{},
	&recommendCmd{},
	&portfolioCmd{},
	&saveCmd{},
	&exportCmd{},
	&loginCmd{},
}

// investorIDArg parses the single investor id argument of a command.
func investorIDArg(f *flag.FlagSet) (int64, error) {
	if f.NArg() != 1 {
		return 0, fmt.Errorf("expected one investor id")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid investor id %q", f.Arg(0))
	}
	return id, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type investorsCmd struct{}

func (*investorsCmd) Name() string           { return "investors" }
func (*investorsCmd) Synopsis() string       { return "list registered investors" }
func (*investorsCmd) Usage() string          { return "advisor investors\n" }
func (*investorsCmd) SetFlags(*flag.FlagSet) {}

func (*investorsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	loadErr := a.session.LoadInvestors(ctx)
	if err := view.WriteText(os.Stdout, a.format.Page(a.session.Snapshot())); err != nil {
		return fail(err)
	}
	if loadErr != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type registerCmd struct {
	file string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "register an investor from a JSON questionnaire" }
func (*registerCmd) Usage() string {
	return `advisor register -f <investor.json>

  Submits the registration payload. The file holds the same JSON object the
  API accepts on POST /api/investors.
`
}

func (r *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.file, "f", "", "path of the JSON payload ('-' for stdin)")
}

func (r *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if r.file == "" {
		fmt.Fprintln(os.Stderr, "-f is required")
		return subcommands.ExitUsageError
	}
	in := os.Stdin
	if r.file != "-" {
		fh, err := os.Open(r.file)
		if err != nil {
			return fail(err)
		}
		defer fh.Close()
		in = fh
	}
	var req models.InvestorRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fail(fmt.Errorf("decode %s: %w", r.file, err))
	}

	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	res, err := a.session.Register(ctx, &req)
	fmt.Println(res.Alert)
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type recommendCmd struct{}

func (*recommendCmd) Name() string           { return "recommend" }
func (*recommendCmd) Synopsis() string       { return "show the analysis and fund recommendations of an investor" }
func (*recommendCmd) Usage() string          { return "advisor recommend <investor-id>\n" }
func (*recommendCmd) SetFlags(*flag.FlagSet) {}

func (*recommendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runCard(ctx, f, func(a *app, id int64) error {
		return a.session.GetRecommendations(ctx, id)
	})
}

type portfolioCmd struct{}

func (*portfolioCmd) Name() string           { return "portfolio" }
func (*portfolioCmd) Synopsis() string       { return "show the saved portfolio of an investor" }
func (*portfolioCmd) Usage() string          { return "advisor portfolio <investor-id>\n" }
func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (*portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runCard(ctx, f, func(a *app, id int64) error {
		return a.session.GetPortfolio(ctx, id)
	})
}

type saveCmd struct{}

func (*saveCmd) Name() string     { return "save" }
func (*saveCmd) Synopsis() string { return "save the current recommendations as the investor's portfolio" }
func (*saveCmd) Usage() string {
	return `advisor save <investor-id>

  Fetches fresh recommendations and saves them, unless the saved portfolio
  already holds the same funds and amounts.
`
}
func (*saveCmd) SetFlags(*flag.FlagSet) {}

func (*saveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runCard(ctx, f, func(a *app, id int64) error {
		if err := a.session.GetRecommendations(ctx, id); err != nil {
			return err
		}
		return a.session.Save(ctx, id)
	})
}

// runCard loads the investor list, runs one card action and prints the card.
func runCard(ctx context.Context, f *flag.FlagSet, act func(a *app, id int64) error) subcommands.ExitStatus {
	id, err := investorIDArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	if err := a.session.LoadInvestors(ctx); err != nil {
		return fail(fmt.Errorf("could not load investors: %w", err))
	}
	actErr := act(a, id)
	if err := a.card(os.Stdout, id); err != nil {
		return fail(err)
	}
	if actErr != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "download the XML statement of a saved portfolio" }
func (*exportCmd) Usage() string    { return "advisor export [-o <file>] <investor-id>\n" }

func (e *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.out, "o", "", "write the statement to a file instead of stdout")
}

func (e *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := investorIDArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	raw, summary, err := a.client.Statement(ctx, id)
	if err != nil {
		return fail(err)
	}
	if e.out == "" {
		os.Stdout.Write(raw)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(e.out, raw, 0o644); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d funds, total %s, written to %s\n",
		summary.PortfolioName, len(summary.Funds), a.format.MoneyDecimal(summary.Total), e.out)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "exchange the admin password for an API token" }
func (*loginCmd) Usage() string    { return "advisor login -password <password>\n" }

func (l *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password")
}

func (l *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	tok, err := a.client.Login(ctx, l.password)
	if err != nil {
		return fail(err)
	}
	fmt.Println(tok)
	return subcommands.ExitSuccess
}
