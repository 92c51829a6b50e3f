package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/command"
	"github.com/felixgeelhaar/glance/internal/config"
	"github.com/felixgeelhaar/glance/internal/guard"
	"github.com/felixgeelhaar/glance/internal/observe"
	"github.com/felixgeelhaar/glance/internal/searchapi"
	"github.com/felixgeelhaar/glance/internal/session"
	"github.com/felixgeelhaar/glance/internal/store"
	"github.com/felixgeelhaar/glance/internal/ui"
	"github.com/felixgeelhaar/glance/internal/ui/tui"
)

// Runner wires settings, store and observer into a search session.
type Runner struct {
	Observer *observe.Observer
	Store    store.Storage
	Settings *config.Settings
	UI       ui.UI
	Out      io.Writer

	Filters catalog.Filters
	Pages   int
}

func NewRunner(obs *observe.Observer, s store.Storage, settings *config.Settings, u ui.UI) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	return &Runner{
		Observer: obs,
		Store:    s,
		Settings: settings,
		UI:       u,
		Out:      os.Stdout,
		Pages:    1,
	}
}

// session validates the settings and builds a recorded session.
func (r *Runner) session() (*session.Session, error) {
	res := r.Settings.Validate()
	for _, w := range res.Warnings {
		r.Observer.Log().Warn().Msg(w)
	}
	if !res.Valid {
		return nil, fmt.Errorf("invalid settings: %s", strings.Join(res.Errors, "; "))
	}

	g := guard.New(guard.DefaultPolicy)
	if v := g.CheckPageSize(r.Settings.Search.PageSize); v != nil {
		return nil, v
	}

	api, err := searchapi.New(searchapi.Options{
		Endpoints: searchapi.Endpoints{
			Search:  r.Settings.API.SearchURL,
			Detail:  r.Settings.API.DetailURL,
			Similar: r.Settings.API.SimilarURL,
		},
		ClientName: r.Settings.API.Client,
		Token:      r.Settings.API.Token,
		Timeout:    time.Duration(r.Settings.API.Timeout),
		RateLimit:  r.Settings.API.RateLimit,
		Observer:   r.Observer,
	})
	if err != nil {
		return nil, err
	}

	s := session.New(api, session.Options{
		PageSize: r.Settings.Search.PageSize,
		Guard:    g,
		Observer: r.Observer,
	})
	session.Record(s.Bus(), r.Store, r.Observer)
	if err := s.ApplyFilters(r.Filters); err != nil {
		return nil, err
	}
	return s, nil
}

// Search runs q and fetches up to r.Pages pages, then prints the results.
func (r *Runner) Search(ctx context.Context, q session.Query) error {
	s, err := r.session()
	if err != nil {
		return err
	}
	ui.Attach(s.Bus(), r.UI)

	switch q.Kind {
	case session.QueryImage:
		err = s.StartImageSearch(ctx, q.Image)
	default:
		err = s.StartTextSearch(ctx, q.Text)
	}
	for page := 1; err == nil && page < r.Pages && !s.Exhausted(); page++ {
		err = s.LoadMore(ctx)
	}

	results := s.Results()
	for _, p := range results {
		fmt.Fprintln(r.Out, ui.Line(p))
	}
	if err != nil {
		r.Observer.Log().Error().Err(err).Msg("search failed")
		if msg := s.LastError(); msg != "" {
			return fmt.Errorf("search failed: %s", msg)
		}
		return err
	}

	summary := fmt.Sprintf("%d results", len(results))
	if !s.Filters().IsZero() {
		summary += " for " + s.Filters().String()
	}
	if !s.Exhausted() {
		summary += ", more available"
	}
	fmt.Fprintf(r.Out, "\n%s (search %s)\n", summary, s.ID())
	return nil
}

// Detail prints the product behind hash and its similar items.
func (r *Runner) Detail(ctx context.Context, hash string) error {
	s, err := r.session()
	if err != nil {
		return err
	}
	ui.Attach(s.Bus(), r.UI)

	d, err := s.FetchDetail(ctx, hash)
	if err != nil {
		return fmt.Errorf("detail failed: %s", s.LastError())
	}
	if d.Product == nil {
		fmt.Fprintf(r.Out, "no product for %s\n", hash)
		return nil
	}

	p := d.Product
	fmt.Fprintln(r.Out, ui.Line(*p))
	if p.Description != "" {
		fmt.Fprintln(r.Out, p.Description)
	}
	if p.Link != "" {
		fmt.Fprintln(r.Out, p.Link)
	}
	fmt.Fprintf(r.Out, "\nSimilar (%d)\n", len(d.Similar))
	for _, sp := range d.Similar {
		fmt.Fprintln(r.Out, "  "+ui.Line(sp))
	}
	return nil
}

// Interactive opens the search screen, optionally running initial first.
func (r *Runner) Interactive(ctx context.Context, initial string) error {
	s, err := r.session()
	if err != nil {
		return err
	}

	reg := command.NewRegistry()
	if err := command.Builtins(reg, s); err != nil {
		return err
	}

	opts := tui.Options{
		Tiers:    ui.TiersFor(r.Settings.UI.Layout),
		Commands: reg,
		Initial:  initial,
	}
	if r.Settings.Search.Live {
		opts.Debouncer = session.NewDebouncer(time.Duration(r.Settings.Search.Debounce))
	}

	program := tea.NewProgram(tui.NewModel(ctx, s, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	ui.Attach(s.Bus(), tui.NewTUI(program))

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive screen failed: %w", err)
	}
	return nil
}

// History lists recorded searches, newest first.
func (r *Runner) History(limit int) error {
	searches, err := r.Store.ListSearches(limit)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Fprintln(r.Out, "no searches yet")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "KIND", "QUERY", "FILTERS", "STATUS", "RESULTS")
	for _, s := range searches {
		t.Row(
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.Kind,
			ui.Truncate(s.Query, 40),
			s.Filters,
			s.Status,
			fmt.Sprint(s.ResultCount),
		)
	}
	fmt.Fprintln(r.Out, t.String())
	return nil
}
