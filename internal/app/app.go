package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/presenter"
	"github.com/NamanSrivas/precious-metals-app/internal/screen"
)

const helpText = `Available commands:
  list              show all metals
  select <metal>    open the detail screen (code or name, e.g. XAU, gold)
  back              return to the list
  refresh           refresh the detail screen now
  quotes            fetch every metal from the price source
  status            show the status digest
  help              show this message`

// App owns the navigator and the periodic status digest, and turns user
// commands into screen transitions.
type App struct {
	Cron      *cron.Cron
	Navigator *screen.Navigator
	Oracle    *oracle.Oracle
	Catalog   *metals.Catalog
	Clock     clock.Clock
	Ctx       context.Context

	log *logrus.Entry
}

// New creates a new App. A nil clock uses the wall clock.
func New(ctx context.Context, nav *screen.Navigator, o *oracle.Oracle, cat *metals.Catalog, clk clock.Clock) *App {
	if clk == nil {
		clk = clock.New()
	}
	return &App{
		Cron:      cron.New(cron.WithSeconds()),
		Navigator: nav,
		Oracle:    o,
		Catalog:   cat,
		Clock:     clk,
		Ctx:       ctx,
		log:       logger.For("app"),
	}
}

// RegisterAll registers the status digest job.
func (a *App) RegisterAll(statusCron string) error {
	if _, err := a.Cron.AddFunc(statusCron, a.statusTask); err != nil {
		return fmt.Errorf("register status task: %w", err)
	}
	return nil
}

// Start mounts the list screen and starts the cron scheduler.
func (a *App) Start() error {
	if err := a.Navigator.Start(a.Ctx); err != nil {
		return fmt.Errorf("start navigator: %w", err)
	}
	a.Cron.Start()
	a.log.Info("app started")
	return nil
}

// Stop stops the cron scheduler and unmounts every screen.
func (a *App) Stop() {
	<-a.Cron.Stop().Done()
	a.Navigator.Stop()
	a.log.Info("app stopped")
}

func (a *App) statusTask() {
	a.log.WithFields(a.statusFields()).Info("status")
}

func (a *App) statusFields() logrus.Fields {
	list := a.Navigator.List().State()
	fields := logrus.Fields{
		"list_ticks": list.TickCount,
		"screen":     a.Navigator.Current(),
	}
	if d := a.Navigator.Detail(); d != nil {
		st := d.State()
		fields["metal"] = d.Metal().Code
		fields["detail_ticks"] = st.TickCount
		fields["detail_updated"] = presenter.SinceUpdate(a.Clock.Now(), st.LastUpdated)
		fields["offline"] = d.Snapshot().IsOffline
	}
	return fields
}

// Status renders the status digest.
func (a *App) Status() string {
	list := a.Navigator.List().State()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Screen: %s\n", a.Navigator.Current()))
	b.WriteString(fmt.Sprintf("List updates: %d\n", list.TickCount))
	if d := a.Navigator.Detail(); d != nil {
		st := d.State()
		b.WriteString(fmt.Sprintf("Detail: %s, %d updates, updated %s\n",
			d.Metal().Name, st.TickCount, presenter.SinceUpdate(a.Clock.Now(), st.LastUpdated)))
		if d.Snapshot().IsOffline {
			b.WriteString("Detail is showing offline data\n")
		}
	}
	return b.String()
}

// HandleCommand processes a user command and returns a reply.
func (a *App) HandleCommand(command string) string {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if len(fields) == 0 {
		return helpText
	}
	verb, args := strings.ToLower(fields[0]), strings.Join(fields[1:], " ")

	switch verb {
	case "list":
		return a.showList()
	case "select":
		if args == "" {
			return "Usage: select <metal>"
		}
		return a.selectMetal(args)
	case "back":
		if !a.Navigator.Back() {
			return "Already on the list screen\n\n" + a.showList()
		}
		return a.showList()
	case "refresh":
		return a.refresh()
	case "quotes":
		return a.quotes()
	case "status":
		return a.Status()
	case "help":
		return helpText
	default:
		if _, ok := a.Catalog.Find(strings.Join(fields, " ")); ok {
			return a.selectMetal(strings.Join(fields, " "))
		}
		return fmt.Sprintf("Unknown command %q\n\n%s", fields[0], helpText)
	}
}

func (a *App) showList() string {
	return presenter.FormatList(a.Navigator.List().State(), a.Catalog)
}

func (a *App) selectMetal(key string) string {
	metal, ok := a.Catalog.Find(key)
	if !ok {
		return fmt.Sprintf("Unknown metal %q", key)
	}
	d, err := a.Navigator.Select(metal.Code)
	if err != nil {
		a.log.WithError(err).WithField("metal", metal.Code).Error("select failed")
		return fmt.Sprintf("Cannot open %s: %v", metal.Name, err)
	}
	return a.showDetail(d)
}

func (a *App) refresh() string {
	d := a.Navigator.Detail()
	if d == nil {
		return "No metal selected"
	}
	err := d.Refresh(a.Ctx)
	switch {
	case err == nil:
		return a.showDetail(d)
	case errors.Is(err, screen.ErrRefreshInProgress):
		return "Refresh already in progress"
	case errors.Is(err, screen.ErrNotMounted):
		return "Detail screen closed"
	default:
		return "Error: Failed to refresh data\n\n" + a.showDetail(d)
	}
}

func (a *App) showDetail(d *screen.DetailScreen) string {
	return presenter.FormatDetail(d.State(), d.Metal(), a.Clock.Now())
}

func (a *App) quotes() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Quotes from %s\n\n", a.Oracle.Source.Name()))
	for _, r := range a.Oracle.FetchAll(a.Ctx) {
		b.WriteString(formatQuote(a.Catalog.Name(r.Metal), r.Data))
	}
	return b.String()
}

func formatQuote(name string, snap model.PriceSnapshot) string {
	line := fmt.Sprintf("  %-10s %12s  %s (%s)", name,
		presenter.FormatPrice(snap.Price), presenter.FormatChange(snap.Change), presenter.FormatPercent(snap.ChangePercent))
	if snap.IsOffline {
		line += " [offline]"
	}
	return line + "\n"
}
