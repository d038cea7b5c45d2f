package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/NamanSrivas/precious-metals-app/internal/alert"
	"github.com/NamanSrivas/precious-metals-app/internal/api"
	"github.com/NamanSrivas/precious-metals-app/internal/app"
	"github.com/NamanSrivas/precious-metals-app/internal/config"
	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/screen"
)

func main() {
	_ = godotenv.Load()

	a := cli.NewApp()
	a.Name = "metalshud"
	a.Usage = "live precious metals price HUD"
	a.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Value: "configs/config.yaml", EnvVar: "CONFIG_PATH", Usage: "path to the YAML config"},
		cli.StringFlag{Name: "http", Usage: "HTTP listen address, overrides http.addr"},
		cli.BoolFlag{Name: "no-console", Usage: "do not read commands from stdin"},
	}
	a.Action = run

	if err := a.Run(os.Args); err != nil {
		logger.Get().WithError(err).Fatal("metalshud failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr := c.String("http"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logger.Init(cfg.Log.Level)
	log := logger.Get()
	log.Info("metalshud starting")

	cat := metals.Default()
	if len(cfg.Metals) > 0 {
		if cat, err = metals.NewCatalog(cfg.Metals); err != nil {
			return fmt.Errorf("metals: %w", err)
		}
	}

	clk := clock.New()
	gen, err := oracle.NewGenerator(cfg.List.Strategy, cfg.List.Seed)
	if err != nil {
		return fmt.Errorf("list generator: %w", err)
	}

	var src oracle.Source
	switch cfg.Oracle.Mode {
	case config.ModeAPI:
		src = oracle.NewMetalPriceSource(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.Currency, cfg.Proxy, cat)
	default:
		src = oracle.NewMockSource(cat, oracle.MockOptions{
			MinDelay:    cfg.Oracle.MinDelay,
			MaxDelay:    cfg.Oracle.MaxDelay,
			FailureRate: cfg.FailureRate(),
			Seed:        cfg.Oracle.Seed,
			Clock:       clk,
		})
	}
	log.WithField("source", src.Name()).Info("price source ready")
	o := oracle.New(src, cat, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alerters := alert.Multi{alert.NewLogAlerter()}
	var tg *alert.TelegramAlerter
	if cfg.TelegramEnabled() {
		tg = alert.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		alerters = append(alerters, tg)
	}

	opts := screen.Options{Interval: cfg.Refresh.Interval, Clock: clk}
	nav := screen.NewNavigator(screen.NewListScreen(cat, gen, opts), func(sel model.Selection) *screen.DetailScreen {
		return screen.NewDetailScreen(sel, o, alerters, opts)
	})

	hud := app.New(ctx, nav, o, cat, clk)
	if err := hud.RegisterAll(cfg.Schedule.StatusCron); err != nil {
		return err
	}
	srv := api.NewServer(cfg.HTTP.Addr, nav, o, cat)

	if err := hud.Start(); err != nil {
		return err
	}
	defer hud.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if tg != nil {
		g.Go(func() error {
			tg.StartPolling(gctx, hud.HandleCommand)
			return nil
		})
		log.Info("telegram polling started")
	}
	if !c.Bool("no-console") {
		go console(gctx, os.Stdin, os.Stdout, hud.HandleCommand, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case <-gctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("metalshud stopped")
	return nil
}

// console reads one command per line and prints the reply.
func console(ctx context.Context, in io.Reader, out io.Writer, handle alert.CommandHandler, log *logrus.Logger) {
	fmt.Fprintln(out, handle("list"))
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if reply := handle(sc.Text()); reply != "" {
			fmt.Fprintln(out, reply)
		}
	}
	if err := sc.Err(); err != nil {
		log.WithError(err).Warn("console input closed")
	}
}
