// Command scraper mantém o snapshot novo atualizado, uma vez ou em loop.
//
//	scraper                   # uma coleta e sai
//	scraper --every 6h        # coleta agora e a cada 6h até SIGINT/SIGTERM
//
// Útil num cron ou sidecar ao lado do gameinsight serve, que então pode
// subir com DATA_MIN_REFRESH alto e quase nunca coletar sozinho.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameinsight/dataset/steam"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type CLI struct {
	Output   string        `name:"output" short:"o" env:"DATA_FRESH_PATH" default:"games_fresh.csv" type:"path"`
	Every    time.Duration `name:"every" env:"SCRAPE_EVERY" default:"0s" help:"Repeat interval; 0 scrapes once."`
	Timeout  time.Duration `name:"scrape-timeout" env:"SCRAPE_TIMEOUT" default:"60s"`
	Limit    int           `name:"scrape-limit" env:"SCRAPE_LIMIT" default:"100"`
	RPS      float64       `name:"scrape-rps" env:"SCRAPE_RPS" default:"5"`
	Currency string        `name:"currency" env:"STEAM_CURRENCY" default:"us"`
	LogLevel string        `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error"`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli, kong.Name("scraper"), kong.Description("Scrape the most played Steam games into a CSV snapshot."))

	lvl, _ := log.ParseLevel(cli.LogLevel)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := steam.New(steam.Config{
		OutputPath: cli.Output,
		Limit:      cli.Limit,
		RPS:        cli.RPS,
		Currency:   cli.Currency,
		Timeout:    cli.Timeout,
	}, steam.WithLogger(log.WithField("component", "steam")))

	if err := run(ctx, s, cli.Every); err != nil {
		log.WithError(err).Error("scraper failed")
		os.Exit(1)
	}
}

// run coleta uma vez e, com every > 0, repete até o ctx acabar. No loop uma
// coleta falha só é logada: o snapshot anterior continua no disco.
func run(ctx context.Context, s *steam.Scraper, every time.Duration) error {
	err := once(ctx, s)
	if every <= 0 {
		return err
	}

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("scraper stopped")
			return nil
		case <-t.C:
			_ = once(ctx, s)
		}
	}
}

func once(ctx context.Context, s *steam.Scraper) error {
	start := time.Now()
	err := s.Scrape(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		log.WithError(err).Warn("scrape failed")
		return err
	}
	log.WithFields(log.Fields{"path": s.OutputPath(), "took": time.Since(start).Round(time.Millisecond)}).Info("snapshot written")
	return nil
}
