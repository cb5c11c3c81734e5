package main

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type ScrapeCmd struct {
	Scrape ScrapeFlags `embed:""`

	Output string `name:"output" short:"o" env:"DATA_FRESH_PATH" default:"games_fresh.csv" type:"path" help:"Where the snapshot is written."`
}

func (c *ScrapeCmd) Run(ctx context.Context) error {
	if c.Output == "" {
		return errors.New("DATA_FRESH_PATH is required")
	}
	if err := c.Scrape.scraper(c.Output).Scrape(ctx); err != nil {
		return err
	}
	log.WithField("path", c.Output).Info("snapshot written")
	return nil
}
