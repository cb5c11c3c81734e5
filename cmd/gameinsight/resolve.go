package main

import (
	"context"
	"fmt"
	"os"

	"gameinsight/dataset"

	log "github.com/sirupsen/logrus"
)

type ResolveCmd struct {
	Data   DataFlags   `embed:""`
	Scrape ScrapeFlags `embed:""`

	NoScrape bool `name:"no-scrape" help:"Only validate the files already on disk."`
}

func (c *ResolveCmd) Run(ctx context.Context) error {
	if err := c.Data.Validate(); err != nil {
		return err
	}

	var scraper dataset.Scraper = c.Scrape.scraper(c.Data.FreshPath)
	if c.NoScrape {
		scraper = dataset.ScraperFunc(func(context.Context) error { return nil })
	}

	snap, err := c.Data.resolver(scraper).Resolve(ctx)
	if err != nil {
		return err
	}
	games, err := dataset.Load(snap.Path, log.WithField("component", "resolve"))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "snapshot: %s\npath:     %s\nmodified: %s\ngames:    %d\n",
		snap.Name, snap.Path, snap.ModTime.UTC().Format("2006-01-02 15:04:05 MST"), len(games))
	return nil
}
