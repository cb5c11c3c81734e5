package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

type QuotaCmd struct {
	Quota QuotaFlags `embed:""`

	Key     string `arg:"" help:"User key (the session id for the HTTP API)."`
	Consume bool   `name:"consume" help:"Spend one question, as asking would."`
}

func (c *QuotaCmd) Run(ctx context.Context) error {
	if err := c.Quota.Validate(); err != nil {
		return err
	}
	q, err := c.Quota.build(ctx, "cli")
	if err != nil {
		return err
	}
	defer q.close()

	if c.Consume {
		dec, err := q.svc.Decide(ctx, c.Key)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "allowed:   %t\n", dec.Allowed)
	}

	remaining, err := q.svc.RemainingRequests(ctx, c.Key)
	if err != nil {
		return err
	}
	reset, err := q.svc.ResetTime(ctx, c.Key)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "limit:     %d per %s\nremaining: %d\nresets at: %s\n",
		q.svc.Policy().MaxRequests, q.svc.Policy().Window, remaining, reset.UTC().Format(time.RFC3339))
	return nil
}
