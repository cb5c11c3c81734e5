package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gameinsight/quota/domain"
	"gameinsight/quota/infra"
	"gameinsight/session"

	log "github.com/sirupsen/logrus"
)

type ChatCmd struct {
	Quota  QuotaFlags  `embed:""`
	Data   DataFlags   `embed:""`
	Scrape ScrapeFlags `embed:""`
	LLM    LLMFlags    `embed:""`

	UserKey string `name:"user" env:"USER_KEY" help:"Quota key for this terminal; empty generates one."`
}

func (c *ChatCmd) Run(ctx context.Context) error {
	if err := validateAll(&c.Quota, &c.Data, &c.LLM); err != nil {
		return err
	}

	stats := infra.NewMemoryStatsStore()
	q, err := c.Quota.build(ctx, "cli", stats)
	if err != nil {
		return err
	}
	defer q.close()

	sess, err := session.New(ctx, session.Deps{
		Resolver:   c.Data.resolver(c.Scrape.scraper(c.Data.FreshPath)),
		Limiter:    q.svc,
		BuildChain: c.LLM.chainBuilder(),
		UserKey:    c.UserKey,
		Logger:     log.WithField("component", "chat"),
	})
	if err != nil {
		return err
	}

	r := &repl{sess: sess, quota: q.svc, out: os.Stdout}
	err = r.run(ctx, os.Stdin)

	total := stats.Total()
	log.WithFields(log.Fields{
		"session": sess.ID(),
		"allowed": total.Allowed,
		"denied":  total.Denied,
	}).Info("chat ended")
	return err
}

type repl struct {
	sess  *session.Session
	quota interface {
		RemainingRequests(ctx context.Context, userKey string) (int, error)
		ResetTime(ctx context.Context, userKey string) (time.Time, error)
	}
	out io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	snap := r.sess.Snapshot()
	fmt.Fprintf(r.out, "dataset: %s (%s)\n", snap.Name, snap.Path)
	fmt.Fprintln(r.out, "suggested questions:")
	for i, s := range r.sess.SuggestedQuestions() {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, s)
	}
	fmt.Fprintln(r.out, "type a question, a number from the list, /quota, /history or /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/quota":
			if err := r.printQuota(ctx); err != nil {
				return err
			}
			continue
		case "/history":
			for _, m := range r.sess.History() {
				fmt.Fprintf(r.out, "[%s] %s: %s\n", m.At.UTC().Format("15:04:05"), m.Role, m.Content)
			}
			continue
		}

		if err := r.ask(ctx, r.pick(line)); err != nil {
			return err
		}
	}
}

// pick troca "3" pela terceira pergunta sugerida.
func (r *repl) pick(line string) string {
	n, err := strconv.Atoi(line)
	if err != nil {
		return line
	}
	suggested := r.sess.SuggestedQuestions()
	if n < 1 || n > len(suggested) {
		return line
	}
	fmt.Fprintf(r.out, "  %s\n", suggested[n-1])
	return suggested[n-1]
}

func (r *repl) ask(ctx context.Context, question string) error {
	reply, err := r.sess.Ask(ctx, question)
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		return nil
	case errors.Is(err, domain.ErrStoreUnavailable):
		// sem store não dá para garantir a cota; a conversa termina
		return fmt.Errorf("quota store unavailable: %w", err)
	case err != nil:
		return err
	}

	switch {
	case !reply.Allowed:
		fmt.Fprintln(r.out, reply.Message)
	case reply.Failed:
		fmt.Fprintln(r.out, reply.Message)
	default:
		fmt.Fprintln(r.out, reply.Answer)
		fmt.Fprintf(r.out, "(%d question(s) left)\n", reply.Remaining)
	}
	return nil
}

func (r *repl) printQuota(ctx context.Context) error {
	remaining, err := r.quota.RemainingRequests(ctx, r.sess.ID())
	if err != nil {
		return err
	}
	reset, err := r.quota.ResetTime(ctx, r.sess.ID())
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "remaining: %d, resets at %s\n", remaining, reset.UTC().Format("2006-01-02 15:04:05 MST"))
	return nil
}
