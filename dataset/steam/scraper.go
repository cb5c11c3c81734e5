package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gameinsight/dataset"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIBaseURL   = "https://api.steampowered.com"
	DefaultStoreBaseURL = "https://store.steampowered.com"
)

// ErrNoGames: a API respondeu, mas nenhum jogo sobreviveu à coleta.
var ErrNoGames = errors.New("steam: no games collected")

type Config struct {
	OutputPath   string
	APIBaseURL   string
	StoreBaseURL string
	// Limit corta o ranking nos primeiros N jogos.
	Limit int
	// Concurrency é quantos jogos são detalhados em paralelo.
	Concurrency int
	// RPS limita as requisições somadas às duas APIs.
	RPS      float64
	Currency string
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.OutputPath == "" {
		c.OutputPath = "games_fresh.csv"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.StoreBaseURL == "" {
		c.StoreBaseURL = DefaultStoreBaseURL
	}
	if c.Limit <= 0 {
		c.Limit = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.RPS <= 0 {
		c.RPS = 5
	}
	if c.Currency == "" {
		c.Currency = "us"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	c.StoreBaseURL = strings.TrimRight(c.StoreBaseURL, "/")
	return c
}

// Scraper implementa dataset.Scraper sobre a Steam Web API.
type Scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     log.FieldLogger
	now     func() time.Time
}

type Option func(*Scraper)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

func WithLogger(l log.FieldLogger) Option {
	return func(s *Scraper) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

func New(cfg Config, opts ...Option) *Scraper {
	cfg = cfg.withDefaults()
	s := &Scraper{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		log:     log.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) OutputPath() string { return s.cfg.OutputPath }

// Scrape coleta o ranking e grava o snapshot em OutputPath. O arquivo anterior
// só é substituído quando a coleta inteira dá certo.
func (s *Scraper) Scrape(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	games, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := dataset.WriteFile(s.cfg.OutputPath, games); err != nil {
		return err
	}
	s.log.WithFields(log.Fields{"path": s.cfg.OutputPath, "games": len(games)}).Info("steam snapshot written")
	return nil
}

type rankedApp struct {
	AppID int64
	Peak  int64
}

// Fetch devolve os jogos na ordem do ranking. Jogos cujo detalhe falha são
// pulados com um aviso.
func (s *Scraper) Fetch(ctx context.Context) ([]dataset.Game, error) {
	ranked, err := s.mostPlayed(ctx)
	if err != nil {
		return nil, err
	}

	day := s.now().UTC().Truncate(24 * time.Hour)
	slots := make([]*dataset.Game, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, app := range ranked {
		i, app := i, app
		g.Go(func() error {
			game, err := s.details(gctx, app)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.WithError(err).WithField("appid", app.AppID).Warn("skipping game")
				return nil
			}
			game.Date = day
			slots[i] = &game
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("steam: %w", err)
	}

	games := make([]dataset.Game, 0, len(slots))
	for _, gm := range slots {
		if gm != nil {
			games = append(games, *gm)
		}
	}
	if len(games) == 0 {
		return nil, ErrNoGames
	}
	return games, nil
}

func (s *Scraper) mostPlayed(ctx context.Context) ([]rankedApp, error) {
	body, err := s.get(ctx, s.cfg.APIBaseURL+"/ISteamChartsService/GetMostPlayedGames/v1/", nil)
	if err != nil {
		return nil, fmt.Errorf("steam: most played: %w", err)
	}

	ranks := gjson.GetBytes(body, "response.ranks")
	if !ranks.IsArray() {
		return nil, errors.New("steam: most played: response.ranks missing")
	}

	var apps []rankedApp
	ranks.ForEach(func(_, r gjson.Result) bool {
		apps = append(apps, rankedApp{
			AppID: r.Get("appid").Int(),
			Peak:  NormalizePlayers(r.Get("peak_in_game").String()),
		})
		return len(apps) < s.cfg.Limit
	})
	if len(apps) == 0 {
		return nil, ErrNoGames
	}
	return apps, nil
}

func (s *Scraper) details(ctx context.Context, app rankedApp) (dataset.Game, error) {
	id := strconv.FormatInt(app.AppID, 10)

	body, err := s.get(ctx, s.cfg.StoreBaseURL+"/api/appdetails", url.Values{
		"appids":  {id},
		"cc":      {s.cfg.Currency},
		"filters": {"basic,price_overview"},
	})
	if err != nil {
		return dataset.Game{}, fmt.Errorf("appdetails: %w", err)
	}
	entry := gjson.GetBytes(body, gjson.Escape(id))
	if !entry.Get("success").Bool() {
		return dataset.Game{}, errors.New("appdetails: success=false")
	}
	data := entry.Get("data")
	name := strings.TrimSpace(data.Get("name").String())
	if name == "" {
		return dataset.Game{}, errors.New("appdetails: empty name")
	}

	body, err = s.get(ctx, s.cfg.APIBaseURL+"/ISteamUserStats/GetNumberOfCurrentPlayers/v1/", url.Values{"appid": {id}})
	if err != nil {
		return dataset.Game{}, fmt.Errorf("current players: %w", err)
	}
	current := gjson.GetBytes(body, "response.player_count")
	if !current.Exists() {
		return dataset.Game{}, errors.New("current players: response.player_count missing")
	}

	game := dataset.Game{
		Name:             name,
		Price:            price(data),
		CurrentPlayers:   NormalizePlayers(current.String()),
		PeakPlayersToday: app.Peak,
	}
	// o pico do ranking é diário e pode estar atrasado em relação à contagem atual
	game.PeakPlayersToday = max(game.PeakPlayersToday, game.CurrentPlayers)
	return game, nil
}

func price(data gjson.Result) float64 {
	if data.Get("is_free").Bool() {
		return 0
	}
	po := data.Get("price_overview")
	if final := po.Get("final"); final.Exists() && final.Type == gjson.Number {
		return float64(final.Int()) / 100
	}
	return NormalizePrice(po.Get("final_formatted").String())
}

func (s *Scraper) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json")
	}
	return body, nil
}

var _ dataset.Scraper = (*Scraper)(nil)
