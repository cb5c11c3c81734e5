package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrDataUnavailable: nem o snapshot novo nem o backup são utilizáveis.
// É fatal no startup.
var ErrDataUnavailable = errors.New("no usable dataset")

// DataUnavailableError carrega o motivo de cada candidato.
type DataUnavailableError struct {
	Fresh  Candidate
	Backup Candidate
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%v: fresh %s; backup %s", ErrDataUnavailable, e.Fresh, e.Backup)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// Scraper atualiza o snapshot novo no caminho que ele mesmo conhece.
type Scraper interface {
	Scrape(ctx context.Context) error
}

// ScraperFunc adapta uma função a Scraper.
type ScraperFunc func(ctx context.Context) error

func (f ScraperFunc) Scrape(ctx context.Context) error { return f(ctx) }

// Snapshot identifica o snapshot escolhido para a sessão.
type Snapshot struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	// Digest é o sha256 do conteúdo, em hex. Vazio quando o arquivo não pôde
	// ser lido no Resolve.
	Digest string
}

// ID identifica o conteúdo do snapshot: um re-scrape que regrava os mesmos
// bytes mantém o ID. Sem Digest, cai para caminho, mtime e tamanho.
func (s Snapshot) ID() string {
	if s.Digest != "" {
		return "sha256:" + s.Digest
	}
	return fmt.Sprintf("%s@%d:%d", s.Path, s.ModTime.UnixNano(), s.Size)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decide é a política de fallback: prefere o novo, cai para o backup, e
// falha se nenhum for utilizável.
func Decide(fresh, backup Candidate) (Candidate, error) {
	if fresh.Usable {
		return fresh, nil
	}
	if backup.Usable {
		return backup, nil
	}
	return Candidate{}, &DataUnavailableError{Fresh: fresh, Backup: backup}
}

type ResolverConfig struct {
	FreshPath  string
	BackupPath string
	SampleRows int
	// MinRefreshInterval > 0 pula o scrape quando o snapshot novo é mais
	// recente que isso.
	MinRefreshInterval time.Duration
}

// Resolver escolhe o snapshot de uma sessão. Seguro para uso concorrente:
// sessões simultâneas no mesmo processo compartilham um único scrape em voo.
type Resolver struct {
	cfg     ResolverConfig
	scraper Scraper
	log     log.FieldLogger
	now     func() time.Time

	refresh singleflight.Group
}

type ResolverOption func(*Resolver)

func WithLogger(l log.FieldLogger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(cfg ResolverConfig, scraper Scraper, opts ...ResolverOption) *Resolver {
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = DefaultSampleRows
	}
	r := &Resolver{
		cfg:     cfg,
		scraper: scraper,
		log:     log.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tenta atualizar o snapshot novo (best-effort), valida os dois
// candidatos e devolve o escolhido. Só falha com *DataUnavailableError.
func (r *Resolver) Resolve(ctx context.Context) (Snapshot, error) {
	if err := r.tryRefresh(ctx); err != nil {
		r.log.WithError(err).Warn("dataset refresh failed, falling back")
	}

	fresh := Assess("fresh", r.cfg.FreshPath, r.cfg.SampleRows)
	if !fresh.Usable {
		r.log.WithField("reason", fresh.Reason).Warn("fresh snapshot unusable")
	}
	backup := Candidate{Name: "backup", Path: r.cfg.BackupPath, Reason: "not checked"}
	if !fresh.Usable {
		backup = Assess("backup", r.cfg.BackupPath, r.cfg.SampleRows)
	}

	chosen, err := Decide(fresh, backup)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Name: chosen.Name, Path: chosen.Path}
	if st, err := os.Stat(chosen.Path); err == nil {
		snap.ModTime = st.ModTime()
		snap.Size = st.Size()
	}
	if d, err := fileDigest(chosen.Path); err == nil {
		snap.Digest = d
	} else {
		r.log.WithError(err).Warn("snapshot digest failed")
	}
	r.log.WithFields(log.Fields{"snapshot": snap.Name, "path": snap.Path, "id": snap.ID()}).Info("dataset resolved")
	return snap, nil
}

func (r *Resolver) tryRefresh(ctx context.Context) error {
	if r.scraper == nil {
		return errors.New("no scraper configured")
	}
	if r.recentEnough() {
		r.log.WithField("path", r.cfg.FreshPath).Debug("fresh snapshot is recent, skipping scrape")
		return nil
	}

	_, err, shared := r.refresh.Do("scrape", func() (any, error) {
		return nil, r.scrape(ctx)
	})
	if shared {
		r.log.Debug("joined in-flight scrape")
	}
	return err
}

// scrape converte panic do scraper em erro: o refresh nunca derruba o startup.
func (r *Resolver) scrape(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scraper panic: %v", p)
		}
	}()
	return r.scraper.Scrape(ctx)
}

func (r *Resolver) recentEnough() bool {
	if r.cfg.MinRefreshInterval <= 0 {
		return false
	}
	st, err := os.Stat(r.cfg.FreshPath)
	if err != nil {
		return false
	}
	return r.now().Sub(st.ModTime()) < r.cfg.MinRefreshInterval
}
