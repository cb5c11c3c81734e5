package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Columns são as colunas obrigatórias de um snapshot, na ordem em que o
// scraper as escreve.
var Columns = []string{"name", "price", "current_players", "peak_players_today", "date"}

const DateLayout = "2006-01-02"

// Game é uma linha do snapshot.
type Game struct {
	Name             string
	Price            float64
	CurrentPlayers   int64
	PeakPlayersToday int64
	Date             time.Time
}

// Load lê o snapshot inteiro. Linhas com valores que não convertem são puladas
// com um aviso; o arquivo é aberto e fechado aqui dentro.
func Load(path string, logger log.FieldLogger) ([]Game, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: read header: %w", path, err)
	}
	idx, missing := columnIndex(header)
	if len(missing) > 0 {
		return nil, fmt.Errorf("load snapshot %s: missing columns: %s", path, strings.Join(missing, ", "))
	}

	var games []Game
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", path, err)
		}

		g, err := parseGame(rec, idx)
		if err != nil {
			logger.WithFields(log.Fields{"path": path, "line": line}).Warnf("skipping row: %v", err)
			continue
		}
		games = append(games, g)
	}
	return games, nil
}

func parseGame(rec []string, idx map[string]int) (Game, error) {
	field := func(col string) string { return strings.TrimSpace(rec[idx[col]]) }

	g := Game{Name: field("name")}
	if g.Name == "" {
		return Game{}, errors.New("empty name")
	}

	var err error
	if g.Price, err = strconv.ParseFloat(field("price"), 64); err != nil {
		return Game{}, fmt.Errorf("price: %w", err)
	}
	if g.CurrentPlayers, err = parseCount(field("current_players")); err != nil {
		return Game{}, fmt.Errorf("current_players: %w", err)
	}
	if g.PeakPlayersToday, err = parseCount(field("peak_players_today")); err != nil {
		return Game{}, fmt.Errorf("peak_players_today: %w", err)
	}
	if g.Date, err = parseDate(field("date")); err != nil {
		return Game{}, fmt.Errorf("date: %w", err)
	}
	if g.Price < 0 || g.CurrentPlayers < 0 || g.PeakPlayersToday < 0 {
		return Game{}, errors.New("negative value")
	}
	return g, nil
}

// parseCount aceita "1234" e também "1234.0" (colunas que já passaram por float).
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as %s", s, DateLayout)
}

// columnIndex mapeia as colunas obrigatórias para a posição no header.
func columnIndex(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(Columns))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return idx, missing
}

// WriteCSV escreve os jogos no formato do snapshot (header incluso).
func WriteCSV(w io.Writer, games []Game) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, g := range games {
		row := []string{
			g.Name,
			strconv.FormatFloat(g.Price, 'f', -1, 64),
			strconv.FormatInt(g.CurrentPlayers, 10),
			strconv.FormatInt(g.PeakPlayersToday, 10),
			g.Date.Format(DateLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile grava o snapshot num temporário e renomeia por cima de path,
// então um scrape interrompido nunca deixa um arquivo pela metade.
func WriteFile(path string, games []Game) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, games); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
