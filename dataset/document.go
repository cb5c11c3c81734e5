package dataset

import (
	"fmt"
	"strconv"
)

// Document é a forma textual de uma linha, indexada pelo RAG.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Text é o conteúdo indexado de um jogo.
func (g Game) Text() string {
	return fmt.Sprintf("Game: %s, Price: %s, Current Players: %d, Peak Players Today: %d, Date: %s",
		g.Name, strconv.FormatFloat(g.Price, 'f', 2, 64), g.CurrentPlayers, g.PeakPlayersToday, g.Date.Format(DateLayout))
}

// Documents converte o snapshot em documentos com ids estáveis por posição.
func Documents(games []Game) []Document {
	docs := make([]Document, 0, len(games))
	for i, g := range games {
		docs = append(docs, Document{
			ID:      fmt.Sprintf("row-%04d", i),
			Content: g.Text(),
			Metadata: map[string]string{
				"name":               g.Name,
				"date":               g.Date.Format(DateLayout),
				"price":              strconv.FormatFloat(g.Price, 'f', -1, 64),
				"current_players":    strconv.FormatInt(g.CurrentPlayers, 10),
				"peak_players_today": strconv.FormatInt(g.PeakPlayersToday, 10),
			},
		})
	}
	return docs
}
