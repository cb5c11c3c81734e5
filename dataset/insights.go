package dataset

// SuggestedQuestions monta perguntas de partida a partir do snapshot.
func SuggestedQuestions(games []Game) []string {
	var (
		maxPlayers int64
		hasFree    bool
		hasSurge   bool
	)
	for _, g := range games {
		maxPlayers = max(maxPlayers, g.CurrentPlayers)
		if g.Price == 0 {
			hasFree = true
		}
		if g.PeakPlayersToday > g.CurrentPlayers*2 {
			hasSurge = true
		}
	}

	var qs []string
	if maxPlayers > 100_000 {
		qs = append(qs, "What game has the highest current player count and why might it be so popular?")
	}
	if hasFree {
		qs = append(qs, "What are the most popular free-to-play games right now?")
	}
	if hasSurge {
		qs = append(qs, "Which games show the biggest difference between peak and current players today?")
	}
	return append(qs,
		"What are the current trending games based on player count growth?",
		"Which price range shows the highest player engagement?",
		"What patterns do you notice in player activity across different game genres?",
	)
}
