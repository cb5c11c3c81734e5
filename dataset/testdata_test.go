package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validCSV = `name,price,current_players,peak_players_today,date
Counter-Strike 2,0,1203456,1650000,2024-11-02
Dota 2,0,512345,780000,2024-11-02
PUBG: BATTLEGROUNDS,0,250000,700000,2024-11-02
Baldur's Gate 3,59.99,80000,120000,2024-11-02
Elden Ring,49.99,45000,60000,2024-11-02
Stardew Valley,13.99,40000,52000,2024-11-02
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
