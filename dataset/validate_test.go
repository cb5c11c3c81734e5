package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssess(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
		usable  bool
		reason  string
	}{
		{name: "valid", content: validCSV, usable: true},
		{name: "empty", content: "", reason: "empty file"},
		{name: "header only", content: "name,price,current_players,peak_players_today,date\n", reason: "no data rows"},
		{
			name:    "missing price",
			content: "name,current_players,peak_players_today,date\nDota 2,1,2,2024-11-02\n",
			reason:  "missing columns: price",
		},
		{
			name: "null current_players in sample",
			content: "name,price,current_players,peak_players_today,date\n" +
				"Dota 2,0,512345,780000,2024-11-02\n" +
				"Elden Ring,49.99,,60000,2024-11-02\n",
			reason: "row 2: null current_players",
		},
		{
			name: "NaN token counts as null",
			content: "name,price,current_players,peak_players_today,date\n" +
				"Dota 2,NaN,512345,780000,2024-11-02\n",
			reason: "row 1: null price",
		},
		{
			name: "null outside sample is ignored",
			content: validCSV +
				"Late Game,1.99,,10,2024-11-02\n",
			usable: true,
		},
		{
			name:    "extra columns are fine",
			content: "rank,name,price,current_players,peak_players_today,date\n1,Dota 2,0,5,6,2024-11-02\n",
			usable:  true,
		},
	}

	for i, tc := range cases {
		i, tc := i, tc
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".csv", tc.content)
			got := Assess("fresh", p, 5)
			require.Equal(t, tc.usable, got.Usable, "reason: %s", got.Reason)
			if !tc.usable {
				require.Equal(t, tc.reason, got.Reason)
			}
		})
	}
}

func TestAssess_MissingFile(t *testing.T) {
	got := Assess("backup", filepath.Join(t.TempDir(), "nope.csv"), 5)
	require.False(t, got.Usable)
	require.Equal(t, "missing", got.Reason)
}

func TestAssess_Directory(t *testing.T) {
	got := Assess("backup", t.TempDir(), 5)
	require.False(t, got.Usable)
	require.Equal(t, "not a regular file", got.Reason)
}

func TestAssess_RaggedRowIsMalformed(t *testing.T) {
	p := writeFile(t, t.TempDir(), "ragged.csv", "name,price,current_players,peak_players_today,date\nDota 2,0,1\n")
	got := Assess("fresh", p, 5)
	require.False(t, got.Usable)
	require.Contains(t, got.Reason, "malformed csv")
}
