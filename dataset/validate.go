package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultSampleRows é quantas linhas de dados são checadas contra nulos.
const DefaultSampleRows = 5

// Candidate é o estado de um snapshot candidato: utilizável ou não, com o motivo.
type Candidate struct {
	Name   string
	Path   string
	Usable bool
	Reason string
}

func (c Candidate) String() string {
	if c.Usable {
		return fmt.Sprintf("%s (%s): usable", c.Name, c.Path)
	}
	return fmt.Sprintf("%s (%s): %s", c.Name, c.Path, c.Reason)
}

func usable(name, path string) Candidate { return Candidate{Name: name, Path: path, Usable: true} }

func unusable(name, path, format string, args ...any) Candidate {
	return Candidate{Name: name, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// nullTokens são os valores que contam como nulo numa célula.
var nullTokens = map[string]bool{
	"": true, "nan": true, "-nan": true, "null": true, "none": true,
	"na": true, "n/a": true, "<na>": true, "#n/a": true,
}

// Assess verifica se o snapshot em path é utilizável: existe, não está vazio,
// tem todas as colunas obrigatórias e nenhuma das primeiras sampleRows linhas
// tem nulo numa coluna obrigatória. Só lê o arquivo.
func Assess(name, path string, sampleRows int) Candidate {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}

	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return unusable(name, path, "missing")
		}
		return unusable(name, path, "stat: %v", err)
	}
	if !st.Mode().IsRegular() {
		return unusable(name, path, "not a regular file")
	}
	if st.Size() == 0 {
		return unusable(name, path, "empty file")
	}

	f, err := os.Open(path)
	if err != nil {
		return unusable(name, path, "open: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return unusable(name, path, "read header: %v", err)
	}
	idx, missing := columnIndex(header)
	if len(missing) > 0 {
		return unusable(name, path, "missing columns: %s", strings.Join(missing, ", "))
	}

	rows := 0
	for rows < sampleRows {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return unusable(name, path, "malformed csv: %v", err)
		}
		rows++
		for _, col := range Columns {
			if nullTokens[strings.ToLower(strings.TrimSpace(rec[idx[col]]))] {
				return unusable(name, path, "row %d: null %s", rows, col)
			}
		}
	}
	if rows == 0 {
		return unusable(name, path, "no data rows")
	}
	return usable(name, path)
}
