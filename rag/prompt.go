package rag

import (
	"strings"
	"text/template"

	"gameinsight/dataset"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a laid-back gaming buddy who keeps an eye on Steam player statistics.
Answer using only the records below. If they do not cover the question, say so.

Records:
{{range .Sources}}- {{.Content}}
{{end}}
Question: {{.Question}}

Answer:`))

type promptData struct {
	Question string
	Sources  []dataset.Document
}

func renderPrompt(question string, sources []dataset.Document) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, promptData{Question: question, Sources: sources}); err != nil {
		return "", err
	}
	return b.String(), nil
}
