// Command gameinsight responde perguntas sobre os jogos mais jogados da Steam.
//
//	gameinsight serve            # API HTTP
//	gameinsight chat             # conversa no terminal
//	gameinsight resolve          # mostra qual snapshot seria usado
//	gameinsight scrape           # só atualiza o snapshot novo
//	gameinsight quota <user>     # consulta a cota de um usuário
//
// A configuração vem do ambiente (.env.local e .env são carregados se
// existirem) ou das flags equivalentes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gameinsight/dataset"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type CLI struct {
	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error" help:"Log level."`
	LogFile  string `name:"log-file" env:"LOG_FILE" help:"Also write logs to this file (rotated)." type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API."`
	Chat    ChatCmd    `cmd:"" help:"Chat about the dataset in the terminal."`
	Resolve ResolveCmd `cmd:"" help:"Resolve and validate the dataset snapshot."`
	Scrape  ScrapeCmd  `cmd:"" help:"Scrape a fresh snapshot from the Steam Web API."`
	Quota   QuotaCmd   `cmd:"" help:"Inspect (or consume) a user's question quota."`
}

func main() {
	loadDotEnv(".env.local", ".env")

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("gameinsight"),
		kong.Description("Ask questions about the most played Steam games."),
		kong.UsageOnError(),
	)

	closeLog, err := setupLogging(cli.LogLevel, cli.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run()
	cancel()

	code := exitCode(err)
	if err != nil {
		log.WithError(err).Error("gameinsight failed")
	}
	closeLog()
	os.Exit(code)
}

// exitCode: 2 quando não há dado utilizável, 1 para as demais falhas.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, dataset.ErrDataUnavailable):
		return 2
	default:
		return 1
	}
}

// loadDotEnv não sobrescreve variáveis já definidas; o primeiro arquivo ganha.
func loadDotEnv(files ...string) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f, err)
		}
	}
}
