package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/hitoshi/blackjack/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		if errors.Is(err, app.ErrSchemaSync) {
			app.PrintSchemaFailureBanner(os.Stderr)
		}
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
