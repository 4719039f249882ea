package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kakarotoncloud/Filetolink/internal/app"
)

// @title        Filetolink API
// @version      1.0
// @description  Download and stream links for files sent to a Telegram bot.
// @BasePath     /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
