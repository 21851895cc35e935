package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ShroXd/surveilans/cmd/surveilans/commands"
	"github.com/ShroXd/surveilans/internal/config"
)

func main() {
	_ = config.LoadDotenv(".env.local", ".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
