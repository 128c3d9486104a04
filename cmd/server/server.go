package main

import (
	"context"
	"os/signal"
	"syscall"

	"fenrir/internal/matching"
	"fenrir/internal/wire"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	srv := wire.New("0.0.0.0", 9001, matching.DefaultConfig())
	defer srv.Shutdown()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
