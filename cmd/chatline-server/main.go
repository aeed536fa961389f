package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/avelarde/chatline/internal/chat"
	"github.com/avelarde/chatline/internal/handlers"
)

var rootCmd = &cobra.Command{
	Use:   "chatline-server",
	Short: "In-memory presence and direct-message relay",
	RunE:  runServer,
}

var (
	flagAddr   string
	flagPublic string
	flagDebug  bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", ":3000", "listen address")
	flags.StringVar(&flagPublic, "public", "", "optional static asset directory served at /")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute server command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Cancellation context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := chat.NewHub()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handlers.Register(app, hub, flagPublic)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("[chat] listening on %s", flagAddr)
		errCh <- app.Listen(flagAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", flagAddr, err)
		}
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		log.Error().Err(err).Msg("[chat] http shutdown error")
	}
	hub.CloseAll()
	log.Info().Msg("[chat] shutdown complete")
	return nil
}
