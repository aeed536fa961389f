package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/avelarde/chatline/internal/client"
	"github.com/avelarde/chatline/internal/session"
	"github.com/avelarde/chatline/internal/tui"
	"github.com/avelarde/chatline/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "chatline",
	Short: "Terminal client for the chatline relay",
	RunE:  runClient,
}

var (
	flagServerURL string
	flagName      string
	flagLogFile   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server-url", "http://localhost:3000", "relay base URL")
	flags.StringVar(&flagName, "name", "anon", "display name")
	flags.StringVar(&flagLogFile, "log-file", "", "optional debug log destination")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the TUI; logs go to a file or nowhere.
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(io.Discard)
	}

	tr, err := client.Dial(flagServerURL)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctrl := session.New(flagName, tr.Emit)

	events := make(chan tea.Msg, 16)
	go func() {
		err := tr.ReadLoop(func(env wire.Envelope) {
			events <- tui.EnvelopeMsg(env)
		})
		events <- tui.DisconnectMsg{Err: err}
	}()

	model := tui.New(ctrl, tr, events)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
