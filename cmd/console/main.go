package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

type ConsoleConfig struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	ParticipantID  string        `env:"PARTICIPANT_ID" envDefault:"player"`
	ConversationID string        `env:"CONVERSATION_ID" envDefault:"tavern"`
	Timeout        time.Duration `env:"CONSOLE_TIMEOUT" envDefault:"30s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	_ = godotenv.Load()

	var cfg ConsoleConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		cfg.ParticipantID = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.ConversationID = os.Args[2]
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: go run ./cmd/api\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(&cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// The stream client has no timeout; the context ends it.
		events := make(chan SSEEvent, 16)
		go func() {
			for ev := range events {
				p.Send(eventMsg(ev))
			}
		}()
		err := listenToSSE(ctx, &http.Client{}, cfg.APIBaseURL, cfg.ConversationID, events)
		close(events)
		if err != nil && ctx.Err() == nil {
			p.Send(streamClosedMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
