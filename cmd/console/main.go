package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/crew"
)

type ConsoleConfig struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	Nickname   string        `env:"NICKNAME"     envDefault:"captain"`
	Timeout    time.Duration `env:"CONSOLE_TIMEOUT" envDefault:"90s"`
}

// defaultCrew is used when no crew file is given.
var defaultCrew = []crew.Spec{
	{Name: "Mira Okafor", Age: 41, Gender: "female", MBTI: "INTJ", Keywords: []string{"methodical", "stubborn"}},
	{Name: "Theo Lindqvist", Age: 29, Gender: "male", MBTI: "ENFP", Keywords: []string{"optimistic", "restless"}},
	{Name: "Sana Park", Age: 35, Gender: "female", MBTI: "ISTP", Keywords: []string{"quiet", "resourceful"}},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
		os.Exit(1)
	}
	var cfg ConsoleConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	api := NewAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx := context.Background()
	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\n%v\n", err)
		os.Exit(1)
	}

	var arg string
	if len(os.Args) > 1 {
		arg = os.Args[1]
	}

	model, err := bootstrap(ctx, api, cfg, arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap resumes the campaign named by arg when it is an id, otherwise
// starts a new one with the crew read from arg (or the default crew).
func bootstrap(ctx context.Context, api *APIClient, cfg ConsoleConfig, arg string) (ConsoleUI, error) {
	if id, err := uuid.Parse(arg); err == nil {
		gs, err := api.Get(ctx, id)
		if err != nil {
			return ConsoleUI{}, err
		}
		return NewConsoleUI(api, gs, nil), nil
	}

	var specs []crew.Spec
	if arg == "" {
		specs = defaultCrew
	} else {
		data, err := os.ReadFile(arg)
		if err != nil {
			return ConsoleUI{}, fmt.Errorf("failed to read crew file: %w", err)
		}
		if err := json.Unmarshal(data, &specs); err != nil {
			return ConsoleUI{}, fmt.Errorf("failed to parse crew file: %w", err)
		}
	}

	fmt.Println("Launching the DRIFTER... simulating day 1")
	result, err := api.Start(ctx, campaign.StartRequest{Nickname: cfg.Nickname, Crew: specs})
	if err != nil {
		return ConsoleUI{}, err
	}
	return NewConsoleUI(api, result.GameState, &result.Log), nil
}
