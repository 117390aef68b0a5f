package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	gs := testState()

	var started campaign.StartRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/campaigns":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&started))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(campaign.Result{GameState: gs, Log: daylog.DayLog{Day: 1}})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/campaigns/"+gs.ID.String():
			_ = json.NewEncoder(w).Encode(gs)
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "no resumable session"})
		}
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, server.Client())
	cfg := ConsoleConfig{Nickname: "Ark"}
	ctx := context.Background()

	t.Run("default crew", func(t *testing.T) {
		ui, err := bootstrap(ctx, api, cfg, "")
		require.NoError(t, err)
		assert.Equal(t, "Ark", started.Nickname)
		assert.Len(t, started.Crew, len(defaultCrew))
		assert.Equal(t, "Day 1 logged", ui.status)
	})

	t.Run("crew file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crew.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Sol","age":40,"gender":"male","mbti":"ENTJ"}]`), 0o600))

		_, err := bootstrap(ctx, api, cfg, path)
		require.NoError(t, err)
		require.Len(t, started.Crew, 1)
		assert.Equal(t, "Sol", started.Crew[0].Name)
		assert.Equal(t, "Mira Okafor", defaultCrew[0].Name)
	})

	t.Run("resume", func(t *testing.T) {
		ui, err := bootstrap(ctx, api, cfg, gs.ID.String())
		require.NoError(t, err)
		assert.Equal(t, gs.ID, ui.gameState.ID)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		_, err := bootstrap(ctx, api, cfg, "6f1c2f0e-8a7b-4c1d-9e2f-3a4b5c6d7e8f")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "no resumable session", apiErr.Message)
	})

	t.Run("missing crew file", func(t *testing.T) {
		_, err := bootstrap(ctx, api, cfg, filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorContains(t, err, "failed to read crew file")
	})
}
