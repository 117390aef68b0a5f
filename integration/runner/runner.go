package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner drives voyages against a running drifter API.
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // per request
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 90 * time.Second},
		Timeout:           75 * time.Second,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadCase loads a voyage case from a JSON file
func LoadCase(filename string) (VoyageCase, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return VoyageCase{}, fmt.Errorf("failed to read case file %s: %w", filename, err)
	}

	var c VoyageCase
	if err := json.Unmarshal(content, &c); err != nil {
		return VoyageCase{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if c.TargetDay < 1 || c.TargetDay > daylog.CampaignLength {
		return VoyageCase{}, fmt.Errorf("case %s: target_day must be within 1..%d", c.Name, daylog.CampaignLength)
	}
	return c, nil
}

// DiscoverCases returns every .json case file in dir, sorted.
func DiscoverCases(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// RunCase launches the crew and advances day by day, checking state
// invariants after every step and the case expectations at the end.
func (r *Runner) RunCase(ctx context.Context, c VoyageCase) (result CaseResult) {
	started := time.Now()
	result = CaseResult{Case: c}
	defer func() { result.Duration = time.Since(started) }()

	nickname := c.Nickname
	if nickname == "" {
		nickname = c.Name
	}

	stepStart := time.Now()
	var first campaign.Result
	err := r.do(ctx, http.MethodPost, "/v1/campaigns", campaign.StartRequest{Nickname: nickname, Crew: c.Crew}, http.StatusCreated, &first)
	if err != nil {
		result.Error = fmt.Errorf("failed to start campaign: %w", err)
		return result
	}
	result.Campaign = first.GameState.ID
	result.Steps = append(result.Steps, r.step(first, time.Since(stepStart)))
	result.Final = first.GameState
	r.logf("  [%s] started campaign %s", c.Name, result.Campaign)

	if !c.Keep {
		defer r.cleanup(result.Campaign)
	}

	var stepErrs []error
	if err := checkInvariants(first.GameState); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("day 1: %w", err))
	}

	for day := 2; day <= c.TargetDay; day++ {
		if len(stepErrs) > 0 && r.ErrorHandlingMode == ErrorHandlingExit {
			break
		}
		stepStart = time.Now()
		var next campaign.Result
		path := "/v1/campaigns/" + result.Campaign.String() + "/advance"
		if err := r.do(ctx, http.MethodPost, path, nil, http.StatusOK, &next); err != nil {
			result.Steps = append(result.Steps, StepResult{Day: day, Duration: time.Since(stepStart), Error: err})
			stepErrs = append(stepErrs, fmt.Errorf("day %d: %w", day, err))
			break
		}
		step := r.step(next, time.Since(stepStart))
		result.Steps = append(result.Steps, step)
		result.Final = next.GameState
		if err := checkInvariants(next.GameState); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("day %d: %w", day, err))
		}
		r.logf("  [%s] day %d in %s fallback=%v crisis=%q", c.Name, step.Day, step.Duration.Round(time.Millisecond), step.Fallback, step.Crisis)
	}

	if err := checkExpectations(c.Expect, result); err != nil {
		stepErrs = append(stepErrs, err)
	}
	result.Error = errors.Join(stepErrs...)
	return result
}

func (r *Runner) step(res campaign.Result, took time.Duration) StepResult {
	s := StepResult{Day: res.Log.Day, Duration: took, Fallback: res.Log.Fallback}
	if res.Signals.Crisis != nil {
		s.Crisis = res.Signals.Crisis.Label
	}
	return s
}

func (r *Runner) cleanup(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.do(ctx, http.MethodDelete, "/v1/campaigns/"+id.String(), nil, http.StatusNoContent, nil); err != nil {
		r.logf("  failed to reset campaign %s: %v", id, err)
	}
}

// checkInvariants verifies what must hold after any applied day.
func checkInvariants(gs *state.GameState) error {
	if gs == nil {
		return errors.New("missing game state")
	}
	if err := gs.Validate(); err != nil {
		return err
	}
	for i, l := range gs.History {
		if l.Day != i+1 {
			return fmt.Errorf("history entry %d has day %d", i, l.Day)
		}
	}
	for _, c := range gs.Characters {
		if c.IsDead && c.DeathDay == nil {
			return fmt.Errorf("character %s is dead without a death day", c.ID)
		}
	}
	return nil
}

func checkExpectations(exp Expectations, result CaseResult) error {
	gs := result.Final
	if gs == nil {
		return errors.New("no final game state")
	}
	var errs []error
	if exp.Day != nil && gs.CurrentDay != *exp.Day {
		errs = append(errs, fmt.Errorf("expected day %d, got %d", *exp.Day, gs.CurrentDay))
	}
	if exp.MinSurvivors != nil {
		if alive := len(gs.Characters.Living()); alive < *exp.MinSurvivors {
			errs = append(errs, fmt.Errorf("expected at least %d survivors, got %d", *exp.MinSurvivors, alive))
		}
	}
	if exp.HasEnding != nil && (gs.Ending != nil) != *exp.HasEnding {
		errs = append(errs, fmt.Errorf("expected ending present=%v", *exp.HasEnding))
	}
	if exp.MaxFallbackDays != nil && result.FallbackDays() > *exp.MaxFallbackDays {
		errs = append(errs, fmt.Errorf("expected at most %d fallback days, got %d", *exp.MaxFallbackDays, result.FallbackDays()))
	}
	return errors.Join(errs...)
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}

func (r *Runner) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
