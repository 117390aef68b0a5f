// Package simulation asks the generator for day logs and endings and turns
// whatever comes back into domain values. Its operations never fail: after
// one retry they fall back to fixed content.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/drifter/internal/services"
	"github.com/jwebster45206/drifter/pkg/chat"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/prompts"
	"github.com/jwebster45206/drifter/pkg/response"
)

// DefaultRetryBackoff is the wait between the first failed attempt and the
// retry.
const DefaultRetryBackoff = time.Second

// maxAttempts covers the first try plus one retry.
const maxAttempts = 2

// Orchestrator drives day and ending generation.
type Orchestrator struct {
	generator services.Generator
	logger    *slog.Logger
	backoff   time.Duration
}

// NewOrchestrator creates an orchestrator. A negative backoff is treated as
// zero.
func NewOrchestrator(generator services.Generator, logger *slog.Logger, backoff time.Duration) *Orchestrator {
	if backoff < 0 {
		backoff = 0
	}
	return &Orchestrator{
		generator: generator,
		logger:    logger,
		backoff:   backoff,
	}
}

// DayInput is everything the generator is told about the ship for one day.
type DayInput struct {
	Day       int
	Crew      crew.Roster
	History   []daylog.DayLog
	Resources daylog.Resources
	Integrity float64
}

// SimulateDay returns the log for in.Day. The returned log always carries
// in.Day, whatever day the generator wrote, and a generated log for a forced
// crisis day is always flagged dangerous.
func (o *Orchestrator) SimulateDay(ctx context.Context, in DayInput) daylog.DayLog {
	forced := ForcedCrisis(in.Day, daylog.CrisisCount(in.History))
	req, err := prompts.NewDay(in.Day).
		WithCrew(in.Crew).
		WithHistory(in.History).
		WithResources(in.Resources, in.Integrity).
		WithForcedCrisis(forced).
		Build()
	if err != nil {
		o.logger.Error("Failed to build day request, using fallback", "day", in.Day, "error", err)
		return FallbackDayLog(in.Day)
	}

	resolver := response.NewResolver(in.Crew)
	var log daylog.DayLog
	err = o.withRetry(ctx, "day", req, func(text string) error {
		decoded, err := response.DecodeDayLog(text)
		if err != nil {
			return err
		}
		log = resolver.ResolveDayLog(decoded)
		return nil
	})
	if err != nil {
		o.logger.Error("Day generation failed after retry, using fallback", "day", in.Day, "error", err)
		return FallbackDayLog(in.Day)
	}

	if log.Day != in.Day {
		o.logger.Warn("Generator returned wrong day, correcting", "requested", in.Day, "returned", log.Day)
		log.Day = in.Day
	}
	if forced && !log.IsDanger {
		o.logger.Warn("Generator ignored forced crisis, flagging day", "day", in.Day)
		log.IsDanger = true
	}
	o.logger.Debug("Day simulated", "day", in.Day, "forced_crisis", forced, "danger", log.IsDanger)
	return log
}

// SimulateEnding returns the voyage ending.
func (o *Orchestrator) SimulateEnding(ctx context.Context, roster crew.Roster, history []daylog.DayLog) daylog.Ending {
	req, err := prompts.NewEnding().
		WithCrew(roster).
		WithHistory(history).
		Build()
	if err != nil {
		o.logger.Error("Failed to build ending request, using fallback", "error", err)
		return FallbackEnding()
	}

	var ending daylog.Ending
	err = o.withRetry(ctx, "ending", req, func(text string) error {
		decoded, err := response.DecodeEnding(text)
		if err != nil {
			return err
		}
		ending = decoded
		return nil
	})
	if err != nil {
		o.logger.Error("Ending generation failed after retry, using fallback", "error", err)
		return FallbackEnding()
	}
	return ending
}

// withRetry runs generate+accept up to maxAttempts times, waiting the
// backoff between attempts. Context cancellation stops it early.
func (o *Orchestrator) withRetry(ctx context.Context, kind string, req chat.GenerateRequest, accept func(string) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			o.logger.Warn("Generation attempt failed, retrying", "kind", kind, "attempt", attempt-1, "error", lastErr, "backoff", o.backoff)
			if err := sleep(ctx, o.backoff); err != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}

		text, err := o.generator.Generate(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("generate: %w", err)
			continue
		}
		if err := accept(text); err != nil {
			lastErr = fmt.Errorf("decode: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
