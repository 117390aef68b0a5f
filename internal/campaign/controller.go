// Package campaign owns live voyages. Every mutation of a campaign goes
// through the Controller: start, advance, load, reset, save and the intro
// flag.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/internal/services"
	"github.com/jwebster45206/drifter/internal/services/events"
	"github.com/jwebster45206/drifter/internal/simulation"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/rng"
	"github.com/jwebster45206/drifter/pkg/state"
	"github.com/jwebster45206/drifter/pkg/storage"
)

var (
	// ErrNotFound covers both missing and unreadable snapshots.
	ErrNotFound = errors.New("no resumable session")
	// ErrBusy is returned while another request for the campaign is running.
	ErrBusy           = errors.New("campaign is busy")
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	DefaultSimulationDeadline = 60 * time.Second

	persistTimeout = 10 * time.Second
)

// deletedMarker is later than any snapshot, so saves queued before a reset
// are skipped.
var deletedMarker = time.Unix(1<<62, 0)

// Simulator produces day logs and endings. It never fails.
type Simulator interface {
	SimulateDay(ctx context.Context, in simulation.DayInput) daylog.DayLog
	SimulateEnding(ctx context.Context, roster crew.Roster, history []daylog.DayLog) daylog.Ending
}

var _ Simulator = (*simulation.Orchestrator)(nil)

// Options holds the optional collaborators of a Controller. Zero values get
// in-process defaults.
type Options struct {
	Locker    services.Locker
	Publisher events.Publisher
	Random    rng.Source
	Deadline  time.Duration
	// Shared is set when several instances serve the same storage. Snapshots
	// are then written before the campaign lock is released and reads
	// prefer whichever of storage and memory is newer.
	Shared bool
}

// StartRequest registers a new voyage.
type StartRequest struct {
	Nickname string      `json:"nickname"`
	Code     string      `json:"code"`
	Crew     []crew.Spec `json:"crew"`
}

// Result is the outcome of simulating one day.
type Result struct {
	GameState *state.GameState `json:"gamestate"`
	Log       daylog.DayLog    `json:"log"`
	Signals   state.Signals    `json:"signals"`
}

type Controller struct {
	store     storage.Storage
	simulator Simulator
	locker    services.Locker
	publisher events.Publisher
	random    rng.Source
	deadline  time.Duration
	shared    bool
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*state.GameState
	endings  map[uuid.UUID]bool

	persistMu sync.Mutex
	lastSaved map[uuid.UUID]time.Time
	pending   sync.WaitGroup
}

func NewController(store storage.Storage, simulator Simulator, logger *slog.Logger, opts Options) *Controller {
	if opts.Locker == nil {
		opts.Locker = services.NewLocalLocker()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Random == nil {
		opts.Random = rng.NewRandom()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultSimulationDeadline
	}
	return &Controller{
		store:     store,
		simulator: simulator,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		random:    opts.Random,
		deadline:  opts.Deadline,
		shared:    opts.Shared,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*state.GameState),
		endings:   make(map[uuid.UUID]bool),
		lastSaved: make(map[uuid.UUID]time.Time),
	}
}

// Start registers the crew, creates the voyage and simulates day 1.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*Result, error) {
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", ErrInvalidRequest)
	}
	roster, err := crew.NewRoster(req.Crew, c.random)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	gs := state.NewGameState(nickname, code, roster)
	if gs.Code == "" {
		gs.Code = strings.ToUpper(gs.ID.String()[:8])
	}

	c.put(gs)
	c.persist(gs)
	c.logger.Info("Campaign started",
		"campaign_id", gs.ID.String(),
		"nickname", nickname,
		"crew_size", len(roster))

	return c.Advance(ctx, gs.ID)
}

// Advance simulates and applies the next day. When that day is the last
// one the ending is generated as well.
func (c *Controller) Advance(ctx context.Context, id uuid.UUID) (*Result, error) {
	acquired, err := c.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrBusy
	}
	// the day is applied even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	defer c.release(ctx, id)

	gs, err := c.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs.IsComplete() {
		if gs.Ending != nil {
			return nil, state.ErrCampaignComplete
		}
		// the last day was stored but its ending never was
		log, _ := gs.LatestLog()
		next := c.finish(ctx, gs)
		if next == nil {
			return nil, state.ErrCampaignComplete
		}
		return &Result{GameState: next, Log: log}, nil
	}

	day := gs.CurrentDay + 1
	log := c.simulateDay(ctx, simulation.DayInput{
		Day:       day,
		Crew:      gs.Characters,
		History:   gs.History,
		Resources: gs.Resources,
		Integrity: gs.Integrity,
	})

	next, err := state.ApplyDayLog(gs, log, c.random)
	if err != nil {
		return nil, fmt.Errorf("failed to apply day %d: %w", day, err)
	}
	next.UpdatedAt = time.Now().UTC()
	signals := state.Diff(gs, next, log)

	c.put(next)
	c.persist(next)
	c.publishDay(ctx, next, log, signals)

	c.logger.Info("Day advanced",
		"campaign_id", id.String(),
		"day", next.CurrentDay,
		"fallback", log.Fallback,
		"danger", log.IsDanger,
		"deaths", len(signals.Deaths))

	if next.IsComplete() {
		if ended := c.finish(ctx, next); ended != nil {
			next = ended
		}
	}

	return &Result{GameState: next, Log: log, Signals: signals}, nil
}

// finish generates the ending of a completed campaign. It returns nil when
// the ending already exists or was claimed by an earlier call.
func (c *Controller) finish(ctx context.Context, gs *state.GameState) *state.GameState {
	if gs.Ending != nil || !c.claimEnding(gs.ID) {
		return nil
	}
	ending := c.simulateEnding(ctx, gs)
	next := gs.Clone()
	next.Ending = &ending
	next.UpdatedAt = time.Now().UTC()
	c.put(next)
	c.persist(next)
	c.publish(ctx, gs.ID, events.EventTypeCampaignEnded, map[string]interface{}{
		"title":   ending.Title,
		"outcome": ending.Outcome,
	})
	c.logger.Info("Campaign ended", "campaign_id", gs.ID.String(), "outcome", ending.Outcome)
	return next
}

// Load returns the campaign, reading it from storage when it is not live.
// With shared storage the stored snapshot wins when it is newer than the
// live one, and a snapshot deleted elsewhere ends the live session.
func (c *Controller) Load(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	c.mu.RLock()
	cached, ok := c.sessions[id]
	c.mu.RUnlock()
	if ok && !c.shared {
		return cached.Clone(), nil
	}

	stored, err := c.loadStored(ctx, id)
	if err != nil {
		if cached == nil {
			return nil, err
		}
		c.logger.Warn("Using live campaign, storage unavailable", "campaign_id", id.String(), "error", err)
		return cached.Clone(), nil
	}

	switch {
	case stored != nil && (cached == nil || stored.UpdatedAt.After(cached.UpdatedAt)):
		c.put(stored)
		return stored.Clone(), nil
	case cached != nil && stored == nil && c.wasSaved(id):
		c.forget(id)
		return nil, ErrNotFound
	case cached != nil:
		return cached.Clone(), nil
	default:
		return nil, ErrNotFound
	}
}

// loadStored reads a snapshot. Missing, unreadable and invalid snapshots
// all come back as nil.
func (c *Controller) loadStored(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := c.store.LoadGameState(ctx, id)
	if errors.Is(err, storage.ErrCorruptSnapshot) {
		c.logger.Warn("Discarding unreadable snapshot", "campaign_id", id.String(), "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if gs == nil {
		return nil, nil
	}
	if err := gs.Validate(); err != nil {
		c.logger.Warn("Discarding invalid snapshot", "campaign_id", id.String(), "error", err)
		return nil, nil
	}
	return gs, nil
}

// Reset forgets the campaign and deletes its snapshot.
func (c *Controller) Reset(ctx context.Context, id uuid.UUID) error {
	acquired, err := c.locker.Acquire(ctx, id)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrBusy
	}
	defer c.release(ctx, id)

	c.forget(id)

	// pending background saves must not resurrect the snapshot
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	c.lastSaved[id] = deletedMarker
	if err := c.store.DeleteGameState(ctx, id); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	c.logger.Info("Campaign reset", "campaign_id", id.String())
	return nil
}

// Save writes the current snapshot and waits for the result.
func (c *Controller) Save(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	acquired, err := c.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrBusy
	}
	defer c.release(ctx, id)

	gs, err := c.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	gs.UpdatedAt = time.Now().UTC()
	c.put(gs)
	if err := c.save(ctx, gs); err != nil {
		return nil, err
	}
	c.publish(ctx, id, events.EventTypeCampaignSaved, map[string]interface{}{"day": gs.CurrentDay})
	return gs, nil
}

// MarkIntroSeen records that the intro has been shown.
func (c *Controller) MarkIntroSeen(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	acquired, err := c.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrBusy
	}
	defer c.release(ctx, id)

	gs, err := c.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs.HasSeenIntro {
		return gs, nil
	}
	gs.HasSeenIntro = true
	gs.UpdatedAt = time.Now().UTC()
	c.put(gs)
	c.persist(gs)
	return gs, nil
}

// List returns the ids of every stored campaign.
func (c *Controller) List(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := c.store.ListGameStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return ids, nil
}

// Wait blocks until background saves have finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// simulateDay races the simulator against the deadline. A late result is
// discarded in favour of the fallback day.
func (c *Controller) simulateDay(ctx context.Context, in simulation.DayInput) daylog.DayLog {
	dctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	result := make(chan daylog.DayLog, 1)
	go func() {
		result <- c.simulator.SimulateDay(dctx, in)
	}()

	select {
	case log := <-result:
		return log
	case <-dctx.Done():
		c.logger.Warn("Simulation deadline exceeded, using fallback", "day", in.Day, "deadline", c.deadline)
		return simulation.FallbackDayLog(in.Day)
	}
}

func (c *Controller) simulateEnding(ctx context.Context, gs *state.GameState) daylog.Ending {
	dctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	result := make(chan daylog.Ending, 1)
	go func() {
		result <- c.simulator.SimulateEnding(dctx, gs.Characters, gs.History)
	}()

	select {
	case ending := <-result:
		return ending
	case <-dctx.Done():
		c.logger.Warn("Ending deadline exceeded, using fallback", "campaign_id", gs.ID.String())
		return simulation.FallbackEnding()
	}
}

// claimEnding reports true exactly once per campaign.
func (c *Controller) claimEnding(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endings[id] {
		return false
	}
	c.endings[id] = true
	return true
}

func (c *Controller) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	delete(c.endings, id)
}

// wasSaved reports whether this instance has written a snapshot of id that
// has not been deleted since.
func (c *Controller) wasSaved(id uuid.UUID) bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	last, ok := c.lastSaved[id]
	return ok && !last.Equal(deletedMarker)
}

func (c *Controller) put(gs *state.GameState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[gs.ID] = gs.Clone()
	if gs.Ending != nil {
		c.endings[gs.ID] = true
	}
}

func (c *Controller) release(ctx context.Context, id uuid.UUID) {
	if err := c.locker.Release(context.WithoutCancel(ctx), id); err != nil {
		c.logger.Error("Failed to release campaign lock", "campaign_id", id.String(), "error", err)
	}
}

// persist writes gs before returning when storage is shared, otherwise in
// the background. Failures are logged either way.
func (c *Controller) persist(gs *state.GameState) {
	if !c.shared {
		c.persistAsync(gs)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.save(ctx, gs); err != nil {
		c.logger.Error("Failed to persist campaign", "campaign_id", gs.ID.String(), "day", gs.CurrentDay, "error", err)
	}
}

// persistAsync saves a snapshot in the background. Failures are logged and
// the in-memory state stays authoritative.
func (c *Controller) persistAsync(gs *state.GameState) {
	snapshot := gs.Clone()
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.save(ctx, snapshot); err != nil {
			c.logger.Error("Failed to persist campaign", "campaign_id", snapshot.ID.String(), "day", snapshot.CurrentDay, "error", err)
		}
	}()
}

// save writes gs unless a newer snapshot of the same campaign has already
// been written.
func (c *Controller) save(ctx context.Context, gs *state.GameState) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if last, ok := c.lastSaved[gs.ID]; ok && gs.UpdatedAt.Before(last) {
		c.logger.Debug("Skipping stale snapshot", "campaign_id", gs.ID.String(), "day", gs.CurrentDay)
		return nil
	}
	if err := c.store.SaveGameState(ctx, gs.ID, gs); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	c.lastSaved[gs.ID] = gs.UpdatedAt
	return nil
}

func (c *Controller) publishDay(ctx context.Context, gs *state.GameState, log daylog.DayLog, signals state.Signals) {
	id := gs.ID
	c.publish(ctx, id, events.EventTypeDayAdvanced, map[string]interface{}{
		"day":       gs.CurrentDay,
		"mood":      gs.Mood,
		"integrity": gs.Integrity,
		"resources": gs.Resources,
		"fallback":  log.Fallback,
	})
	if signals.Crisis != nil {
		c.publish(ctx, id, events.EventTypeCrisisAlert, map[string]interface{}{
			"day":   signals.Crisis.Day,
			"label": signals.Crisis.Label,
		})
	}
	if signals.Glow {
		c.publish(ctx, id, events.EventTypeMoodGlow, map[string]interface{}{"day": gs.CurrentDay})
	}
	for _, d := range signals.Deaths {
		c.publish(ctx, id, events.EventTypeCrewDeath, map[string]interface{}{
			"character_id": d.CharacterID,
			"name":         d.Name,
			"day":          d.Day,
		})
	}
}

func (c *Controller) publish(ctx context.Context, id uuid.UUID, eventType events.EventType, data map[string]interface{}) {
	if err := c.publisher.Publish(ctx, id, eventType, data); err != nil {
		c.logger.Warn("Failed to publish campaign event", "campaign_id", id.String(), "event_type", eventType, "error", err)
	}
}
