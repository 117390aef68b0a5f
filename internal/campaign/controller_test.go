package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedEvent struct {
	Type events.EventType
	Data map[string]interface{}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _ uuid.UUID, t events.EventType, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: t, Data: data})
	return nil
}

func (p *recordingPublisher) count(t events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store     *storage.MockStorage
	gen       *services.MockGenerator
	publisher *recordingPublisher
	ctrl      *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     storage.NewMockStorage(),
		gen:       services.NewMockGenerator(),
		publisher: &recordingPublisher{},
	}
	orch := simulation.NewOrchestrator(f.gen, testLogger(), 0)
	f.ctrl = NewController(f.store, orch, testLogger(), Options{
		Publisher: f.publisher,
		Random:    rng.NewSeeded(42),
	})
	return f
}

func testSpecs() []crew.Spec {
	return []crew.Spec{
		{Name: "Mira", Age: 34, Gender: "female", MBTI: "INTJ", Keywords: []string{"calm"}},
		{Name: "Kai", Age: 28, Gender: "male", MBTI: "ESFP", Keywords: []string{"loud"}},
	}
}

// seedCampaign stores a campaign that has already reached day.
func seedCampaign(t *testing.T, f *fixture, day int) *state.GameState {
	t.Helper()
	roster, err := crew.NewRoster(testSpecs(), rng.NewSeeded(1))
	require.NoError(t, err)
	gs := state.NewGameState("tester", "CODE", roster)
	for d := 1; d <= day; d++ {
		gs, err = state.ApplyDayLog(gs, daylog.DayLog{
			Day:             d,
			Events:          []daylog.Event{{Text: "quiet", Time: "12:00"}},
			MoodScore:       60,
			ResourceChanges: daylog.ResourceChanges{Integrity: daylog.Delta(0)},
		}, rng.Fixed(0))
		require.NoError(t, err)
	}
	require.NoError(t, f.store.SaveGameState(context.Background(), gs.ID, gs))
	return gs
}

func TestStart_SimulatesDayOne(t *testing.T) {
	f := newFixture(t)
	f.gen.Enqueue(services.MockResponse{
		Text: `{"day":1,"events":[{"text":"Launch checks.","time":"08:00"}],"statusUpdates":[],"moodScore":82,"resourceChanges":{"oxygen":-5,"food":-3}}`,
	})

	res, err := f.ctrl.Start(context.Background(), StartRequest{Nickname: "captain", Crew: testSpecs()})
	require.NoError(t, err)
	f.ctrl.Wait()

	gs := res.GameState
	assert.Equal(t, 1, gs.CurrentDay)
	assert.Len(t, gs.History, 1)
	assert.Equal(t, 95.0, gs.Resources.Oxygen)
	assert.Equal(t, 97.0, gs.Resources.Food)
	assert.Equal(t, 100.0, gs.Resources.Water)
	assert.Equal(t, 100.0, gs.Resources.Fuel)
	assert.GreaterOrEqual(t, gs.Integrity, 95.2)
	assert.LessOrEqual(t, gs.Integrity, 97.2)
	assert.Equal(t, 82.0, gs.Mood)
	assert.NotEmpty(t, gs.Code)
	assert.True(t, res.Signals.Glow, "mood rose from 80")

	stored, err := f.store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.CurrentDay)
	assert.Equal(t, 1, f.publisher.count(events.EventTypeDayAdvanced))
}

func TestStart_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		req     StartRequest
		wantErr error
	}{
		{"no nickname", StartRequest{Crew: testSpecs()}, ErrInvalidRequest},
		{"no crew", StartRequest{Nickname: "a"}, crew.ErrInvalidRoster},
		{"too many", StartRequest{Nickname: "a", Crew: make([]crew.Spec, 7)}, crew.ErrInvalidRoster},
		{"bad mbti", StartRequest{Nickname: "a", Crew: []crew.Spec{{Name: "x", MBTI: "ABCD"}}}, crew.ErrInvalidCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctrl.Start(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.gen.CallCount())
}

func TestAdvance_DeathOnDayTwelve(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 11)
	kai := gs.Characters[1]

	f.gen.Enqueue(services.MockResponse{Text: fmt.Sprintf(
		`{"day":12,"events":[{"text":"The reactor flared.","time":"03:00"}],"statusUpdates":[{"characterId":%q,"status":"lost","isDead":true}],"isDanger":true,"dangerType":"","moodScore":20,"resourceChanges":{"integrity":-10}}`,
		kai.Name)})

	res, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)

	next := res.GameState
	require.Len(t, next.Characters, 2, "dead characters stay on the roster")
	dead := next.Characters[1]
	assert.True(t, dead.IsDead)
	require.NotNil(t, dead.DeathDay)
	assert.Equal(t, 12, *dead.DeathDay)
	assert.False(t, next.Characters[0].IsDead)

	require.NotNil(t, res.Signals.Crisis)
	assert.Equal(t, state.UnknownThreat, res.Signals.Crisis.Label)
	require.Len(t, res.Signals.Deaths, 1)
	assert.Equal(t, kai.ID, res.Signals.Deaths[0].CharacterID)
	assert.Equal(t, 1, f.publisher.count(events.EventTypeCrewDeath))
	assert.Equal(t, 1, f.publisher.count(events.EventTypeCrisisAlert))
}

func TestAdvance_EndingExactlyOnce(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 59)

	res, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, res.GameState.CurrentDay)
	require.NotNil(t, res.GameState.Ending)
	assert.Equal(t, daylog.OutcomeSuccess, res.GameState.Ending.Outcome)
	assert.Equal(t, 2, f.gen.CallCount(), "one day plus one ending")

	_, err = f.ctrl.Advance(context.Background(), gs.ID)
	assert.ErrorIs(t, err, state.ErrCampaignComplete)
	assert.Equal(t, 2, f.gen.CallCount())
	assert.Equal(t, 1, f.publisher.count(events.EventTypeCampaignEnded))

	f.ctrl.Wait()
	stored, err := f.store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Ending)
}

func TestAdvance_Busy(t *testing.T) {
	f := newFixture(t)
	locker := services.NewLocalLocker()
	f.ctrl = NewController(f.store, simulation.NewOrchestrator(f.gen, testLogger(), 0), testLogger(), Options{Locker: locker})
	gs := seedCampaign(t, f, 3)

	ok, err := locker.Acquire(context.Background(), gs.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.ctrl.Advance(context.Background(), gs.ID)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.ctrl.MarkIntroSeen(context.Background(), gs.ID)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, f.gen.CallCount())

	require.NoError(t, locker.Release(context.Background(), gs.ID))
	_, err = f.ctrl.Advance(context.Background(), gs.ID)
	assert.NoError(t, err)
}

// slowSimulator ignores cancellation and answers after delay.
type slowSimulator struct {
	delay time.Duration
}

func (s slowSimulator) SimulateDay(_ context.Context, in simulation.DayInput) daylog.DayLog {
	time.Sleep(s.delay)
	return daylog.DayLog{Day: in.Day, Events: []daylog.Event{{Text: "late", Time: "23:59"}}, MoodScore: 99}
}

func (s slowSimulator) SimulateEnding(context.Context, crew.Roster, []daylog.DayLog) daylog.Ending {
	time.Sleep(s.delay)
	return daylog.Ending{Title: "late", Description: "late", Outcome: daylog.OutcomeSuccess}
}

func TestAdvance_DeadlineFallsBack(t *testing.T) {
	f := newFixture(t)
	f.ctrl = NewController(f.store, slowSimulator{delay: 200 * time.Millisecond}, testLogger(), Options{Deadline: 20 * time.Millisecond})
	gs := seedCampaign(t, f, 2)

	res, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.True(t, res.Log.Fallback)
	assert.Equal(t, 3, res.Log.Day)
	assert.Equal(t, 50.0, res.GameState.Mood)
}

func TestAdvance_PersistFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 1)
	f.store.SetSaveError(errors.New("disk full"))

	res, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)
	f.ctrl.Wait()
	assert.Equal(t, 2, res.GameState.CurrentDay)

	// live state is still ahead of storage
	live, err := f.ctrl.Load(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, live.CurrentDay)

	_, err = f.ctrl.Save(context.Background(), gs.ID)
	assert.Error(t, err)
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	id := uuid.New()
	f.store.PutRaw(id, []byte("{not json"))
	_, err = f.ctrl.Load(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ctrl.Advance(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 2)
	_, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Reset(context.Background(), gs.ID))
	f.ctrl.Wait()

	_, err = f.ctrl.Load(context.Background(), gs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	ids, err := f.ctrl.List(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, ids, gs.ID)
}

func TestSaveAndIntro(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 4)

	updated, err := f.ctrl.MarkIntroSeen(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasSeenIntro)

	saved, err := f.ctrl.Save(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.True(t, saved.HasSeenIntro)
	f.ctrl.Wait()

	stored, err := f.store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasSeenIntro)
	assert.Equal(t, 1, f.publisher.count(events.EventTypeCampaignSaved))

	ids, err := f.ctrl.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, gs.ID)
}

// gatedSimulator parks SimulateDay until release is closed.
type gatedSimulator struct {
	entered chan struct{}
	release chan struct{}
}

func (s gatedSimulator) SimulateDay(_ context.Context, in simulation.DayInput) daylog.DayLog {
	close(s.entered)
	<-s.release
	return daylog.DayLog{Day: in.Day, Events: []daylog.Event{{Text: "held", Time: "06:00"}}, MoodScore: 70}
}

func (s gatedSimulator) SimulateEnding(context.Context, crew.Roster, []daylog.DayLog) daylog.Ending {
	return simulation.FallbackEnding()
}

func TestSave_BusyWhileDayRuns(t *testing.T) {
	f := newFixture(t)
	sim := gatedSimulator{entered: make(chan struct{}), release: make(chan struct{})}
	f.ctrl = NewController(f.store, sim, testLogger(), Options{Publisher: f.publisher})
	gs := seedCampaign(t, f, 4)

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.ctrl.Advance(context.Background(), gs.ID)
		done <- outcome{res, err}
	}()
	<-sim.entered

	_, err := f.ctrl.Save(context.Background(), gs.ID)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, f.publisher.count(events.EventTypeCampaignSaved))

	close(sim.release)
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, 5, out.res.GameState.CurrentDay)

	saved, err := f.ctrl.Save(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.CurrentDay)
	f.ctrl.Wait()

	stored, err := f.store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.CurrentDay)
	live, err := f.ctrl.Load(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, live.CurrentDay)
}

func TestAdvance_RecoversMissingEnding(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 60)
	require.Nil(t, gs.Ending)

	res, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, res.GameState.CurrentDay)
	assert.Equal(t, 60, res.Log.Day)
	require.NotNil(t, res.GameState.Ending)
	assert.Equal(t, 1, f.gen.CallCount(), "only the ending is generated")
	assert.Equal(t, 1, f.publisher.count(events.EventTypeCampaignEnded))
	assert.Equal(t, 0, f.publisher.count(events.EventTypeDayAdvanced))

	_, err = f.ctrl.Advance(context.Background(), gs.ID)
	assert.ErrorIs(t, err, state.ErrCampaignComplete)
	assert.Equal(t, 1, f.gen.CallCount())

	f.ctrl.Wait()
	stored, err := f.store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Ending)
}

func TestShared_InstancesFollowStorage(t *testing.T) {
	store := storage.NewMockStorage()
	locker := services.NewLocalLocker()
	newInstance := func() *Controller {
		orch := simulation.NewOrchestrator(services.NewMockGenerator(), testLogger(), 0)
		return NewController(store, orch, testLogger(), Options{Locker: locker, Shared: true, Random: rng.NewSeeded(7)})
	}
	a, b := newInstance(), newInstance()
	ctx := context.Background()

	started, err := a.Start(ctx, StartRequest{Nickname: "captain", Crew: testSpecs()})
	require.NoError(t, err)
	id := started.GameState.ID
	assert.Equal(t, 1, started.GameState.CurrentDay)

	res, err := b.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.GameState.CurrentDay)

	// a still holds day 1 in memory
	res, err = a.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, res.GameState.CurrentDay)
	assert.Len(t, res.GameState.History, 3)

	stored, err := store.LoadGameState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentDay)

	require.NoError(t, b.Reset(ctx, id))
	_, err = a.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.Advance(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_UnsharedPrefersLiveState(t *testing.T) {
	f := newFixture(t)
	gs := seedCampaign(t, f, 2)
	_, err := f.ctrl.Advance(context.Background(), gs.ID)
	require.NoError(t, err)
	f.ctrl.Wait()

	// storage rewound behind the controller's back
	require.NoError(t, f.store.SaveGameState(context.Background(), gs.ID, gs))
	live, err := f.ctrl.Load(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, live.CurrentDay)
}
