package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/crimcraft/internal/config"
	"github.com/annel0/crimcraft/internal/entity"
	"github.com/annel0/crimcraft/internal/eventbus"
	"github.com/annel0/crimcraft/internal/metrics"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Size = 4
	cfg.World.Seed = 7
	cfg.World.StructureAttempts = 0
	// Крим далеко: вне дальности обзора и поворота
	cfg.Agent.Spawn = &config.Point{X: 100, Y: 11, Z: 100}
	return cfg
}

// busRecorder собирает события, дошедшие до шины
type busRecorder struct {
	mu     sync.Mutex
	events []world.Event
}

func (r *busRecorder) handle(_ context.Context, env *eventbus.Envelope) {
	ev, err := eventbus.DecodeEvent(env)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *busRecorder) snapshot() []world.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]world.Event(nil), r.events...)
}

func newTestSim(t *testing.T, cfg *config.Config) (*Simulation, *busRecorder) {
	t.Helper()
	bus := eventbus.NewMemoryBus(64)
	t.Cleanup(func() { _ = bus.Close() })

	rec := &busRecorder{}
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, rec.handle)
	require.NoError(t, err)

	s, err := New(context.Background(), cfg, Options{
		Bus:     bus,
		Metrics: metrics.NewSimMetrics(prometheus.NewRegistry()),
		Source:  "test",
	})
	require.NoError(t, err)
	return s, rec
}

func ptr[T any](v T) *T { return &v }

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.World.Size = 0
	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestNew_DeterministicWorld(t *testing.T) {
	cfg := config.Default()
	cfg.World.Seed = 2024

	first, _ := newTestSim(t, cfg)
	second, _ := newTestSim(t, cfg)

	assert.Equal(t, first.Grid().Snapshot(), second.Grid().Snapshot(), "одинаковый сид - одинаковый мир")
	assert.Equal(t, first.GenerationStats(), second.GenerationStats())
	assert.Equal(t, int64(2024), first.Seed())
}

func TestStep_MineEmitsBlockRemoved(t *testing.T) {
	s, rec := newTestSim(t, testConfig())
	target := vec.Vec3{X: 50, Y: 50, Z: 50}
	s.Grid().Set(target, block.Stone)

	s.Submit(MineIntent{Origin: ptr(vec.Vec3Float{X: 50, Y: 50, Z: 48}), Aim: vec.Vec3Float{Z: 1}})
	s.Step(context.Background(), dt)

	assert.False(t, s.Grid().Contains(target))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, world.BlockRemoved{Position: target, Type: block.Stone}, rec.snapshot()[0])
}

func TestStep_OneMinePerTick(t *testing.T) {
	s, _ := newTestSim(t, testConfig())
	s.Grid().Set(vec.Vec3{X: 50, Y: 50, Z: 50}, block.Stone)
	s.Grid().Set(vec.Vec3{X: 50, Y: 50, Z: 51}, block.Stone)
	origin := ptr(vec.Vec3Float{X: 50, Y: 50, Z: 48})

	s.Submit(MineIntent{Origin: origin, Aim: vec.Vec3Float{Z: 1}})
	s.Submit(MineIntent{Origin: origin, Aim: vec.Vec3Float{Z: 1}})

	s.Step(context.Background(), dt)
	assert.False(t, s.Grid().Contains(vec.Vec3{X: 50, Y: 50, Z: 50}))
	assert.True(t, s.Grid().Contains(vec.Vec3{X: 50, Y: 50, Z: 51}))
	assert.Equal(t, 1, s.PendingIntents(), "вторая добыча ждёт следующего тика")

	s.Step(context.Background(), dt)
	assert.False(t, s.Grid().Contains(vec.Vec3{X: 50, Y: 50, Z: 51}))
	assert.Equal(t, 0, s.PendingIntents())
}

func TestStep_PlaceUsesSelectedBlock(t *testing.T) {
	s, rec := newTestSim(t, testConfig())
	s.Grid().Set(vec.Vec3{X: 50, Y: 50, Z: 53}, block.Stone)
	origin := ptr(vec.Vec3Float{X: 50.5, Y: 50.5, Z: 50.5})

	s.Submit(SelectIntent{Slot: 6})
	s.Submit(PlaceIntent{Origin: origin, Aim: vec.Vec3Float{Z: 1}})
	s.Step(context.Background(), dt)

	got, ok := s.Grid().Get(vec.Vec3{X: 50, Y: 50, Z: 52})
	require.True(t, ok)
	assert.Equal(t, block.Glass, got)
	assert.Equal(t, block.Glass, s.Snapshot().Player.SelectedBlock)

	s.Submit(PlaceIntent{Origin: origin, Aim: vec.Vec3Float{Z: 1}, Block: ptr(block.Ore)})
	s.Step(context.Background(), dt)
	got, _ = s.Grid().Get(vec.Vec3{X: 50, Y: 50, Z: 51})
	assert.Equal(t, block.Ore, got)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestStep_NoPickaxeIgnoresInteraction(t *testing.T) {
	cfg := testConfig()
	cfg.Player.HasPickaxe = false
	s, _ := newTestSim(t, cfg)
	target := vec.Vec3{X: 50, Y: 50, Z: 50}
	s.Grid().Set(target, block.Stone)

	s.Submit(MineIntent{Origin: ptr(vec.Vec3Float{X: 50, Y: 50, Z: 48}), Aim: vec.Vec3Float{Z: 1}})
	s.Step(context.Background(), dt)

	assert.True(t, s.Grid().Contains(target))
}

func TestStep_GravityLandsPlayer(t *testing.T) {
	s, _ := newTestSim(t, testConfig())

	for i := 0; i < 300; i++ {
		s.Step(context.Background(), dt)
	}

	snap := s.Snapshot()
	assert.True(t, snap.Player.Grounded)
	assert.Zero(t, snap.Player.Velocity.Y)
	assert.GreaterOrEqual(t, snap.Player.Position.Y, 1.0)
	assert.Less(t, snap.Player.Position.Y, 4.0)
	assert.False(t, s.Grid().Contains(snap.Player.Position.Floor()), "игрок не внутри блока")
	assert.Equal(t, uint64(300), snap.Tick)
}

func TestStep_GravityDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.GravityEnabled = false
	s, _ := newTestSim(t, cfg)
	start := s.Snapshot().Player.Position

	for i := 0; i < 10; i++ {
		s.Step(context.Background(), dt)
	}
	assert.Equal(t, start, s.Snapshot().Player.Position)

	s.Submit(MoveIntent{Direction: vec.Vec3Float{X: 2}})
	s.Step(context.Background(), 0.5)
	assert.InDelta(t, start.X+2.5, s.Snapshot().Player.Position.X, 1e-9)
}

func TestStep_OneMovePerTick(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.GravityEnabled = false
	s, _ := newTestSim(t, cfg)
	start := s.Snapshot().Player.Position

	s.Submit(MoveIntent{Direction: vec.Vec3Float{Z: 1}})
	s.Submit(MoveIntent{Direction: vec.Vec3Float{X: 1}})
	s.Submit(MoveIntent{Direction: vec.Vec3Float{X: 1}})
	s.Step(context.Background(), 0.5)

	pos := s.Snapshot().Player.Position
	assert.InDelta(t, start.X+2.5, pos.X, 1e-9, "одно смещение speed*dt, действует последнее движение")
	assert.InDelta(t, start.Z, pos.Z, 1e-9)
	assert.Zero(t, s.PendingIntents(), "лишние движения не переносятся")
}

func TestStep_AgentSpotsPlayer(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.GravityEnabled = false
	cfg.Player.Spawn = &config.Point{X: 0.5, Y: 30.5, Z: 0.5}
	cfg.Agent.Spawn = &config.Point{X: 5.5, Y: 30.5, Z: 0.5}
	s, rec := newTestSim(t, cfg)

	s.Step(context.Background(), dt)
	snap := s.Snapshot()
	assert.Equal(t, entity.StateChasing, snap.Agent.State)
	assert.True(t, snap.Agent.SpottedPlayer)
	assert.Less(t, snap.Agent.Position.X, 5.5, "Крим двинулся к игроку")

	s.Step(context.Background(), dt)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	_, ok := rec.snapshot()[0].(world.AgentSpotted)
	assert.True(t, ok)
}

func TestStep_DeterministicRun(t *testing.T) {
	run := func() Snapshot {
		s, _ := newTestSim(t, testConfig())
		s.Submit(MoveIntent{Direction: vec.Vec3Float{X: 1, Z: 1}})
		for i := 0; i < 120; i++ {
			s.Step(context.Background(), dt)
		}
		return s.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestNewRunner_UsesConfiguredTickRate(t *testing.T) {
	cfg := testConfig()
	cfg.Sim.TickRate = 30
	s, _ := newTestSim(t, cfg)

	r := NewRunner(s)
	assert.Equal(t, cfg.Sim.TickInterval(), r.interval)
	assert.Equal(t, 1.0/30, r.dt)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Sim.TickRate = 200
	s, _ := newTestSim(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := NewRunner(s).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, s.Snapshot().Tick, uint64(0))
}
