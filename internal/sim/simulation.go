package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annel0/crimcraft/internal/config"
	"github.com/annel0/crimcraft/internal/entity"
	"github.com/annel0/crimcraft/internal/eventbus"
	"github.com/annel0/crimcraft/internal/interaction"
	"github.com/annel0/crimcraft/internal/logging"
	"github.com/annel0/crimcraft/internal/metrics"
	"github.com/annel0/crimcraft/internal/physics"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// publishTimeout ограничивает ожидание шины внутри тика
const publishTimeout = 50 * time.Millisecond

var tracer = otel.Tracer("github.com/annel0/crimcraft/internal/sim")

// Options - внешние зависимости симуляции
type Options struct {
	Bus     eventbus.EventBus   // nil - глобальная шина eventbus
	Metrics *metrics.SimMetrics // nil - без метрик
	Source  string              // Источник в Envelope
}

// Simulation владеет сеткой и сущностями и выполняет тики
// в фиксированном порядке: ввод, ИИ, взаимодействие, физика, очистка.
// Сетку меняет только тик; чтение снаружи идёт через блокировки Grid.
type Simulation struct {
	mu sync.RWMutex

	cfg      *config.Config
	seed     int64
	grid     *world.Grid
	rays     *physics.RayCaster
	resolver *physics.CollisionResolver
	interact *interaction.Controller
	agentAPI entity.WorldAPI
	player   *entity.Player
	crim     *entity.Crim
	events   *world.EventBuffer
	genStats world.GenerationStats
	tick     uint64

	intentsMu sync.Mutex
	intents   []Intent

	bus     eventbus.EventBus
	metrics *metrics.SimMetrics
	source  string
	logger  *logging.Logger
}

// New генерирует мир и создаёт симуляцию.
// Ошибка возвращается только при неверной конфигурации.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}

	terrain, _ := world.ParseTerrainMode(cfg.World.Terrain)
	selected, _ := block.Parse(cfg.Player.SelectedBlock)
	seed := cfg.World.ResolveSeed()

	s := &Simulation{
		cfg:     cfg,
		seed:    seed,
		grid:    world.NewGrid(),
		events:  &world.EventBuffer{},
		bus:     opts.Bus,
		metrics: opts.Metrics,
		source:  opts.Source,
		logger:  logging.GetSimLogger(),
	}
	if s.source == "" {
		s.source = "crimcraft"
	}

	s.generate(ctx, terrain, seed)

	s.rays = physics.NewRayCaster(s.grid)
	s.resolver = physics.NewCollisionResolver(s.grid)
	s.resolver.Gravity = cfg.Physics.Gravity

	s.interact = interaction.NewController(s.grid, s.rays, s.events)
	s.interact.Reach = cfg.Player.Reach
	s.interact.PlacementStep = cfg.Physics.PlacementStep
	s.interact.MiningConeCos = cfg.Physics.MiningConeCos

	s.agentAPI = entity.NewGridWorldAPI(s.rays, s.grid)

	ps := cfg.PlayerSpawn()
	s.player = entity.NewPlayer(vec.Vec3Float{X: ps.X, Y: ps.Y, Z: ps.Z}, entity.PlayerParams{
		Speed:         cfg.Player.Speed,
		EyeHeight:     cfg.Player.EyeHeight,
		HasPickaxe:    cfg.Player.HasPickaxe,
		SelectedBlock: selected,
	})

	as := cfg.AgentSpawn()
	s.crim = entity.NewCrim(vec.Vec3Float{X: as.X, Y: as.Y, Z: as.Z}, entity.AgentParams{
		Speed:             cfg.Agent.Speed,
		SightRange:        cfg.Agent.SightRange,
		FaceRange:         cfg.Agent.FaceRange,
		LingerSeconds:     cfg.Agent.LingerSeconds,
		LingerSpeedFactor: cfg.Agent.LingerSpeedFactor,
		TurnRate:          cfg.Agent.TurnRate,
		VisionStep:        cfg.Agent.VisionStep,
	}, s.events)

	return s, nil
}

func (s *Simulation) generate(ctx context.Context, terrain world.TerrainMode, seed int64) {
	_, span := tracer.Start(ctx, "worldgen.Generate")
	defer span.End()

	start := time.Now()
	gen := world.NewWorldGenerator(s.cfg.World.Size, s.cfg.World.Height, seed, terrain)
	gen.StructureAttempts = s.cfg.World.StructureAttempts
	s.genStats = gen.Generate(s.grid, rand.New(rand.NewSource(seed)))

	span.SetAttributes(
		attribute.Int64("world.seed", seed),
		attribute.String("world.terrain", string(terrain)),
		attribute.Int("world.blocks", s.genStats.TotalBlocks),
	)

	logging.GetWorldgenLogger().Info("🌍 Мир сгенерирован за %s: seed=%d terrain=%s блоков=%d деревьев=%d колонн=%d башен=%d",
		time.Since(start), seed, terrain, s.genStats.TotalBlocks,
		s.genStats.Trees, s.genStats.Pillars, s.genStats.GlassTowers)
	for t, n := range s.grid.CountByType() {
		logging.GetWorldgenLogger().Debug("  %s: %d", t, n)
	}

	s.metrics.Generated(map[string]int{
		"blocks":       s.genStats.TotalBlocks,
		"trees":        s.genStats.Trees,
		"pillars":      s.genStats.Pillars,
		"glass_towers": s.genStats.GlassTowers,
		"skipped":      s.genStats.Skipped,
	})
}

// Grid возвращает сетку для чтения (REST API, тесты)
func (s *Simulation) Grid() *world.Grid { return s.grid }

// Seed возвращает сид генерации
func (s *Simulation) Seed() int64 { return s.seed }

// GenerationStats возвращает итоги генерации
func (s *Simulation) GenerationStats() world.GenerationStats { return s.genStats }

// Submit ставит намерение в очередь следующего тика. Безопасен из любых горутин.
func (s *Simulation) Submit(intent Intent) {
	s.intentsMu.Lock()
	s.intents = append(s.intents, intent)
	s.intentsMu.Unlock()
}

// PendingIntents возвращает длину очереди намерений
func (s *Simulation) PendingIntents() int {
	s.intentsMu.Lock()
	defer s.intentsMu.Unlock()
	return len(s.intents)
}

// takeIntents забирает намерения тика. За тик выполняется не больше одной
// добычи и одной установки; лишние остаются в очереди на следующие тики.
func (s *Simulation) takeIntents() (rest []Intent, mine *MineIntent, place *PlaceIntent) {
	s.intentsMu.Lock()
	defer s.intentsMu.Unlock()

	var deferred []Intent
	for _, intent := range s.intents {
		switch it := intent.(type) {
		case MineIntent:
			if mine == nil {
				mine = &it
				continue
			}
			deferred = append(deferred, it)
		case PlaceIntent:
			if place == nil {
				place = &it
				continue
			}
			deferred = append(deferred, it)
		default:
			rest = append(rest, intent)
		}
	}
	s.intents = deferred
	return rest, mine, place
}

// Step выполняет один тик длительностью dt секунд
func (s *Simulation) Step(ctx context.Context, dt float64) {
	start := time.Now()
	inputs, mine, place := s.takeIntents()

	s.mu.Lock()

	// 1. Ввод. Движение - состояние ввода на тик: действует последнее.
	var move *MoveIntent
	for _, intent := range inputs {
		switch it := intent.(type) {
		case MoveIntent:
			if move != nil {
				s.metrics.Intent(string(IntentMove), false)
			}
			move = &it
		case SelectIntent:
			s.metrics.Intent(string(IntentSelect), s.player.SelectSlot(it.Slot))
		}
	}
	if move != nil {
		s.player.Move(move.Direction, dt)
		s.metrics.Intent(string(IntentMove), true)
	}

	// 2. ИИ
	s.crim.Update(s.player.Position, dt, s.agentAPI)

	// 3. Взаимодействие (без кирки игнорируется)
	if mine != nil {
		s.metrics.Intent(string(IntentMine), s.mine(ctx, *mine))
	}
	if place != nil {
		s.metrics.Intent(string(IntentPlace), s.place(ctx, *place))
	}

	// 4. Физика
	if s.cfg.Physics.GravityEnabled {
		s.player.Position, s.player.Velocity, s.player.Grounded =
			s.resolver.Resolve(s.player.Position, s.player.Velocity, dt)
	}

	// 5. Очистка
	s.tick++
	tick := s.tick
	events := s.events.Drain()
	state := string(s.crim.State())
	s.mu.Unlock()

	s.publish(ctx, tick, events)
	s.metrics.ObserveTick(time.Since(start), s.grid.Len(), state)
	s.logger.Trace("Тик %d: событий=%d состояние=%s", tick, len(events), state)
}

func (s *Simulation) mine(ctx context.Context, it MineIntent) bool {
	if !s.player.HasPickaxe {
		return false
	}
	_, span := tracer.Start(ctx, "interaction.Mine")
	defer span.End()

	origin := s.player.Eye()
	if it.Origin != nil {
		origin = *it.Origin
	}
	pos, ok := s.interact.Mine(origin, it.Aim)
	span.SetAttributes(attribute.Bool("hit", ok))
	if ok {
		s.logger.Debug("⛏️ Добыт блок %v", pos)
	}
	return ok
}

func (s *Simulation) place(ctx context.Context, it PlaceIntent) bool {
	if !s.player.HasPickaxe {
		return false
	}
	_, span := tracer.Start(ctx, "interaction.Place")
	defer span.End()

	origin := s.player.Eye()
	if it.Origin != nil {
		origin = *it.Origin
	}
	blockType := s.player.SelectedBlock
	if it.Block != nil {
		blockType = *it.Block
	}
	pos, ok := s.interact.Place(origin, it.Aim, blockType)
	span.SetAttributes(attribute.Bool("placed", ok))
	if ok {
		s.logger.Debug("🧱 Поставлен блок %s в %v", blockType, pos)
	}
	return ok
}

// publish отправляет события тика в шину. Ошибки не попадают в тик.
func (s *Simulation) publish(ctx context.Context, tick uint64, events []world.Event) {
	for _, ev := range events {
		s.metrics.EventEmitted(ev.GetType().String())

		env, err := eventbus.NewEnvelope(s.source, tick, ev)
		if err != nil {
			s.metrics.PublishFailed()
			s.logger.Error("Не удалось упаковать событие %s: %v", ev.GetType(), err)
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		if s.bus != nil {
			err = s.bus.Publish(pctx, env)
		} else {
			err = eventbus.Publish(pctx, env)
		}
		cancel()

		if err != nil {
			s.metrics.PublishFailed()
			s.logger.Warn("Событие %s не опубликовано: %v", env.EventType, err)
		}
	}
}
