package entity

import (
	"github.com/annel0/crimcraft/internal/physics"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// timerEpsilon поглощает ошибку накопления при вычитании dt из таймера
const timerEpsilon = 1e-9

// StateKind - имя состояния преследования
type StateKind string

const (
	StateIdle      StateKind = "idle"
	StateChasing   StateKind = "chasing"
	StateLingering StateKind = "lingering"
)

// State представляет состояние конечного автомата
type State interface {
	Kind() StateKind
	Enter(crim *Crim)
	Update(crim *Crim, p Perception, worldAPI WorldAPI) State
	Exit(crim *Crim)
}

// WorldAPI представляет интерфейс для взаимодействия с миром
type WorldAPI interface {
	LineOfSight(from, to vec.Vec3Float, step float64) bool
	TryMove(pos, delta vec.Vec3Float) (vec.Vec3Float, bool)
}

// Perception - то, что Крим знает об игроке на текущем тике
type Perception struct {
	Target    vec.Vec3Float
	Distance  float64
	Direction vec.Vec3Float // Нулевой вектор, если дистанция 0
	CanSee    bool
	Dt        float64
}

// AgentParams - параметры поведения Крима
type AgentParams struct {
	Speed             float64 // Скорость преследования, блоков/с
	SightRange        float64 // Дальность обнаружения
	FaceRange         float64 // Дальность поворота к игроку
	LingerSeconds     float64 // Сколько преследовать после потери из виду
	LingerSpeedFactor float64 // Множитель скорости при потере из виду
	TurnRate          float64 // Скорость поворота, доля в секунду
	VisionStep        float64 // Шаг луча видимости
}

// DefaultAgentParams возвращает параметры по умолчанию
func DefaultAgentParams() AgentParams {
	return AgentParams{
		Speed:             3.5,
		SightRange:        15.0,
		FaceRange:         20.0,
		LingerSeconds:     3.0,
		LingerSpeedFactor: 0.7,
		TurnRate:          2.0,
		VisionStep:        physics.VisionStep,
	}
}

// Crim - агент, преследующий игрока по прямой
type Crim struct {
	Position      vec.Vec3Float
	Rotation      mgl64.Quat
	ChaseTimer    float64
	SpottedPlayer bool
	CurrentState  State
	Params        AgentParams

	events world.EventSink
}

// NewCrim создаёт Крима в состоянии Idle. events может быть nil.
func NewCrim(pos vec.Vec3Float, params AgentParams, events world.EventSink) *Crim {
	c := &Crim{
		Position: pos,
		Rotation: mgl64.QuatIdent(),
		Params:   params,
		events:   events,
	}
	c.SetState(idle)
	return c
}

// State возвращает имя текущего состояния
func (c *Crim) State() StateKind {
	if c.CurrentState == nil {
		return StateIdle
	}
	return c.CurrentState.Kind()
}

// SetState устанавливает новое состояние
func (c *Crim) SetState(state State) {
	if c.CurrentState != nil {
		c.CurrentState.Exit(c)
	}

	c.CurrentState = state

	if c.CurrentState != nil {
		c.CurrentState.Enter(c)
	}
}

// Update выполняет один тик: поворот, проверку видимости и шаг автомата
func (c *Crim) Update(target vec.Vec3Float, dt float64, worldAPI WorldAPI) {
	distance := c.Position.DistanceTo(target)
	direction := target.Sub(c.Position).Normalized()

	if distance < c.Params.FaceRange && !direction.IsZero() {
		c.faceTowards(direction, dt)
	}

	p := Perception{
		Target:    target,
		Distance:  distance,
		Direction: direction,
		CanSee:    worldAPI.LineOfSight(c.Position, target, c.Params.VisionStep),
		Dt:        dt,
	}

	if next := c.decide(p); next != c.CurrentState {
		c.SetState(next)
	}

	if next := c.CurrentState.Update(c, p, worldAPI); next != c.CurrentState {
		c.SetState(next)
	}
}

// decide выбирает состояние по видимости, дистанции и таймеру
func (c *Crim) decide(p Perception) State {
	switch {
	case p.CanSee && p.Distance < c.Params.SightRange:
		return chasing
	case c.ChaseTimer > 0:
		return lingering
	default:
		return idle
	}
}

// Facing возвращает направление взгляда
func (c *Crim) Facing() vec.Vec3Float {
	f := c.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
	return vec.Vec3Float{X: f[0], Y: f[1], Z: f[2]}
}

func (c *Crim) faceTowards(direction vec.Vec3Float, dt float64) {
	goal := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{direction.X, direction.Y, direction.Z})
	amount := mgl64.Clamp(dt*c.Params.TurnRate, 0, 1)
	c.Rotation = mgl64.QuatSlerp(c.Rotation, goal, amount).Normalize()
}

// step смещает Крима к цели; занятая ячейка останавливает шаг
func (c *Crim) step(p Perception, speed float64, worldAPI WorldAPI) {
	if p.Direction.IsZero() {
		return
	}
	c.Position, _ = worldAPI.TryMove(c.Position, p.Direction.Mul(speed*p.Dt))
}

func (c *Crim) emit(ev world.Event) {
	if c.events != nil {
		c.events.Emit(ev)
	}
}

// === Конкретные состояния ===

var (
	idle      State = &IdleState{}
	chasing   State = &ChasingState{}
	lingering State = &LingeringState{}
)

// IdleState - игрок не замечен, Крим стоит на месте
type IdleState struct{}

func (s *IdleState) Kind() StateKind { return StateIdle }

func (s *IdleState) Enter(crim *Crim) {
	crim.SpottedPlayer = false
	crim.ChaseTimer = 0
}

func (s *IdleState) Update(crim *Crim, p Perception, worldAPI WorldAPI) State {
	return s
}

func (s *IdleState) Exit(crim *Crim) {}

// ChasingState - игрок в поле зрения, полная скорость
type ChasingState struct{}

func (s *ChasingState) Kind() StateKind { return StateChasing }

func (s *ChasingState) Enter(crim *Crim) {
	// Сигнал только при первом обнаружении, возврат из Lingering его не даёт
	if !crim.SpottedPlayer {
		crim.SpottedPlayer = true
		crim.emit(world.AgentSpotted{Position: crim.Position})
	}
}

func (s *ChasingState) Update(crim *Crim, p Perception, worldAPI WorldAPI) State {
	crim.step(p, crim.Params.Speed, worldAPI)
	crim.ChaseTimer = crim.Params.LingerSeconds
	return s
}

func (s *ChasingState) Exit(crim *Crim) {}

// LingeringState - игрок потерян из виду, преследование по таймеру
type LingeringState struct{}

func (s *LingeringState) Kind() StateKind { return StateLingering }

func (s *LingeringState) Enter(crim *Crim) {}

func (s *LingeringState) Update(crim *Crim, p Perception, worldAPI WorldAPI) State {
	crim.step(p, crim.Params.Speed*crim.Params.LingerSpeedFactor, worldAPI)
	crim.ChaseTimer -= p.Dt
	if crim.ChaseTimer <= timerEpsilon {
		return idle
	}
	return s
}

func (s *LingeringState) Exit(crim *Crim) {}
