package interaction

import (
	"github.com/annel0/crimcraft/internal/physics"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
)

// Controller превращает намерения добыть или поставить блок
// в запрос к RayCaster и изменение сетки
type Controller struct {
	grid   *world.Grid
	rays   *physics.RayCaster
	events world.EventSink

	Reach         float64
	PlacementStep float64
	MiningConeCos float64
}

// NewController создаёт контроллер с параметрами по умолчанию
func NewController(grid *world.Grid, rays *physics.RayCaster, events world.EventSink) *Controller {
	return &Controller{
		grid:          grid,
		rays:          rays,
		events:        events,
		Reach:         physics.MaxReach,
		PlacementStep: physics.PlacementStep,
		MiningConeCos: physics.MiningConeCos,
	}
}

// Mine удаляет ближайший блок в конусе прицеливания.
// Возвращает координату удалённого блока; если цели нет, ничего не происходит.
func (c *Controller) Mine(origin, aim vec.Vec3Float) (vec.Vec3, bool) {
	target, ok := c.rays.MiningTarget(origin, aim, c.Reach, c.MiningConeCos)
	if !ok {
		return vec.Vec3{}, false
	}

	removed, ok := c.grid.Remove(target)
	if !ok {
		return vec.Vec3{}, false
	}

	c.emit(world.BlockRemoved{Position: target, Type: removed})
	return target, true
}

// Place ставит блок в пустую ячейку перед первой занятой на луче.
// Без опоры на луче или при занятой цели ничего не происходит.
func (c *Controller) Place(origin, aim vec.Vec3Float, t block.BlockType) (vec.Vec3, bool) {
	if !t.IsValid() {
		return vec.Vec3{}, false
	}

	target, ok := c.rays.PlacementTarget(origin, aim, c.Reach, c.PlacementStep)
	if !ok || c.grid.Contains(target) {
		return vec.Vec3{}, false
	}

	c.grid.Set(target, t)
	c.emit(world.BlockAdded{Position: target, Type: t})
	return target, true
}

func (c *Controller) emit(ev world.Event) {
	if c.events != nil {
		c.events.Emit(ev)
	}
}
