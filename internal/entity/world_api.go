package entity

import (
	"github.com/annel0/crimcraft/internal/physics"
	"github.com/annel0/crimcraft/internal/vec"
)

// GridWorldAPI отвечает на запросы агента по воксельной сетке
type GridWorldAPI struct {
	rays *physics.RayCaster
	grid physics.Occupancy
}

// NewGridWorldAPI создаёт WorldAPI поверх сетки
func NewGridWorldAPI(rays *physics.RayCaster, grid physics.Occupancy) *GridWorldAPI {
	return &GridWorldAPI{rays: rays, grid: grid}
}

func (w *GridWorldAPI) LineOfSight(from, to vec.Vec3Float, step float64) bool {
	return w.rays.LineOfSight(from, to, step)
}

func (w *GridWorldAPI) TryMove(pos, delta vec.Vec3Float) (vec.Vec3Float, bool) {
	return physics.TryMove(w.grid, pos, delta)
}
