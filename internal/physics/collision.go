package physics

import (
	"github.com/annel0/crimcraft/internal/vec"
)

// DefaultGravity - ускорение свободного падения по вертикали
const DefaultGravity = -9.8

// CollisionResolver - дискретная модель столкновений в одну ячейку.
// Без протяжённых проверок и без скольжения вдоль стен.
type CollisionResolver struct {
	grid    Occupancy
	Gravity float64
}

// NewCollisionResolver создаёт резолвер с гравитацией по умолчанию
func NewCollisionResolver(grid Occupancy) *CollisionResolver {
	return &CollisionResolver{
		grid:    grid,
		Gravity: DefaultGravity,
	}
}

// Resolve применяет гравитацию и проверяет кандидатную позицию.
// Если ячейка кандидата занята, тело остаётся на месте и вертикальная
// скорость обнуляется. Опора проверяется под текущей (не кандидатной) позицией.
func (cr *CollisionResolver) Resolve(pos, vel vec.Vec3Float, dt float64) (vec.Vec3Float, vec.Vec3Float, bool) {
	vel.Y += cr.Gravity * dt
	candidate := pos.Add(vel.Mul(dt))

	newPos := candidate
	if cr.grid.Contains(candidate.Floor()) {
		newPos = pos
		vel.Y = 0
	}

	grounded := false
	if cr.grid.Contains(pos.Floor().Below()) && vel.Y <= 0 {
		vel.Y = 0
		grounded = true
	}

	return newPos, vel, grounded
}

// CanMoveToPosition проверяет, что ячейка позиции свободна
func CanMoveToPosition(grid Occupancy, pos vec.Vec3Float) bool {
	return !grid.Contains(pos.Floor())
}

// TryMove смещает позицию на delta, если целевая ячейка свободна.
// Иначе позиция не меняется.
func TryMove(grid Occupancy, pos, delta vec.Vec3Float) (vec.Vec3Float, bool) {
	next := pos.Add(delta)
	if !CanMoveToPosition(grid, next) {
		return pos, false
	}
	return next, true
}
