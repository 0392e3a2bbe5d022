package physics

import (
	"math"

	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// Параметры лучей по умолчанию
const (
	VisionStep    = 0.5 // Шаг проверки прямой видимости
	PlacementStep = 0.1 // Шаг луча установки блока
	MaxReach      = 5.0 // Дальность добычи и установки
	MiningConeCos = 0.7 // Косинус конуса прицеливания для добычи
)

// stepEpsilon гасит ошибку округления при делении дистанции на шаг (5.0/0.1)
const stepEpsilon = 1e-9

// Occupancy - доступ к занятости ячеек сетки
type Occupancy interface {
	Contains(pos vec.Vec3) bool
}

// BlockScanner - сетка, которую можно обойти целиком
type BlockScanner interface {
	Occupancy
	Scan(fn func(pos vec.Vec3, t block.BlockType, seq uint64) bool)
}

// Ray - луч из точки в направлении (направление нормализуется при броске)
type Ray struct {
	Origin    vec.Vec3Float
	Direction vec.Vec3Float
}

// RayHit - результат прохода луча.
// Hit=false означает, что луч исчерпан без попадания.
// LastEmpty - последняя пустая ячейка перед попаданием (или в конце пути).
type RayHit struct {
	Hit          bool
	Block        vec.Vec3
	LastEmpty    vec.Vec3
	HasLastEmpty bool
}

// RayCaster выполняет пространственные запросы к сетке
type RayCaster struct {
	grid BlockScanner
}

// NewRayCaster создаёт RayCaster поверх сетки
func NewRayCaster(grid BlockScanner) *RayCaster {
	return &RayCaster{grid: grid}
}

// stepCount возвращает число отсчётов шага step на отрезке длины dist
func stepCount(dist, step float64) int {
	if step <= 0 || dist <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return 0
	}
	return int(math.Ceil(dist/step - stepEpsilon))
}

// march проверяет отсчёты origin + dir*i*step для i в [first, last)
func (rc *RayCaster) march(origin, dir vec.Vec3Float, step float64, first, last int) RayHit {
	var hit RayHit
	for i := first; i < last; i++ {
		cell := origin.Add(dir.Mul(float64(i) * step)).Floor()
		if rc.grid.Contains(cell) {
			hit.Hit = true
			hit.Block = cell
			return hit
		}
		hit.LastEmpty = cell
		hit.HasLastEmpty = true
	}
	return hit
}

// Cast шагает по лучу от 0 до maxDist с шагом step и возвращает первую
// занятую ячейку. Нулевое направление или неположительный шаг дают пустой результат.
func (rc *RayCaster) Cast(ray Ray, maxDist, step float64) RayHit {
	dir := ray.Direction.Normalized()
	if dir.IsZero() {
		return RayHit{}
	}
	return rc.march(ray.Origin, dir, step, 0, stepCount(maxDist, step))
}

// LineOfSight проверяет прямую видимость между двумя точками.
// Отсчёт в самой точке from пропускается.
func (rc *RayCaster) LineOfSight(from, to vec.Vec3Float, step float64) bool {
	delta := to.Sub(from)
	length := delta.Length()
	if length == 0 {
		return true
	}
	dir := delta.Mul(1 / length)
	return !rc.march(from, dir, step, 1, stepCount(length, step)).Hit
}

// PlacementTarget ищет пустую ячейку перед первой занятой.
// Без попадания в пределах reach цели нет.
func (rc *RayCaster) PlacementTarget(origin, aim vec.Vec3Float, reach, step float64) (vec.Vec3, bool) {
	hit := rc.Cast(Ray{Origin: origin, Direction: aim}, reach, step)
	if !hit.Hit || !hit.HasLastEmpty {
		return vec.Vec3{}, false
	}
	return hit.LastEmpty, true
}

// MiningTarget ищет ближайший блок в конусе прицеливания.
// Позиция блока - его целочисленная координата. Блок на расстоянии reach
// и дальше не подходит. При равных расстояниях выигрывает блок,
// вставленный раньше.
func (rc *RayCaster) MiningTarget(origin, aim vec.Vec3Float, reach, coneCos float64) (vec.Vec3, bool) {
	forward := aim.Normalized()
	if forward.IsZero() {
		return vec.Vec3{}, false
	}

	var (
		best     vec.Vec3
		bestSeq  uint64
		found    bool
		bestDist = reach
	)

	rc.grid.Scan(func(pos vec.Vec3, _ block.BlockType, seq uint64) bool {
		toBlock := pos.ToFloat().Sub(origin)
		dist := toBlock.Length()
		if dist == 0 {
			return true
		}

		closer := dist < bestDist || (found && dist == bestDist && seq < bestSeq)
		if !closer {
			return true
		}
		if forward.Dot(toBlock.Mul(1/dist)) <= coneCos {
			return true
		}

		best, bestSeq, bestDist, found = pos, seq, dist, true
		return true
	})

	return best, found
}
