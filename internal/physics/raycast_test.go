package physics

import (
	"testing"

	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var forwardZ = vec.Vec3Float{Z: 1}

func gridWith(blocks ...vec.Vec3) *world.Grid {
	grid := world.NewGrid()
	for _, pos := range blocks {
		grid.Set(pos, block.Stone)
	}
	return grid
}

func TestCast_HitsFirstOccupied(t *testing.T) {
	rc := NewRayCaster(gridWith(vec.Vec3{Z: 3}, vec.Vec3{Z: 4}))
	ray := Ray{Origin: vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}, Direction: forwardZ}

	hit := rc.Cast(ray, MaxReach, PlacementStep)
	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{Z: 3}, hit.Block)
	assert.True(t, hit.HasLastEmpty)
	assert.Equal(t, vec.Vec3{Z: 2}, hit.LastEmpty)

	assert.Equal(t, hit, rc.Cast(ray, MaxReach, PlacementStep), "повторный бросок даёт тот же результат")
}

func TestCast_ExhaustedWithoutHit(t *testing.T) {
	rc := NewRayCaster(world.NewGrid())
	hit := rc.Cast(Ray{Origin: vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}, Direction: forwardZ}, MaxReach, PlacementStep)

	assert.False(t, hit.Hit)
	assert.True(t, hit.HasLastEmpty)
	// Последний отсчёт: 0.5 + 49*0.1 = 5.4
	assert.Equal(t, vec.Vec3{Z: 5}, hit.LastEmpty)
}

func TestCast_DegenerateInput(t *testing.T) {
	rc := NewRayCaster(gridWith(vec.Vec3{}))

	assert.False(t, rc.Cast(Ray{Direction: vec.Vec3Float{}}, MaxReach, PlacementStep).Hit, "нулевое направление")
	assert.False(t, rc.Cast(Ray{Direction: forwardZ}, MaxReach, 0).Hit, "нулевой шаг")
	assert.False(t, rc.Cast(Ray{Direction: forwardZ}, 0, PlacementStep).Hit, "нулевая дальность")
}

func TestCast_NegativeCoordinatesFloor(t *testing.T) {
	rc := NewRayCaster(gridWith(vec.Vec3{X: -1, Y: -1, Z: -3}))
	hit := rc.Cast(Ray{Origin: vec.Vec3Float{X: -0.5, Y: -0.5, Z: -0.5}, Direction: vec.Vec3Float{Z: -1}}, MaxReach, PlacementStep)

	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{X: -1, Y: -1, Z: -3}, hit.Block)
	assert.Equal(t, vec.Vec3{X: -1, Y: -1, Z: -2}, hit.LastEmpty)
}

func TestLineOfSight(t *testing.T) {
	grid := world.NewGrid()
	rc := NewRayCaster(grid)
	from := vec.Vec3Float{X: 0.5, Y: 1.5, Z: 0.5}
	to := vec.Vec3Float{X: 0.5, Y: 1.5, Z: 10.5}

	assert.True(t, rc.LineOfSight(from, to, VisionStep))

	grid.Set(vec.Vec3{Y: 1, Z: 5}, block.Glass)
	assert.False(t, rc.LineOfSight(from, to, VisionStep), "блок на пути закрывает обзор")

	grid.Remove(vec.Vec3{Y: 1, Z: 5})
	grid.Set(vec.Vec3{Y: 1, Z: 0}, block.Stone)
	assert.True(t, rc.LineOfSight(from, to, VisionStep), "ячейка наблюдателя не проверяется")

	assert.True(t, rc.LineOfSight(from, from, VisionStep), "нулевая дистанция видима")
}

func TestPlacementTarget(t *testing.T) {
	origin := vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}

	rc := NewRayCaster(gridWith(vec.Vec3{Z: 3}))
	target, ok := rc.PlacementTarget(origin, forwardZ, MaxReach, PlacementStep)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{Z: 2}, target)

	// Пустой мир: не к чему приставить блок
	_, ok = NewRayCaster(world.NewGrid()).PlacementTarget(origin, forwardZ, MaxReach, PlacementStep)
	assert.False(t, ok)

	// Стена дальше досягаемости
	_, ok = NewRayCaster(gridWith(vec.Vec3{Z: 7})).PlacementTarget(origin, forwardZ, MaxReach, PlacementStep)
	assert.False(t, ok)

	// Начало луча внутри блока: пустой ячейки перед ним нет
	_, ok = NewRayCaster(gridWith(vec.Vec3{})).PlacementTarget(origin, forwardZ, MaxReach, PlacementStep)
	assert.False(t, ok)
}

func TestMiningTarget(t *testing.T) {
	origin := vec.Vec3Float{Z: -2}

	rc := NewRayCaster(gridWith(vec.Vec3{}))
	target, ok := rc.MiningTarget(origin, forwardZ, MaxReach, MiningConeCos)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{}, target)

	_, ok = rc.MiningTarget(origin, vec.Vec3Float{X: 1}, MaxReach, MiningConeCos)
	assert.False(t, ok, "блок вне конуса")

	_, ok = rc.MiningTarget(vec.Vec3Float{Z: -5}, forwardZ, MaxReach, MiningConeCos)
	assert.False(t, ok, "блок ровно на границе досягаемости не подходит")

	_, ok = NewRayCaster(world.NewGrid()).MiningTarget(origin, forwardZ, MaxReach, MiningConeCos)
	assert.False(t, ok)
}

func TestMiningTarget_Nearest(t *testing.T) {
	rc := NewRayCaster(gridWith(vec.Vec3{Z: 2}, vec.Vec3{}))
	target, ok := rc.MiningTarget(vec.Vec3Float{Z: -2}, forwardZ, MaxReach, MiningConeCos)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{}, target)
}

func TestMiningTarget_TieBreakByInsertion(t *testing.T) {
	left, right := vec.Vec3{X: -1}, vec.Vec3{X: 1}
	origin := vec.Vec3Float{Z: -2}

	for i := 0; i < 20; i++ {
		target, ok := NewRayCaster(gridWith(right, left)).MiningTarget(origin, forwardZ, MaxReach, MiningConeCos)
		require.True(t, ok)
		assert.Equal(t, right, target)

		target, ok = NewRayCaster(gridWith(left, right)).MiningTarget(origin, forwardZ, MaxReach, MiningConeCos)
		require.True(t, ok)
		assert.Equal(t, left, target)
	}
}
