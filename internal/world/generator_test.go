package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRandom отдаёт заранее заданные значения и следит за их расходом
type scriptedRandom struct {
	t      *testing.T
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	require.NotEmpty(r.t, r.floats, "лишнее обращение к Float64")
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) Intn(n int) int {
	require.NotEmpty(r.t, r.ints, "лишнее обращение к Intn")
	v := r.ints[0]
	r.ints = r.ints[1:]
	require.Less(r.t, v, n)
	return v
}

func TestGenerate_DrawOrder(t *testing.T) {
	// size=1: колонки (-1,-1), (-1,0), (0,-1), (0,0); полоса построек пуста
	wg := NewWorldGenerator(1, 10, 0, TerrainRandom)
	rng := &scriptedRandom{t: t, floats: []float64{
		0.9, 0.01, 0.5, 0.5, // h=2: обсидиан, камень, трава
		0.1, 0.9, // h=0: земля вместо песка
		0.4, 0.5, 0.7, // h=1: камень, земля вместо травы
		0.0, 0.1, // h=0: песок
	}}

	grid := NewGrid()
	stats := wg.Generate(grid, rng)

	assert.Empty(t, rng.floats, "все значения должны быть израсходованы")
	assert.Equal(t, 4, stats.Columns)
	assert.Equal(t, 7, stats.TerrainBlock)

	expected := map[vec.Vec3]block.BlockType{
		{X: -1, Y: 0, Z: -1}: block.Obsidian,
		{X: -1, Y: 1, Z: -1}: block.Stone,
		{X: -1, Y: 2, Z: -1}: block.Grass,
		{X: -1, Y: 0, Z: 0}:  block.Dirt,
		{X: 0, Y: 0, Z: -1}:  block.Stone,
		{X: 0, Y: 1, Z: -1}:  block.Dirt,
		{X: 0, Y: 0, Z: 0}:   block.Sand,
	}
	// колонка h=2 даёт три блока, h=1 два, h=0 по одному
	assert.Len(t, grid.Snapshot(), 7)
	for pos, bt := range expected {
		got, ok := grid.Get(pos)
		require.True(t, ok, "ожидался блок в %v", pos)
		assert.Equal(t, bt, got, "тип блока в %v", pos)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	run := func(seed int64) map[vec.Vec3]block.BlockType {
		grid := NewGrid()
		NewWorldGenerator(20, 10, seed, TerrainRandom).Generate(grid, rand.New(rand.NewSource(seed)))
		return grid.Snapshot()
	}

	first := run(12345)
	second := run(12345)
	assert.Equal(t, first, second, "одинаковый сид должен давать одинаковый мир")
	assert.NotEqual(t, first, run(54321))
}

func TestGenerate_TerrainShape(t *testing.T) {
	grid := NewGrid()
	stats := NewWorldGenerator(20, 10, 7, TerrainRandom).Generate(grid, rand.New(rand.NewSource(7)))

	assert.Equal(t, 40*40, stats.Columns)
	assert.Equal(t, 20, stats.Trees+stats.Pillars+stats.GlassTowers+stats.Skipped)
	assert.Equal(t, grid.Len(), stats.TotalBlocks)

	for x := -20; x < 20; x++ {
		for z := -20; z < 20; z++ {
			assert.True(t, grid.Contains(vec.Vec3{X: x, Y: 0, Z: z}), "у каждой колонки есть нижний слой")
		}
	}
}

func TestGenerate_NoiseTerrainDeterministic(t *testing.T) {
	for _, mode := range []TerrainMode{TerrainPerlin, TerrainSimplex} {
		gridA, gridB := NewGrid(), NewGrid()
		NewWorldGenerator(8, 10, 99, mode).Generate(gridA, rand.New(rand.NewSource(99)))
		NewWorldGenerator(8, 10, 99, mode).Generate(gridB, rand.New(rand.NewSource(99)))
		assert.Equal(t, gridA.Snapshot(), gridB.Snapshot(), "режим %s", mode)
	}
}

func TestPlaceStructures_Tree(t *testing.T) {
	grid := NewGrid()
	grid.Set(vec.Vec3{}, block.Stone)

	wg := NewWorldGenerator(3, 10, 0, TerrainRandom)
	wg.StructureAttempts = 1
	var stats GenerationStats
	// полоса [-1, 1): x = -1 + 1 = 0, z = 0, корзина 3 -> дерево
	wg.placeStructures(grid, &scriptedRandom{t: t, ints: []int{1, 1, 3}}, &stats)

	assert.Equal(t, 1, stats.Trees)
	for y := 1; y <= 5; y++ {
		got, _ := grid.Get(vec.Vec3{Y: y})
		assert.Equal(t, block.Wood, got, "ствол на высоте %d", y)
	}

	// Крона не перезаписывает ствол
	got, _ := grid.Get(vec.Vec3{Y: 5})
	assert.Equal(t, block.Wood, got)
	got, _ = grid.Get(vec.Vec3{Y: 6})
	assert.Equal(t, block.Grass, got)
	got, _ = grid.Get(vec.Vec3{X: 2, Y: 4, Z: 1})
	assert.Equal(t, block.Grass, got)

	assert.False(t, grid.Contains(vec.Vec3{X: 2, Y: 5, Z: 2}), "углы кроны пропускаются")
	assert.False(t, grid.Contains(vec.Vec3{X: -2, Y: 4, Z: -2}))
	assert.False(t, grid.Contains(vec.Vec3{X: 1, Y: 7, Z: 0}), "крона не выше top+1")

	// 1 камень + 5 ствол + 21*3 - 2 занятых стволом ячейки кроны
	assert.Equal(t, 1+5+61, grid.Len())
}

func TestPlaceStructures_PillarAndTower(t *testing.T) {
	wg := NewWorldGenerator(3, 10, 0, TerrainRandom)
	wg.StructureAttempts = 1

	grid := NewGrid()
	grid.Set(vec.Vec3{}, block.Sand)
	var stats GenerationStats
	wg.placeStructures(grid, &scriptedRandom{t: t, ints: []int{1, 1, 7, 0}}, &stats)

	assert.Equal(t, 1, stats.Pillars)
	for y := 1; y <= 3; y++ {
		got, _ := grid.Get(vec.Vec3{Y: y})
		assert.Equal(t, block.Stone, got)
	}
	got, _ := grid.Get(vec.Vec3{Y: 4})
	assert.Equal(t, block.Obsidian, got)
	assert.False(t, grid.Contains(vec.Vec3{Y: 5}))

	grid = NewGrid()
	grid.Set(vec.Vec3{}, block.Sand)
	stats = GenerationStats{}
	wg.placeStructures(grid, &scriptedRandom{t: t, ints: []int{1, 1, 9, 2}}, &stats)

	assert.Equal(t, 1, stats.GlassTowers)
	for y := 1; y <= 4; y++ {
		got, _ := grid.Get(vec.Vec3{Y: y})
		assert.Equal(t, block.Glass, got)
	}
	assert.False(t, grid.Contains(vec.Vec3{Y: 5}))
}

func TestPlaceStructures_EmptyColumnSkipped(t *testing.T) {
	wg := NewWorldGenerator(3, 10, 0, TerrainRandom)
	wg.StructureAttempts = 2
	grid := NewGrid()
	var stats GenerationStats

	rng := &scriptedRandom{t: t, ints: []int{0, 0, 1, 1}}
	wg.placeStructures(grid, rng, &stats)

	assert.Equal(t, 2, stats.Skipped)
	assert.Empty(t, rng.ints, "на пустой колонке тип постройки не разыгрывается")
	assert.Equal(t, 0, grid.Len())
}

func TestParseTerrainMode(t *testing.T) {
	mode, err := ParseTerrainMode("")
	require.NoError(t, err)
	assert.Equal(t, TerrainRandom, mode)

	mode, err = ParseTerrainMode("perlin")
	require.NoError(t, err)
	assert.Equal(t, TerrainPerlin, mode)

	_, err = ParseTerrainMode("fractal")
	assert.Error(t, err)
}
