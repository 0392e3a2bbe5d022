package world

import (
	"fmt"
	"math"

	"github.com/annel0/crimcraft/internal/logging"
	"github.com/annel0/crimcraft/internal/util"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// TerrainMode определяет источник высоты колонок
type TerrainMode string

const (
	TerrainRandom  TerrainMode = "random"  // Высота из случайного потока (по умолчанию)
	TerrainPerlin  TerrainMode = "perlin"  // Высота из шума Перлина
	TerrainSimplex TerrainMode = "simplex" // Высота из шума OpenSimplex
)

// ParseTerrainMode проверяет имя режима рельефа
func ParseTerrainMode(s string) (TerrainMode, error) {
	switch TerrainMode(s) {
	case "", TerrainRandom:
		return TerrainRandom, nil
	case TerrainPerlin, TerrainSimplex:
		return TerrainMode(s), nil
	default:
		return "", fmt.Errorf("неизвестный режим рельефа %q", s)
	}
}

// Константы генерации
const (
	MaxColumnHeight          = 3    // Высота колонки берётся из [0, 3)
	DefaultStructureAttempts = 20   // Попыток поставить постройку
	StructureMargin          = 2    // Отступ построек от края мира
	noiseScale               = 0.08 // Масштаб шума для режимов perlin/simplex
)

// Вероятности слоёв рельефа
const (
	chanceGrassTop   = 0.6
	chanceSandTop    = 0.7
	chanceObsidian   = 0.05
	chanceOre        = 0.05
	chanceStone      = 0.8
	chanceWaterOnTop = 0.4
)

// Random - источник случайных чисел генератора.
// *rand.Rand из math/rand удовлетворяет интерфейсу.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// StructureKind - тип постройки
type StructureKind uint8

const (
	StructureTree StructureKind = iota
	StructurePillar
	StructureGlassTower
)

// GenerationStats итог генерации
type GenerationStats struct {
	Columns      int `json:"columns"`
	TerrainBlock int `json:"terrain_blocks"`
	Trees        int `json:"trees"`
	Pillars      int `json:"pillars"`
	GlassTowers  int `json:"glass_towers"`
	Skipped      int `json:"skipped"` // Попытки построек над пустой колонкой
	TotalBlocks  int `json:"total_blocks"`
}

// WorldGenerator заполняет сетку рельефом и постройками при старте
type WorldGenerator struct {
	Size              int         // Полуширина мира (WORLD_SIZE)
	Height            int         // Базовая высота мира (WORLD_HEIGHT)
	StructureAttempts int         // Количество попыток построек
	Terrain           TerrainMode // Источник высоты колонок
	Seed              int64       // Сид для шумовых режимов
	noise             util.Noise2D
}

// NewWorldGenerator создаёт генератор мира
func NewWorldGenerator(size, height int, seed int64, terrain TerrainMode) *WorldGenerator {
	wg := &WorldGenerator{
		Size:              size,
		Height:            height,
		StructureAttempts: DefaultStructureAttempts,
		Terrain:           terrain,
		Seed:              seed,
	}

	switch terrain {
	case TerrainPerlin:
		wg.noise = util.NewPerlinNoise(seed)
	case TerrainSimplex:
		wg.noise = util.NewSimplexNoise(seed)
	}

	return wg
}

// Generate заполняет сетку. Порядок обращений к rng фиксирован:
// высота колонки, затем тип блока для каждого y, затем проверка воды.
// Перестановка обращений меняет результат при том же сиде.
func (wg *WorldGenerator) Generate(grid *Grid, rng Random) GenerationStats {
	var stats GenerationStats

	for x := -wg.Size; x < wg.Size; x++ {
		for z := -wg.Size; z < wg.Size; z++ {
			stats.Columns++
			h := wg.columnHeight(x, z, rng)

			for y := 0; y <= h; y++ {
				blockType := wg.layerBlock(y, h, rng)

				// Лужи в низинах
				if h < 1 && y == 1 && chance(rng, chanceWaterOnTop) {
					blockType = block.Water
				}

				grid.Set(vec.Vec3{X: x, Y: y, Z: z}, blockType)
				stats.TerrainBlock++
			}
		}
	}

	wg.placeStructures(grid, rng, &stats)

	stats.TotalBlocks = grid.Len()
	return stats
}

// columnHeight возвращает высоту колонки в диапазоне [0, MaxColumnHeight)
func (wg *WorldGenerator) columnHeight(x, z int, rng Random) int {
	var u float64
	if wg.noise != nil {
		u = wg.noise.Noise2D(float64(x)*noiseScale, float64(z)*noiseScale)
	} else {
		u = rng.Float64()
	}

	h := int(math.Floor(u * MaxColumnHeight))
	if h >= MaxColumnHeight {
		h = MaxColumnHeight - 1
	}
	return h
}

// layerBlock выбирает тип блока по слоям сверху вниз.
// Вероятностные проверки вычисляются лениво, как и условия перед ними.
func (wg *WorldGenerator) layerBlock(y, h int, rng Random) block.BlockType {
	switch {
	case y == h && h > 0:
		return pick(rng, chanceGrassTop, block.Grass, block.Dirt)
	case y == h && h == 0:
		return pick(rng, chanceSandTop, block.Sand, block.Dirt)
	case y == 0:
		return pick(rng, chanceObsidian, block.Obsidian, block.Stone)
	case y < h-2 && chance(rng, chanceOre):
		return block.Ore
	default:
		return pick(rng, chanceStone, block.Stone, block.Dirt)
	}
}

// placeStructures делает фиксированное число попыток поставить постройку
func (wg *WorldGenerator) placeStructures(grid *Grid, rng Random, stats *GenerationStats) {
	lo, hi := -wg.Size+StructureMargin, wg.Size-StructureMargin
	if hi <= lo {
		logging.Warn("Мир слишком мал для построек: size=%d", wg.Size)
		return
	}

	for i := 0; i < wg.StructureAttempts; i++ {
		x := lo + rng.Intn(hi-lo)
		z := lo + rng.Intn(hi-lo)

		base, ok := grid.ColumnTop(x, z)
		if !ok {
			stats.Skipped++
			continue
		}

		switch structureKind(rng.Intn(10)) {
		case StructureTree:
			placeTree(grid, x, base, z)
			stats.Trees++
		case StructurePillar:
			height := 4 + rng.Intn(4) // [4, 8)
			placePillar(grid, x, base, z, height)
			stats.Pillars++
		case StructureGlassTower:
			height := 3 + rng.Intn(3) // [3, 6)
			placeGlassTower(grid, x, base, z, height)
			stats.GlassTowers++
		}
	}

	logging.Debug("Постройки: деревья=%d колонны=%d башни=%d пропущено=%d",
		stats.Trees, stats.Pillars, stats.GlassTowers, stats.Skipped)
}

// structureKind: корзины 0-6 дерево, 7-8 колонна, 9 стеклянная башня
func structureKind(bucket int) StructureKind {
	switch {
	case bucket <= 6:
		return StructureTree
	case bucket <= 8:
		return StructurePillar
	default:
		return StructureGlassTower
	}
}

// placeTree ставит ствол и крону. Крона заполняет только пустые ячейки.
func placeTree(grid *Grid, x, base, z int) {
	for y := base + 1; y <= base+5; y++ {
		grid.Set(vec.Vec3{X: x, Y: y, Z: z}, block.Wood)
	}

	top := base + 5
	for lx := x - 2; lx <= x+2; lx++ {
		for lz := z - 2; lz <= z+2; lz++ {
			// Углы 5x5 пропускаем
			if (lx == x-2 || lx == x+2) && (lz == z-2 || lz == z+2) {
				continue
			}
			for ly := top - 1; ly <= top+1; ly++ {
				pos := vec.Vec3{X: lx, Y: ly, Z: lz}
				if grid.Contains(pos) {
					continue
				}
				grid.Set(pos, block.Grass)
			}
		}
	}
}

// placePillar ставит каменную колонну с обсидиановой верхушкой
func placePillar(grid *Grid, x, base, z, height int) {
	last := base + height - 1
	for y := base + 1; y <= last; y++ {
		grid.Set(vec.Vec3{X: x, Y: y, Z: z}, block.Stone)
	}
	grid.Set(vec.Vec3{X: x, Y: last + 1, Z: z}, block.Obsidian)
}

// placeGlassTower ставит стеклянную колонну
func placeGlassTower(grid *Grid, x, base, z, height int) {
	for y := base + 1; y <= base+height-1; y++ {
		grid.Set(vec.Vec3{X: x, Y: y, Z: z}, block.Glass)
	}
}

// chance возвращает true с вероятностью p
func chance(rng Random, p float64) bool {
	return rng.Float64() < p
}

func pick(rng Random, p float64, yes, no block.BlockType) block.BlockType {
	if chance(rng, p) {
		return yes
	}
	return no
}
