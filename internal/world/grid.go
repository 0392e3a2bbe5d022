package world

import (
	"sync"

	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// cell хранит тип блока и порядковый номер вставки.
// Номер вставки задаёт порядок обхода при поиске цели для добычи.
type cell struct {
	blockType block.BlockType
	seq       uint64
}

// Grid представляет разреженную воксельную сетку: координата -> тип блока.
// Наличие координаты означает "занято", отсутствие - воздух.
// Границ у сетки нет: допустима любая целочисленная тройка.
//
// Запись выполняют только генератор (один раз при старте) и контроллер
// взаимодействия внутри тика. Мьютекс нужен для читателей вне тика (REST API).
type Grid struct {
	mu      sync.RWMutex
	blocks  map[vec.Vec3]cell
	nextSeq uint64
}

// NewGrid создаёт пустую сетку
func NewGrid() *Grid {
	return &Grid{
		blocks: make(map[vec.Vec3]cell),
	}
}

// Get возвращает тип блока в ячейке. Пустая ячейка - (0, false).
func (g *Grid) Get(pos vec.Vec3) (block.BlockType, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c, ok := g.blocks[pos]
	return c.blockType, ok
}

// Contains проверяет, занята ли ячейка
func (g *Grid) Contains(pos vec.Vec3) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.blocks[pos]
	return ok
}

// Set вставляет или перезаписывает блок.
// Перезапись получает новый порядковый номер, как и новый блок.
func (g *Grid) Set(pos vec.Vec3, t block.BlockType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextSeq++
	g.blocks[pos] = cell{blockType: t, seq: g.nextSeq}
}

// Remove удаляет блок. Возвращает удалённый тип и true, если блок был.
// Удаление отсутствующей ячейки ничего не делает.
func (g *Grid) Remove(pos vec.Vec3) (block.BlockType, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.blocks[pos]
	if !ok {
		return 0, false
	}
	delete(g.blocks, pos)
	return c.blockType, true
}

// Len возвращает количество занятых ячеек
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.blocks)
}

// ColumnTop возвращает максимальную занятую высоту в колонке (x, z).
// Линейный проход по сетке; используется только генератором.
func (g *Grid) ColumnTop(x, z int) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	column := vec.Vec2{X: x, Y: z}
	top, found := 0, false
	for pos := range g.blocks {
		if pos.Column() != column {
			continue
		}
		if !found || pos.Y > top {
			top, found = pos.Y, true
		}
	}
	return top, found
}

// Scan обходит все блоки в произвольном порядке, передавая порядковый номер вставки.
// Обход прекращается, если fn вернула false. fn не должна изменять сетку.
func (g *Grid) Scan(fn func(pos vec.Vec3, t block.BlockType, seq uint64) bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for pos, c := range g.blocks {
		if !fn(pos, c.blockType, c.seq) {
			return
		}
	}
}

// QueryBox возвращает блоки внутри параллелепипеда [min, max] (включительно)
func (g *Grid) QueryBox(min, max vec.Vec3) map[vec.Vec3]block.BlockType {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[vec.Vec3]block.BlockType)
	for pos, c := range g.blocks {
		if pos.X < min.X || pos.X > max.X ||
			pos.Y < min.Y || pos.Y > max.Y ||
			pos.Z < min.Z || pos.Z > max.Z {
			continue
		}
		result[pos] = c.blockType
	}
	return result
}

// Snapshot возвращает копию содержимого сетки
func (g *Grid) Snapshot() map[vec.Vec3]block.BlockType {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[vec.Vec3]block.BlockType, len(g.blocks))
	for pos, c := range g.blocks {
		result[pos] = c.blockType
	}
	return result
}

// CountByType возвращает количество блоков каждого типа
func (g *Grid) CountByType() map[block.BlockType]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[block.BlockType]int)
	for _, c := range g.blocks {
		counts[c.blockType]++
	}
	return counts
}
