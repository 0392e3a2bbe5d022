package block

import (
	"fmt"
	"strings"
)

// BlockType представляет тип блока. Перечисление закрытое.
type BlockType uint8

// Константы типов блоков
const (
	Dirt BlockType = iota
	Stone
	Wood
	Grass
	Sand
	Water
	Ore
	Glass
	Obsidian

	typeCount
)

var names = [typeCount]string{
	Dirt:     "dirt",
	Stone:    "stone",
	Wood:     "wood",
	Grass:    "grass",
	Sand:     "sand",
	Water:    "water",
	Ore:      "ore",
	Glass:    "glass",
	Obsidian: "obsidian",
}

// Панель быстрого выбора: клавиши 1..9
var hotbar = [9]BlockType{Dirt, Stone, Wood, Grass, Sand, Glass, Obsidian, Ore, Water}

// All возвращает все типы блоков в порядке объявления
func All() []BlockType {
	types := make([]BlockType, 0, typeCount)
	for t := BlockType(0); t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

// IsValid проверяет, что значение входит в перечисление
func (t BlockType) IsValid() bool {
	return t < typeCount
}

// String возвращает имя типа блока
func (t BlockType) String() string {
	if !t.IsValid() {
		return fmt.Sprintf("BlockType(%d)", uint8(t))
	}
	return names[t]
}

// Parse разбирает имя типа блока (регистр не важен)
func Parse(name string) (BlockType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range names {
		if n == name {
			return BlockType(t), nil
		}
	}
	return 0, fmt.Errorf("неизвестный тип блока %q", name)
}

// HotbarSlot возвращает тип блока для слота панели (1..9)
func HotbarSlot(slot int) (BlockType, bool) {
	if slot < 1 || slot > len(hotbar) {
		return 0, false
	}
	return hotbar[slot-1], true
}

// MarshalText реализует encoding.TextMarshaler (JSON, YAML)
func (t BlockType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("недопустимый тип блока %d", uint8(t))
	}
	return []byte(names[t]), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler (JSON, YAML)
func (t *BlockType) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
