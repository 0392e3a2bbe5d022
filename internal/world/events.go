package world

import (
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// EventType определяет тип события
type EventType uint8

const (
	EventTypeBlockAdded   EventType = iota // Блок установлен
	EventTypeBlockRemoved                  // Блок добыт
	EventTypeAgentSpotted                  // Агент заметил игрока
)

// String возвращает имя типа события (используется как subject в шине)
func (t EventType) String() string {
	switch t {
	case EventTypeBlockAdded:
		return "BlockAdded"
	case EventTypeBlockRemoved:
		return "BlockRemoved"
	case EventTypeAgentSpotted:
		return "AgentSpotted"
	default:
		return "Unknown"
	}
}

// Event представляет собой интерфейс для всех событий ядра
type Event interface {
	GetType() EventType
}

// BlockAdded сообщает слою отрисовки о новом блоке
type BlockAdded struct {
	Position vec.Vec3        `json:"position"`
	Type     block.BlockType `json:"type"`
}

// GetType возвращает тип события
func (e BlockAdded) GetType() EventType { return EventTypeBlockAdded }

// BlockRemoved сообщает слою отрисовки об удалённом блоке
type BlockRemoved struct {
	Position vec.Vec3        `json:"position"`
	Type     block.BlockType `json:"type"`
}

// GetType возвращает тип события
func (e BlockRemoved) GetType() EventType { return EventTypeBlockRemoved }

// AgentSpotted - разовый сигнал: агент впервые увидел игрока
type AgentSpotted struct {
	Position vec.Vec3Float `json:"position"`
}

// GetType возвращает тип события
func (e AgentSpotted) GetType() EventType { return EventTypeAgentSpotted }

// EventSink принимает события ядра. Ядро не владеет визуальным представлением.
type EventSink interface {
	Emit(ev Event)
}

// EventBuffer накапливает события тика до фазы очистки
type EventBuffer struct {
	events []Event
}

// Emit добавляет событие в буфер
func (b *EventBuffer) Emit(ev Event) {
	b.events = append(b.events, ev)
}

// Drain возвращает накопленные события и очищает буфер
func (b *EventBuffer) Drain() []Event {
	events := b.events
	b.events = nil
	return events
}

// Len возвращает количество накопленных событий
func (b *EventBuffer) Len() int {
	return len(b.events)
}
