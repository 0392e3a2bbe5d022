package eventbus

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/crimcraft/internal/world"
	"github.com/google/uuid"
)

// PayloadVersion - версия схемы полезной нагрузки событий ядра
const PayloadVersion = 1

// Приоритеты событий ядра. Изменения сетки не отбрасываются при переполнении.
const (
	PriorityAgentSpotted = 2
	PriorityBlockChange  = 7
)

// NewEnvelope упаковывает событие ядра в Envelope
func NewEnvelope(source string, tick uint64, ev world.Event) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("кодирование %s: %w", ev.GetType(), err)
	}

	priority := PriorityBlockChange
	if ev.GetType() == world.EventTypeAgentSpotted {
		priority = PriorityAgentSpotted
	}

	return &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        source,
		EventType:     ev.GetType().String(),
		Version:       PayloadVersion,
		CorrelationID: strconv.FormatUint(tick, 10),
		Priority:      priority,
		Payload:       payload,
	}, nil
}

// DecodeEvent восстанавливает событие ядра из Envelope
func DecodeEvent(env *Envelope) (world.Event, error) {
	var (
		ev  world.Event
		err error
	)

	switch env.EventType {
	case world.EventTypeBlockAdded.String():
		var e world.BlockAdded
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case world.EventTypeBlockRemoved.String():
		var e world.BlockRemoved
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case world.EventTypeAgentSpotted.String():
		var e world.AgentSpotted
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("неизвестный тип события %q", env.EventType)
	}

	if err != nil {
		return nil, fmt.Errorf("декодирование %s: %w", env.EventType, err)
	}
	return ev, nil
}
