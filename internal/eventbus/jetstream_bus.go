package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/crimcraft/internal/logging"
	"github.com/klauspost/compress/zstd"
	nats "github.com/nats-io/nats.go"
)

// encodingZstd - значение Metadata["encoding"] для сжатого payload
const encodingZstd = "zstd"

// JetStreamOptions параметры подключения к JetStream
type JetStreamOptions struct {
	URL       string        // nats://127.0.0.1:4222
	Stream    string        // По умолчанию "EVENTS"
	Retention time.Duration // MaxAge стрима
	Compress  bool          // Сжимать payload через zstd
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	compress  bool
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
func NewJetStreamBus(opts JetStreamOptions) (*JetStreamBus, error) {
	if opts.Stream == "" {
		opts.Stream = "EVENTS"
	}

	nc, err := nats.Connect(opts.URL, nats.Name("crimcraft"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Стрим с subjects events.*
	if _, err = js.StreamInfo(opts.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      opts.Stream,
			Subjects:  []string{"events.*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    opts.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &JetStreamBus{
		nc:       nc,
		js:       js,
		stream:   opts.Stream,
		compress: opts.Compress,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Subject возвращает subject для типа события
func Subject(eventType string) string {
	return fmt.Sprintf("events.%s", eventType)
}

// Publish сериализует Envelope в JSON и публикует в subject events.<type>.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	out := ev
	if jb.compress {
		out = compressEnvelope(jb.encoder, ev)
	}

	data, err := json.Marshal(out)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}

	if _, err = jb.js.Publish(Subject(ev.EventType), data, nats.Context(ctx)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт durable consumer и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := "events.*"
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	durable := nats.Durable(fmt.Sprintf("sub_%d", time.Now().UnixNano()))

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()

		ev, err := DecodeEnvelope(jb.decoder, msg.Data)
		if err != nil {
			logging.GetEventBusLogger().Warn("Не удалось разобрать сообщение %s: %v", msg.Subject, err)
			return
		}
		if !matchFilter(ev, f) {
			return
		}
		h(ctx, ev)
		atomic.AddUint64(&jb.consumed, 1)
	}, nats.ManualAck(), durable, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  0, // очередь держит сам JetStream
	}
}

// Close дожидается отправки и закрывает соединение
func (jb *JetStreamBus) Close() error {
	err := jb.nc.Drain()
	jb.decoder.Close()
	return err
}

// compressEnvelope возвращает копию Envelope со сжатым payload
func compressEnvelope(enc *zstd.Encoder, ev *Envelope) *Envelope {
	out := *ev
	out.Payload = enc.EncodeAll(ev.Payload, nil)
	out.Metadata = make(map[string]string, len(ev.Metadata)+1)
	for k, v := range ev.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata["encoding"] = encodingZstd
	return &out
}

// DecodeEnvelope разбирает JSON сообщения и распаковывает zstd payload
func DecodeEnvelope(dec *zstd.Decoder, data []byte) (*Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}

	if ev.Metadata["encoding"] == encodingZstd {
		payload, err := dec.DecodeAll(ev.Payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		ev.Payload = payload
		delete(ev.Metadata, "encoding")
	}

	return &ev, nil
}
