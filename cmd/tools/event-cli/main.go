package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/annel0/crimcraft/internal/eventbus"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/klauspost/compress/zstd"
	nats "github.com/nats-io/nats.go"
)

const (
	defaultServerURL = nats.DefaultURL
	timeFormat       = "2006-01-02T15:04:05Z"
	idleTimeout      = 2 * time.Second
)

func main() {
	var (
		serverURL  = flag.String("server", defaultServerURL, "NATS server URL")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		since      = flag.String("since", "", "Time duration since now (e.g., 1h, 30m) or RFC3339 time")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	// Подключаемся к NATS
	nc, err := nats.Connect(*serverURL, nats.Name("crimcraft-event-cli"))
	if err != nil {
		log.Fatalf("❌ Failed to connect to server: %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("❌ JetStream unavailable: %v", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		log.Fatalf("❌ zstd decoder: %v", err)
	}
	defer dec.Close()

	opts := &TailOptions{
		EventTypes: parseStringList(*eventTypes),
		Since:      *since,
		Limit:      *limit,
		Follow:     *follow,
	}

	switch *command {
	case "tail":
		if err := tailEvents(js, dec, opts); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		opts.Follow = false
		opts.Limit = 0
		if err := showStats(js, dec, opts); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
}

type TailOptions struct {
	EventTypes []string
	Since      string
	Limit      int // 0 - без ограничения
	Follow     bool
}

// subscribe открывает упорядоченного потребителя с нужной начальной позицией
func subscribe(js nats.JetStreamContext, opts *TailOptions) (*nats.Subscription, error) {
	subject := "events.*"
	if len(opts.EventTypes) == 1 {
		subject = eventbus.Subject(opts.EventTypes[0])
	}

	subOpts := []nats.SubOpt{nats.OrderedConsumer()}
	switch {
	case opts.Since != "":
		start, err := parseSinceTime(opts.Since, time.Now())
		if err != nil {
			return nil, fmt.Errorf("invalid since time: %v", err)
		}
		subOpts = append(subOpts, nats.StartTime(start))
	case opts.Follow:
		subOpts = append(subOpts, nats.DeliverNew())
	default:
		subOpts = append(subOpts, nats.DeliverAll())
	}

	return js.SubscribeSync(subject, subOpts...)
}

// readEvents передаёт в fn разобранные события до исчерпания стрима или лимита
func readEvents(js nats.JetStreamContext, dec *zstd.Decoder, opts *TailOptions, fn func(*eventbus.Envelope)) (int, error) {
	sub, err := subscribe(js, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = sub.Unsubscribe() }()

	count := 0
	for opts.Limit == 0 || count < opts.Limit {
		msg, err := sub.NextMsg(idleTimeout)
		if errors.Is(err, nats.ErrTimeout) {
			if opts.Follow {
				continue
			}
			break
		}
		if err != nil {
			return count, fmt.Errorf("stream error: %v", err)
		}

		env, err := eventbus.DecodeEnvelope(dec, msg.Data)
		if err != nil {
			fmt.Printf("⚠️ %s: %v\n", msg.Subject, err)
			continue
		}
		if !matchTypes(env.EventType, opts.EventTypes) {
			continue
		}

		fn(env)
		count++
	}
	return count, nil
}

// tailEvents выводит события в реальном времени
func tailEvents(js nats.JetStreamContext, dec *zstd.Decoder, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	count, err := readEvents(js, dec, opts, printEvent)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Total events: %d\n", count)
	return nil
}

// showStats выводит число событий по типам
func showStats(js nats.JetStreamContext, dec *zstd.Decoder, opts *TailOptions) error {
	fmt.Println("📊 Event statistics")

	byType := make(map[string]int)
	total, err := readEvents(js, dec, opts, func(env *eventbus.Envelope) {
		byType[env.EventType]++
	})
	if err != nil {
		return err
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Printf("Total events: %d\n", total)
	fmt.Println("\nBy event type:")
	for _, t := range types {
		fmt.Printf("  %s: %d events\n", t, byType[t])
	}
	return nil
}

// showTypes выводит известные типы событий
func showTypes() {
	fmt.Println("📋 Available event types")

	descriptions := map[world.EventType]string{
		world.EventTypeBlockAdded:   "Блок установлен игроком",
		world.EventTypeBlockRemoved: "Блок добыт игроком",
		world.EventTypeAgentSpotted: "Крим впервые заметил игрока",
	}
	for _, t := range []world.EventType{world.EventTypeBlockAdded, world.EventTypeBlockRemoved, world.EventTypeAgentSpotted} {
		fmt.Printf("Type: %s\n", t)
		fmt.Printf("  Subject: %s\n", eventbus.Subject(t.String()))
		fmt.Printf("  Description: %s\n", descriptions[t])
		fmt.Println()
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope) {
	timestamp := env.Timestamp.Format("15:04:05")
	fmt.Printf("[%s] %s tick=%s [%s] %s\n",
		timestamp,
		env.Source,
		env.CorrelationID,
		env.EventType,
		env.ID)

	ev, err := eventbus.DecodeEvent(env)
	if err != nil {
		fmt.Printf("  ⚠️ %v\n", err)
		return
	}

	// Добавляем детали в зависимости от типа события
	switch e := ev.(type) {
	case world.BlockAdded:
		fmt.Printf("  Block: (%d,%d,%d) %s\n", e.Position.X, e.Position.Y, e.Position.Z, e.Type)
	case world.BlockRemoved:
		fmt.Printf("  Block: (%d,%d,%d) %s\n", e.Position.X, e.Position.Y, e.Position.Z, e.Type)
	case world.AgentSpotted:
		fmt.Printf("  Agent at: (%.2f,%.2f,%.2f)\n", e.Position.X, e.Position.Y, e.Position.Z)
	}
}

func matchTypes(eventType string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m"
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	if since == "" {
		return from, nil
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		// Пробуем парсить как абсолютное время
		return time.Parse(timeFormat, since)
	}

	return from.Add(-duration), nil
}
