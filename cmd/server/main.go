package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/crimcraft/internal/api"
	"github.com/annel0/crimcraft/internal/config"
	"github.com/annel0/crimcraft/internal/eventbus"
	"github.com/annel0/crimcraft/internal/logging"
	"github.com/annel0/crimcraft/internal/metrics"
	"github.com/annel0/crimcraft/internal/observability"
	"github.com/annel0/crimcraft/internal/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию ENV GAME_CONFIG)")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Неверная конфигурация: %v", err)
	}

	// Инициализируем систему логирования
	if cfg.Logging.File {
		if err := logging.InitDefaultLogger("server"); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
		logging.GetLoggerManager().EnableFiles(true)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.SetDefaultLevel(level)

	logging.Info("🎮 Запуск Crimcraft Server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry недоступен, трассировка выключена: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ Ошибка создания шины событий: %v", err)
	}
	eventbus.Init(bus)

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Error("❌ Ошибка подписки логирующего слушателя: %v", err)
	}

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	simMetrics := metrics.NewSimMetrics(registry)

	busExporter := eventbus.NewMetricsExporter(bus, registry)
	busExporter.Start()

	// === СИМУЛЯЦИЯ ===
	simulation, err := sim.New(ctx, cfg, sim.Options{
		Bus:     bus,
		Metrics: simMetrics,
		Source:  cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания симуляции: %v", err)
	}

	stats := simulation.GenerationStats()
	logging.Info("🌍 Мир сгенерирован: сид=%d, блоков=%d, деревьев=%d, колонн=%d, башен=%d",
		simulation.Seed(), stats.TotalBlocks, stats.Trees, stats.Pillars, stats.GlassTowers)

	runner := sim.NewRunner(simulation)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("❌ Цикл симуляции завершился с ошибкой: %v", err)
		}
	}()

	// === REST API ===
	restPort := cfg.Server.GetRESTPort()
	restServer := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", restPort),
		Game:     simulation,
		Registry: registry,
		Service:  "rest_api",
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
		}
	}()

	// Отдельный порт для Prometheus
	metricsPort := cfg.Server.GetMetricsPort()
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", restPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", metricsPort)
	if cfg.EventBus.URL != "" {
		logging.Info("   📨 JetStream: %s (стрим %s)", cfg.EventBus.URL, cfg.EventBus.Stream)
	}

	// Примеры использования REST API
	logging.Info("💡 Примеры использования REST API:")
	logging.Info("   curl http://localhost:%d/api/state", restPort)
	logging.Info("   curl -X POST http://localhost:%d/api/intents/mine -H 'Content-Type: application/json' -d '{\"aim\":{\"x\":0,\"y\":-1,\"z\":0}}'", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	cancel()
	<-runnerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logging.Debug("Остановка REST API...")
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	busExporter.Stop()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// newEventBus выбирает JetStream, если задан URL, иначе шину в памяти
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("📨 Шина событий в памяти (буфер %d)", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}

	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamOptions{
		URL:       cfg.URL,
		Stream:    cfg.Stream,
		Retention: time.Duration(cfg.Retention) * time.Hour,
		Compress:  cfg.Compress,
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}
