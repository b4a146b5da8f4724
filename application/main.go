// application/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nastiakostenyuk/alert-server-v1/application/scheduler"
	"github.com/nastiakostenyuk/alert-server-v1/internal/api"
	"github.com/nastiakostenyuk/alert-server-v1/internal/config"
	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/alerts"
	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/detector"
	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/window"
	"github.com/nastiakostenyuk/alert-server-v1/internal/delivery/wsserver"
	"github.com/nastiakostenyuk/alert-server-v1/internal/feed"
	"github.com/nastiakostenyuk/alert-server-v1/internal/fetcher"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/api/exchanges/binance/ws"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/cache/redis"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/persistence/postgres/database"
	alert_repo "github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/persistence/postgres/repository/alert"
	"github.com/nastiakostenyuk/alert-server-v1/internal/notifier"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config:", err)
	}

	// 2. Инициализируем логгер
	if err := logger.InitGlobal(cfg.LogFile, cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	logger.Info("🚀 Alert server запускается...")

	// 3. База данных — без неё сервер не стартует
	dbService := database.NewDatabaseService(cfg)
	if err := dbService.Start(); err != nil {
		logger.Error("❌ Не удалось подключиться к базе: %v", err)
		os.Exit(1)
	}
	defer dbService.Stop()

	alertRepo := alert_repo.NewAlertRepository(dbService.GetDB())

	// 4. Redis-кэш суточного объёма (опционально)
	var volumeCache fetcher.VolumeCache
	if cfg.RedisEnabled {
		cache := redis.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(context.Background()); err != nil {
			logger.Warn("⚠️ Redis недоступен, кэш объёмов выключен: %v", err)
		} else {
			logger.Info("✅ Redis подключен: %s", cfg.RedisAddr)
			volumeCache = cache
			defer cache.Close()
		}
	}

	// 5. Биржа: REST-клиент и источник объёмов
	binanceClient := api.NewBinanceClient(cfg)
	volumes := fetcher.NewVolumeFetcher(binanceClient, volumeCache, cfg.VolumeCacheTTL)

	// 6. Уведомления: telegram + консоль
	notifications := notifier.NewCompositeNotificationService()
	if tg := notifier.NewTelegramNotifier(cfg); tg != nil {
		notifications.AddNotifier(tg)
	} else {
		logger.Warn("⚠️ Telegram не настроен, уведомления только в консоль")
	}
	notifications.AddNotifier(notifier.NewConsoleNotifier())
	notifications.Send("start alert server")

	// 7. WebSocket-сервер рассылки
	wsServer := wsserver.NewServer(cfg.WsIP, cfg.WsPort,
		wsserver.NewPendingQueue(cfg.PendingQueueSize), notifications)
	if err := wsServer.Start(); err != nil {
		logger.Error("❌ %v", err)
		os.Exit(1)
	}
	defer wsServer.Stop()

	// 8. Конвейер детекции
	sink := alerts.NewSink(alertRepo, wsServer, notifications)
	gate := detector.NewCooldownGate(alertRepo, cfg.TimePassed)
	det := detector.NewDetector(detector.Config{
		MaximumKlines:               cfg.MaximumKlines,
		AvgIncrease:                 cfg.AvgIncrease,
		VolumeMultiple:              cfg.VolumeMultiple,
		PercentToMaxPriceExceedsMin: cfg.PercentToMaxPriceExceedsMin,
		WithinThreshold:             cfg.WithinThreshold,
		MinDailyVolume:              cfg.MinDailyVolume,
	}, gate, volumes, sink)
	defer det.Stop()

	// 9. Стрим свечей
	windows := window.NewStore(cfg.MaximumKlines)
	streams := ws.NewStreamManager(cfg.StreamURL, cfg.StreamBuffer)
	driver := feed.NewDriver(streams, binanceClient, windows, det,
		cfg.KlineChannel, cfg.SplitLetter, cfg.RequestTimeout)
	driver.Start(context.Background())
	defer func() {
		driver.Stop()
		streams.Stop()
	}()

	// 10. Периодический ресинк списка символов
	sched := scheduler.New()
	sched.Register(&scheduler.Job{
		Name:     "resync-symbols",
		Schedule: scheduler.Every(cfg.UpdateSymbolsCooldown),
		Handler:  driver.UpdateMarkets,
	})
	sched.Start()
	defer sched.Stop()

	logger.Info("✅ Alert server запущен")

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Получен сигнал завершения, останавливаемся...")
}
