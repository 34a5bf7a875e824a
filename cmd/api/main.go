package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"autoservice/internal/api"
	"autoservice/internal/config"
	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/logging"
	"autoservice/internal/metrics"
	"autoservice/internal/models"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
	"autoservice/internal/service"
	"autoservice/internal/wizard"
	"autoservice/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, catalog, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, stateRepo := initStateRepository(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	eventBus := events.NewEventBus()

	// Воркер журнала действий
	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	auditWorker := worker.NewAuditWorker(db, retryPolicy, logger)
	auditWorker.Subscribe(eventBus)
	go auditWorker.Start(ctx)

	// Бизнес-сервисы
	bookingService := service.NewBookingService(db, eventBus, catalog, cfg.Booking, logger)
	customerService := service.NewCustomerService(db, logger)
	employeeService := service.NewEmployeeService(db, logger)
	wizardMachine := wizard.NewMachine(stateRepo, bookingService, bookingService, logger)

	dispatcher := initDispatcher(cfg, customerService, logger)
	if dispatcher != nil {
		dispatcher.Subscribe(eventBus)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg, logger)
	}

	return startHTTPServer(ctx, cfg, api.Handlers{
		Bookings:  bookingService,
		Customers: customerService,
		Employees: employeeService,
		Wizard:    wizardMachine,
		Audit:     db,
		Catalog:   catalog,
		States:    stateRepo,
		Booking:   cfg.Booking,
	}, logger)
}

func loadConfigAndLogger() (*config.Config, []config.ServiceOffering, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	catalog, err := loadServiceCatalog(&logger)
	if err != nil {
		return nil, nil, nil, closer, err
	}

	return cfg, catalog, &logger, closer, nil
}

func loadServiceCatalog(logger *zerolog.Logger) ([]config.ServiceOffering, error) {
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}

	data, err := os.ReadFile(servicesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", servicesPath)
		return nil, err
	}

	var catalog struct {
		Services []config.ServiceOffering `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга services.yaml")
		return nil, err
	}

	if err := config.ValidateServices(catalog.Services); err != nil {
		logger.Error().Err(err).Msg("Service catalog validation failed")
		return nil, err
	}

	return catalog.Services, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	closedWeekday, err := config.ParseWeekday(cfg.Booking.ClosedWeekday)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path, logger,
		database.WithDailyCapacity(cfg.Booking.DailyCapacity),
		database.WithClosedWeekday(closedWeekday),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}
	return db, nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.StateRepository) {
	ttl := time.Duration(cfg.Booking.StateTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultStateTTL) * time.Second
	}

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	return redisClient, repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
}

// initDispatcher собирает каналы уведомлений из конфига. Отсутствие каналов
// не останавливает запуск: заявки работают и без уведомлений.
func initDispatcher(cfg *config.Config, customers *service.CustomerService, logger *zerolog.Logger) *notify.Dispatcher {
	var notifiers []domain.Notifier

	if cfg.Push.Enabled {
		notifiers = append(notifiers, notify.NewPushClient(cfg.Push))
	}

	if cfg.Telegram.Enabled {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		} else {
			notifiers = append(notifiers, notify.NewTelegramNotifier(botAPI, cfg.Telegram.StaffChat))
		}
	}

	if len(notifiers) == 0 {
		logger.Info().Msg("no notification channels configured")
		return nil
	}
	return notify.NewDispatcher(customers, logger, notifiers...)
}

func startMetricsServer(cfg *config.Config, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startHTTPServer(ctx context.Context, cfg *config.Config, handlers api.Handlers, logger *zerolog.Logger) error {
	server := api.NewHTTPServer(cfg.API, handlers, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}
