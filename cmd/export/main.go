// Команда export выгружает заявки или клиентскую базу в Excel.
//
// Примеры:
//
//	export -from 2026-09-01 -to 2026-09-30
//	export -customers
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/database"
	"autoservice/internal/export"
	"autoservice/internal/logging"
	"autoservice/internal/models"
	"autoservice/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		fromFlag      = flag.String("from", "", "начало периода, YYYY-MM-DD")
		toFlag        = flag.String("to", "", "конец периода, YYYY-MM-DD")
		customersFlag = flag.Bool("customers", false, "выгрузить клиентскую базу вместо заявок")
	)
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "export").Logger()

	closedWeekday, err := config.ParseWeekday(cfg.Booking.ClosedWeekday)
	if err != nil {
		return err
	}
	db, err := database.NewDB(cfg.Database.Path, &logger,
		database.WithDailyCapacity(cfg.Booking.DailyCapacity),
		database.WithClosedWeekday(closedWeekday),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	// Каталог услуг выгрузке не нужен, заявки только читаются
	bookingService := service.NewBookingService(db, nil, nil, cfg.Booking, &logger)
	customerService := service.NewCustomerService(db, &logger)
	exporter := export.NewExporter(bookingService, customerService, cfg.Exports, &logger)

	ctx := context.Background()

	if *customersFlag {
		filePath, err := exporter.ExportCustomers(ctx)
		if err != nil {
			return err
		}
		fmt.Println(filePath)
		return nil
	}

	// По умолчанию выгружаем текущий месяц
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	endDate := startDate.AddDate(0, 1, -1)

	if *fromFlag != "" {
		if startDate, err = time.Parse(models.DateLayout, *fromFlag); err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
	}
	if *toFlag != "" {
		if endDate, err = time.Parse(models.DateLayout, *toFlag); err != nil {
			return fmt.Errorf("invalid -to date: %w", err)
		}
	}
	if endDate.Before(startDate) {
		return fmt.Errorf("period end %s is before start %s", endDate.Format(models.DateLayout), startDate.Format(models.DateLayout))
	}

	filePath, err := exporter.ExportBookings(ctx, startDate, endDate)
	if err != nil {
		return err
	}
	fmt.Println(filePath)
	return nil
}
