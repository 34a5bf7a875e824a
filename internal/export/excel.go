package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// BookingSource отдает заявки для выгрузки
type BookingSource interface {
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error)
}

// CustomerSource отдает клиентов для выгрузки
type CustomerSource interface {
	GetAll(ctx context.Context) ([]*models.Customer, error)
}

// Exporter создает Excel-выгрузки для бэк-офиса
type Exporter struct {
	bookings  BookingSource
	customers CustomerSource
	cfg       config.ExportConfig
	logger    *zerolog.Logger
}

func NewExporter(bookings BookingSource, customers CustomerSource, cfg config.ExportConfig, logger *zerolog.Logger) *Exporter {
	return &Exporter{bookings: bookings, customers: customers, cfg: cfg, logger: logger}
}

// ExportBookings создает Excel файл с заявками за период: одна строка на
// заявку, подряд по дням, со статусной заливкой.
func (e *Exporter) ExportBookings(ctx context.Context, startDate, endDate time.Time) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	dailyBookings, err := e.bookings.GetDailyBookings(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Заявки"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "I1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// Шапка таблицы
	headers := []string{
		"Дата", "Номер", "Клиент", "Телефон", "Автомобиль", "Гос. номер",
		"Услуги", "Механики", "Статус",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 3
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		for _, booking := range dailyBookings[day.Format(models.DateLayout)] {
			e.writeBookingRow(f, sheetName, row, booking)
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "C", 22)
	_ = f.SetColWidth(sheetName, "D", "D", 16)
	_ = f.SetColWidth(sheetName, "E", "E", 22)
	_ = f.SetColWidth(sheetName, "F", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "H", 28)
	_ = f.SetColWidth(sheetName, "I", "I", 14)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout),
		endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeBookingRow(f *excelize.File, sheetName string, row int, booking *models.Booking) {
	var services, mechanics []string
	for _, line := range booking.Services {
		services = append(services, line.Name)
		mechanics = append(mechanics, line.Mechanic)
	}

	vehicle := strings.TrimSpace(booking.Vehicle.Brand + " " + booking.Vehicle.Model)
	if booking.Vehicle.Year != "" {
		vehicle += " (" + booking.Vehicle.Year + ")"
	}

	values := []any{
		booking.Date.Format("02.01.2006"),
		booking.CustomerCode,
		booking.CustomerName,
		booking.Phone,
		vehicle,
		booking.Vehicle.PlateNumber,
		strings.Join(services, "\n"),
		strings.Join(mechanics, "\n"),
		statusIcon(booking.Status) + " " + booking.Status,
	}
	for i, value := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, value)
	}

	if styleID, err := e.statusStyle(f, booking.Status); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		_ = f.SetCellStyle(sheetName, first, last, styleID)
	}
}

// statusStyle возвращает заливку строки по статусу заявки
func (e *Exporter) statusStyle(f *excelize.File, status string) (int, error) {
	color := "#FFFFFF"
	switch status {
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusConfirmed, models.StatusRepairing:
		color = "#C6EFCE"
	case models.StatusCancelled:
		color = "#FFC7CE"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return "✅"
	case models.StatusPending:
		return "⏳"
	case models.StatusRepairing:
		return "🔧"
	case models.StatusCancelled:
		return "❌"
	default:
		return "❓"
	}
}

// ExportCustomers создает Excel файл с клиентской базой
func (e *Exporter) ExportCustomers(ctx context.Context) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	customers, err := e.customers.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting customers: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Клиенты"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Код", "Имя", "Фамилия", "Телефон", "Email", "Адрес",
		"Заявок", "Последняя активность", "Дата регистрации",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for i, customer := range customers {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), customer.Code)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), customer.FirstName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), customer.LastName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), customer.Phone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), customer.Email)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), customer.Address)

		bookings, err := e.bookings.GetCustomerBookings(ctx, customer.ID)
		if err != nil {
			e.logger.Error().Err(err).Int64("customer_id", customer.ID).Msg("Error getting customer bookings")
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), len(bookings))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), customer.LastActivity.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), customer.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "C", 15)
	_ = f.SetColWidth(sheetName, "D", "D", 16)
	_ = f.SetColWidth(sheetName, "E", "E", 24)
	_ = f.SetColWidth(sheetName, "F", "F", 30)
	_ = f.SetColWidth(sheetName, "G", "G", 8)
	_ = f.SetColWidth(sheetName, "H", "I", 20)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("customers_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Customers Excel file created")
	return filePath, nil
}
