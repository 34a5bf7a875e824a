package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"autoservice/internal/models"
)

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseDateParam(raw string) (time.Time, bool) {
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	return date, err == nil
}

// GET /api/v1/availability?year=2026&month=9
func (s *HTTPServer) handleMonthAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = v
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = v
	}

	days, err := s.h.Bookings.GetMonthAvailability(r.Context(), year, time.Month(month))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "month": month, "days": days})
}

// GET /api/v1/availability/day?date=YYYY-MM-DD
func (s *HTTPServer) handleDayAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := parseDateParam(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	day, err := s.h.Bookings.GetDayAvailability(r.Context(), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// POST closes a day for bookings, DELETE reopens it.
func (s *HTTPServer) handleBlackout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Date    string `json:"date"`
			AdminID int64  `json:"admin_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date, ok := parseDateParam(body.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		if err := s.h.Bookings.MarkUnavailable(r.Context(), date, body.AdminID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"date": body.Date, "status": "unavailable"})

	case http.MethodDelete:
		date, ok := parseDateParam(r.URL.Query().Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		if err := s.h.Bookings.MarkAvailable(r.Context(), date); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"date": date.Format(models.DateLayout), "status": "available"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/v1/wizard/{customerID}/{action}
//
// Actions: start, state, personal, vehicle, date, back, commit, restart, abandon.
func (s *HTTPServer) handleWizard(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/wizard/"), "/"), "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	customerID, err := parseInt64(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	action := parts[1]

	// Лимит действий мастера на клиента, только для мутаций
	if r.Method == http.MethodPost && s.h.States != nil && s.h.Booking.RateLimitAttempts > 0 {
		window := time.Duration(s.h.Booking.RateLimitWindow) * time.Second
		allowed, err := s.h.States.CheckRateLimit(r.Context(), customerID, s.h.Booking.RateLimitAttempts, window)
		if err != nil {
			// Сбой лимитера не должен блокировать запись
			s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("rate limit check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many wizard requests, slow down")
			return
		}
	}

	if action == "state" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		state, err := s.h.Wizard.State(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "start":
		state, err := s.h.Wizard.Start(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "personal":
		var details models.PersonalDetails
		if err := decodeJSON(r, &details); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, err := s.h.Wizard.SubmitPersonal(r.Context(), customerID, details)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "vehicle":
		var details models.VehicleDetails
		if err := decodeJSON(r, &details); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, err := s.h.Wizard.SubmitVehicle(r.Context(), customerID, details)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "date":
		var body struct {
			Date     string   `json:"date"`
			Services []string `json:"services"`
			Issue    string   `json:"issue"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, err := s.h.Wizard.SelectDate(r.Context(), customerID, body.Date, body.Services, body.Issue)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "back":
		state, err := s.h.Wizard.Back(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "commit":
		customer, err := s.h.Customers.GetCustomerByID(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		booking, state, err := s.h.Wizard.Commit(r.Context(), customer)
		if err != nil {
			// Мастер остается на Review, состояние возвращаем вместе с ошибкой
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"booking": booking, "state": state})

	case "restart":
		state, err := s.h.Wizard.Restart(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case "abandon":
		if err := s.h.Wizard.Abandon(r.Context(), customerID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET /api/v1/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD or ?status=pending
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !models.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		bookings, err := s.h.Bookings.GetBookingsByStatus(r.Context(), status)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	}

	from, okFrom := parseDateParam(r.URL.Query().Get("from"))
	to, okTo := parseDateParam(r.URL.Query().Get("to"))
	if !okFrom || !okTo {
		writeError(w, http.StatusBadRequest, "from and to are required as YYYY-MM-DD")
		return
	}

	bookings, err := s.h.Bookings.GetBookingsByDateRange(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// /api/v1/bookings/{id}[/status|/cancel|/assign]
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	bookingID, err := parseInt64(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		booking, err := s.h.Bookings.GetBooking(r.Context(), bookingID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch parts[1] {
	case "status":
		var body struct {
			Status  string `json:"status"`
			Version int64  `json:"version"`
			AdminID int64  `json:"admin_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var transitionErr error
		switch body.Status {
		case models.StatusConfirmed:
			transitionErr = s.h.Bookings.ConfirmBooking(r.Context(), bookingID, body.Version, body.AdminID)
		case models.StatusRepairing:
			transitionErr = s.h.Bookings.StartRepair(r.Context(), bookingID, body.Version, body.AdminID)
		case models.StatusCompleted:
			transitionErr = s.h.Bookings.CompleteBooking(r.Context(), bookingID, body.Version, body.AdminID)
		default:
			writeError(w, http.StatusBadRequest, "unsupported status transition")
			return
		}
		if transitionErr != nil {
			writeDomainError(w, transitionErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})

	case "cancel":
		var body struct {
			Version int64 `json:"version"`
			ActorID int64 `json:"actor_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.h.Bookings.CancelBooking(r.Context(), bookingID, body.Version, body.ActorID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCancelled})

	case "assign":
		var body struct {
			LineID     int64 `json:"line_id"`
			EmployeeID int64 `json:"employee_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.h.Bookings.AssignMechanic(r.Context(), body.LineID, body.EmployeeID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET lists customers, POST registers one by auth uid.
func (s *HTTPServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := s.h.Customers.GetAll(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})

	case http.MethodPost:
		var customer models.Customer
		if err := decodeJSON(r, &customer); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(customer.AuthUID) == "" {
			writeError(w, http.StatusBadRequest, "auth_uid is required")
			return
		}
		registered, err := s.h.Customers.RegisterCustomer(r.Context(), &customer)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, registered)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/v1/customers/{id}[/bookings]
func (s *HTTPServer) handleCustomerByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/customers/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	customerID, err := parseInt64(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	switch {
	case len(parts) == 1:
		customer, err := s.h.Customers.GetCustomerByID(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)

	case len(parts) == 2 && parts[1] == "bookings":
		bookings, err := s.h.Bookings.GetCustomerBookings(r.Context(), customerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET lists employees (optionally by status), POST hires one.
func (s *HTTPServer) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			employees, err := s.h.Employees.GetByStatus(r.Context(), status)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
			return
		}
		employees, err := s.h.Employees.GetAll(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": employees})

	case http.MethodPost:
		var employee models.Employee
		if err := decodeJSON(r, &employee); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.h.Employees.Hire(r.Context(), &employee); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, employee)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/v1/employees/{id}/status and /api/v1/employees/{id}/role
func (s *HTTPServer) handleEmployeeByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/employees/"), "/"), "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	employeeID, err := parseInt64(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Status string `json:"status"`
		Role   string `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch parts[1] {
	case "status":
		if err := s.h.Employees.ChangeStatus(r.Context(), employeeID, body.Status); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})

	case "role":
		if err := s.h.Employees.ChangeRole(r.Context(), employeeID, body.Role); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"role": body.Role})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET /api/v1/services returns the active service catalog.
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	active := make([]map[string]string, 0, len(s.h.Catalog))
	for _, svc := range s.h.Catalog {
		if !svc.IsActive {
			continue
		}
		active = append(active, map[string]string{
			"name":        svc.Name,
			"description": svc.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": active})
}

// GET /api/v1/audit?limit=50
func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}

	entries, err := s.h.Audit.GetAuditEntries(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
