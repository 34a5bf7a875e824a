package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/metrics"
	"autoservice/internal/service"
	"autoservice/internal/wizard"

	"github.com/rs/zerolog"
)

// AuditReader exposes the audit log to the API without pulling in the whole DB.
type AuditReader interface {
	GetAuditEntries(ctx context.Context, limit int) ([]*database.AuditEntry, error)
}

// Handlers bundles the services the HTTP API fronts.
type Handlers struct {
	Bookings  *service.BookingService
	Customers *service.CustomerService
	Employees *service.EmployeeService
	Wizard    *wizard.Machine
	Audit     AuditReader
	Catalog   []config.ServiceOffering

	// States and Booking feed the per-customer wizard rate limiter.
	States  domain.StateRepository
	Booking config.BookingConfig
}

// HTTPServer exposes the booking engine over a lightweight HTTP API.
type HTTPServer struct {
	cfg    config.APIConfig
	h      Handlers
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, h Handlers, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, h: h, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/availability", srv.handleMonthAvailability)
	mux.HandleFunc("/api/v1/availability/day", srv.handleDayAvailability)
	mux.HandleFunc("/api/v1/availability/blackout", srv.handleBlackout)
	mux.HandleFunc("/api/v1/wizard/", srv.handleWizard)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/customers", srv.handleCustomers)
	mux.HandleFunc("/api/v1/customers/", srv.handleCustomerByID)
	mux.HandleFunc("/api/v1/employees", srv.handleEmployees)
	mux.HandleFunc("/api/v1/employees/", srv.handleEmployeeByID)
	mux.HandleFunc("/api/v1/services", srv.handleServices)
	mux.HandleFunc("/api/v1/audit", srv.handleAudit)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses IDs so the metric cardinality stays bounded.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := parseInt64(p); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps storage and workflow errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *wizard.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, wizard.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrDuplicateBooking),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrSubmitting):
		status = http.StatusConflict
	case errors.Is(err, database.ErrDateFullyBooked),
		errors.Is(err, database.ErrDateUnavailable),
		errors.Is(err, database.ErrClosedWeekday),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, service.ErrDateTooFar),
		errors.Is(err, service.ErrDateTooSoon),
		errors.Is(err, service.ErrUnknownService),
		errors.Is(err, wizard.ErrDateNotSelectable):
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
