package models

import (
	"strconv"
	"strings"
	"time"
)

// WizardState is the per-customer snapshot of the booking wizard kept in the
// state repository. One wizard per customer; two devices of the same customer
// see the same state.
type WizardState struct {
	CustomerID int64        `json:"customer_id"`
	Step       string       `json:"step"`
	Draft      BookingDraft `json:"draft"`
	Submitting bool         `json:"submitting"` // latch against double commit
	LastError  string       `json:"last_error,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// BookingDraft накапливает данные по шагам мастера. Явная структура вместо
// нетипизированной карты: каждый шаг валидируется на границе перехода.
type BookingDraft struct {
	Personal PersonalDetails `json:"personal"`
	Vehicle  VehicleDetails  `json:"vehicle"`
	Date     string          `json:"date"` // YYYY-MM-DD, empty until DateSelection
	Services []string        `json:"services"`
	Issue    string          `json:"issue"`
}

type PersonalDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
}

type VehicleDetails struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	Transmission string `json:"transmission"`
	FuelType     string `json:"fuel_type"`
	Odometer     string `json:"odometer"`
	PlateNumber  string `json:"plate_number"`
}

func (p PersonalDetails) Validate() []string {
	var missing []string
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(p.LastName) == "" {
		missing = append(missing, "last_name")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func (v VehicleDetails) Validate() []string {
	var missing []string
	if strings.TrimSpace(v.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(v.Model) == "" {
		missing = append(missing, "model")
	}
	if year := strings.TrimSpace(v.Year); year == "" {
		missing = append(missing, "year")
	} else if _, err := strconv.Atoi(year); err != nil {
		missing = append(missing, "year")
	}
	return missing
}

// ParsedDate returns the selected day or the zero time when not chosen yet.
func (d BookingDraft) ParsedDate() time.Time {
	if d.Date == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}
