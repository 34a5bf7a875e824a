package models

import "time"

type Booking struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"` // display-only uuid, the natural key is (customer_id, date)
	CustomerID    int64     `json:"customer_id"`
	CustomerCode  string    `json:"customer_code"`
	CustomerName  string    `json:"customer_name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Vehicle       Vehicle   `json:"vehicle"`
	Issue         string    `json:"issue"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"` // pending, confirmed, repairing, completed, cancelled
	CompletedDate string    `json:"completed_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`

	Services []ServiceLine `json:"services,omitempty"`
}

type Vehicle struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	Transmission string `json:"transmission"`
	FuelType     string `json:"fuel_type"`
	Odometer     string `json:"odometer"`
	PlateNumber  string `json:"plate_number"`
}

// ServiceLine одна запрошенная услуга в заявке
type ServiceLine struct {
	ID        int64  `json:"id"`
	BookingID int64  `json:"booking_id"`
	Name      string `json:"name"`
	Mechanic  string `json:"mechanic"` // MechanicUnassigned until an admin assigns one
}

// DateKey returns the calendar-day key of the booking.
func (b *Booking) DateKey() string {
	return b.Date.Format(DateLayout)
}
