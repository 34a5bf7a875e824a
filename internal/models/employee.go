package models

import "time"

type Employee struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"` // sequential, EMP-0001
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`   // administrator, lead_mechanic, assistant_mechanic, helper_mechanic
	Status    string    `json:"status"` // active, inactive, terminated
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
