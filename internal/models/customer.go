package models

import "time"

type Customer struct {
	ID           int64     `json:"id"`
	AuthUID      string    `json:"auth_uid"` // identity at the auth provider, also the push recipient key
	Code         string    `json:"code"`     // human-readable, CUST-0001
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
