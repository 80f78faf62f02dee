package models

import "time"

// Employee is the subject of corrective actions. Managed by the HR screens.
type Employee struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"fullName"`
	HouseID   *string   `db:"house_id" json:"houseId,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// House is a residential site.
type House struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
