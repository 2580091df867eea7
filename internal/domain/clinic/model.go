package clinic

import "time"

type Clinic struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the writable fields of a clinic.
type Input struct {
	Name    string  `json:"name" validate:"notblank,max=255"`
	Address string  `json:"address" validate:"notblank"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
}
