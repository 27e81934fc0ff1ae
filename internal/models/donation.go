package models

import "time"

// Donation is a single recorded contribution. Amount is stored in the
// smallest currency unit.
type Donation struct {
	ID          int64     `json:"id"`
	DevoteeName string    `json:"devotee_name"`
	Amount      int64     `json:"amount"`
	Purpose     string    `json:"purpose"`
	RecordedBy  int64     `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
