package models

import "time"

// Equipment is one catalog record keyed by its serial number.
type Equipment struct {
	ID           string
	SerialNumber string
	Name         string
	ImageURL     string
	Status       string
	Category     string
	Location     string
	CreatedAt    time.Time
}
