// Package models holds the catalog records exchanged with the catalog API.
package models

import "time"

// Status is an equipment lifecycle state. The set is open: values the
// client does not know are passed through unchanged.
type Status string

const (
	StatusAvailable     Status = "available"
	StatusInService     Status = "in_service"
	StatusUnderWarranty Status = "under_warranty"
	StatusOutOfContract Status = "out_of_contract"
)

// Equipment is a catalog record as returned by the server.
type Equipment struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	Status       Status    `json:"status"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
}

// EquipmentInput is a record to insert. Only SerialNumber is required;
// missing optional fields are sent as "".
type EquipmentInput struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	ImageURL     string `json:"image_url"`
	Status       Status `json:"status"`
	Category     string `json:"category"`
	Location     string `json:"location"`
}
