package model

import "strings"

const TripStatusCompleted = "completed"

// Trip is a single rental job. UnitOwnership caches the vehicle ownership at the
// moment the trip was saved, since the unit may change ownership later.
type Trip struct {
	ID            string    `json:"id"`
	TripID        string    `json:"tripId"`
	Date          string    `json:"date"`
	Customer      string    `json:"customer"`
	Vehicle       string    `json:"vehicle"`
	Driver        string    `json:"driver"`
	Route         string    `json:"route"`
	RentalCharges float64   `json:"rentalCharges"`
	Status        string    `json:"status"`
	UnitOwnership Ownership `json:"unitOwnership"`
}

func (t Trip) IsCompleted() bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), TripStatusCompleted)
}
