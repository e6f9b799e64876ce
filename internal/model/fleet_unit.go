package model

import "strings"

type Ownership string

const (
	OwnershipOwned  Ownership = "owned"
	OwnershipRentIn Ownership = "rent-in"
)

// FleetUnit is a vehicle managed by the operator, either owned or leased
// (rent-in) from a supplier.
type FleetUnit struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unitId" jsonschema:"required"`
	FleetType string    `json:"fleetType"`
	Ownership Ownership `json:"ownership" jsonschema:"enum=owned,enum=rent-in"`
	Model     string    `json:"model"`
	Capacity  string    `json:"capacity"`
	Status    string    `json:"status"`
	Supplier  string    `json:"supplier"`
}

func (u FleetUnit) IsRentIn() bool {
	return strings.EqualFold(strings.TrimSpace(string(u.Ownership)), string(OwnershipRentIn))
}
