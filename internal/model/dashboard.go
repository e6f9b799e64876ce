package model

import "time"

type DateRange struct {
	Mode  DashboardMode `json:"mode"`
	Start *time.Time    `json:"start"`
	End   *time.Time    `json:"end"`
}

// Contains reports whether t falls inside the range. Open bounds match anything.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

func (r DateRange) Bounded() bool {
	return r.Start != nil || r.End != nil
}

type TripStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
}

type CashStats struct {
	PaidAmount    float64 `json:"paidAmount"`
	PaidCount     int     `json:"paidCount"`
	PendingAmount float64 `json:"pendingAmount"`
	PendingCount  int     `json:"pendingCount"`
}

type DashboardMetrics struct {
	Range             DateRange `json:"range"`
	Trips             TripStats `json:"trips"`
	Invoices          CashStats `json:"invoices"`
	SupplierPayments  CashStats `json:"supplierPayments"`
	NetCashFlow       float64   `json:"netCashFlow"`
	OutstandingImpact float64   `json:"outstandingImpact"`
}

type StatusTotal struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// StatusReport summarizes invoices or supplier payments by status. Outstanding
// holds the amount in the statuses the report treats as still open.
type StatusReport struct {
	Total       float64       `json:"total"`
	Outstanding float64       `json:"outstanding"`
	ByStatus    []StatusTotal `json:"byStatus"`
}
