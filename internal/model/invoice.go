package model

import "strings"

const (
	PaymentStatusPending   = "Pending"
	PaymentStatusPaid      = "Paid"
	PaymentStatusOverdue   = "Overdue"
	PaymentStatusPartial   = "Partial"
	PaymentStatusScheduled = "Scheduled"
)

type Invoice struct {
	ID       string  `json:"id"`
	Invoice  string  `json:"invoice"`
	Customer string  `json:"customer"`
	Trip     string  `json:"trip"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"dueDate"`
	Status   string  `json:"status"`
	Notes    string  `json:"notes"`
}

func (i Invoice) IsPending() bool { return statusIs(i.Status, PaymentStatusPending) }
func (i Invoice) IsPaid() bool    { return statusIs(i.Status, PaymentStatusPaid) }

// SupplierPayment is money owed to a supplier for a rent-in unit.
type SupplierPayment struct {
	ID        string  `json:"id"`
	Reference string  `json:"reference"`
	Supplier  string  `json:"supplier"`
	Vehicle   string  `json:"vehicle"`
	Trip      string  `json:"trip"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"dueDate"`
	Status    string  `json:"status"`
	Notes     string  `json:"notes"`
}

func (p SupplierPayment) IsPending() bool { return statusIs(p.Status, PaymentStatusPending) }
func (p SupplierPayment) IsPaid() bool    { return statusIs(p.Status, PaymentStatusPaid) }

func statusIs(status, want string) bool {
	return strings.EqualFold(status, want)
}
