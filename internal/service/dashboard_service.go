package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

const unknownStatus = "Unknown"

// ResolveRange turns a dashboard filter into concrete bounds in now's location.
// Custom bounds that arrive in the wrong order are swapped before being widened
// to whole days.
func ResolveRange(filter model.DashboardFilter, now time.Time) model.DateRange {
	loc := now.Location()
	mode := filter.Mode
	if !mode.Valid() {
		mode = model.DashboardModeThisMonth
	}

	switch mode {
	case model.DashboardModeCustom:
		r := model.DateRange{Mode: mode}
		start, hasStart := utils.ParseDate(filter.Start, loc)
		end, hasEnd := utils.ParseDate(filter.End, loc)
		if hasStart && hasEnd && start.After(end) {
			start, end = end, start
		}
		if hasStart {
			s := utils.StartOfDay(start)
			r.Start = &s
		}
		if hasEnd {
			e := utils.EndOfDay(end)
			r.End = &e
		}
		return r
	case model.DashboardModeLastMonth:
		first := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, loc)
		return monthRange(mode, first)
	default:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return monthRange(mode, first)
	}
}

func monthRange(mode model.DashboardMode, first time.Time) model.DateRange {
	last := utils.EndOfDay(first.AddDate(0, 1, -1))
	return model.DateRange{Mode: mode, Start: &first, End: &last}
}

// inRange reports whether the raw date belongs to r. Without bounds every
// record counts, including those whose date cannot be parsed.
func inRange(r model.DateRange, raw string, loc *time.Location) bool {
	if !r.Bounded() {
		return true
	}
	parsed, ok := utils.ParseDate(raw, loc)
	if !ok {
		return false
	}
	return r.Contains(parsed)
}

// Aggregate computes the dashboard metrics for the filtered window.
func Aggregate(s model.Snapshot, filter model.DashboardFilter, now time.Time) model.DashboardMetrics {
	loc := now.Location()
	r := ResolveRange(filter, now)
	metrics := model.DashboardMetrics{Range: r}

	for _, trip := range s.Trips {
		if !inRange(r, trip.Date, loc) {
			continue
		}
		metrics.Trips.Total++
		if trip.IsCompleted() {
			metrics.Trips.Completed++
		} else {
			metrics.Trips.Active++
		}
	}

	var paidIn, openIn decimal.Decimal
	for _, invoice := range s.Invoices {
		if !inRange(r, invoice.DueDate, loc) {
			continue
		}
		amount := decimal.NewFromFloat(invoice.Amount)
		if invoice.IsPaid() {
			paidIn = paidIn.Add(amount)
			metrics.Invoices.PaidCount++
		} else {
			openIn = openIn.Add(amount)
			metrics.Invoices.PendingCount++
		}
	}

	var paidOut, pendingOut decimal.Decimal
	for _, payment := range s.Suppliers {
		if !inRange(r, payment.DueDate, loc) {
			continue
		}
		amount := decimal.NewFromFloat(payment.Amount)
		if payment.IsPaid() {
			paidOut = paidOut.Add(amount)
			metrics.SupplierPayments.PaidCount++
		} else {
			pendingOut = pendingOut.Add(amount)
			metrics.SupplierPayments.PendingCount++
		}
	}

	metrics.Invoices.PaidAmount = paidIn.InexactFloat64()
	metrics.Invoices.PendingAmount = openIn.InexactFloat64()
	metrics.SupplierPayments.PaidAmount = paidOut.InexactFloat64()
	metrics.SupplierPayments.PendingAmount = pendingOut.InexactFloat64()
	metrics.NetCashFlow = paidIn.Sub(paidOut).InexactFloat64()
	metrics.OutstandingImpact = openIn.Sub(pendingOut).InexactFloat64()

	return metrics
}

var (
	invoiceOutstandingStatuses  = []string{model.PaymentStatusPending, model.PaymentStatusOverdue, model.PaymentStatusPartial}
	supplierOutstandingStatuses = []string{model.PaymentStatusPending, model.PaymentStatusScheduled}
)

type statusAmount struct {
	status string
	amount float64
}

func InvoiceReport(s model.Snapshot) model.StatusReport {
	items := make([]statusAmount, 0, len(s.Invoices))
	for _, invoice := range s.Invoices {
		items = append(items, statusAmount{status: invoice.Status, amount: invoice.Amount})
	}
	return buildStatusReport(items, invoiceOutstandingStatuses)
}

// SupplierReport summarizes supplier payments; Outstanding is what is still due
// soon (Pending or Scheduled).
func SupplierReport(s model.Snapshot) model.StatusReport {
	items := make([]statusAmount, 0, len(s.Suppliers))
	for _, payment := range s.Suppliers {
		items = append(items, statusAmount{status: payment.Status, amount: payment.Amount})
	}
	return buildStatusReport(items, supplierOutstandingStatuses)
}

func buildStatusReport(items []statusAmount, outstanding []string) model.StatusReport {
	report := model.StatusReport{ByStatus: []model.StatusTotal{}}

	var total, open decimal.Decimal
	index := make(map[string]int)
	sums := []decimal.Decimal{}

	for _, item := range items {
		status := strings.TrimSpace(item.status)
		if status == "" {
			status = unknownStatus
		}
		amount := decimal.NewFromFloat(item.amount)
		total = total.Add(amount)
		if statusIn(status, outstanding) {
			open = open.Add(amount)
		}

		i, ok := index[status]
		if !ok {
			i = len(report.ByStatus)
			index[status] = i
			report.ByStatus = append(report.ByStatus, model.StatusTotal{Status: status})
			sums = append(sums, decimal.Zero)
		}
		report.ByStatus[i].Count++
		sums[i] = sums[i].Add(amount)
	}

	for i := range report.ByStatus {
		report.ByStatus[i].Amount = sums[i].InexactFloat64()
	}
	report.Total = total.InexactFloat64()
	report.Outstanding = open.InexactFloat64()
	return report
}

func statusIn(status string, statuses []string) bool {
	for _, candidate := range statuses {
		if strings.EqualFold(status, candidate) {
			return true
		}
	}
	return false
}
