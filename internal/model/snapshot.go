package model

type DashboardMode string

const (
	DashboardModeThisMonth DashboardMode = "thisMonth"
	DashboardModeLastMonth DashboardMode = "lastMonth"
	DashboardModeCustom    DashboardMode = "custom"
)

func (m DashboardMode) Valid() bool {
	switch m {
	case DashboardModeThisMonth, DashboardModeLastMonth, DashboardModeCustom:
		return true
	}
	return false
}

// DashboardFilter selects the reporting window. Start and End are ISO dates and
// only apply in custom mode.
type DashboardFilter struct {
	Mode  DashboardMode `json:"mode" jsonschema:"enum=thisMonth,enum=lastMonth,enum=custom"`
	Start string        `json:"start"`
	End   string        `json:"end"`
}

func DefaultDashboardFilter() DashboardFilter {
	return DashboardFilter{Mode: DashboardModeThisMonth}
}

// Snapshot is the complete application state exchanged between client and
// server and persisted as a single JSON document.
type Snapshot struct {
	Fleet             []FleetUnit              `json:"fleet"`
	Drivers           []Driver                 `json:"drivers"`
	Trips             []Trip                   `json:"trips"`
	Invoices          []Invoice                `json:"invoices"`
	Suppliers         []SupplierPayment        `json:"suppliers"`
	SupplierDirectory []SupplierDirectoryEntry `json:"supplierDirectory"`
	Customers         []string                 `json:"customers"`
	DashboardFilter   DashboardFilter          `json:"dashboardFilter"`
	NextTripNumber    int                      `json:"nextTripNumber" jsonschema:"minimum=1"`
}

func DefaultSnapshot() Snapshot {
	return Snapshot{
		Fleet:             []FleetUnit{},
		Drivers:           []Driver{},
		Trips:             []Trip{},
		Invoices:          []Invoice{},
		Suppliers:         []SupplierPayment{},
		SupplierDirectory: []SupplierDirectoryEntry{},
		Customers:         []string{},
		DashboardFilter:   DefaultDashboardFilter(),
		NextTripNumber:    1,
	}
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Fleet:             append([]FleetUnit{}, s.Fleet...),
		Drivers:           append([]Driver{}, s.Drivers...),
		Trips:             append([]Trip{}, s.Trips...),
		Invoices:          append([]Invoice{}, s.Invoices...),
		Suppliers:         append([]SupplierPayment{}, s.Suppliers...),
		SupplierDirectory: append([]SupplierDirectoryEntry{}, s.SupplierDirectory...),
		Customers:         append([]string{}, s.Customers...),
		DashboardFilter:   s.DashboardFilter,
		NextTripNumber:    s.NextTripNumber,
	}
}
