package service

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

// ExportFilename is the workbook name offered for download.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("fleet-data-%s.xlsx", now.Format(utils.DateLayout))
}

// WriteWorkbook writes the whole snapshot as an xlsx workbook, one sheet per
// collection.
func WriteWorkbook(w io.Writer, s model.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := workbookSheets(s)
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#DCE6F1"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sh.name, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(sh.headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sh.name, err)
	}
	if err := f.SetColWidth(sh.name, "A", lastCol, 18); err != nil {
		return err
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sh.name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sh.name, i+1, err)
		}
	}
	return nil
}

func workbookSheets(s model.Snapshot) []sheet {
	fleet := sheet{
		name:    "Fleet",
		headers: []string{"Unit ID", "Type", "Ownership", "Model", "Capacity", "Status", "Supplier"},
	}
	for _, u := range s.Fleet {
		fleet.rows = append(fleet.rows, []any{u.UnitID, u.FleetType, DescribeOwnership(string(u.Ownership)), u.Model, u.Capacity, u.Status, u.Supplier})
	}

	drivers := sheet{
		name:    "Drivers",
		headers: []string{"Name", "License", "Phone", "Availability", "Affiliation", "Supplier"},
	}
	for _, d := range s.Drivers {
		drivers.rows = append(drivers.rows, []any{d.Name, d.License, d.Phone, d.Availability, string(d.Affiliation), d.Supplier})
	}

	trips := sheet{
		name:    "Trips",
		headers: []string{"Trip ID", "Date", "Customer", "Vehicle", "Driver", "Route", "Rental Charges", "Status", "Ownership"},
	}
	for _, t := range s.Trips {
		trips.rows = append(trips.rows, []any{t.TripID, t.Date, t.Customer, t.Vehicle, t.Driver, t.Route, t.RentalCharges, t.Status, DescribeOwnership(string(t.UnitOwnership))})
	}

	invoices := sheet{
		name:    "Customer Invoices",
		headers: []string{"Invoice", "Customer", "Trip", "Amount", "Due Date", "Status", "Notes"},
	}
	for _, inv := range s.Invoices {
		invoices.rows = append(invoices.rows, []any{inv.Invoice, inv.Customer, inv.Trip, inv.Amount, inv.DueDate, inv.Status, inv.Notes})
	}

	payments := sheet{
		name:    "Supplier Payments",
		headers: []string{"Reference", "Supplier", "Vehicle", "Trip", "Amount", "Due Date", "Status", "Notes"},
	}
	for _, p := range s.Suppliers {
		payments.rows = append(payments.rows, []any{p.Reference, p.Supplier, p.Vehicle, p.Trip, p.Amount, p.DueDate, p.Status, p.Notes})
	}

	directory := sheet{
		name:    "Suppliers",
		headers: []string{"Name", "Contact", "Phone", "Email"},
	}
	for _, e := range s.SupplierDirectory {
		directory.rows = append(directory.rows, []any{e.Name, e.Contact, e.Phone, e.Email})
	}

	customers := sheet{name: "Customers", headers: []string{"Customer"}}
	for _, name := range s.Customers {
		customers.rows = append(customers.rows, []any{name})
	}

	return []sheet{fleet, drivers, trips, invoices, payments, directory, customers}
}
