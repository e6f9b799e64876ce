package model

type Affiliation string

const (
	AffiliationCompany  Affiliation = "company"
	AffiliationSupplier Affiliation = "supplier"
)

type Driver struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	License      string      `json:"license"`
	Phone        string      `json:"phone"`
	Availability string      `json:"availability"`
	Affiliation  Affiliation `json:"affiliation" jsonschema:"enum=company,enum=supplier"`
	Supplier     string      `json:"supplier"`
}

func (d Driver) IsSupplierDriver() bool {
	return d.Affiliation == AffiliationSupplier
}
