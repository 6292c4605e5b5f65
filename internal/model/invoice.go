package model

import "time"

// VATRate is the fixed TVA rate applied to every invoice (20%).
const VATRate = 0.20

// InvoiceIDPrefix starts every invoice number, e.g. FAC-202610190042.
const InvoiceIDPrefix = "FAC-"

// Invoice is an immutable billing record.
//
// Items are SNAPSHOTS: name, category and unit price are copied from the
// product when the invoice is created. Editing or deleting the product later
// does not change any invoice.
type Invoice struct {
	ID           string        `json:"id"`
	CustomerName string        `json:"customerName"`
	Date         time.Time     `json:"date"`
	Items        []InvoiceItem `json:"items"`
	TotalHT      float64       `json:"totalHT"`
	TVA          float64       `json:"tva"`
	TotalTTC     float64       `json:"totalTTC"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	SubTotal  float64 `json:"subTotal"`
}

// InvoiceLine is a requested line when creating an invoice.
type InvoiceLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
