package entity

import "github.com/shopspring/decimal"

// Factura comprobante tipo 01.
type Factura struct {
	ElectronicDocument

	Comprador Comprador
	Detalles  []LineaDetalle

	TotalSinImpuestos decimal.Decimal
	TotalDescuento    decimal.Decimal
	Propina           decimal.Decimal
	ImporteTotal      decimal.Decimal
	Moneda            string

	// GuiaRemision número de guía de sustento (opcional, formato 001-001-000000123).
	GuiaRemision string

	InfoAdicional []CampoAdicional
}

// Base implementa Comprobante.
func (f *Factura) Base() *ElectronicDocument { return &f.ElectronicDocument }
