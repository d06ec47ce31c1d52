package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotaCredito comprobante tipo 04. Modifica un documento de sustento (normalmente
// una factura autorizada) y es el comprobante compensatorio exigido para anular.
type NotaCredito struct {
	ElectronicDocument

	Comprador Comprador
	Detalles  []LineaDetalle

	// Documento modificado (sustento).
	CodDocModificado        string // tabla 3: normalmente "01"
	NumDocModificado        string // 001-001-000000123
	FechaEmisionDocSustento time.Time

	TotalSinImpuestos decimal.Decimal
	ValorModificacion decimal.Decimal
	Moneda            string
	Motivo            string

	InfoAdicional []CampoAdicional
}

// Base implementa Comprobante.
func (n *NotaCredito) Base() *ElectronicDocument { return &n.ElectronicDocument }
