package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MotivoDebito razón y valor de un cargo en la nota de débito.
type MotivoDebito struct {
	Razon string
	Valor decimal.Decimal
}

// NotaDebito comprobante tipo 05 (esquema 1.0.0: sin bloque de detalles,
// los cargos van en motivos y el desglose de impuestos a nivel de documento).
type NotaDebito struct {
	ElectronicDocument

	Comprador Comprador

	CodDocModificado        string
	NumDocModificado        string
	FechaEmisionDocSustento time.Time

	TotalSinImpuestos decimal.Decimal
	Impuestos         []ImpuestoDetalle
	ValorTotal        decimal.Decimal

	Motivos []MotivoDebito

	InfoAdicional []CampoAdicional
}

// Base implementa Comprobante.
func (n *NotaDebito) Base() *ElectronicDocument { return &n.ElectronicDocument }
