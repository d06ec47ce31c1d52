package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetalleGuia línea de mercadería trasladada a un destinatario.
type DetalleGuia struct {
	CodigoInterno string
	Descripcion   string
	Cantidad      decimal.Decimal
}

// Destinatario receptor de la mercadería en una guía de remisión.
type Destinatario struct {
	Identificacion          string
	RazonSocial             string
	Direccion               string
	MotivoTraslado          string
	CodDocSustento          string // opcional: tipo del documento de sustento
	NumDocSustento          string
	NumAutDocSustento       string
	FechaEmisionDocSustento *time.Time
	Detalles                []DetalleGuia
}

// GuiaRemision comprobante tipo 06.
type GuiaRemision struct {
	ElectronicDocument

	DirPartida                      string
	RazonSocialTransportista        string
	TipoIdentificacionTransportista string
	RucTransportista                string
	Placa                           string
	FechaIniTransporte              time.Time
	FechaFinTransporte              time.Time

	Destinatarios []Destinatario

	InfoAdicional []CampoAdicional
}

// Base implementa Comprobante.
func (g *GuiaRemision) Base() *ElectronicDocument { return &g.ElectronicDocument }
