package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de autorización de un comprobante electrónico SRI.
// AUTHORIZED y VOIDED son terminales; VOIDED solo es alcanzable desde AUTHORIZED.
const (
	StateDraft         = "DRAFT"          // Creado, sin clave de acceso
	StateGenerated     = "GENERATED"      // Clave de acceso asignada y XML generado
	StateSigned        = "SIGNED"         // XML firmado (XAdES-BES)
	StateSent          = "SENT"           // Entregado al WS de recepción, sin respuesta definitiva
	StateReceived      = "RECEIVED"       // RECIBIDA por el SRI, pendiente de autorización
	StateInProgress    = "IN_PROGRESS"    // EN PROCESO en el SRI
	StateAuthorized    = "AUTHORIZED"     // Autorizado (terminal)
	StateNotAuthorized = "NOT_AUTHORIZED" // NO AUTORIZADO por el SRI
	StateVoided        = "VOIDED"         // Anulado (terminal, solo desde AUTHORIZED)
	StateError         = "ERROR"          // Rechazado en recepción o falla de generación
)

// IsTerminal indica si el estado no admite más operaciones de emisión/autorización.
func IsTerminal(state string) bool {
	return state == StateAuthorized || state == StateVoided
}

// ElectronicDocument campos comunes a todo comprobante electrónico.
// No es una jerarquía de clases: cada tipo concreto lo embebe.
type ElectronicDocument struct {
	ID           string
	IssuerID     string
	DocType      string // código tabla 3 SRI: 01, 04, 05, 06
	Estab        string // establecimiento, 3 dígitos
	PtoEmi       string // punto de emisión, 3 dígitos
	Secuencial   int64
	EmissionDate time.Time
	State        string

	// AccessKey clave de acceso de 49 dígitos; inmutable una vez asignada.
	AccessKey string

	// Asignados solo al transitar a AUTHORIZED.
	AuthorizationNumber string
	AuthorizationDate   *time.Time

	// Instantáneas inmutables: SignedXML se fija una vez por intento de emisión,
	// AuthorizedXML una sola vez al autorizar.
	SignedXML     string
	AuthorizedXML string

	// Anulación: asignados a lo sumo una vez, solo desde AUTHORIZED.
	VoidAt     *time.Time
	VoidBy     string
	VoidReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Serie devuelve los 6 dígitos de serie (establecimiento + punto de emisión).
func (d *ElectronicDocument) Serie() string {
	return d.Estab + d.PtoEmi
}

// SecuencialString devuelve el secuencial normalizado a 9 dígitos.
func (d *ElectronicDocument) SecuencialString() string {
	return fmt.Sprintf("%09d", d.Secuencial)
}

// NumeroCompleto devuelve el número legible del comprobante (001-001-000000123).
func (d *ElectronicDocument) NumeroCompleto() string {
	return fmt.Sprintf("%s-%s-%s", d.Estab, d.PtoEmi, d.SecuencialString())
}

// Comprobante unión etiquetada sobre los tipos concretos de documento.
// El workflow y los builders operan sobre esta interfaz; el tipo concreto
// se selecciona por DocType en el registro estático de builders.
type Comprobante interface {
	// Base expone los campos comunes mutables por el workflow.
	Base() *ElectronicDocument
}

// Mensaje entrada del log estructurado de un comprobante. El log es append-only
// y ordenado: nunca se trunca ni se sobreescribe, se concatena entre intentos.
type Mensaje struct {
	ID         string
	DocumentID string
	Detail     string
	RawCode    string // identificador devuelto por el SRI, puede ser vacío
	CreatedAt  time.Time
}

// Comprador instantánea de la contraparte al momento de emitir.
type Comprador struct {
	TipoIdentificacion string // tabla 6 SRI
	Identificacion     string
	RazonSocial        string
	Direccion          string
	Email              string
}

// ImpuestoDetalle desglose de impuesto de una línea (o de un total).
type ImpuestoDetalle struct {
	Codigo           string // tabla 16: 2=IVA, 3=ICE, 5=IRBPNR
	CodigoPorcentaje string // tabla 17
	Tarifa           decimal.Decimal
	BaseImponible    decimal.Decimal
	Valor            decimal.Decimal
}

// LineaDetalle línea de detalle con su desglose de impuestos.
type LineaDetalle struct {
	CodigoPrincipal         string
	CodigoAuxiliar          string
	Descripcion             string
	Cantidad                decimal.Decimal
	PrecioUnitario          decimal.Decimal
	Descuento               decimal.Decimal
	PrecioTotalSinImpuesto  decimal.Decimal
	Impuestos               []ImpuestoDetalle
}

// CampoAdicional par nombre/valor del bloque infoAdicional (opcional).
type CampoAdicional struct {
	Nombre string
	Valor  string
}
