// Package sri contiene catálogos alineados a la Ficha Técnica de Comprobantes
// Electrónicos del SRI (Ecuador), esquema offline.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocTypeFactura      = "01" // Factura
	DocTypeNotaCredito  = "04" // Nota de crédito
	DocTypeNotaDebito   = "05" // Nota de débito
	DocTypeGuiaRemision = "06" // Guía de remisión
	DocTypeRetencion    = "07" // Comprobante de retención (no emitido por este sistema)
)

// ValidDocTypeCodes códigos de tipo de comprobante que este sistema emite.
var ValidDocTypeCodes = map[string]bool{
	DocTypeFactura:      true,
	DocTypeNotaCredito:  true,
	DocTypeNotaDebito:   true,
	DocTypeGuiaRemision: true,
}

// SchemaVersions versión de esquema XML por tipo de comprobante.
// La nota de débito sigue en 1.0.0; el resto usa 1.1.0.
var SchemaVersions = map[string]string{
	DocTypeFactura:      "1.1.0",
	DocTypeNotaCredito:  "1.1.0",
	DocTypeNotaDebito:   "1.0.0",
	DocTypeGuiaRemision: "1.1.0",
}

// RootElements nombre del elemento raíz del XML por tipo de comprobante.
var RootElements = map[string]string{
	DocTypeFactura:      "factura",
	DocTypeNotaCredito:  "notaCredito",
	DocTypeNotaDebito:   "notaDebito",
	DocTypeGuiaRemision: "guiaRemision",
}

// =============================================================================
// Tabla 4 - Ambiente (tipoAmbiente de la clave de acceso y del infoTributaria)
// =============================================================================

const (
	EnvironmentPruebas    = "1" // Pruebas (certificación)
	EnvironmentProduccion = "2" // Producción
)

// =============================================================================
// Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EmissionNormal = "1" // Emisión normal
)

// =============================================================================
// Estados devueltos por los web services del SRI (esquema offline)
// =============================================================================

// Estados de la respuesta de recepción (validarComprobante).
const (
	ReceptionRecibida = "RECIBIDA"
	ReceptionDevuelta = "DEVUELTA"
)

// Estados de la respuesta de autorización (autorizacionComprobante).
const (
	AuthorizationAutorizado   = "AUTORIZADO"
	AuthorizationNoAutorizado = "NO AUTORIZADO"
	AuthorizationEnProceso    = "EN PROCESO"
)

// =============================================================================
// Tabla 6 - Tipos de identificación del comprador
// =============================================================================

const (
	IdentRUC             = "04" // RUC
	IdentCedula          = "05" // Cédula
	IdentPasaporte       = "06" // Pasaporte
	IdentConsumidorFinal = "07" // Venta a consumidor final
	IdentExterior        = "08" // Identificación del exterior
)

// ConsumidorFinalID identificación fija para ventas a consumidor final.
const ConsumidorFinalID = "9999999999999"

// =============================================================================
// Tabla 16/17 - Códigos de impuesto y de porcentaje (IVA)
// =============================================================================

const (
	TaxCodeIVA     = "2" // IVA
	TaxCodeICE     = "3" // ICE
	TaxCodeIRBPNR  = "5" // IRBPNR (botellas plásticas)
)

const (
	IVARate0       = "0" // 0%
	IVARate12      = "2" // 12%
	IVARate14      = "3" // 14%
	IVARate15      = "4" // 15%
	IVARateNoObjeto = "6" // No objeto de impuesto
	IVARateExento  = "7" // Exento de IVA
)

// ValidIVAPercentageCodes códigos de porcentaje de IVA aceptados en detalles.
var ValidIVAPercentageCodes = map[string]bool{
	IVARate0: true, IVARate12: true, IVARate14: true, IVARate15: true,
	IVARateNoObjeto: true, IVARateExento: true,
}

// IdentTypeFor deduce el tipo de identificación a partir del número.
// 13 dígitos terminados en 001 → RUC; 10 dígitos → cédula; el valor de
// consumidor final tiene su propio código; el resto se trata como pasaporte.
func IdentTypeFor(id string) string {
	switch {
	case id == ConsumidorFinalID:
		return IdentConsumidorFinal
	case len(id) == 13 && isDigits(id):
		return IdentRUC
	case len(id) == 10 && isDigits(id):
		return IdentCedula
	default:
		return IdentPasaporte
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
