package entity

import (
	"fmt"

	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// NewForType construye el tipo concreto vacío para un código de comprobante.
// Registro estático: sin descubrimiento dinámico de tipos.
func NewForType(docType string) (Comprobante, error) {
	switch docType {
	case sri.DocTypeFactura:
		return &Factura{}, nil
	case sri.DocTypeNotaCredito:
		return &NotaCredito{}, nil
	case sri.DocTypeNotaDebito:
		return &NotaDebito{}, nil
	case sri.DocTypeGuiaRemision:
		return &GuiaRemision{}, nil
	default:
		return nil, fmt.Errorf("tipo de comprobante desconocido: %q", docType)
	}
}
