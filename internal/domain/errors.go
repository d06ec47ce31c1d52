package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrEstadoInvalido     = errors.New("transición de estado no permitida")
	ErrComprobanteAnulado = errors.New("el comprobante está anulado")
	ErrPlazoAnulacion     = errors.New("fuera del plazo de anulación (90 días)")
	ErrSustentoNoAutorizado = errors.New("el documento de sustento no está autorizado")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
)

// CertificateError error de credenciales de firma: contenedor corrupto, contraseña
// incorrecta, certificado vencido o fuera de vigencia. Fatal para el intento actual;
// no se reintenta sin remediación.
type CertificateError struct {
	Reason string
	Err    error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificado: %s: %v", e.Reason, e.Err)
	}
	return "certificado: " + e.Reason
}

func (e *CertificateError) Unwrap() error { return e.Err }

// NewCertificateError construye un CertificateError.
func NewCertificateError(reason string, err error) *CertificateError {
	return &CertificateError{Reason: reason, Err: err}
}

// ValidationError error estructural o de dominio: campo faltante, formato inválido,
// XML malformado. Nunca se reintenta.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
	}
	return "validación: " + e.Reason
}

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// GatewayFault falla de transporte contra el WS del SRI (timeout, respuesta
// malformada, red). No implica rechazo: el estado del comprobante no debe cambiar
// y el reintento posterior es seguro.
type GatewayFault struct {
	Op  string // "recepcion" | "autorizacion"
	Err error
}

func (e *GatewayFault) Error() string {
	return fmt.Sprintf("ws sri (%s): %v", e.Op, e.Err)
}

func (e *GatewayFault) Unwrap() error { return e.Err }

// NewGatewayFault construye un GatewayFault.
func NewGatewayFault(op string, err error) *GatewayFault {
	return &GatewayFault{Op: op, Err: err}
}

// IsCertificateError identifica errores de credencial en cualquier nivel de wrapping.
func IsCertificateError(err error) bool {
	var ce *CertificateError
	return errors.As(err, &ce)
}

// IsValidationError identifica errores de validación en cualquier nivel de wrapping.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGatewayFault identifica fallas de transporte en cualquier nivel de wrapping.
func IsGatewayFault(err error) bool {
	var gf *GatewayFault
	return errors.As(err, &gf)
}
