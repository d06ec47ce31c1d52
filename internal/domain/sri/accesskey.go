// Package sri: generación de la clave de acceso de 49 dígitos según la Ficha
// Técnica de Comprobantes Electrónicos del SRI (Ecuador).
// Estructura: fecha(8 ddmmaaaa) + codDoc(2) + ruc(13) + ambiente(1) + serie(6) +
// secuencial(9) + códigoNumérico(8) + tipoEmisión(1) + dígito verificador módulo 11.
package sri

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// Pesos del módulo 11, aplicados de derecha a izquierda sobre los 48 dígitos del cuerpo.
var mod11Weights = [6]int{2, 3, 4, 5, 6, 7}

// ClaveAccesoParams datos para generar la clave de acceso.
// Secuencial y CodigoNumerico se normalizan con ceros a la izquierda; un valor
// más largo que su ancho destino es un error, nunca se trunca en silencio.
type ClaveAccesoParams struct {
	FechaEmision   time.Time
	CodDoc         string // 2 dígitos, tabla 3
	RUC            string // 13 dígitos
	Ambiente       string // 1 dígito: "1" pruebas, "2" producción
	Estab          string // 3 dígitos
	PtoEmi         string // 3 dígitos
	Secuencial     string // hasta 9 dígitos, se completa a 9
	CodigoNumerico string // hasta 8 dígitos, se completa a 8
	TipoEmision    string // 1 dígito, normalmente "1"
}

// GenerarClaveAcceso produce la clave de 49 dígitos. Pura y determinista:
// entradas idénticas producen siempre la misma clave. Cualquier campo no numérico
// o de ancho incorrecto produce un ValidationError, nunca una clave malformada.
func GenerarClaveAcceso(p ClaveAccesoParams) (string, error) {
	if p.FechaEmision.IsZero() {
		return "", domain.NewValidationError("fechaEmision", "es obligatoria")
	}
	codDoc, err := fixedField("codDoc", p.CodDoc, 2)
	if err != nil {
		return "", err
	}
	ruc, err := fixedField("ruc", p.RUC, 13)
	if err != nil {
		return "", err
	}
	ambiente, err := fixedField("ambiente", p.Ambiente, 1)
	if err != nil {
		return "", err
	}
	estab, err := fixedField("estab", p.Estab, 3)
	if err != nil {
		return "", err
	}
	ptoEmi, err := fixedField("ptoEmi", p.PtoEmi, 3)
	if err != nil {
		return "", err
	}
	secuencial, err := paddedField("secuencial", p.Secuencial, 9)
	if err != nil {
		return "", err
	}
	codigoNumerico, err := paddedField("codigoNumerico", p.CodigoNumerico, 8)
	if err != nil {
		return "", err
	}
	tipoEmision := p.TipoEmision
	if tipoEmision == "" {
		tipoEmision = "1"
	}
	tipoEmision, err = fixedField("tipoEmision", tipoEmision, 1)
	if err != nil {
		return "", err
	}

	body := p.FechaEmision.Format("02012006") +
		codDoc +
		ruc +
		ambiente +
		estab + ptoEmi +
		secuencial +
		codigoNumerico +
		tipoEmision

	digit, err := Mod11(body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", body, digit), nil
}

// Mod11 calcula el dígito verificador de un cuerpo de 48 dígitos: cada dígito,
// recorrido de derecha a izquierda, se multiplica por la secuencia cíclica de
// pesos [2..7]; dígito = 11 - (suma mod 11); 11 se sustituye por 0 y 10 por 1.
func Mod11(body string) (int, error) {
	if len(body) != 48 {
		return 0, domain.NewValidationError("claveAcceso", fmt.Sprintf("el cuerpo debe tener 48 dígitos, tiene %d", len(body)))
	}
	var sum int
	for i := 0; i < 48; i++ {
		ch := body[47-i]
		if ch < '0' || ch > '9' {
			return 0, domain.NewValidationError("claveAcceso", "el cuerpo contiene caracteres no numéricos")
		}
		sum += int(ch-'0') * mod11Weights[i%6]
	}
	digit := 11 - (sum % 11)
	switch digit {
	case 11:
		digit = 0
	case 10:
		digit = 1
	}
	return digit, nil
}

// ValidarClaveAcceso verifica longitud, dígitos y que el último dígito sea el
// módulo 11 de los 48 anteriores.
func ValidarClaveAcceso(clave string) error {
	if len(clave) != 49 {
		return domain.NewValidationError("claveAcceso", fmt.Sprintf("debe tener 49 dígitos, tiene %d", len(clave)))
	}
	digit, err := Mod11(clave[:48])
	if err != nil {
		return err
	}
	if byte('0'+digit) != clave[48] {
		return domain.NewValidationError("claveAcceso", fmt.Sprintf("dígito verificador inválido: esperado %d, recibido %c", digit, clave[48]))
	}
	return nil
}

// CodigoNumericoAleatorio genera el campo numérico de 8 dígitos desde crypto/rand.
// Es una de las dos estrategias soportadas; la otra es derivarlo de un
// identificador persistido (ver CodigoNumericoDesdeID).
func CodigoNumericoAleatorio() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generar código numérico: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// CodigoNumericoDesdeID deriva el campo numérico de 8 dígitos de un identificador
// de base de datos (estrategia determinista). Valores mayores a 8 dígitos se
// reducen módulo 10^8: la derivación es estable para un mismo ID.
func CodigoNumericoDesdeID(id int64) (string, error) {
	if id < 0 {
		return "", domain.NewValidationError("codigoNumerico", "el identificador no puede ser negativo")
	}
	return fmt.Sprintf("%08d", id%100_000_000), nil
}

// fixedField exige exactamente width dígitos.
func fixedField(name, value string, width int) (string, error) {
	if len(value) != width {
		return "", domain.NewValidationError(name, fmt.Sprintf("debe tener %d dígitos, tiene %d", width, len(value)))
	}
	if !allDigits(value) {
		return "", domain.NewValidationError(name, "debe contener solo dígitos")
	}
	return value, nil
}

// paddedField completa con ceros a la izquierda hasta width; más largo es error.
func paddedField(name, value string, width int) (string, error) {
	if value == "" {
		return "", domain.NewValidationError(name, "es obligatorio")
	}
	if !allDigits(value) {
		return "", domain.NewValidationError(name, "debe contener solo dígitos")
	}
	if len(value) > width {
		return "", domain.NewValidationError(name, fmt.Sprintf("excede el ancho de %d dígitos: %q", width, value))
	}
	for len(value) < width {
		value = "0" + value
	}
	return value, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
