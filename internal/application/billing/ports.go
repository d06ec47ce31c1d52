// Puertos de salida del workflow de autorización. Las implementaciones
// concretas viven en internal/infrastructure; para tests se inyectan mocks.

package billing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// XMLBuilder construye el XML canónico de un comprobante según su tipo.
type XMLBuilder interface {
	Build(doc entity.Comprobante, em *entity.Emisor) ([]byte, error)
}

// Signer firma un XML con perfil XAdES-BES usando el contenedor .p12 del emisor.
// La llave se carga del contenedor en cada intento; nunca se retiene.
type Signer interface {
	SignWithP12(xmlBytes []byte, path, password string) ([]byte, error)
}

// GatewayMessage mensaje devuelto por los WS del SRI.
type GatewayMessage struct {
	Identifier     string // identificador numérico del SRI (ej: "43")
	Message        string
	AdditionalInfo string
	Type           string // INFO | ADVERTENCIA | ERROR
}

// Detail devuelve el mensaje en una sola línea para el log del comprobante.
func (m GatewayMessage) Detail() string {
	parts := make([]string, 0, 3)
	if m.Type != "" {
		parts = append(parts, m.Type)
	}
	if m.Message != "" {
		parts = append(parts, m.Message)
	}
	if m.AdditionalInfo != "" {
		parts = append(parts, m.AdditionalInfo)
	}
	return strings.Join(parts, ": ")
}

// SubmitResult resultado de la entrega al WS de recepción.
type SubmitResult struct {
	Accepted bool // true si el SRI respondió RECIBIDA
	Messages []GatewayMessage
}

// QueryResult resultado de la consulta al WS de autorización.
type QueryResult struct {
	Status              string // AUTORIZADO | NO AUTORIZADO | EN PROCESO
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	AuthorizedXML       string
	Messages            []GatewayMessage
}

// AuthorityGateway puerto de salida hacia los web services del SRI. Ambas
// operaciones son síncronas y aplican reintentos acotados solo ante errores de
// transporte; un rechazo definitivo del SRI nunca se reintenta automáticamente.
type AuthorityGateway interface {
	Submit(ctx context.Context, signedXML []byte) (*SubmitResult, error)
	Query(ctx context.Context, accessKey string) (*QueryResult, error)
}

// AuthorizedLine línea facturada vista por los colaboradores.
type AuthorizedLine struct {
	Codigo      string
	Descripcion string
	Cantidad    decimal.Decimal
}

// AuthorizedDelivery carga entregada a los colaboradores tras la autorización.
type AuthorizedDelivery struct {
	DocumentID     string
	DocType        string
	AccessKey      string
	NumeroCompleto string
	AuthorizedXML  []byte
	Total          decimal.Decimal
	BuyerID        string
	BuyerEmail     string
	Lines          []AuthorizedLine
}

// Colaboradores invocados solo tras la transición a AUTHORIZED. Son
// fire-and-forget: sus errores se registran pero nunca revierten la
// autorización ni provocan reenvíos al SRI.
type (
	// InventoryConsumer descuenta stock de los ítems facturados.
	InventoryConsumer interface {
		ConsumeStock(ctx context.Context, d AuthorizedDelivery) error
	}

	// BalanceLedger registra el movimiento en el estado de cuenta del comprador.
	BalanceLedger interface {
		RecordCharge(ctx context.Context, d AuthorizedDelivery) error
	}

	// Notifier envía el comprobante autorizado al comprador.
	Notifier interface {
		SendAuthorized(ctx context.Context, d AuthorizedDelivery, ride []byte) error
	}

	// RideRenderer genera la representación impresa (RIDE) en PDF.
	RideRenderer interface {
		Render(doc entity.Comprobante, em *entity.Emisor) ([]byte, error)
	}
)
