// Colaboradores post-autorización respaldados en PostgreSQL: consumo de stock
// y estado de cuenta del comprador. Son fire-and-forget desde el workflow.

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ billing.InventoryConsumer = (*StockConsumer)(nil)
var _ billing.BalanceLedger = (*BalanceLedger)(nil)

// StockConsumer descuenta stock por código de producto cuando se autoriza una
// factura; una nota de crédito autorizada lo repone.
type StockConsumer struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewStockConsumer construye el colaborador.
func NewStockConsumer(pool *pgxpool.Pool, log *logger.Logger) *StockConsumer {
	return &StockConsumer{pool: pool, log: log.Component("stock_consumer")}
}

// ConsumeStock aplica el movimiento de cada línea. Un producto no registrado
// no es error: se omite con un log (no todo lo facturado se controla en stock).
func (c *StockConsumer) ConsumeStock(ctx context.Context, d billing.AuthorizedDelivery) error {
	var sign int64 = -1
	if d.DocType == pkgsri.DocTypeNotaCredito {
		sign = 1 // la devolución repone stock
	}
	for _, line := range d.Lines {
		if line.Codigo == "" {
			continue
		}
		tag, err := c.pool.Exec(ctx,
			`UPDATE products SET stock = stock + ($1 * $2), updated_at = now() WHERE code = $3`,
			sign, line.Cantidad, line.Codigo,
		)
		if err != nil {
			return fmt.Errorf("actualizar stock de %s: %w", line.Codigo, err)
		}
		if tag.RowsAffected() == 0 {
			c.log.Debug().Str("codigo", line.Codigo).Msg("producto sin control de stock, se omite")
		}
	}
	return nil
}

// BalanceLedger registra el movimiento del comprobante autorizado en el estado
// de cuenta del comprador (append-only).
type BalanceLedger struct {
	pool *pgxpool.Pool
}

// NewBalanceLedger construye el colaborador.
func NewBalanceLedger(pool *pgxpool.Pool) *BalanceLedger {
	return &BalanceLedger{pool: pool}
}

// RecordCharge inserta el asiento: cargo para facturas y notas de débito,
// abono para notas de crédito.
func (l *BalanceLedger) RecordCharge(ctx context.Context, d billing.AuthorizedDelivery) error {
	if d.BuyerID == "" || d.Total.IsZero() {
		return nil
	}
	kind := "CARGO"
	if d.DocType == pkgsri.DocTypeNotaCredito {
		kind = "ABONO"
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO client_ledger (id, buyer_id, document_id, numero, kind, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.NewString(), d.BuyerID, d.DocumentID, d.NumeroCompleto, kind, d.Total,
	)
	if err != nil {
		return fmt.Errorf("registrar asiento: %w", err)
	}
	return nil
}
