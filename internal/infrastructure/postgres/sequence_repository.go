package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo asignación de secuenciales por (emisor, estab, ptoEmi, codDoc)
// sobre PostgreSQL. Tabla document_sequences con clave primaria compuesta.
type SequenceRepo struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepo {
	return &SequenceRepo{pool: pool}
}

// Next devuelve el siguiente secuencial. Un solo statement con upsert: dos
// llamadas concurrentes serializan en el row lock y nunca reciben el mismo valor.
func (r *SequenceRepo) Next(ctx context.Context, issuerID, estab, ptoEmi, docType string) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (issuer_id, estab, pto_emi, doc_type, current)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (issuer_id, estab, pto_emi, doc_type)
		DO UPDATE SET current = document_sequences.current + 1
		RETURNING current`,
		issuerID, estab, ptoEmi, docType,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("siguiente secuencial: %w", err)
	}
	return next, nil
}
