package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo persistencia de comprobantes sobre PostgreSQL. Los campos
// comunes van en columnas (consultables); la carga específica del tipo
// (detalles, comprador, destinatarios) se guarda como JSONB y se reconstruye
// al tipo concreto por codDoc.
//
// Tablas: electronic_documents (cabecera + payload JSONB) y document_messages
// (log append-only).
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository construye el adaptador.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `
	id, issuer_id, doc_type, estab, pto_emi, secuencial, emission_date, state,
	access_key, authorization_number, authorization_date, signed_xml,
	authorized_xml, void_at, void_by, void_reason, payload, created_at, updated_at`

// Create inserta un comprobante nuevo. El número (serie+secuencial) por emisor
// tiene constraint único: un duplicado es ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, doc entity.Comprobante) error {
	base := doc.Base()
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}

	query := `
		INSERT INTO electronic_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err = r.pool.Exec(ctx, query,
		base.ID, base.IssuerID, base.DocType, base.Estab, base.PtoEmi,
		base.Secuencial, base.EmissionDate, base.State,
		nullIfEmpty(base.AccessKey), nullIfEmpty(base.AuthorizationNumber), base.AuthorizationDate,
		nullIfEmpty(base.SignedXML), nullIfEmpty(base.AuthorizedXML),
		base.VoidAt, nullIfEmpty(base.VoidBy), nullIfEmpty(base.VoidReason),
		payload, base.CreatedAt, base.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe un comprobante %s", domain.ErrDuplicate, base.NumeroCompleto())
		}
		return fmt.Errorf("insert comprobante: %w", err)
	}
	return nil
}

// GetByID carga un comprobante por identificador.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (entity.Comprobante, error) {
	query := `SELECT ` + documentColumns + ` FROM electronic_documents WHERE id = $1`
	return scanDocument(r.pool.QueryRow(ctx, query, id))
}

// GetByAccessKey carga un comprobante por su clave de acceso.
func (r *DocumentRepo) GetByAccessKey(ctx context.Context, claveAcceso string) (entity.Comprobante, error) {
	query := `SELECT ` + documentColumns + ` FROM electronic_documents WHERE access_key = $1`
	return scanDocument(r.pool.QueryRow(ctx, query, claveAcceso))
}

// Save actualiza el comprobante y agrega los mensajes nuevos en la MISMA
// transacción: el estado nunca queda persistido sin el mensaje que lo explica.
func (r *DocumentRepo) Save(ctx context.Context, doc entity.Comprobante, mensajes []entity.Mensaje) error {
	base := doc.Base()
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE electronic_documents
		SET state                = $2,
		    secuencial           = $3,
		    access_key           = COALESCE($4, access_key),
		    authorization_number = COALESCE($5, authorization_number),
		    authorization_date   = COALESCE($6, authorization_date),
		    signed_xml           = COALESCE($7, signed_xml),
		    authorized_xml       = COALESCE($8, authorized_xml),
		    void_at              = COALESCE($9, void_at),
		    void_by              = COALESCE($10, void_by),
		    void_reason          = COALESCE($11, void_reason),
		    payload              = $12,
		    updated_at           = $13
		WHERE id = $1`
	tag, err := tx.Exec(ctx, query,
		base.ID, base.State, base.Secuencial,
		nullIfEmpty(base.AccessKey), nullIfEmpty(base.AuthorizationNumber), base.AuthorizationDate,
		nullIfEmpty(base.SignedXML), nullIfEmpty(base.AuthorizedXML),
		base.VoidAt, nullIfEmpty(base.VoidBy), nullIfEmpty(base.VoidReason),
		payload, base.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update comprobante: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	for _, m := range mensajes {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO document_messages (id, document_id, detail, raw_code, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			m.ID, m.DocumentID, m.Detail, nullIfEmpty(m.RawCode), m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert mensaje: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListMessages devuelve el log del comprobante en orden de inserción.
func (r *DocumentRepo) ListMessages(ctx context.Context, documentID string) ([]entity.Mensaje, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, detail, raw_code, created_at
		 FROM document_messages WHERE document_id = $1 ORDER BY created_at, id`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listar mensajes: %w", err)
	}
	defer rows.Close()

	var out []entity.Mensaje
	for rows.Next() {
		var m entity.Mensaje
		var rawCode *string
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Detail, &rawCode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mensaje: %w", err)
		}
		m.RawCode = orEmpty(rawCode)
		out = append(out, m)
	}
	return out, rows.Err()
}

type pgxScanner interface {
	Scan(dest ...any) error
}

// scanDocument reconstruye el tipo concreto: primero el payload JSONB al
// struct por codDoc, luego los campos base desde columnas (las columnas son
// la fuente de verdad del estado).
func scanDocument(row pgxScanner) (entity.Comprobante, error) {
	var base entity.ElectronicDocument
	var accessKey, authNumber, signedXML, authorizedXML, voidBy, voidReason *string
	var payload []byte

	err := row.Scan(
		&base.ID, &base.IssuerID, &base.DocType, &base.Estab, &base.PtoEmi,
		&base.Secuencial, &base.EmissionDate, &base.State,
		&accessKey, &authNumber, &base.AuthorizationDate,
		&signedXML, &authorizedXML,
		&base.VoidAt, &voidBy, &voidReason,
		&payload, &base.CreatedAt, &base.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan comprobante: %w", err)
	}
	base.AccessKey = orEmpty(accessKey)
	base.AuthorizationNumber = orEmpty(authNumber)
	base.SignedXML = orEmpty(signedXML)
	base.AuthorizedXML = orEmpty(authorizedXML)
	base.VoidBy = orEmpty(voidBy)
	base.VoidReason = orEmpty(voidReason)

	doc, err := entity.NewForType(base.DocType)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, doc); err != nil {
			return nil, fmt.Errorf("deserializar payload: %w", err)
		}
	}
	*doc.Base() = base
	return doc, nil
}
