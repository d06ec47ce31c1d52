package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.IssuerRepository = (*IssuerRepo)(nil)

// IssuerRepo persistencia de emisores sobre PostgreSQL.
type IssuerRepo struct {
	pool *pgxpool.Pool
}

// NewIssuerRepository construye el adaptador.
func NewIssuerRepository(pool *pgxpool.Pool) *IssuerRepo {
	return &IssuerRepo{pool: pool}
}

const issuerColumns = `
	id, ruc, razon_social, nombre_comercial, dir_matriz, dir_establecimiento,
	contribuyente_especial, obligado_contabilidad, ambiente, ambiente_forzado,
	cert_path, cert_password, cert_not_before, cert_not_after, email,
	created_at, updated_at`

// GetByID carga un emisor por identificador.
func (r *IssuerRepo) GetByID(ctx context.Context, id string) (*entity.Emisor, error) {
	query := `SELECT ` + issuerColumns + ` FROM issuers WHERE id = $1`
	return scanIssuer(r.pool.QueryRow(ctx, query, id))
}

// GetByRUC carga un emisor por RUC.
func (r *IssuerRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Emisor, error) {
	query := `SELECT ` + issuerColumns + ` FROM issuers WHERE ruc = $1`
	return scanIssuer(r.pool.QueryRow(ctx, query, ruc))
}

func scanIssuer(row pgxScanner) (*entity.Emisor, error) {
	var em entity.Emisor
	var nombreComercial, dirEstab, contribuyente, ambienteForzado, certPath, certPassword, email *string
	var notBefore, notAfter *time.Time

	err := row.Scan(
		&em.ID, &em.RUC, &em.RazonSocial, &nombreComercial, &em.DirMatriz, &dirEstab,
		&contribuyente, &em.ObligadoContabilidad, &em.Ambiente, &ambienteForzado,
		&certPath, &certPassword, &notBefore, &notAfter, &email,
		&em.CreatedAt, &em.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan emisor: %w", err)
	}
	em.NombreComercial = orEmpty(nombreComercial)
	em.DirEstablecimiento = orEmpty(dirEstab)
	em.ContribuyenteEspecial = orEmpty(contribuyente)
	em.AmbienteForzado = orEmpty(ambienteForzado)
	em.Email = orEmpty(email)
	em.Credential = entity.SigningCredential{
		Path:     orEmpty(certPath),
		Password: orEmpty(certPassword),
	}
	if notBefore != nil {
		em.Credential.NotBefore = *notBefore
	}
	if notAfter != nil {
		em.Credential.NotAfter = *notAfter
	}
	return &em, nil
}
