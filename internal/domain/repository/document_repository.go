package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// DocumentRepository puerto de persistencia para comprobantes electrónicos.
// Save persiste el estado y los mensajes nuevos en la MISMA transacción: un
// crash a mitad de paso nunca deja un comprobante AUTHORIZED sin sus datos de
// autorización ni RECEIVED sin el mensaje que describe el envío.
type DocumentRepository interface {
	Create(ctx context.Context, doc entity.Comprobante) error
	GetByID(ctx context.Context, id string) (entity.Comprobante, error)
	GetByAccessKey(ctx context.Context, claveAcceso string) (entity.Comprobante, error)
	// Save actualiza los campos mutables del comprobante y agrega mensajes al
	// log (append-only) atómicamente.
	Save(ctx context.Context, doc entity.Comprobante, mensajes []entity.Mensaje) error
	ListMessages(ctx context.Context, documentID string) ([]entity.Mensaje, error)
}

// IssuerRepository puerto de persistencia para emisores.
type IssuerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Emisor, error)
	GetByRUC(ctx context.Context, ruc string) (*entity.Emisor, error)
}

// SequenceRepository asigna secuenciales por (emisor, establecimiento, punto de
// emisión, tipo de comprobante). Next es atómico: dos llamadas concurrentes
// nunca devuelven el mismo valor.
type SequenceRepository interface {
	Next(ctx context.Context, issuerID, estab, ptoEmi, docType string) (int64, error)
}
