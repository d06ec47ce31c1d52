// Workflow de autorización de comprobantes electrónicos: genera clave de acceso
// y XML, firma, entrega al SRI y conduce el comprobante hasta un estado terminal.

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	domsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// Estrategias para el código numérico de 8 dígitos de la clave de acceso.
// La ficha técnica no fija una; ambas son válidas y se eligen por configuración.
const (
	NumericCodeRandom     = "random"     // aleatorio criptográfico por intento
	NumericCodeSecuencial = "secuencial" // derivado del secuencial (determinista)
)

// VoidWindowDays plazo de anulación en días calendario desde la emisión.
const VoidWindowDays = 90

// Result resultado de una operación del workflow. Idempotent distingue un
// corto-circuito por estado terminal de un éxito fresco.
type Result struct {
	Document   entity.Comprobante
	Idempotent bool
}

// Deps dependencias del workflow. Inventory, Ledger, Notifier y Ride son
// opcionales (nil los desactiva); el resto es obligatorio.
type Deps struct {
	Docs    repository.DocumentRepository
	Issuers repository.IssuerRepository
	Seqs    repository.SequenceRepository

	Builder XMLBuilder
	Signer  Signer
	Gateway AuthorityGateway

	Inventory InventoryConsumer
	Ledger    BalanceLedger
	Notifier  Notifier
	Ride      RideRenderer

	Log *logger.Logger

	// NumericCodeStrategy "random" (defecto) o "secuencial".
	NumericCodeStrategy string
}

// Workflow máquina de estados de autorización. Cada operación es síncrona y
// corre hasta completarse; las invocaciones sobre un mismo comprobante se
// serializan con un lock por documento.
type Workflow struct {
	deps  Deps
	log   *logger.Logger
	locks *keyedMutex
	now   func() time.Time
}

// NewWorkflow crea el workflow.
func NewWorkflow(deps Deps) *Workflow {
	if deps.NumericCodeStrategy == "" {
		deps.NumericCodeStrategy = NumericCodeRandom
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{
		deps:  deps,
		log:   log.Component("billing_workflow"),
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// estados desde los que se permite (re)emitir.
var emitAllowed = map[string]bool{
	entity.StateDraft:         true,
	entity.StateGenerated:     true,
	entity.StateError:         true,
	entity.StateReceived:      true,
	entity.StateInProgress:    true,
	entity.StateNotAuthorized: true,
}

// CreateDraft registra un comprobante nuevo en estado DRAFT y le asigna su
// secuencial. La clave de acceso y el XML se generan recién al emitir.
func (w *Workflow) CreateDraft(ctx context.Context, doc entity.Comprobante) (*Result, error) {
	base := doc.Base()
	if base.IssuerID == "" {
		return nil, domain.NewValidationError("issuerID", "es obligatorio")
	}
	if base.DocType == "" || base.Estab == "" || base.PtoEmi == "" {
		return nil, domain.NewValidationError("serie", "codDoc, estab y ptoEmi son obligatorios")
	}
	if _, err := w.deps.Issuers.GetByID(ctx, base.IssuerID); err != nil {
		return nil, err
	}

	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.Secuencial == 0 {
		seq, err := w.deps.Seqs.Next(ctx, base.IssuerID, base.Estab, base.PtoEmi, base.DocType)
		if err != nil {
			return nil, fmt.Errorf("asignar secuencial: %w", err)
		}
		base.Secuencial = seq
	}
	if base.EmissionDate.IsZero() {
		base.EmissionDate = w.now()
	}
	base.State = entity.StateDraft
	base.CreatedAt = w.now()
	base.UpdatedAt = base.CreatedAt

	if err := w.deps.Docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	w.log.Info().Str("document_id", base.ID).Str("numero", base.NumeroCompleto()).Msg("comprobante registrado en borrador")
	return &Result{Document: doc}, nil
}

// Emit genera (si hace falta) la clave de acceso y el XML, firma y entrega el
// comprobante al WS de recepción. Sobre un comprobante AUTHORIZED es un no-op
// idempotente; sobre uno VOIDED se rechaza sin construir XML ni llamar al SRI.
func (w *Workflow) Emit(ctx context.Context, documentID string) (*Result, error) {
	unlock := w.locks.Lock(documentID)
	defer unlock()
	return w.emitLocked(ctx, documentID)
}

func (w *Workflow) emitLocked(ctx context.Context, documentID string) (*Result, error) {
	doc, err := w.deps.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	log := w.log.WithDocument(base.ID, base.AccessKey)

	if base.State == entity.StateVoided {
		return nil, domain.ErrComprobanteAnulado
	}
	if base.State == entity.StateAuthorized {
		log.Info().Msg("emit sobre comprobante ya autorizado: no-op idempotente")
		return &Result{Document: doc, Idempotent: true}, nil
	}
	if !emitAllowed[base.State] {
		return nil, fmt.Errorf("%w: no se puede emitir desde %s", domain.ErrEstadoInvalido, base.State)
	}

	em, err := w.deps.Issuers.GetByID(ctx, base.IssuerID)
	if err != nil {
		return nil, err
	}

	if base.Secuencial == 0 {
		seq, err := w.deps.Seqs.Next(ctx, base.IssuerID, base.Estab, base.PtoEmi, base.DocType)
		if err != nil {
			return nil, fmt.Errorf("asignar secuencial: %w", err)
		}
		base.Secuencial = seq
	}

	// La clave de acceso es inmutable: solo se genera si aún no existe.
	if base.AccessKey == "" {
		codigo, err := w.numericCode(base)
		if err != nil {
			return nil, err
		}
		clave, err := domsri.GenerarClaveAcceso(domsri.ClaveAccesoParams{
			FechaEmision:   base.EmissionDate,
			CodDoc:         base.DocType,
			RUC:            em.RUC,
			Ambiente:       em.AmbienteEfectivo(),
			Estab:          base.Estab,
			PtoEmi:         base.PtoEmi,
			Secuencial:     base.SecuencialString(),
			CodigoNumerico: codigo,
		})
		if err != nil {
			return nil, err
		}
		base.AccessKey = clave
		log = w.log.WithDocument(base.ID, base.AccessKey)
	}

	prevState := base.State

	xmlBytes, err := w.deps.Builder.Build(doc, em)
	if err != nil {
		// Falla estructural: no hay nada que persistir, el comprobante no cambió.
		return nil, err
	}
	base.State = entity.StateGenerated

	signed, err := w.deps.Signer.SignWithP12(xmlBytes, em.Credential.Path, em.Credential.Password)
	if err != nil {
		msg := w.newMensaje(base.ID, "falla de firma: "+err.Error(), "")
		if saveErr := w.deps.Docs.Save(ctx, doc, []entity.Mensaje{msg}); saveErr != nil {
			log.Error().Err(saveErr).Msg("no se pudo persistir la falla de firma")
		}
		return nil, err
	}
	base.SignedXML = string(signed)
	base.State = entity.StateSent

	res, err := w.deps.Gateway.Submit(ctx, signed)
	if err != nil {
		// Falla de transporte: respuesta ambigua, el estado previo se conserva
		// para que un reintento posterior sea seguro. Nunca se asume aceptación.
		base.State = prevState
		msg := w.newMensaje(base.ID, "falla de transporte en recepción: "+err.Error(), "")
		if saveErr := w.deps.Docs.Save(ctx, doc, []entity.Mensaje{msg}); saveErr != nil {
			log.Error().Err(saveErr).Msg("no se pudo persistir la falla de transporte")
		}
		return nil, err
	}

	mensajes := w.gatewayMensajes(base.ID, res.Messages)
	if res.Accepted {
		base.State = entity.StateReceived
		mensajes = append(mensajes, w.newMensaje(base.ID, "comprobante RECIBIDO por el SRI", ""))
	} else {
		base.State = entity.StateError
		mensajes = append(mensajes, w.newMensaje(base.ID, "comprobante DEVUELTO por el SRI", ""))
	}
	base.UpdatedAt = w.now()
	if err := w.deps.Docs.Save(ctx, doc, mensajes); err != nil {
		return nil, err
	}
	log.Info().Str("estado", base.State).Msg("emisión completada")
	return &Result{Document: doc}, nil
}

// Authorize consulta el WS de autorización y aplica la transición que
// corresponda. Sobre estados terminales es un no-op idempotente que no toca
// el gateway.
func (w *Workflow) Authorize(ctx context.Context, documentID string) (*Result, error) {
	unlock := w.locks.Lock(documentID)
	defer unlock()
	return w.authorizeLocked(ctx, documentID)
}

func (w *Workflow) authorizeLocked(ctx context.Context, documentID string) (*Result, error) {
	doc, err := w.deps.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	log := w.log.WithDocument(base.ID, base.AccessKey)

	if entity.IsTerminal(base.State) {
		log.Info().Str("estado", base.State).Msg("authorize sobre estado terminal: no-op idempotente")
		return &Result{Document: doc, Idempotent: true}, nil
	}
	if base.State != entity.StateReceived && base.State != entity.StateInProgress {
		return nil, fmt.Errorf("%w: no se puede autorizar desde %s", domain.ErrEstadoInvalido, base.State)
	}

	q, err := w.deps.Gateway.Query(ctx, base.AccessKey)
	if err != nil {
		msg := w.newMensaje(base.ID, "falla de transporte en autorización: "+err.Error(), "")
		if saveErr := w.deps.Docs.Save(ctx, doc, []entity.Mensaje{msg}); saveErr != nil {
			log.Error().Err(saveErr).Msg("no se pudo persistir la falla de transporte")
		}
		return nil, err
	}

	mensajes := w.gatewayMensajes(base.ID, q.Messages)
	switch q.Status {
	case pkgsri.AuthorizationAutorizado:
		base.AuthorizationNumber = q.AuthorizationNumber
		if q.AuthorizationDate != nil {
			base.AuthorizationDate = q.AuthorizationDate
		} else {
			now := w.now()
			base.AuthorizationDate = &now
		}
		base.AuthorizedXML = q.AuthorizedXML
		base.State = entity.StateAuthorized
		mensajes = append(mensajes, w.newMensaje(base.ID, "comprobante AUTORIZADO", q.AuthorizationNumber))
	case pkgsri.AuthorizationEnProceso:
		base.State = entity.StateInProgress
		mensajes = append(mensajes, w.newMensaje(base.ID, "comprobante EN PROCESO en el SRI", ""))
	case pkgsri.AuthorizationNoAutorizado:
		base.State = entity.StateNotAuthorized
		mensajes = append(mensajes, w.newMensaje(base.ID, "comprobante NO AUTORIZADO", ""))
	default:
		base.State = entity.StateError
		mensajes = append(mensajes, w.newMensaje(base.ID, "estado de autorización desconocido: "+q.Status, ""))
	}
	base.UpdatedAt = w.now()

	if err := w.deps.Docs.Save(ctx, doc, mensajes); err != nil {
		return nil, err
	}
	log.Info().Str("estado", base.State).Msg("consulta de autorización aplicada")

	if base.State == entity.StateAuthorized {
		w.dispatchAuthorized(ctx, doc)
	}
	return &Result{Document: doc}, nil
}

// Resend conveniencia compuesta: emit y, si la recepción aceptó, authorize.
// Se rechaza sobre comprobantes anulados; si emit falla no se intenta authorize.
func (w *Workflow) Resend(ctx context.Context, documentID string) (*Result, error) {
	r, err := w.Emit(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if r.Idempotent {
		return r, nil
	}
	if r.Document.Base().State != entity.StateReceived {
		return r, nil
	}
	return w.Authorize(ctx, documentID)
}

// Void anula un comprobante AUTORIZADO dentro del plazo de 90 días calendario.
// Exige una nota de crédito compensatoria ya autorizada por este mismo pipeline
// que referencie al comprobante. void_at/void_by/void_reason se fijan una sola vez.
func (w *Workflow) Void(ctx context.Context, documentID, voidBy, reason, compensatingID string) (*Result, error) {
	unlock := w.locks.Lock(documentID)
	defer unlock()

	doc, err := w.deps.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()

	if base.State == entity.StateVoided {
		return &Result{Document: doc, Idempotent: true}, nil
	}
	if base.State != entity.StateAuthorized {
		return nil, fmt.Errorf("%w: solo se anula desde AUTHORIZED, el comprobante está en %s", domain.ErrEstadoInvalido, base.State)
	}
	if w.now().After(base.EmissionDate.AddDate(0, 0, VoidWindowDays)) {
		return nil, domain.ErrPlazoAnulacion
	}

	comp, err := w.deps.Docs.GetByID(ctx, compensatingID)
	if err != nil {
		return nil, fmt.Errorf("comprobante compensatorio: %w", err)
	}
	nc, ok := comp.(*entity.NotaCredito)
	if !ok {
		return nil, domain.NewValidationError("compensatorio", "la anulación exige una nota de crédito")
	}
	if nc.State != entity.StateAuthorized {
		return nil, domain.ErrSustentoNoAutorizado
	}
	if nc.NumDocModificado != base.NumeroCompleto() {
		return nil, domain.NewValidationError("compensatorio",
			fmt.Sprintf("la nota de crédito modifica %s, no %s", nc.NumDocModificado, base.NumeroCompleto()))
	}

	now := w.now()
	base.VoidAt = &now
	base.VoidBy = voidBy
	base.VoidReason = reason
	base.State = entity.StateVoided
	base.UpdatedAt = now

	msg := w.newMensaje(base.ID, fmt.Sprintf("comprobante anulado por %s: %s (sustento %s)", voidBy, reason, nc.NumeroCompleto()), "")
	if err := w.deps.Docs.Save(ctx, doc, []entity.Mensaje{msg}); err != nil {
		return nil, err
	}
	w.log.WithDocument(base.ID, base.AccessKey).Info().Str("void_by", voidBy).Msg("comprobante anulado")
	return &Result{Document: doc}, nil
}

// Status devuelve el comprobante y su log de mensajes.
func (w *Workflow) Status(ctx context.Context, documentID string) (entity.Comprobante, []entity.Mensaje, error) {
	doc, err := w.deps.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := w.deps.Docs.ListMessages(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, msgs, nil
}

// StatusByAccessKey devuelve el comprobante y su log buscando por clave de acceso.
func (w *Workflow) StatusByAccessKey(ctx context.Context, claveAcceso string) (entity.Comprobante, []entity.Mensaje, error) {
	doc, err := w.deps.Docs.GetByAccessKey(ctx, claveAcceso)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := w.deps.Docs.ListMessages(ctx, doc.Base().ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, msgs, nil
}

// dispatchAuthorized entrega el comprobante autorizado a los colaboradores.
// Es estrictamente posterior a la transición a AUTHORIZED y fire-and-forget:
// una falla aquí jamás revierte la autorización ni reenvía al SRI.
func (w *Workflow) dispatchAuthorized(ctx context.Context, doc entity.Comprobante) {
	base := doc.Base()
	log := w.log.WithDocument(base.ID, base.AccessKey)

	d := AuthorizedDelivery{
		DocumentID:     base.ID,
		DocType:        base.DocType,
		AccessKey:      base.AccessKey,
		NumeroCompleto: base.NumeroCompleto(),
		AuthorizedXML:  []byte(base.AuthorizedXML),
		Total:          documentTotal(doc),
	}
	if buyer := documentBuyer(doc); buyer != nil {
		d.BuyerID = buyer.Identificacion
		d.BuyerEmail = buyer.Email
	}
	d.Lines = documentLines(doc)

	var ride []byte
	if w.deps.Ride != nil {
		em, err := w.deps.Issuers.GetByID(ctx, base.IssuerID)
		if err != nil {
			log.Error().Err(err).Msg("colaborador RIDE: no se pudo cargar el emisor")
		} else if ride, err = w.deps.Ride.Render(doc, em); err != nil {
			log.Error().Err(err).Msg("colaborador RIDE falló")
			ride = nil
		}
	}
	if w.deps.Inventory != nil {
		if err := w.deps.Inventory.ConsumeStock(ctx, d); err != nil {
			log.Error().Err(err).Msg("colaborador de inventario falló")
		}
	}
	if w.deps.Ledger != nil {
		if err := w.deps.Ledger.RecordCharge(ctx, d); err != nil {
			log.Error().Err(err).Msg("colaborador de cartera falló")
		}
	}
	if w.deps.Notifier != nil {
		if err := w.deps.Notifier.SendAuthorized(ctx, d, ride); err != nil {
			log.Error().Err(err).Msg("colaborador de notificación falló")
		}
	}
}

func (w *Workflow) numericCode(base *entity.ElectronicDocument) (string, error) {
	if w.deps.NumericCodeStrategy == NumericCodeSecuencial {
		return domsri.CodigoNumericoDesdeID(base.Secuencial)
	}
	return domsri.CodigoNumericoAleatorio()
}

func (w *Workflow) newMensaje(documentID, detail, rawCode string) entity.Mensaje {
	return entity.Mensaje{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Detail:     detail,
		RawCode:    rawCode,
		CreatedAt:  w.now(),
	}
}

func (w *Workflow) gatewayMensajes(documentID string, msgs []GatewayMessage) []entity.Mensaje {
	out := make([]entity.Mensaje, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, w.newMensaje(documentID, m.Detail(), m.Identifier))
	}
	return out
}

// documentTotal extrae el total según el tipo concreto.
func documentTotal(doc entity.Comprobante) decimal.Decimal {
	switch t := doc.(type) {
	case *entity.Factura:
		return t.ImporteTotal
	case *entity.NotaCredito:
		return t.ValorModificacion
	case *entity.NotaDebito:
		return t.ValorTotal
	default:
		return decimal.Zero
	}
}

// documentLines aplana las líneas del comprobante para los colaboradores.
func documentLines(doc entity.Comprobante) []AuthorizedLine {
	var out []AuthorizedLine
	switch t := doc.(type) {
	case *entity.Factura:
		for _, d := range t.Detalles {
			out = append(out, AuthorizedLine{Codigo: d.CodigoPrincipal, Descripcion: d.Descripcion, Cantidad: d.Cantidad})
		}
	case *entity.NotaCredito:
		for _, d := range t.Detalles {
			out = append(out, AuthorizedLine{Codigo: d.CodigoPrincipal, Descripcion: d.Descripcion, Cantidad: d.Cantidad})
		}
	case *entity.GuiaRemision:
		for _, dest := range t.Destinatarios {
			for _, d := range dest.Detalles {
				out = append(out, AuthorizedLine{Codigo: d.CodigoInterno, Descripcion: d.Descripcion, Cantidad: d.Cantidad})
			}
		}
	}
	return out
}

func documentBuyer(doc entity.Comprobante) *entity.Comprador {
	switch t := doc.(type) {
	case *entity.Factura:
		return &t.Comprador
	case *entity.NotaCredito:
		return &t.Comprador
	case *entity.NotaDebito:
		return &t.Comprador
	default:
		return nil
	}
}
