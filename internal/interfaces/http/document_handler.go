package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// DocumentHandler maneja las peticiones HTTP del ciclo de vida de comprobantes
// electrónicos (protegido).
type DocumentHandler struct {
	wf *billing.Workflow
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(wf *billing.Workflow) *DocumentHandler {
	return &DocumentHandler{wf: wf}
}

// CreateFactura registra una factura en borrador.
// POST /api/comprobantes/facturas
func (h *DocumentHandler) CreateFactura(c *fiber.Ctx) error {
	var in dto.CreateFacturaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := in.ToEntity(GetIssuerID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return h.createDraft(c, doc)
}

// CreateNotaCredito registra una nota de crédito en borrador.
// POST /api/comprobantes/notas-credito
func (h *DocumentHandler) CreateNotaCredito(c *fiber.Ctx) error {
	var in dto.CreateNotaCreditoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := in.ToEntity(GetIssuerID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return h.createDraft(c, doc)
}

// CreateNotaDebito registra una nota de débito en borrador.
// POST /api/comprobantes/notas-debito
func (h *DocumentHandler) CreateNotaDebito(c *fiber.Ctx) error {
	var in dto.CreateNotaDebitoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := in.ToEntity(GetIssuerID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return h.createDraft(c, doc)
}

// CreateGuiaRemision registra una guía de remisión en borrador.
// POST /api/comprobantes/guias-remision
func (h *DocumentHandler) CreateGuiaRemision(c *fiber.Ctx) error {
	var in dto.CreateGuiaRemisionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := in.ToEntity(GetIssuerID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return h.createDraft(c, doc)
}

func (h *DocumentHandler) createDraft(c *fiber.Ctx, doc entity.Comprobante) error {
	res, err := h.wf.CreateDraft(c.Context(), doc)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewDocumentResponse(res.Document, false))
}

// Emit genera, firma y entrega el comprobante al WS de recepción del SRI.
// POST /api/comprobantes/:id/emitir
func (h *DocumentHandler) Emit(c *fiber.Ctx) error {
	res, err := h.wf.Emit(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(res.Document, res.Idempotent))
}

// Authorize consulta el WS de autorización y aplica el veredicto.
// POST /api/comprobantes/:id/autorizar
func (h *DocumentHandler) Authorize(c *fiber.Ctx) error {
	res, err := h.wf.Authorize(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(res.Document, res.Idempotent))
}

// Resend reintenta el ciclo completo de emisión y autorización.
// POST /api/comprobantes/:id/reenviar
func (h *DocumentHandler) Resend(c *fiber.Ctx) error {
	res, err := h.wf.Resend(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(res.Document, res.Idempotent))
}

// Void anula un comprobante autorizado sustentado en una nota de crédito.
// POST /api/comprobantes/:id/anular
func (h *DocumentHandler) Void(c *fiber.Ctx) error {
	var in dto.VoidRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.wf.Void(c.Context(), c.Params("id"), GetUserID(c), in.Motivo, in.ComprobanteCompensatorioID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(res.Document, res.Idempotent))
}

// Status devuelve el comprobante con su clave, estado y autorización.
// GET /api/comprobantes/:id
func (h *DocumentHandler) Status(c *fiber.Ctx) error {
	doc, _, err := h.wf.Status(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(doc, false))
}

// Messages devuelve el log ordenado de mensajes del comprobante.
// GET /api/comprobantes/:id/mensajes
func (h *DocumentHandler) Messages(c *fiber.Ctx) error {
	_, msgs, err := h.wf.Status(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewMensajeResponses(msgs))
}

// XML devuelve el XML autorizado (o el firmado si aún no hay autorización).
// GET /api/comprobantes/:id/xml
func (h *DocumentHandler) XML(c *fiber.Ctx) error {
	doc, _, err := h.wf.Status(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	base := doc.Base()
	body := base.AuthorizedXML
	if body == "" {
		body = base.SignedXML
	}
	if body == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el comprobante aún no tiene XML"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.SendString(body)
}

// ByAccessKey busca un comprobante por su clave de acceso de 49 dígitos.
// GET /api/comprobantes/clave/:claveAcceso
func (h *DocumentHandler) ByAccessKey(c *fiber.Ctx) error {
	doc, _, err := h.wf.StatusByAccessKey(c.Context(), c.Params("claveAcceso"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(doc, false))
}

// errorJSON mapea errores de dominio a códigos HTTP.
func errorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "comprobante no encontrado"})
	case errors.Is(err, domain.ErrComprobanteAnulado):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "VOIDED", Message: "el comprobante está anulado"})
	case errors.Is(err, domain.ErrEstadoInvalido):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrPlazoAnulacion):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "VOID_WINDOW", Message: "plazo de anulación vencido"})
	case errors.Is(err, domain.ErrSustentoNoAutorizado):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "VOID_SUPPORT", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el comprobante ya existe"})
	case domain.IsValidationError(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case domain.IsCertificateError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERTIFICATE", Message: err.Error()})
	case domain.IsGatewayFault(err):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SRI_UNAVAILABLE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
