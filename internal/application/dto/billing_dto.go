package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// fechaLayout formato de fechas en los cuerpos JSON (fecha sin hora).
const fechaLayout = "2006-01-02"

// ── Bloques compartidos ───────────────────────────────────────────────────────

// CompradorDTO identificación de la contraparte del comprobante.
type CompradorDTO struct {
	TipoIdentificacion string `json:"tipo_identificacion,omitempty"` // tabla 6; si va vacío se infiere
	Identificacion     string `json:"identificacion"`
	RazonSocial        string `json:"razon_social"`
	Direccion          string `json:"direccion,omitempty"`
	Email              string `json:"email,omitempty"`
}

func (c CompradorDTO) toEntity() entity.Comprador {
	tipo := c.TipoIdentificacion
	if tipo == "" {
		tipo = sri.IdentTypeFor(c.Identificacion)
	}
	return entity.Comprador{
		TipoIdentificacion: tipo,
		Identificacion:     c.Identificacion,
		RazonSocial:        c.RazonSocial,
		Direccion:          c.Direccion,
		Email:              c.Email,
	}
}

// ImpuestoDTO desglose de impuesto de una línea o del documento.
type ImpuestoDTO struct {
	Codigo           string          `json:"codigo"`            // tabla 16
	CodigoPorcentaje string          `json:"codigo_porcentaje"` // tabla 17
	Tarifa           decimal.Decimal `json:"tarifa"`
	BaseImponible    decimal.Decimal `json:"base_imponible"`
	Valor            decimal.Decimal `json:"valor"`
}

func (i ImpuestoDTO) toEntity() entity.ImpuestoDetalle {
	return entity.ImpuestoDetalle{
		Codigo:           i.Codigo,
		CodigoPorcentaje: i.CodigoPorcentaje,
		Tarifa:           i.Tarifa,
		BaseImponible:    i.BaseImponible,
		Valor:            i.Valor,
	}
}

// DetalleDTO línea de detalle con su desglose de impuestos.
type DetalleDTO struct {
	CodigoPrincipal        string          `json:"codigo_principal"`
	CodigoAuxiliar         string          `json:"codigo_auxiliar,omitempty"`
	Descripcion            string          `json:"descripcion"`
	Cantidad               decimal.Decimal `json:"cantidad"`
	PrecioUnitario         decimal.Decimal `json:"precio_unitario"`
	Descuento              decimal.Decimal `json:"descuento"`
	PrecioTotalSinImpuesto decimal.Decimal `json:"precio_total_sin_impuesto"`
	Impuestos              []ImpuestoDTO   `json:"impuestos"`
}

func (d DetalleDTO) toEntity() entity.LineaDetalle {
	out := entity.LineaDetalle{
		CodigoPrincipal:        d.CodigoPrincipal,
		CodigoAuxiliar:         d.CodigoAuxiliar,
		Descripcion:            d.Descripcion,
		Cantidad:               d.Cantidad,
		PrecioUnitario:         d.PrecioUnitario,
		Descuento:              d.Descuento,
		PrecioTotalSinImpuesto: d.PrecioTotalSinImpuesto,
	}
	for _, imp := range d.Impuestos {
		out.Impuestos = append(out.Impuestos, imp.toEntity())
	}
	return out
}

func detallesToEntity(in []DetalleDTO) []entity.LineaDetalle {
	out := make([]entity.LineaDetalle, 0, len(in))
	for _, d := range in {
		out = append(out, d.toEntity())
	}
	return out
}

// CampoAdicionalDTO par nombre/valor del bloque infoAdicional.
type CampoAdicionalDTO struct {
	Nombre string `json:"nombre"`
	Valor  string `json:"valor"`
}

func camposToEntity(in []CampoAdicionalDTO) []entity.CampoAdicional {
	out := make([]entity.CampoAdicional, 0, len(in))
	for _, c := range in {
		out = append(out, entity.CampoAdicional{Nombre: c.Nombre, Valor: c.Valor})
	}
	return out
}

// SerieDTO establecimiento y punto de emisión del comprobante.
type SerieDTO struct {
	Estab  string `json:"estab"`
	PtoEmi string `json:"pto_emi"`
	// FechaEmision opcional; si va vacía se usa la fecha del servidor.
	FechaEmision string `json:"fecha_emision,omitempty"`
}

func (s SerieDTO) apply(base *entity.ElectronicDocument, issuerID, docType string) error {
	base.IssuerID = issuerID
	base.DocType = docType
	base.Estab = s.Estab
	base.PtoEmi = s.PtoEmi
	if s.FechaEmision != "" {
		t, err := time.ParseInLocation(fechaLayout, s.FechaEmision, time.Local)
		if err != nil {
			return domain.NewValidationError("fecha_emision", "formato esperado AAAA-MM-DD")
		}
		base.EmissionDate = t
	}
	return nil
}

func parseFecha(campo, valor string) (time.Time, error) {
	t, err := time.ParseInLocation(fechaLayout, valor, time.Local)
	if err != nil {
		return time.Time{}, domain.NewValidationError(campo, "formato esperado AAAA-MM-DD")
	}
	return t, nil
}

// ── Requests de creación ──────────────────────────────────────────────────────

// CreateFacturaRequest body para POST /api/comprobantes/facturas.
type CreateFacturaRequest struct {
	SerieDTO
	Comprador CompradorDTO `json:"comprador"`
	Detalles  []DetalleDTO `json:"detalles"`

	TotalSinImpuestos decimal.Decimal `json:"total_sin_impuestos"`
	TotalDescuento    decimal.Decimal `json:"total_descuento"`
	Propina           decimal.Decimal `json:"propina"`
	ImporteTotal      decimal.Decimal `json:"importe_total"`
	Moneda            string          `json:"moneda,omitempty"`

	GuiaRemision  string              `json:"guia_remision,omitempty"`
	InfoAdicional []CampoAdicionalDTO `json:"info_adicional,omitempty"`
}

// ToEntity construye la factura de dominio.
func (r CreateFacturaRequest) ToEntity(issuerID string) (*entity.Factura, error) {
	f := &entity.Factura{
		Comprador:         r.Comprador.toEntity(),
		Detalles:          detallesToEntity(r.Detalles),
		TotalSinImpuestos: r.TotalSinImpuestos,
		TotalDescuento:    r.TotalDescuento,
		Propina:           r.Propina,
		ImporteTotal:      r.ImporteTotal,
		Moneda:            r.Moneda,
		GuiaRemision:      r.GuiaRemision,
		InfoAdicional:     camposToEntity(r.InfoAdicional),
	}
	if err := r.SerieDTO.apply(&f.ElectronicDocument, issuerID, sri.DocTypeFactura); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateNotaCreditoRequest body para POST /api/comprobantes/notas-credito.
type CreateNotaCreditoRequest struct {
	SerieDTO
	Comprador CompradorDTO `json:"comprador"`
	Detalles  []DetalleDTO `json:"detalles"`

	CodDocModificado        string `json:"cod_doc_modificado"`
	NumDocModificado        string `json:"num_doc_modificado"`
	FechaEmisionDocSustento string `json:"fecha_emision_doc_sustento"`

	TotalSinImpuestos decimal.Decimal `json:"total_sin_impuestos"`
	ValorModificacion decimal.Decimal `json:"valor_modificacion"`
	Moneda            string          `json:"moneda,omitempty"`
	Motivo            string          `json:"motivo"`

	InfoAdicional []CampoAdicionalDTO `json:"info_adicional,omitempty"`
}

// ToEntity construye la nota de crédito de dominio.
func (r CreateNotaCreditoRequest) ToEntity(issuerID string) (*entity.NotaCredito, error) {
	fecha, err := parseFecha("fecha_emision_doc_sustento", r.FechaEmisionDocSustento)
	if err != nil {
		return nil, err
	}
	n := &entity.NotaCredito{
		Comprador:               r.Comprador.toEntity(),
		Detalles:                detallesToEntity(r.Detalles),
		CodDocModificado:        r.CodDocModificado,
		NumDocModificado:        r.NumDocModificado,
		FechaEmisionDocSustento: fecha,
		TotalSinImpuestos:       r.TotalSinImpuestos,
		ValorModificacion:       r.ValorModificacion,
		Moneda:                  r.Moneda,
		Motivo:                  r.Motivo,
		InfoAdicional:           camposToEntity(r.InfoAdicional),
	}
	if err := r.SerieDTO.apply(&n.ElectronicDocument, issuerID, sri.DocTypeNotaCredito); err != nil {
		return nil, err
	}
	return n, nil
}

// MotivoDebitoDTO cargo de una nota de débito.
type MotivoDebitoDTO struct {
	Razon string          `json:"razon"`
	Valor decimal.Decimal `json:"valor"`
}

// CreateNotaDebitoRequest body para POST /api/comprobantes/notas-debito.
type CreateNotaDebitoRequest struct {
	SerieDTO
	Comprador CompradorDTO `json:"comprador"`

	CodDocModificado        string `json:"cod_doc_modificado"`
	NumDocModificado        string `json:"num_doc_modificado"`
	FechaEmisionDocSustento string `json:"fecha_emision_doc_sustento"`

	TotalSinImpuestos decimal.Decimal   `json:"total_sin_impuestos"`
	Impuestos         []ImpuestoDTO     `json:"impuestos"`
	ValorTotal        decimal.Decimal   `json:"valor_total"`
	Motivos           []MotivoDebitoDTO `json:"motivos"`

	InfoAdicional []CampoAdicionalDTO `json:"info_adicional,omitempty"`
}

// ToEntity construye la nota de débito de dominio.
func (r CreateNotaDebitoRequest) ToEntity(issuerID string) (*entity.NotaDebito, error) {
	fecha, err := parseFecha("fecha_emision_doc_sustento", r.FechaEmisionDocSustento)
	if err != nil {
		return nil, err
	}
	n := &entity.NotaDebito{
		Comprador:               r.Comprador.toEntity(),
		CodDocModificado:        r.CodDocModificado,
		NumDocModificado:        r.NumDocModificado,
		FechaEmisionDocSustento: fecha,
		TotalSinImpuestos:       r.TotalSinImpuestos,
		ValorTotal:              r.ValorTotal,
		InfoAdicional:           camposToEntity(r.InfoAdicional),
	}
	for _, imp := range r.Impuestos {
		n.Impuestos = append(n.Impuestos, imp.toEntity())
	}
	for _, m := range r.Motivos {
		n.Motivos = append(n.Motivos, entity.MotivoDebito{Razon: m.Razon, Valor: m.Valor})
	}
	if err := r.SerieDTO.apply(&n.ElectronicDocument, issuerID, sri.DocTypeNotaDebito); err != nil {
		return nil, err
	}
	return n, nil
}

// DetalleGuiaDTO línea de mercadería de un destinatario.
type DetalleGuiaDTO struct {
	CodigoInterno string          `json:"codigo_interno,omitempty"`
	Descripcion   string          `json:"descripcion"`
	Cantidad      decimal.Decimal `json:"cantidad"`
}

// DestinatarioDTO receptor de mercadería en la guía de remisión.
type DestinatarioDTO struct {
	Identificacion          string           `json:"identificacion"`
	RazonSocial             string           `json:"razon_social"`
	Direccion               string           `json:"direccion"`
	MotivoTraslado          string           `json:"motivo_traslado"`
	CodDocSustento          string           `json:"cod_doc_sustento,omitempty"`
	NumDocSustento          string           `json:"num_doc_sustento,omitempty"`
	NumAutDocSustento       string           `json:"num_aut_doc_sustento,omitempty"`
	FechaEmisionDocSustento string           `json:"fecha_emision_doc_sustento,omitempty"`
	Detalles                []DetalleGuiaDTO `json:"detalles"`
}

// CreateGuiaRemisionRequest body para POST /api/comprobantes/guias-remision.
type CreateGuiaRemisionRequest struct {
	SerieDTO

	DirPartida                      string `json:"dir_partida"`
	RazonSocialTransportista        string `json:"razon_social_transportista"`
	TipoIdentificacionTransportista string `json:"tipo_identificacion_transportista,omitempty"`
	RucTransportista                string `json:"ruc_transportista"`
	Placa                           string `json:"placa,omitempty"`
	FechaIniTransporte              string `json:"fecha_ini_transporte"`
	FechaFinTransporte              string `json:"fecha_fin_transporte"`

	Destinatarios []DestinatarioDTO   `json:"destinatarios"`
	InfoAdicional []CampoAdicionalDTO `json:"info_adicional,omitempty"`
}

// ToEntity construye la guía de remisión de dominio.
func (r CreateGuiaRemisionRequest) ToEntity(issuerID string) (*entity.GuiaRemision, error) {
	ini, err := parseFecha("fecha_ini_transporte", r.FechaIniTransporte)
	if err != nil {
		return nil, err
	}
	fin, err := parseFecha("fecha_fin_transporte", r.FechaFinTransporte)
	if err != nil {
		return nil, err
	}
	tipoTransportista := r.TipoIdentificacionTransportista
	if tipoTransportista == "" {
		tipoTransportista = sri.IdentTypeFor(r.RucTransportista)
	}
	g := &entity.GuiaRemision{
		DirPartida:                      r.DirPartida,
		RazonSocialTransportista:        r.RazonSocialTransportista,
		TipoIdentificacionTransportista: tipoTransportista,
		RucTransportista:                r.RucTransportista,
		Placa:                           r.Placa,
		FechaIniTransporte:              ini,
		FechaFinTransporte:              fin,
		InfoAdicional:                   camposToEntity(r.InfoAdicional),
	}
	for _, dst := range r.Destinatarios {
		d := entity.Destinatario{
			Identificacion:    dst.Identificacion,
			RazonSocial:       dst.RazonSocial,
			Direccion:         dst.Direccion,
			MotivoTraslado:    dst.MotivoTraslado,
			CodDocSustento:    dst.CodDocSustento,
			NumDocSustento:    dst.NumDocSustento,
			NumAutDocSustento: dst.NumAutDocSustento,
		}
		if dst.FechaEmisionDocSustento != "" {
			f, err := parseFecha("destinatarios.fecha_emision_doc_sustento", dst.FechaEmisionDocSustento)
			if err != nil {
				return nil, err
			}
			d.FechaEmisionDocSustento = &f
		}
		for _, det := range dst.Detalles {
			d.Detalles = append(d.Detalles, entity.DetalleGuia{
				CodigoInterno: det.CodigoInterno,
				Descripcion:   det.Descripcion,
				Cantidad:      det.Cantidad,
			})
		}
		g.Destinatarios = append(g.Destinatarios, d)
	}
	if err := r.SerieDTO.apply(&g.ElectronicDocument, issuerID, sri.DocTypeGuiaRemision); err != nil {
		return nil, err
	}
	return g, nil
}

// VoidRequest body para POST /api/comprobantes/:id/anular.
type VoidRequest struct {
	Motivo string `json:"motivo"`
	// ComprobanteCompensatorioID nota de crédito autorizada que sustenta la anulación.
	ComprobanteCompensatorioID string `json:"comprobante_compensatorio_id"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// DocumentResponse estado de un comprobante en respuestas.
type DocumentResponse struct {
	ID                 string `json:"id"`
	DocType            string `json:"doc_type"`
	NumeroCompleto     string `json:"numero_completo"`
	FechaEmision       string `json:"fecha_emision"`
	Estado             string `json:"estado"`
	ClaveAcceso        string `json:"clave_acceso,omitempty"`
	NumeroAutorizacion string `json:"numero_autorizacion,omitempty"`
	FechaAutorizacion  string `json:"fecha_autorizacion,omitempty"`
	AnuladoEn          string `json:"anulado_en,omitempty"`
	AnuladoPor         string `json:"anulado_por,omitempty"`
	MotivoAnulacion    string `json:"motivo_anulacion,omitempty"`
	Idempotente        bool   `json:"idempotente,omitempty"`
}

// NewDocumentResponse mapea un comprobante de dominio a su respuesta.
func NewDocumentResponse(doc entity.Comprobante, idempotente bool) DocumentResponse {
	base := doc.Base()
	out := DocumentResponse{
		ID:                 base.ID,
		DocType:            base.DocType,
		NumeroCompleto:     base.NumeroCompleto(),
		FechaEmision:       base.EmissionDate.Format(fechaLayout),
		Estado:             base.State,
		ClaveAcceso:        base.AccessKey,
		NumeroAutorizacion: base.AuthorizationNumber,
		AnuladoPor:         base.VoidBy,
		MotivoAnulacion:    base.VoidReason,
		Idempotente:        idempotente,
	}
	if base.AuthorizationDate != nil {
		out.FechaAutorizacion = base.AuthorizationDate.Format(time.RFC3339)
	}
	if base.VoidAt != nil {
		out.AnuladoEn = base.VoidAt.Format(time.RFC3339)
	}
	return out
}

// MensajeResponse entrada del log de mensajes de un comprobante.
type MensajeResponse struct {
	ID        string `json:"id"`
	Detalle   string `json:"detalle"`
	Codigo    string `json:"codigo,omitempty"`
	CreatedAt string `json:"created_at"`
}

// NewMensajeResponses mapea los mensajes de dominio.
func NewMensajeResponses(in []entity.Mensaje) []MensajeResponse {
	out := make([]MensajeResponse, 0, len(in))
	for _, m := range in {
		out = append(out, MensajeResponse{
			ID:        m.ID,
			Detalle:   m.Detail,
			Codigo:    m.RawCode,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
