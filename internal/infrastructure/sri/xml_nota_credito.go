package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildNotaCredito escribe infoNotaCredito + detalles + infoAdicional (esquema 1.1.0).
func buildNotaCredito(enc *xml.Encoder, doc entity.Comprobante, em *entity.Emisor) error {
	n, ok := doc.(*entity.NotaCredito)
	if !ok {
		return domain.NewValidationError("comprobante", "el tipo 04 requiere una NotaCredito")
	}
	if n.NumDocModificado == "" || n.FechaEmisionDocSustento.IsZero() {
		return domain.NewValidationError("docModificado", "la nota de crédito requiere el documento de sustento")
	}

	start(enc, "infoNotaCredito")
	writeEl(enc, "fechaEmision", fmtDate(n.EmissionDate))
	if em.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", em.DirEstablecimiento)
	}
	writeEl(enc, "tipoIdentificacionComprador", n.Comprador.TipoIdentificacion)
	writeEl(enc, "razonSocialComprador", n.Comprador.RazonSocial)
	writeEl(enc, "identificacionComprador", n.Comprador.Identificacion)
	if em.ContribuyenteEspecial != "" {
		writeEl(enc, "contribuyenteEspecial", em.ContribuyenteEspecial)
	}
	writeBool(enc, "obligadoContabilidad", em.ObligadoContabilidad)
	writeEl(enc, "codDocModificado", n.CodDocModificado)
	writeEl(enc, "numDocModificado", n.NumDocModificado)
	writeEl(enc, "fechaEmisionDocSustento", fmtDate(n.FechaEmisionDocSustento))
	writeEl(enc, "totalSinImpuestos", fmtMoney(n.TotalSinImpuestos))
	writeEl(enc, "valorModificacion", fmtMoney(n.ValorModificacion))
	writeEl(enc, "moneda", moneda(n.Moneda))
	writeTotalConImpuestos(enc, n.Detalles)
	writeEl(enc, "motivo", n.Motivo)
	end(enc, "infoNotaCredito")

	writeDetalles(enc, n.Detalles)
	writeInfoAdicional(enc, n.InfoAdicional)
	return nil
}
