package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildNotaDebito escribe infoNotaDebito + motivos + infoAdicional (esquema 1.0.0:
// sin bloque de detalles, el desglose de impuestos va a nivel de documento).
func buildNotaDebito(enc *xml.Encoder, doc entity.Comprobante, em *entity.Emisor) error {
	n, ok := doc.(*entity.NotaDebito)
	if !ok {
		return domain.NewValidationError("comprobante", "el tipo 05 requiere una NotaDebito")
	}
	if n.NumDocModificado == "" || n.FechaEmisionDocSustento.IsZero() {
		return domain.NewValidationError("docModificado", "la nota de débito requiere el documento de sustento")
	}
	if len(n.Motivos) == 0 {
		return domain.NewValidationError("motivos", "la nota de débito requiere al menos un motivo")
	}

	start(enc, "infoNotaDebito")
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
	start(enc, "impuestos")
	for _, imp := range n.Impuestos {
		start(enc, "impuesto")
		writeEl(enc, "codigo", imp.Codigo)
		writeEl(enc, "codigoPorcentaje", imp.CodigoPorcentaje)
		writeEl(enc, "tarifa", fmtMoney(imp.Tarifa))
		writeEl(enc, "baseImponible", fmtMoney(imp.BaseImponible))
		writeEl(enc, "valor", fmtMoney(imp.Valor))
		end(enc, "impuesto")
	}
	end(enc, "impuestos")
	writeEl(enc, "valorTotal", fmtMoney(n.ValorTotal))
	end(enc, "infoNotaDebito")

	start(enc, "motivos")
	for _, m := range n.Motivos {
		start(enc, "motivo")
		writeEl(enc, "razon", m.Razon)
		writeEl(enc, "valor", fmtMoney(m.Valor))
		end(enc, "motivo")
	}
	end(enc, "motivos")

	writeInfoAdicional(enc, n.InfoAdicional)
	return nil
}
