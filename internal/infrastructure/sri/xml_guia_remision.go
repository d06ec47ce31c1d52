package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildGuiaRemision escribe infoGuiaRemision + destinatarios + infoAdicional.
func buildGuiaRemision(enc *xml.Encoder, doc entity.Comprobante, em *entity.Emisor) error {
	g, ok := doc.(*entity.GuiaRemision)
	if !ok {
		return domain.NewValidationError("comprobante", "el tipo 06 requiere una GuiaRemision")
	}
	if len(g.Destinatarios) == 0 {
		return domain.NewValidationError("destinatarios", "la guía de remisión requiere al menos un destinatario")
	}

	start(enc, "infoGuiaRemision")
	if em.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", em.DirEstablecimiento)
	}
	writeEl(enc, "dirPartida", g.DirPartida)
	writeEl(enc, "razonSocialTransportista", g.RazonSocialTransportista)
	writeEl(enc, "tipoIdentificacionTransportista", g.TipoIdentificacionTransportista)
	writeEl(enc, "rucTransportista", g.RucTransportista)
	if em.ObligadoContabilidad {
		writeBool(enc, "obligadoContabilidad", true)
	}
	if em.ContribuyenteEspecial != "" {
		writeEl(enc, "contribuyenteEspecial", em.ContribuyenteEspecial)
	}
	writeEl(enc, "fechaIniTransporte", fmtDate(g.FechaIniTransporte))
	writeEl(enc, "fechaFinTransporte", fmtDate(g.FechaFinTransporte))
	if g.Placa != "" {
		writeEl(enc, "placa", g.Placa)
	}
	end(enc, "infoGuiaRemision")

	start(enc, "destinatarios")
	for _, d := range g.Destinatarios {
		start(enc, "destinatario")
		writeEl(enc, "identificacionDestinatario", d.Identificacion)
		writeEl(enc, "razonSocialDestinatario", d.RazonSocial)
		writeEl(enc, "dirDestinatario", d.Direccion)
		writeEl(enc, "motivoTraslado", d.MotivoTraslado)
		if d.CodDocSustento != "" {
			writeEl(enc, "codDocSustento", d.CodDocSustento)
			writeEl(enc, "numDocSustento", d.NumDocSustento)
			if d.NumAutDocSustento != "" {
				writeEl(enc, "numAutDocSustento", d.NumAutDocSustento)
			}
			if d.FechaEmisionDocSustento != nil {
				writeEl(enc, "fechaEmisionDocSustento", fmtDate(*d.FechaEmisionDocSustento))
			}
		}
		start(enc, "detalles")
		for _, det := range d.Detalles {
			start(enc, "detalle")
			if det.CodigoInterno != "" {
				writeEl(enc, "codigoInterno", det.CodigoInterno)
			}
			writeEl(enc, "descripcion", det.Descripcion)
			writeEl(enc, "cantidad", fmtQty(det.Cantidad))
			end(enc, "detalle")
		}
		end(enc, "detalles")
		end(enc, "destinatario")
	}
	end(enc, "destinatarios")

	writeInfoAdicional(enc, g.InfoAdicional)
	return nil
}
