package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildFactura escribe infoFactura + detalles + infoAdicional (esquema 1.1.0).
// El orden de nodos es fijo y debe reproducirse exactamente.
func buildFactura(enc *xml.Encoder, doc entity.Comprobante, em *entity.Emisor) error {
	f, ok := doc.(*entity.Factura)
	if !ok {
		return domain.NewValidationError("comprobante", "el tipo 01 requiere una Factura")
	}

	start(enc, "infoFactura")
	writeEl(enc, "fechaEmision", fmtDate(f.EmissionDate))
	if em.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", em.DirEstablecimiento)
	}
	if em.ContribuyenteEspecial != "" {
		writeEl(enc, "contribuyenteEspecial", em.ContribuyenteEspecial)
	}
	writeBool(enc, "obligadoContabilidad", em.ObligadoContabilidad)
	writeEl(enc, "tipoIdentificacionComprador", f.Comprador.TipoIdentificacion)
	if f.GuiaRemision != "" {
		writeEl(enc, "guiaRemision", f.GuiaRemision)
	}
	writeEl(enc, "razonSocialComprador", f.Comprador.RazonSocial)
	writeEl(enc, "identificacionComprador", f.Comprador.Identificacion)
	if f.Comprador.Direccion != "" {
		writeEl(enc, "direccionComprador", f.Comprador.Direccion)
	}
	writeEl(enc, "totalSinImpuestos", fmtMoney(f.TotalSinImpuestos))
	writeEl(enc, "totalDescuento", fmtMoney(f.TotalDescuento))
	writeTotalConImpuestos(enc, f.Detalles)
	writeEl(enc, "propina", fmtMoney(f.Propina))
	writeEl(enc, "importeTotal", fmtMoney(f.ImporteTotal))
	writeEl(enc, "moneda", moneda(f.Moneda))
	end(enc, "infoFactura")

	writeDetalles(enc, f.Detalles)
	writeInfoAdicional(enc, f.InfoAdicional)
	return nil
}

func moneda(m string) string {
	if m == "" {
		return "DOLAR"
	}
	return m
}
