// Package sri implementa la generación del XML de comprobantes electrónicos
// según la Ficha Técnica del SRI (esquema offline), y el cliente SOAP de los
// servicios de recepción y autorización.
package sri

import (
	"bytes"
	"encoding/xml"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// RootID valor del atributo id del elemento raíz; la Reference de la firma
// XAdES apunta a "#comprobante".
const RootID = "comprobante"

// builderEntry entrada del registro estático tipo de comprobante → builder.
type builderEntry struct {
	root    string
	version string
	build   func(enc *xml.Encoder, doc entity.Comprobante, em *entity.Emisor) error
}

// builders registro estático: sin descubrimiento dinámico de tipos.
var builders = map[string]builderEntry{
	pkgsri.DocTypeFactura:      {root: "factura", version: "1.1.0", build: buildFactura},
	pkgsri.DocTypeNotaCredito:  {root: "notaCredito", version: "1.1.0", build: buildNotaCredito},
	pkgsri.DocTypeNotaDebito:   {root: "notaDebito", version: "1.0.0", build: buildNotaDebito},
	pkgsri.DocTypeGuiaRemision: {root: "guiaRemision", version: "1.1.0", build: buildGuiaRemision},
}

// XMLBuilderService construye el XML canónico de un comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del comprobante según su tipo. Precondición dura:
// clave de acceso y fecha de emisión presentes; construir un documento
// incompleto se rechaza con ValidationError.
func (s *XMLBuilderService) Build(doc entity.Comprobante, em *entity.Emisor) ([]byte, error) {
	if doc == nil || em == nil {
		return nil, domain.NewValidationError("comprobante", "faltan comprobante o emisor")
	}
	base := doc.Base()
	if base.AccessKey == "" {
		return nil, domain.NewValidationError("claveAcceso", "es obligatoria para generar el XML")
	}
	if base.EmissionDate.IsZero() {
		return nil, domain.NewValidationError("fechaEmision", "es obligatoria para generar el XML")
	}
	entry, ok := builders[base.DocType]
	if !ok {
		return nil, domain.NewValidationError("codDoc", "tipo de comprobante no soportado: "+base.DocType)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: entry.root},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: RootID},
			{Name: xml.Name{Local: "version"}, Value: entry.version},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	writeInfoTributaria(enc, base, em)
	if err := entry.build(enc, doc, em); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeInfoTributaria bloque cabecera común a todos los tipos, siempre primero.
func writeInfoTributaria(enc *xml.Encoder, base *entity.ElectronicDocument, em *entity.Emisor) {
	start(enc, "infoTributaria")
	writeEl(enc, "ambiente", em.AmbienteEfectivo())
	writeEl(enc, "tipoEmision", pkgsri.EmissionNormal)
	writeEl(enc, "razonSocial", em.RazonSocial)
	if em.NombreComercial != "" {
		writeEl(enc, "nombreComercial", em.NombreComercial)
	}
	writeEl(enc, "ruc", em.RUC)
	writeEl(enc, "claveAcceso", base.AccessKey)
	writeEl(enc, "codDoc", base.DocType)
	writeEl(enc, "estab", base.Estab)
	writeEl(enc, "ptoEmi", base.PtoEmi)
	writeEl(enc, "secuencial", base.SecuencialString())
	writeEl(enc, "dirMatriz", em.DirMatriz)
	end(enc, "infoTributaria")
}

// writeDetalles bloque de líneas con su desglose de impuestos (factura y nota de crédito).
func writeDetalles(enc *xml.Encoder, detalles []entity.LineaDetalle) {
	start(enc, "detalles")
	for _, d := range detalles {
		start(enc, "detalle")
		writeEl(enc, "codigoPrincipal", d.CodigoPrincipal)
		if d.CodigoAuxiliar != "" {
			writeEl(enc, "codigoAuxiliar", d.CodigoAuxiliar)
		}
		writeEl(enc, "descripcion", d.Descripcion)
		writeEl(enc, "cantidad", fmtQty(d.Cantidad))
		writeEl(enc, "precioUnitario", fmtQty(d.PrecioUnitario))
		writeEl(enc, "descuento", fmtMoney(d.Descuento))
		writeEl(enc, "precioTotalSinImpuesto", fmtMoney(d.PrecioTotalSinImpuesto))
		start(enc, "impuestos")
		for _, imp := range d.Impuestos {
			start(enc, "impuesto")
			writeEl(enc, "codigo", imp.Codigo)
			writeEl(enc, "codigoPorcentaje", imp.CodigoPorcentaje)
			writeEl(enc, "tarifa", fmtMoney(imp.Tarifa))
			writeEl(enc, "baseImponible", fmtMoney(imp.BaseImponible))
			writeEl(enc, "valor", fmtMoney(imp.Valor))
			end(enc, "impuesto")
		}
		end(enc, "impuestos")
		end(enc, "detalle")
	}
	end(enc, "detalles")
}

// writeTotalConImpuestos agrupa los impuestos de detalle por (código, código de
// porcentaje) y escribe el bloque totalConImpuestos.
func writeTotalConImpuestos(enc *xml.Encoder, detalles []entity.LineaDetalle) {
	start(enc, "totalConImpuestos")
	for _, t := range GroupTotalImpuestos(detalles) {
		start(enc, "totalImpuesto")
		writeEl(enc, "codigo", t.Codigo)
		writeEl(enc, "codigoPorcentaje", t.CodigoPorcentaje)
		writeEl(enc, "baseImponible", fmtMoney(t.BaseImponible))
		writeEl(enc, "valor", fmtMoney(t.Valor))
		end(enc, "totalImpuesto")
	}
	end(enc, "totalConImpuestos")
}

// GroupTotalImpuestos suma base imponible y valor por (código, código de
// porcentaje). La suma es conmutativa y asociativa y la salida se ordena por la
// clave de agrupación: el resultado es independiente del orden de las líneas.
func GroupTotalImpuestos(detalles []entity.LineaDetalle) []entity.ImpuestoDetalle {
	type key struct{ codigo, porcentaje string }
	groups := map[key]*entity.ImpuestoDetalle{}
	for _, d := range detalles {
		for _, imp := range d.Impuestos {
			k := key{imp.Codigo, imp.CodigoPorcentaje}
			g, ok := groups[k]
			if !ok {
				g = &entity.ImpuestoDetalle{
					Codigo:           imp.Codigo,
					CodigoPorcentaje: imp.CodigoPorcentaje,
					Tarifa:           imp.Tarifa,
					BaseImponible:    decimal.Zero,
					Valor:            decimal.Zero,
				}
				groups[k] = g
			}
			g.BaseImponible = g.BaseImponible.Add(imp.BaseImponible)
			g.Valor = g.Valor.Add(imp.Valor)
		}
	}
	out := make([]entity.ImpuestoDetalle, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Codigo != out[j].Codigo {
			return out[i].Codigo < out[j].Codigo
		}
		return out[i].CodigoPorcentaje < out[j].CodigoPorcentaje
	})
	return out
}

// writeInfoAdicional bloque opcional: se omite por completo si no hay campos,
// nunca se emite vacío.
func writeInfoAdicional(enc *xml.Encoder, campos []entity.CampoAdicional) {
	if len(campos) == 0 {
		return
	}
	start(enc, "infoAdicional")
	for _, c := range campos {
		_ = enc.EncodeToken(xml.StartElement{
			Name: xml.Name{Local: "campoAdicional"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "nombre"}, Value: c.Nombre}},
		})
		_ = enc.EncodeToken(xml.CharData(c.Valor))
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "campoAdicional"}})
	}
	end(enc, "infoAdicional")
}

// ── helpers de formato ────────────────────────────────────────────────────────

// fmtMoney montos monetarios: siempre 2 decimales, punto decimal, sin miles.
func fmtMoney(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// fmtQty cantidades y precios unitarios: siempre 6 decimales.
func fmtQty(d decimal.Decimal) string {
	return d.Round(6).StringFixed(6)
}

// fmtDate fecha calendario dd/mm/aaaa, sin desplazamiento de zona horaria.
func fmtDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// ── helpers de escritura ──────────────────────────────────────────────────────

func start(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func end(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, value string) {
	start(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	end(enc, local)
}

func writeBool(enc *xml.Encoder, local string, v bool) {
	if v {
		writeEl(enc, local, "SI")
	} else {
		writeEl(enc, local, "NO")
	}
}
