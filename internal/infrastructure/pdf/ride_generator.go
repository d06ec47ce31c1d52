// Package pdf implementa la generación del RIDE (Representación Impresa del
// Documento Electrónico) conforme a la ficha técnica de comprobantes
// electrónicos del SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  Tipo + N° + Fecha           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLAVE DE ACCESO: 49 dígitos + código de barras Code128      │
//	│  EMISOR: Dir. matriz / establecimiento / obligado contab.    │
//	│  COMPRADOR / TRANSPORTISTA según el tipo                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Dcto | Subtotal        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES según el tipo de comprobante                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: autorización + ambiente + leyenda                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/barcode"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ billing.RideRenderer = (*RideGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Títulos legibles por tipo de comprobante.
var docTitles = map[string]string{
	sri.DocTypeFactura:      "FACTURA",
	sri.DocTypeNotaCredito:  "NOTA DE CRÉDITO",
	sri.DocTypeNotaDebito:   "NOTA DE DÉBITO",
	sri.DocTypeGuiaRemision: "GUÍA DE REMISIÓN",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// RideGenerator implementa billing.RideRenderer usando Maroto v2.
type RideGenerator struct{}

// NewRideGenerator construye el generador.
func NewRideGenerator() *RideGenerator { return &RideGenerator{} }

// Render genera el RIDE del comprobante y devuelve los bytes del PDF.
func (g *RideGenerator) Render(doc entity.Comprobante, em *entity.Emisor) ([]byte, error) {
	base := doc.Base()
	title := docTitles[base.DocType]
	if title == "" {
		return nil, fmt.Errorf("pdf: tipo de comprobante desconocido: %q", base.DocType)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("RIDE "+title+" "+base.NumeroCompleto(), true).
		WithAuthor(em.RazonSocial, true).
		Build()

	m := maroto.New(cfg)

	// Header principal
	m.AddRows(headerRow(base, em, title))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	for _, r := range claveAccesoRows(base) {
		m.AddRows(r)
	}
	m.AddRows(emisorRow(em))
	m.AddRows(contraparteRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	// Tabla de detalles
	for _, r := range detalleRows(doc) {
		m.AddRows(r)
	}

	// Totales
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalesRow(doc))

	// Footer de autorización
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range footerRows(base, em) {
		m.AddRows(r)
	}

	pdfDoc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return pdfDoc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + RUC (izq) y tipo + número + fecha (der).
func headerRow(base *entity.ElectronicDocument, em *entity.Emisor, title string) core.Row {
	nombre := em.RazonSocial
	if em.NombreComercial != "" {
		nombre = em.NombreComercial
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nombre, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+em.RUC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("No. "+base.NumeroCompleto(), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha emisión: "+base.EmissionDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// claveAccesoRows: clave de acceso en texto + código de barras Code128.
func claveAccesoRows(base *entity.ElectronicDocument) []core.Row {
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	if base.AccessKey == "" {
		return rows
	}
	rows = append(rows, row.New(14).Add(
		col.New(12).Add(
			code.NewBar(base.AccessKey, props.Barcode{
				Type:    barcode.Code128,
				Percent: 95,
				Center:  true,
			}),
		),
	))
	rows = append(rows, row.New(5).Add(col.New(12).Add(
		text.New(base.AccessKey, props.Text{
			Size: 8, Align: align.Center, Color: colorGray, Top: 0.5,
		}),
	)))
	return rows
}

// emisorRow: datos fiscales del emisor.
func emisorRow(em *entity.Emisor) core.Row {
	contab := "NO"
	if em.ObligadoContabilidad {
		contab = "SI"
	}
	lineaDir := fmt.Sprintf("Matriz: %s   |   Sucursal: %s",
		nonEmpty(em.DirMatriz, "—"),
		nonEmpty(em.DirEstablecimiento, em.DirMatriz),
	)
	lineaFiscal := "Obligado a llevar contabilidad: " + contab
	if em.ContribuyenteEspecial != "" {
		lineaFiscal += "   |   Contribuyente especial Nro. " + em.ContribuyenteEspecial
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(lineaDir, props.Text{Size: 8, Top: 7, Color: colorGray}),
			text.New(lineaFiscal, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// contraparteRow: comprador o transportista según el tipo de comprobante.
func contraparteRow(doc entity.Comprobante) core.Row {
	if g, ok := doc.(*entity.GuiaRemision); ok {
		return row.New(14).Add(
			col.New(12).Add(
				text.New("TRANSPORTISTA", props.Text{
					Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
				}),
				text.New(g.RazonSocialTransportista, props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 6,
				}),
				text.New(fmt.Sprintf("RUC: %s   |   Placa: %s   |   Partida: %s",
					g.RucTransportista,
					nonEmpty(g.Placa, "—"),
					nonEmpty(g.DirPartida, "—"),
				), props.Text{Size: 8, Top: 12, Color: colorGray}),
			),
		)
	}

	c := compradorDe(doc)
	return row.New(14).Add(
		col.New(12).Add(
			text.New("COMPRADOR / ADQUIRIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(c.RazonSocial, "CONSUMIDOR FINAL"), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Identificación: %s   |   Dirección: %s   |   Email: %s",
				nonEmpty(c.Identificacion, "—"),
				nonEmpty(c.Direccion, "—"),
				nonEmpty(c.Email, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow(labels [5]string) core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h(labels[0], 1, align.Center),
		h(labels[1], 5, align.Left),
		h(labels[2], 2, align.Right),
		h(labels[3], 2, align.Right),
		h(labels[4], 2, align.Right),
	)
}

// detalleRows: tabla de detalles según el tipo concreto del comprobante.
func detalleRows(doc entity.Comprobante) []core.Row {
	switch d := doc.(type) {
	case *entity.Factura:
		return lineaDetalleRows(d.Detalles)
	case *entity.NotaCredito:
		rows := []core.Row{sustentoRow(d.CodDocModificado, d.NumDocModificado)}
		return append(rows, lineaDetalleRows(d.Detalles)...)
	case *entity.NotaDebito:
		rows := []core.Row{
			sustentoRow(d.CodDocModificado, d.NumDocModificado),
			tableHeaderRow([5]string{"", "Motivo", "", "", "Valor"}),
		}
		for _, mot := range d.Motivos {
			rows = append(rows, row.New(7).Add(
				col.New(1),
				col.New(5).Add(text.New(mot.Razon, props.Text{
					Size: 8, Align: align.Left, Top: 1, Left: 1,
				})),
				col.New(4),
				col.New(2).Add(text.New("$"+mot.Valor.StringFixed(2), props.Text{
					Size: 8, Align: align.Right, Top: 1, Right: 1,
				})),
			))
		}
		return rows
	case *entity.GuiaRemision:
		var rows []core.Row
		for _, dest := range d.Destinatarios {
			rows = append(rows, row.New(8).Add(col.New(12).Add(
				text.New(fmt.Sprintf("Destinatario: %s (%s) — %s",
					dest.RazonSocial, dest.Identificacion, dest.MotivoTraslado,
				), props.Text{Style: fontstyle.Bold, Size: 8, Top: 2}),
			)))
			rows = append(rows, tableHeaderRow([5]string{"Cant.", "Descripción", "", "", "Código"}))
			for _, det := range dest.Detalles {
				rows = append(rows, row.New(7).Add(
					col.New(1).Add(text.New(det.Cantidad.String(), props.Text{
						Size: 8, Align: align.Center, Top: 1,
					})),
					col.New(5).Add(text.New(det.Descripcion, props.Text{
						Size: 8, Align: align.Left, Top: 1, Left: 1,
					})),
					col.New(4),
					col.New(2).Add(text.New(nonEmpty(det.CodigoInterno, "—"), props.Text{
						Size: 8, Align: align.Right, Top: 1, Right: 1,
					})),
				))
			}
		}
		return rows
	default:
		return nil
	}
}

// lineaDetalleRows: filas de líneas de detalle con precio y descuento.
func lineaDetalleRows(detalles []entity.LineaDetalle) []core.Row {
	rows := []core.Row{
		tableHeaderRow([5]string{"Cant.", "Descripción", "P. Unit.", "Dcto.", "Subtotal"}),
	}
	for _, d := range detalles {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(d.Cantidad.String(), props.Text{
				Size: 8, Align: align.Center, Top: 1,
			})),
			col.New(5).Add(text.New(d.Descripcion, props.Text{
				Size: 8, Align: align.Left, Top: 1, Left: 1,
			})),
			col.New(2).Add(text.New("$"+d.PrecioUnitario.StringFixed(2), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(2).Add(text.New("$"+d.Descuento.StringFixed(2), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(2).Add(text.New("$"+d.PrecioTotalSinImpuesto.StringFixed(2), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return rows
}

// sustentoRow: referencia al documento modificado en notas de crédito/débito.
func sustentoRow(codDoc, numDoc string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(fmt.Sprintf("Documento modificado: %s %s", codDoc, numDoc), props.Text{
			Style: fontstyle.Bold, Size: 8, Top: 2, Color: colorGray,
		}),
	))
}

// totalesRow: bloque de totales según el tipo de comprobante.
func totalesRow(doc entity.Comprobante) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	var labels, values []core.Component
	switch d := doc.(type) {
	case *entity.Factura:
		labels = []core.Component{
			label("Subtotal sin impuestos:"),
			label("Descuento:"),
			grandLabel("IMPORTE TOTAL:"),
		}
		values = []core.Component{
			value("$" + d.TotalSinImpuestos.StringFixed(2)),
			value("$" + d.TotalDescuento.StringFixed(2)),
			grandValue("$" + d.ImporteTotal.StringFixed(2)),
		}
	case *entity.NotaCredito:
		labels = []core.Component{
			label("Subtotal sin impuestos:"),
			grandLabel("VALOR MODIFICACIÓN:"),
		}
		values = []core.Component{
			value("$" + d.TotalSinImpuestos.StringFixed(2)),
			grandValue("$" + d.ValorModificacion.StringFixed(2)),
		}
	case *entity.NotaDebito:
		labels = []core.Component{
			label("Subtotal sin impuestos:"),
			grandLabel("VALOR TOTAL:"),
		}
		values = []core.Component{
			value("$" + d.TotalSinImpuestos.StringFixed(2)),
			grandValue("$" + d.ValorTotal.StringFixed(2)),
		}
	default:
		// La guía de remisión no lleva totales monetarios.
		return row.New(2)
	}

	return row.New(26).Add(
		col.New(3),
		col.New(4).Add(labels...),
		col.New(4).Add(values...),
		col.New(1),
	)
}

// footerRows: número de autorización, ambiente y leyenda legal.
func footerRows(base *entity.ElectronicDocument, em *entity.Emisor) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DE AUTORIZACIÓN SRI", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if base.AuthorizationNumber != "" {
		fecha := "—"
		if base.AuthorizationDate != nil {
			fecha = base.AuthorizationDate.Format("02/01/2006 15:04:05")
		}
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Nro. de autorización: %s   |   Fecha: %s",
				base.AuthorizationNumber, fecha,
			), props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))

		// QR de verificación: clave|numAut|fecha, el dato que el portal del SRI valida.
		qr := base.AccessKey + "|" + base.AuthorizationNumber + "|" + fecha
		rows = append(rows, row.New(30).Add(
			col.New(3).Add(code.NewQr(qr, props.Rect{
				Percent: 90,
				Center:  true,
			})),
			col.New(9).Add(
				text.New("Escanee el código QR para verificar este comprobante\nen el portal del SRI.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
			),
		))
	}

	ambiente := "PRUEBAS"
	if em.AmbienteEfectivo() == sri.EnvironmentProduccion {
		ambiente = "PRODUCCIÓN"
	}
	rows = append(rows, row.New(5).Add(col.New(12).Add(
		text.New("Ambiente: "+ambiente+"   |   Emisión: NORMAL", props.Text{
			Size: 8, Top: 1, Color: colorGray,
		}),
	)))

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Representación impresa del documento electrónico (RIDE). "+
				"Verifique la validez de este comprobante con la clave de acceso "+
				"en el portal del SRI.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func compradorDe(doc entity.Comprobante) entity.Comprador {
	switch d := doc.(type) {
	case *entity.Factura:
		return d.Comprador
	case *entity.NotaCredito:
		return d.Comprador
	case *entity.NotaDebito:
		return d.Comprador
	default:
		return entity.Comprador{}
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
