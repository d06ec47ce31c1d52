package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Workflow  *billing.Workflow
	JWTSecret string
}

// Router registra las rutas de la API. Todo el ciclo de vida de comprobantes
// requiere Bearer Token; la escritura exige rol admin o facturador y la
// anulación solo admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	comprobantes := protected.Group("/comprobantes")
	handler := NewDocumentHandler(deps.Workflow)

	// Lectura (cualquier rol autenticado)
	comprobantes.Get("/clave/:claveAcceso", handler.ByAccessKey)
	comprobantes.Get("/:id", handler.Status)
	comprobantes.Get("/:id/mensajes", handler.Messages)
	comprobantes.Get("/:id/xml", handler.XML)

	// Emisión (admin o facturador)
	emisor := comprobantes.Group("/", RequireRole(RoleAdmin, RoleFacturador))
	emisor.Post("/facturas", handler.CreateFactura)
	emisor.Post("/notas-credito", handler.CreateNotaCredito)
	emisor.Post("/notas-debito", handler.CreateNotaDebito)
	emisor.Post("/guias-remision", handler.CreateGuiaRemision)
	emisor.Post("/:id/emitir", handler.Emit)
	emisor.Post("/:id/autorizar", handler.Authorize)
	emisor.Post("/:id/reenviar", handler.Resend)

	// Anulación (solo admin)
	comprobantes.Post("/:id/anular", RequireRole(RoleAdmin), handler.Void)
}
