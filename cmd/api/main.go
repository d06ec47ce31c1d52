package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/facturacion-sri/docs"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/notify"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// @title        API de Facturación Electrónica SRI
// @version      1.0
// @description  Emisión, firma XAdES-BES y autorización de comprobantes electrónicos (esquema offline SRI Ecuador).
// @BasePath     /api
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_sri", cfg.SRI.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewDocumentRepository(pool)
	issuerRepo := postgres.NewIssuerRepository(pool)
	seqRepo := postgres.NewSequenceRepository(pool)

	xmlBuilder := infrasri.NewXMLBuilderService()
	signerSvc := signer.NewService()
	gateway := infrasri.NewSOAPClient(infrasri.SOAPClientConfig{
		Environment:      cfg.SRI.Environment,
		ReceptionURL:     cfg.SRI.ReceptionURL,
		AuthorizationURL: cfg.SRI.AuthorizationURL,
		Timeout:          cfg.SRI.RequestTimeout,
		MaxRetries:       cfg.SRI.MaxRetries,
	}, log)

	// Colaboradores post-autorización: fire-and-forget, sus fallas solo se loguean.
	stockConsumer := postgres.NewStockConsumer(pool, log)
	ledger := postgres.NewBalanceLedger(pool)
	rideGen := pdf.NewRideGenerator()

	var notifier billing.Notifier
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
	}

	workflow := billing.NewWorkflow(billing.Deps{
		Docs:      docRepo,
		Issuers:   issuerRepo,
		Seqs:      seqRepo,
		Builder:   xmlBuilder,
		Signer:    signerSvc,
		Gateway:   gateway,
		Inventory: stockConsumer,
		Ledger:    ledger,
		Notifier:  notifier,
		Ride:      rideGen,
		Log:       log,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SRI API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Workflow:  workflow,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
