// Package notify entrega al comprador el comprobante autorizado por correo:
// XML autorizado y RIDE en PDF como adjuntos. El envío es mejor-esfuerzo y se
// ejecuta después de la autorización; un fallo aquí nunca revierte el comprobante.
package notify

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// SMTPConfig parámetros del servidor de correo saliente.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

var _ billing.Notifier = (*Mailer)(nil)

// Mailer implementa billing.Notifier sobre SMTP usando gomail.
type Mailer struct {
	cfg  SMTPConfig
	log  *logger.Logger
	send func(m *gomail.Message) error
}

// NewMailer construye el notificador de correo.
func NewMailer(cfg SMTPConfig, log *logger.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{
		cfg:  cfg,
		log:  log.Component("mailer"),
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}
}

// SendAuthorized envía al comprador el XML autorizado y el RIDE adjuntos.
// Si el comprobante no tiene email de comprador, el envío se omite sin error.
func (ml *Mailer) SendAuthorized(ctx context.Context, d billing.AuthorizedDelivery, ride []byte) error {
	if d.BuyerEmail == "" {
		ml.log.Debug().
			Str("document_id", d.DocumentID).
			Msg("comprador sin email, se omite la notificación")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", ml.cfg.From)
	m.SetHeader("To", d.BuyerEmail)
	m.SetHeader("Subject", fmt.Sprintf("Comprobante electrónico %s autorizado", d.NumeroCompleto))
	m.SetBody("text/plain", cuerpoCorreo(d))

	if len(d.AuthorizedXML) > 0 {
		m.Attach(d.AccessKey+".xml", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(d.AuthorizedXML)
			return err
		}))
	}
	if len(ride) > 0 {
		m.Attach(d.AccessKey+".pdf", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ride)
			return err
		}))
	}

	if err := ml.send(m); err != nil {
		return fmt.Errorf("notify: enviar correo a %s: %w", d.BuyerEmail, err)
	}
	ml.log.Info().
		Str("document_id", d.DocumentID).
		Str("clave_acceso", d.AccessKey).
		Str("destinatario", d.BuyerEmail).
		Msg("comprobante autorizado notificado por correo")
	return nil
}

func cuerpoCorreo(d billing.AuthorizedDelivery) string {
	return fmt.Sprintf(
		"Estimado cliente,\n\n"+
			"Su comprobante electrónico %s ha sido autorizado por el SRI.\n"+
			"Clave de acceso: %s\n\n"+
			"Adjuntamos el XML autorizado y su representación impresa (RIDE).\n",
		d.NumeroCompleto, d.AccessKey,
	)
}
