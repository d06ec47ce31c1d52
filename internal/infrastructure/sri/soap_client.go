package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ── Constantes de los web services SRI (esquema offline) ─────────────────────

const (
	receptionURLPruebas    = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	receptionURLProduccion = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"

	authorizationURLPruebas    = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	authorizationURLProduccion = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapEnvNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion       = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion    = "http://ec.gob.sri.ws.autorizacion"
	maxResponseBytes  = 8 << 20 // las respuestas de autorización incluyen el XML completo del comprobante
)

// SOAPClientConfig configuración del cliente. Las URLs vacías se resuelven a
// los endpoints oficiales según el ambiente.
type SOAPClientConfig struct {
	Environment      string // "1" pruebas, "2" producción
	ReceptionURL     string
	AuthorizationURL string
	Timeout          time.Duration
	MaxRetries       int
}

// SOAPClient implementa billing.AuthorityGateway contra los WS SOAP del SRI.
// Usa net/http de la stdlib; el contrato SOAP del SRI es lo bastante pequeño
// para no justificar una librería SOAP.
type SOAPClient struct {
	cfg        SOAPClientConfig
	httpClient *http.Client
	log        *logger.Logger
}

// NewSOAPClient construye el cliente. El WS del SRI puede tardar varios
// segundos en responder; el timeout por defecto es 30 s.
func NewSOAPClient(cfg SOAPClientConfig, log *logger.Logger) *SOAPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ReceptionURL == "" {
		cfg.ReceptionURL = receptionURLPruebas
		if cfg.Environment == pkgsri.EnvironmentProduccion {
			cfg.ReceptionURL = receptionURLProduccion
		}
	}
	if cfg.AuthorizationURL == "" {
		cfg.AuthorizationURL = authorizationURLPruebas
		if cfg.Environment == pkgsri.EnvironmentProduccion {
			cfg.AuthorizationURL = authorizationURLProduccion
		}
	}
	return &SOAPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Component("sri_soap"),
	}
}

// ── Estructuras SOAP de petición ─────────────────────────────────────────────

type soapEnvelope struct {
	XMLName  xml.Name    `xml:"soapenv:Envelope"`
	XmlnsEnv string      `xml:"xmlns:soapenv,attr"`
	XmlnsEC  string      `xml:"xmlns:ec,attr"`
	Body     soapReqBody `xml:"soapenv:Body"`
}

type soapReqBody struct {
	Content interface{}
}

func (b soapReqBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "soapenv:Body"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante firmado en Base64
}

type autorizacionComprobanteBody struct {
	XMLName     xml.Name `xml:"ec:autorizacionComprobante"`
	ClaveAcceso string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras SOAP de respuesta ────────────────────────────────────────────

type soapRespEnvelope struct {
	Body soapRespBody `xml:"Body"`
}

type soapRespBody struct {
	Recepcion    *validarComprobanteResponse    `xml:"validarComprobanteResponse"`
	Autorizacion *autorizacionComprobanteResponse `xml:"autorizacionComprobanteResponse"`
	Fault        *soapFault                     `xml:"Fault"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type validarComprobanteResponse struct {
	Respuesta respuestaRecepcion `xml:"RespuestaRecepcionComprobante"`
}

type respuestaRecepcion struct {
	Estado       string              `xml:"estado"`
	Comprobantes []comprobanteMsgSet `xml:"comprobantes>comprobante"`
}

type comprobanteMsgSet struct {
	ClaveAcceso string        `xml:"claveAcceso"`
	Mensajes    []mensajeSRI  `xml:"mensajes>mensaje"`
}

type mensajeSRI struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type autorizacionComprobanteResponse struct {
	Respuesta respuestaAutorizacion `xml:"RespuestaAutorizacionComprobante"`
}

type respuestaAutorizacion struct {
	ClaveAccesoConsultada string            `xml:"claveAccesoConsultada"`
	NumeroComprobantes    string            `xml:"numeroComprobantes"`
	Autorizaciones        []autorizacionSRI `xml:"autorizaciones>autorizacion"`
}

type autorizacionSRI struct {
	Estado             string       `xml:"estado"`
	NumeroAutorizacion string       `xml:"numeroAutorizacion"`
	FechaAutorizacion  string       `xml:"fechaAutorizacion"`
	Ambiente           string       `xml:"ambiente"`
	Comprobante        string       `xml:"comprobante"`
	Mensajes           []mensajeSRI `xml:"mensajes>mensaje"`
}

// ── Operaciones ──────────────────────────────────────────────────────────────

// Submit entrega el comprobante firmado al WS de recepción (validarComprobante).
func (c *SOAPClient) Submit(ctx context.Context, signedXML []byte) (*billing.SubmitResult, error) {
	if len(signedXML) == 0 {
		return nil, domain.NewValidationError("signedXML", "comprobante firmado vacío")
	}
	body := &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signedXML)}
	raw, err := c.call(ctx, c.cfg.ReceptionURL, nsRecepcion, body)
	if err != nil {
		return nil, domain.NewGatewayFault("recepcion", err)
	}

	var env soapRespEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, domain.NewGatewayFault("recepcion", fmt.Errorf("respuesta SOAP mal formada: %w", err))
	}
	if env.Body.Fault != nil {
		return nil, domain.NewGatewayFault("recepcion",
			fmt.Errorf("SOAP Fault [%s]: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString))
	}
	if env.Body.Recepcion == nil {
		return nil, domain.NewGatewayFault("recepcion", fmt.Errorf("respuesta SOAP vacía o inesperada"))
	}

	resp := env.Body.Recepcion.Respuesta
	result := &billing.SubmitResult{Accepted: resp.Estado == pkgsri.ReceptionRecibida}
	for _, comp := range resp.Comprobantes {
		for _, m := range comp.Mensajes {
			result.Messages = append(result.Messages, toGatewayMessage(m))
		}
	}
	c.log.Info().Str("estado", resp.Estado).Int("mensajes", len(result.Messages)).Msg("respuesta de recepción SRI")
	return result, nil
}

// Query consulta el estado de autorización por clave de acceso
// (autorizacionComprobante).
func (c *SOAPClient) Query(ctx context.Context, accessKey string) (*billing.QueryResult, error) {
	if accessKey == "" {
		return nil, domain.NewValidationError("claveAcceso", "es obligatoria para consultar autorización")
	}
	body := &autorizacionComprobanteBody{ClaveAcceso: accessKey}
	raw, err := c.call(ctx, c.cfg.AuthorizationURL, nsAutorizacion, body)
	if err != nil {
		return nil, domain.NewGatewayFault("autorizacion", err)
	}

	var env soapRespEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, domain.NewGatewayFault("autorizacion", fmt.Errorf("respuesta SOAP mal formada: %w", err))
	}
	if env.Body.Fault != nil {
		return nil, domain.NewGatewayFault("autorizacion",
			fmt.Errorf("SOAP Fault [%s]: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString))
	}
	if env.Body.Autorizacion == nil {
		return nil, domain.NewGatewayFault("autorizacion", fmt.Errorf("respuesta SOAP vacía o inesperada"))
	}

	resp := env.Body.Autorizacion.Respuesta
	if len(resp.Autorizaciones) == 0 {
		// El SRI responde sin autorizaciones mientras el comprobante sigue en cola.
		return &billing.QueryResult{
			Status: pkgsri.AuthorizationEnProceso,
			Messages: []billing.GatewayMessage{{
				Type:    "INFO",
				Message: "el SRI aún no registra autorizaciones para la clave consultada",
			}},
		}, nil
	}

	aut := resp.Autorizaciones[0]
	result := &billing.QueryResult{
		Status:              aut.Estado,
		AuthorizationNumber: aut.NumeroAutorizacion,
		AuthorizedXML:       aut.Comprobante,
	}
	if aut.FechaAutorizacion != "" {
		if ts, err := time.Parse(time.RFC3339, aut.FechaAutorizacion); err == nil {
			result.AuthorizationDate = &ts
		}
	}
	for _, m := range aut.Mensajes {
		result.Messages = append(result.Messages, toGatewayMessage(m))
	}
	c.log.Info().Str("estado", aut.Estado).Str("clave_acceso", accessKey).Msg("respuesta de autorización SRI")
	return result, nil
}

func toGatewayMessage(m mensajeSRI) billing.GatewayMessage {
	return billing.GatewayMessage{
		Identifier:     m.Identificador,
		Message:        m.Mensaje,
		AdditionalInfo: m.InformacionAdicional,
		Type:           m.Tipo,
	}
}

// call serializa el envelope, hace el POST y aplica reintentos con backoff
// exponencial solo ante errores de transporte. Una respuesta HTTP, aunque sea
// de error de aplicación, no se reintenta aquí.
func (c *SOAPClient) call(ctx context.Context, url, ns string, content interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsEnv: soapEnvNS,
		XmlnsEC:  ns,
		Body:     soapReqBody{Content: content},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("serializar envelope: %w", err)
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("crear request: %w", err)
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", "")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("cancelado: %w", ctx.Err())
			}
			lastErr = err
			c.log.Warn().Err(err).Int("intento", attempt).Str("url", url).Msg("error de transporte contra el SRI")
			if attempt < c.cfg.MaxRetries {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
			}
			continue
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("leer respuesta: %w", err)
			continue
		}
		// Un 500 trae el SOAP Fault en el cuerpo; se parsea como respuesta.
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
			return nil, fmt.Errorf("HTTP %d del WS SRI: %s", resp.StatusCode, truncate(raw, 512))
		}
		return raw, nil
	}
	return nil, fmt.Errorf("transporte agotado tras %d intentos: %w", c.cfg.MaxRetries, lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ billing.AuthorityGateway = (*SOAPClient)(nil)
