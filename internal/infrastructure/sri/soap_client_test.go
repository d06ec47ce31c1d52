package sri

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

const recepcionRecibida = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>RECIBIDA</estado>
        <comprobantes/>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const recepcionDevuelta = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>DEVUELTA</estado>
        <comprobantes>
          <comprobante>
            <claveAcceso>0101202501179001234500110010010000000010000000112</claveAcceso>
            <mensajes>
              <mensaje>
                <identificador>35</identificador>
                <mensaje>ARCHIVO NO CUMPLE ESTRUCTURA XML</mensaje>
                <informacionAdicional>detalle interno</informacionAdicional>
                <tipo>ERROR</tipo>
              </mensaje>
            </mensajes>
          </comprobante>
        </comprobantes>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const autorizacionAutorizado = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>0101202501179001234500110010010000000010000000112</claveAccesoConsultada>
        <numeroComprobantes>1</numeroComprobantes>
        <autorizaciones>
          <autorizacion>
            <estado>AUTORIZADO</estado>
            <numeroAutorizacion>0101202501179001234500110010010000000010000000112</numeroAutorizacion>
            <fechaAutorizacion>2025-01-01T12:30:45-05:00</fechaAutorizacion>
            <ambiente>PRUEBAS</ambiente>
            <comprobante>&lt;factura id="comprobante"&gt;...&lt;/factura&gt;</comprobante>
            <mensajes/>
          </autorizacion>
        </autorizaciones>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const autorizacionEnCola = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>0101202501179001234500110010010000000010000000112</claveAccesoConsultada>
        <numeroComprobantes>0</numeroComprobantes>
        <autorizaciones/>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *SOAPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSOAPClient(SOAPClientConfig{
		Environment:      pkgsri.EnvironmentPruebas,
		ReceptionURL:     srv.URL,
		AuthorizationURL: srv.URL,
		Timeout:          5 * time.Second,
		MaxRetries:       3,
	}, logger.Nop())
}

func TestSubmit_Recibida(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(recepcionRecibida))
	})

	res, err := client.Submit(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Messages)

	// El comprobante viaja en Base64 dentro de validarComprobante.
	assert.Contains(t, gotBody, "validarComprobante")
	assert.Contains(t, gotBody, base64.StdEncoding.EncodeToString([]byte("<factura/>")))
}

func TestSubmit_Devuelta(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recepcionDevuelta))
	})

	res, err := client.Submit(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "35", res.Messages[0].Identifier)
	assert.Equal(t, "ERROR", res.Messages[0].Type)
	assert.Contains(t, res.Messages[0].Detail(), "ARCHIVO NO CUMPLE ESTRUCTURA XML")
}

func TestSubmit_ReintentaAnteErrorDeTransporte(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			// Cerrar la conexión sin responder simula un corte de red.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(recepcionRecibida))
	}))
	t.Cleanup(srv.Close)

	client := NewSOAPClient(SOAPClientConfig{
		ReceptionURL:     srv.URL,
		AuthorizationURL: srv.URL,
		Timeout:          5 * time.Second,
		MaxRetries:       3,
	}, logger.Nop())

	res, err := client.Submit(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 3, calls)
}

func TestSubmit_TransporteAgotadoEsGatewayFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	client := NewSOAPClient(SOAPClientConfig{
		ReceptionURL: srv.URL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
	}, logger.Nop())

	_, err := client.Submit(context.Background(), []byte("<factura/>"))
	assert.True(t, domain.IsGatewayFault(err))
}

func TestSubmit_RespuestaMalFormadaEsGatewayFault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("esto no es XML <"))
	})

	_, err := client.Submit(context.Background(), []byte("<factura/>"))
	assert.True(t, domain.IsGatewayFault(err))
}

func TestQuery_Autorizado(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(autorizacionAutorizado))
	})

	clave := "0101202501179001234500110010010000000010000000112"
	res, err := client.Query(context.Background(), clave)
	require.NoError(t, err)

	assert.Equal(t, pkgsri.AuthorizationAutorizado, res.Status)
	assert.Equal(t, clave, res.AuthorizationNumber)
	require.NotNil(t, res.AuthorizationDate)
	assert.Equal(t, 2025, res.AuthorizationDate.Year())
	assert.Contains(t, res.AuthorizedXML, "<factura")

	assert.Contains(t, gotBody, "autorizacionComprobante")
	assert.Contains(t, gotBody, "<claveAccesoComprobante>"+clave+"</claveAccesoComprobante>")
}

func TestQuery_SinAutorizacionesEsEnProceso(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(autorizacionEnCola))
	})

	res, err := client.Query(context.Background(), "0101202501179001234500110010010000000010000000112")
	require.NoError(t, err)
	assert.Equal(t, pkgsri.AuthorizationEnProceso, res.Status)
	assert.Empty(t, res.AuthorizationNumber)
	require.Len(t, res.Messages, 1)
}

func TestQuery_SOAPFaultEsGatewayFault(t *testing.T) {
	const fault = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Internal Error</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(fault))
	})

	_, err := client.Query(context.Background(), "0101202501179001234500110010010000000010000000112")
	require.True(t, domain.IsGatewayFault(err))
	assert.True(t, strings.Contains(err.Error(), "Internal Error"))
}

func TestNewSOAPClient_ResuelveURLsPorAmbiente(t *testing.T) {
	prod := NewSOAPClient(SOAPClientConfig{Environment: pkgsri.EnvironmentProduccion}, logger.Nop())
	assert.Equal(t, receptionURLProduccion, prod.cfg.ReceptionURL)
	assert.Equal(t, authorizationURLProduccion, prod.cfg.AuthorizationURL)

	pruebas := NewSOAPClient(SOAPClientConfig{Environment: pkgsri.EnvironmentPruebas}, logger.Nop())
	assert.Equal(t, receptionURLPruebas, pruebas.cfg.ReceptionURL)
	assert.Equal(t, authorizationURLPruebas, pruebas.cfg.AuthorizationURL)
}
