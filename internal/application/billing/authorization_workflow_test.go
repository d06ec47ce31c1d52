package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ── Dobles de prueba ─────────────────────────────────────────────────────────

type fakeDocs struct {
	docs     map[string]entity.Comprobante
	mensajes map[string][]entity.Mensaje
	saves    int
}

func newFakeDocs(docs ...entity.Comprobante) *fakeDocs {
	f := &fakeDocs{docs: map[string]entity.Comprobante{}, mensajes: map[string][]entity.Mensaje{}}
	for _, d := range docs {
		f.docs[d.Base().ID] = d
	}
	return f
}

func (f *fakeDocs) Create(_ context.Context, doc entity.Comprobante) error {
	f.docs[doc.Base().ID] = doc
	return nil
}

func (f *fakeDocs) GetByID(_ context.Context, id string) (entity.Comprobante, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocs) GetByAccessKey(_ context.Context, clave string) (entity.Comprobante, error) {
	for _, d := range f.docs {
		if d.Base().AccessKey == clave {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDocs) Save(_ context.Context, doc entity.Comprobante, mensajes []entity.Mensaje) error {
	f.saves++
	f.docs[doc.Base().ID] = doc
	id := doc.Base().ID
	f.mensajes[id] = append(f.mensajes[id], mensajes...)
	return nil
}

func (f *fakeDocs) ListMessages(_ context.Context, id string) ([]entity.Mensaje, error) {
	return f.mensajes[id], nil
}

type fakeIssuers struct{ em *entity.Emisor }

func (f *fakeIssuers) GetByID(_ context.Context, id string) (*entity.Emisor, error) {
	if f.em == nil || f.em.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.em, nil
}

func (f *fakeIssuers) GetByRUC(_ context.Context, ruc string) (*entity.Emisor, error) {
	if f.em == nil || f.em.RUC != ruc {
		return nil, domain.ErrNotFound
	}
	return f.em, nil
}

type fakeSeqs struct{ next int64 }

func (f *fakeSeqs) Next(_ context.Context, _, _, _, _ string) (int64, error) {
	f.next++
	return f.next, nil
}

type mockBuilder struct {
	err   error
	calls int
}

func (m *mockBuilder) Build(doc entity.Comprobante, _ *entity.Emisor) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []byte(`<factura id="comprobante" version="1.1.0"/>`), nil
}

type mockSigner struct {
	err   error
	calls int
}

func (m *mockSigner) SignWithP12(xmlBytes []byte, _, _ string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`), xmlBytes...), nil
}

type mockGateway struct {
	submitRes *SubmitResult
	submitErr error
	submits   int

	queryRes *QueryResult
	queryErr error
	queries  int
}

func (m *mockGateway) Submit(_ context.Context, _ []byte) (*SubmitResult, error) {
	m.submits++
	return m.submitRes, m.submitErr
}

func (m *mockGateway) Query(_ context.Context, _ string) (*QueryResult, error) {
	m.queries++
	return m.queryRes, m.queryErr
}

type mockCollaborators struct {
	stock, ledger, notify int
	stockErr              error
}

func (m *mockCollaborators) ConsumeStock(_ context.Context, _ AuthorizedDelivery) error {
	m.stock++
	return m.stockErr
}

func (m *mockCollaborators) RecordCharge(_ context.Context, _ AuthorizedDelivery) error {
	m.ledger++
	return nil
}

func (m *mockCollaborators) SendAuthorized(_ context.Context, _ AuthorizedDelivery, _ []byte) error {
	m.notify++
	return nil
}

// ── Fixtures ─────────────────────────────────────────────────────────────────

var testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func testEmisor() *entity.Emisor {
	return &entity.Emisor{
		ID:          "em-1",
		RUC:         "1790012345001",
		RazonSocial: "COMERCIAL ANDINA S.A.",
		DirMatriz:   "Av. Amazonas N34-451",
		Ambiente:    pkgsri.EnvironmentPruebas,
		Credential:  entity.SigningCredential{Path: "/certs/firma.p12", Password: "secreto"},
	}
}

func testFactura(state string) *entity.Factura {
	return &entity.Factura{
		ElectronicDocument: entity.ElectronicDocument{
			ID:           "doc-1",
			IssuerID:     "em-1",
			DocType:      pkgsri.DocTypeFactura,
			Estab:        "001",
			PtoEmi:       "001",
			Secuencial:   1,
			EmissionDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			State:        state,
		},
		Comprador:    entity.Comprador{Identificacion: "0992765432001", RazonSocial: "CLIENTE", Email: "cli@example.com"},
		ImporteTotal: decimal.NewFromInt(115),
	}
}

type testEnv struct {
	wf      *Workflow
	docs    *fakeDocs
	gateway *mockGateway
	builder *mockBuilder
	signer  *mockSigner
	collab  *mockCollaborators
}

func newTestEnv(docs ...entity.Comprobante) *testEnv {
	env := &testEnv{
		docs:    newFakeDocs(docs...),
		gateway: &mockGateway{},
		builder: &mockBuilder{},
		signer:  &mockSigner{},
		collab:  &mockCollaborators{},
	}
	env.wf = NewWorkflow(Deps{
		Docs:      env.docs,
		Issuers:   &fakeIssuers{em: testEmisor()},
		Seqs:      &fakeSeqs{},
		Builder:   env.builder,
		Signer:    env.signer,
		Gateway:   env.gateway,
		Inventory: env.collab,
		Ledger:    env.collab,
		Notifier:  env.collab,
	})
	env.wf.now = func() time.Time { return testNow }
	return env
}

// ── Emit ─────────────────────────────────────────────────────────────────────

func TestEmit_BorradorARecibido(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.gateway.submitRes = &SubmitResult{Accepted: true}

	res, err := env.wf.Emit(context.Background(), "doc-1")
	require.NoError(t, err)
	require.False(t, res.Idempotent)

	base := res.Document.Base()
	assert.Equal(t, entity.StateReceived, base.State)
	assert.Len(t, base.AccessKey, 49)
	assert.NotEmpty(t, base.SignedXML)
	assert.Equal(t, 1, env.gateway.submits)

	msgs, _ := env.docs.ListMessages(context.Background(), "doc-1")
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1].Detail, "RECIBIDO")
}

func TestEmit_DevueltoPasaAError(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.gateway.submitRes = &SubmitResult{
		Accepted: false,
		Messages: []GatewayMessage{{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"}},
	}

	res, err := env.wf.Emit(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateError, res.Document.Base().State)

	msgs, _ := env.docs.ListMessages(context.Background(), "doc-1")
	require.Len(t, msgs, 2) // mensaje del SRI + resumen DEVUELTO
	assert.Equal(t, "35", msgs[0].RawCode)
}

func TestEmit_SobreAutorizadoEsIdempotente(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateAuthorized))

	res, err := env.wf.Emit(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Idempotent)
	assert.Zero(t, env.builder.calls)
	assert.Zero(t, env.signer.calls)
	assert.Zero(t, env.gateway.submits)
}

func TestEmit_SobreAnuladoSeRechaza(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateVoided))

	_, err := env.wf.Emit(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrComprobanteAnulado)
	assert.Zero(t, env.builder.calls, "no se construye XML")
	assert.Zero(t, env.gateway.submits, "no se llama al SRI")
}

func TestEmit_FallaDeTransporteConservaElEstado(t *testing.T) {
	f := testFactura(entity.StateError) // reintento tras un rechazo previo
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	env.gateway.submitErr = domain.NewGatewayFault("recepcion", errors.New("connection reset"))

	_, err := env.wf.Emit(context.Background(), "doc-1")
	require.True(t, domain.IsGatewayFault(err))

	// El estado previo se conserva: nunca se asume aceptación ante un timeout.
	assert.Equal(t, entity.StateError, f.State)
	msgs, _ := env.docs.ListMessages(context.Background(), "doc-1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Detail, "transporte")
}

func TestEmit_FallaDeFirmaPersisteGenerado(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.signer.err = domain.NewCertificateError("contraseña incorrecta", nil)

	_, err := env.wf.Emit(context.Background(), "doc-1")
	require.True(t, domain.IsCertificateError(err))
	assert.Zero(t, env.gateway.submits)

	doc, _ := env.docs.GetByID(context.Background(), "doc-1")
	base := doc.Base()
	assert.Equal(t, entity.StateGenerated, base.State)
	assert.Len(t, base.AccessKey, 49, "la clave generada se conserva para el reintento")
}

func TestEmit_FallaEstructuralNoPersisteNada(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.builder.err = domain.NewValidationError("fechaEmision", "es obligatoria")

	_, err := env.wf.Emit(context.Background(), "doc-1")
	require.True(t, domain.IsValidationError(err))
	assert.Zero(t, env.docs.saves)
	assert.Zero(t, env.signer.calls)
}

func TestEmit_ClaveDeAccesoEsInmutable(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.gateway.submitRes = &SubmitResult{Accepted: false}

	res, err := env.wf.Emit(context.Background(), "doc-1")
	require.NoError(t, err)
	clave := res.Document.Base().AccessKey
	require.Len(t, clave, 49)

	// Reemisión desde ERROR: la clave no se regenera.
	env.gateway.submitRes = &SubmitResult{Accepted: true}
	res, err = env.wf.Emit(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, clave, res.Document.Base().AccessKey)
	assert.Equal(t, entity.StateReceived, res.Document.Base().State)
}

func TestEmit_EstrategiaSecuencialEsDeterminista(t *testing.T) {
	run := func() string {
		env := newTestEnv(testFactura(entity.StateDraft))
		env.wf.deps.NumericCodeStrategy = NumericCodeSecuencial
		env.gateway.submitRes = &SubmitResult{Accepted: true}
		res, err := env.wf.Emit(context.Background(), "doc-1")
		require.NoError(t, err)
		return res.Document.Base().AccessKey
	}
	assert.Equal(t, run(), run())
}

// ── Authorize ────────────────────────────────────────────────────────────────

func TestAuthorize_Autorizado(t *testing.T) {
	f := testFactura(entity.StateReceived)
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	fecha := time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)
	env.gateway.queryRes = &QueryResult{
		Status:              pkgsri.AuthorizationAutorizado,
		AuthorizationNumber: f.AccessKey,
		AuthorizationDate:   &fecha,
		AuthorizedXML:       `<autorizacion>...</autorizacion>`,
	}

	res, err := env.wf.Authorize(context.Background(), "doc-1")
	require.NoError(t, err)

	base := res.Document.Base()
	assert.Equal(t, entity.StateAuthorized, base.State)
	assert.Equal(t, f.AccessKey, base.AuthorizationNumber)
	require.NotNil(t, base.AuthorizationDate)
	assert.Equal(t, fecha, *base.AuthorizationDate)
	assert.NotEmpty(t, base.AuthorizedXML)

	// Colaboradores despachados estrictamente después de AUTHORIZED.
	assert.Equal(t, 1, env.collab.stock)
	assert.Equal(t, 1, env.collab.ledger)
	assert.Equal(t, 1, env.collab.notify)
}

func TestAuthorize_EnProcesoNoTocaCamposDeAutorizacion(t *testing.T) {
	f := testFactura(entity.StateReceived)
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	env.gateway.queryRes = &QueryResult{Status: pkgsri.AuthorizationEnProceso}

	res, err := env.wf.Authorize(context.Background(), "doc-1")
	require.NoError(t, err)

	base := res.Document.Base()
	assert.Equal(t, entity.StateInProgress, base.State)
	assert.Empty(t, base.AuthorizationNumber)
	assert.Nil(t, base.AuthorizationDate)
	assert.Empty(t, base.AuthorizedXML)

	msgs, _ := env.docs.ListMessages(context.Background(), "doc-1")
	require.Len(t, msgs, 1)
	assert.Zero(t, env.collab.stock)
}

func TestAuthorize_NoAutorizado(t *testing.T) {
	f := testFactura(entity.StateInProgress)
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	env.gateway.queryRes = &QueryResult{
		Status:   pkgsri.AuthorizationNoAutorizado,
		Messages: []GatewayMessage{{Identifier: "60", Message: "CLAVE DE ACCESO EN ESTADO NO VALIDO", Type: "ERROR"}},
	}

	res, err := env.wf.Authorize(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateNotAuthorized, res.Document.Base().State)
	assert.Zero(t, env.collab.stock)
}

func TestAuthorize_SobreTerminalEsIdempotenteSinGateway(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateAuthorized))

	res, err := env.wf.Authorize(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, res.Idempotent)
	assert.Zero(t, env.gateway.queries, "el gateway no debe invocarse")
}

func TestAuthorize_EstadoInvalido(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))

	_, err := env.wf.Authorize(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrEstadoInvalido)
	assert.Zero(t, env.gateway.queries)
}

func TestAuthorize_FallaDeTransporteConservaEstado(t *testing.T) {
	f := testFactura(entity.StateReceived)
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	env.gateway.queryErr = domain.NewGatewayFault("autorizacion", errors.New("timeout"))

	_, err := env.wf.Authorize(context.Background(), "doc-1")
	require.True(t, domain.IsGatewayFault(err))
	assert.Equal(t, entity.StateReceived, f.State)
}

func TestAuthorize_FallaDeColaboradorNoRevierte(t *testing.T) {
	f := testFactura(entity.StateReceived)
	f.AccessKey = "0101202501179001234500110010010000000011234567815"
	env := newTestEnv(f)
	env.collab.stockErr = errors.New("sin stock")
	env.gateway.queryRes = &QueryResult{Status: pkgsri.AuthorizationAutorizado, AuthorizationNumber: "123"}

	res, err := env.wf.Authorize(context.Background(), "doc-1")
	require.NoError(t, err, "la falla del colaborador jamás se propaga")
	assert.Equal(t, entity.StateAuthorized, res.Document.Base().State)
	assert.Equal(t, 1, env.collab.ledger, "los demás colaboradores sí corren")
}

// ── Resend ───────────────────────────────────────────────────────────────────

func TestResend_EmiteYAutoriza(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.gateway.submitRes = &SubmitResult{Accepted: true}
	env.gateway.queryRes = &QueryResult{Status: pkgsri.AuthorizationAutorizado, AuthorizationNumber: "123"}

	res, err := env.wf.Resend(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateAuthorized, res.Document.Base().State)
	assert.Equal(t, 1, env.gateway.submits)
	assert.Equal(t, 1, env.gateway.queries)
}

func TestResend_SiEmitFallaNoConsulta(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateDraft))
	env.gateway.submitErr = domain.NewGatewayFault("recepcion", errors.New("down"))

	_, err := env.wf.Resend(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Zero(t, env.gateway.queries)
}

func TestResend_SobreAnuladoSeRechaza(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateVoided))

	_, err := env.wf.Resend(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrComprobanteAnulado)
}

// ── Void ─────────────────────────────────────────────────────────────────────

func testNotaCreditoAutorizada() *entity.NotaCredito {
	return &entity.NotaCredito{
		ElectronicDocument: entity.ElectronicDocument{
			ID:         "nc-1",
			IssuerID:   "em-1",
			DocType:    pkgsri.DocTypeNotaCredito,
			Estab:      "001",
			PtoEmi:     "001",
			Secuencial: 9,
			State:      entity.StateAuthorized,
		},
		NumDocModificado:  "001-001-000000001",
		ValorModificacion: decimal.NewFromInt(115),
	}
}

func TestVoid_DesdeAutorizadoConNotaDeCredito(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateAuthorized), testNotaCreditoAutorizada())

	res, err := env.wf.Void(context.Background(), "doc-1", "usuario-7", "error de digitación", "nc-1")
	require.NoError(t, err)

	base := res.Document.Base()
	assert.Equal(t, entity.StateVoided, base.State)
	require.NotNil(t, base.VoidAt)
	assert.Equal(t, testNow, *base.VoidAt)
	assert.Equal(t, "usuario-7", base.VoidBy)
	assert.Equal(t, "error de digitación", base.VoidReason)
}

func TestVoid_RepetidoEsIdempotente(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateAuthorized), testNotaCreditoAutorizada())

	_, err := env.wf.Void(context.Background(), "doc-1", "u", "motivo", "nc-1")
	require.NoError(t, err)

	res, err := env.wf.Void(context.Background(), "doc-1", "otro", "otro motivo", "nc-1")
	require.NoError(t, err)
	assert.True(t, res.Idempotent)
	// void_by/void_reason se fijan exactamente una vez.
	assert.Equal(t, "u", res.Document.Base().VoidBy)
}

func TestVoid_FueraDelPlazoDe90Dias(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateAuthorized), testNotaCreditoAutorizada())
	env.wf.now = func() time.Time { return testNow.AddDate(0, 0, 120) }

	_, err := env.wf.Void(context.Background(), "doc-1", "u", "motivo", "nc-1")
	assert.ErrorIs(t, err, domain.ErrPlazoAnulacion)
}

func TestVoid_NotaDeCreditoSinAutorizar(t *testing.T) {
	nc := testNotaCreditoAutorizada()
	nc.State = entity.StateReceived
	env := newTestEnv(testFactura(entity.StateAuthorized), nc)

	_, err := env.wf.Void(context.Background(), "doc-1", "u", "motivo", "nc-1")
	assert.ErrorIs(t, err, domain.ErrSustentoNoAutorizado)
}

func TestVoid_NotaDeCreditoDeOtroComprobante(t *testing.T) {
	nc := testNotaCreditoAutorizada()
	nc.NumDocModificado = "001-001-000000999"
	env := newTestEnv(testFactura(entity.StateAuthorized), nc)

	_, err := env.wf.Void(context.Background(), "doc-1", "u", "motivo", "nc-1")
	assert.True(t, domain.IsValidationError(err))
}

func TestVoid_SoloDesdeAutorizado(t *testing.T) {
	env := newTestEnv(testFactura(entity.StateReceived), testNotaCreditoAutorizada())

	_, err := env.wf.Void(context.Background(), "doc-1", "u", "motivo", "nc-1")
	assert.ErrorIs(t, err, domain.ErrEstadoInvalido)
}

// ── CreateDraft ──────────────────────────────────────────────────────────────

func TestCreateDraft_AsignaSecuencialYEstado(t *testing.T) {
	env := newTestEnv()
	f := testFactura("")
	f.ID = ""
	f.Secuencial = 0

	res, err := env.wf.CreateDraft(context.Background(), f)
	require.NoError(t, err)

	base := res.Document.Base()
	assert.Equal(t, entity.StateDraft, base.State)
	assert.NotEmpty(t, base.ID)
	assert.Equal(t, int64(1), base.Secuencial)
	assert.Empty(t, base.AccessKey, "la clave se genera recién al emitir")
}
