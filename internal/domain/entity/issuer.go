package entity

import (
	"time"

	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// SigningCredential referencia al contenedor de firma del emisor (PKCS#12) más su
// contraseña. La llave privada se carga del contenedor en cada intento de firma;
// nunca se persiste descifrada. NotBefore/NotAfter replican la vigencia del
// certificado para validar sin abrir el contenedor.
type SigningCredential struct {
	Path      string // ruta al .p12/.pfx
	Password  string
	NotBefore time.Time
	NotAfter  time.Time
}

// Vigente indica si la credencial está dentro de su ventana de validez.
// Si la ventana no fue replicada en DB (ceros), se delega la verificación al signer.
func (c SigningCredential) Vigente(now time.Time) bool {
	if c.NotBefore.IsZero() && c.NotAfter.IsZero() {
		return true
	}
	return !now.Before(c.NotBefore) && !now.After(c.NotAfter)
}

// Emisor empresa que emite comprobantes electrónicos.
type Emisor struct {
	ID                    string
	RUC                   string // 13 dígitos
	RazonSocial           string
	NombreComercial       string
	DirMatriz             string
	DirEstablecimiento    string
	ContribuyenteEspecial string // número de resolución, vacío si no aplica
	ObligadoContabilidad  bool

	// Ambiente "1" = pruebas, "2" = producción. AmbienteForzado, si no es vacío,
	// tiene prioridad (permite emitir a pruebas desde un despliegue de producción).
	Ambiente        string
	AmbienteForzado string

	Credential SigningCredential

	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AmbienteEfectivo devuelve el ambiente a usar, aplicando el override si existe.
func (e *Emisor) AmbienteEfectivo() string {
	if e.AmbienteForzado != "" {
		return e.AmbienteForzado
	}
	if e.Ambiente == "" {
		return sri.EnvironmentPruebas
	}
	return e.Ambiente
}
