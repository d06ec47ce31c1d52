// Carga de credenciales de firma desde contenedores .p12 (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// Credential certificado de firma ya decodificado: llave privada RSA, certificado
// hoja y cadena intermedia (en orden). Nunca se persiste; se carga del .p12 en
// cada intento de firma.
type Credential struct {
	PrivateKey *rsa.PrivateKey
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate
}

// Vigente indica si el certificado hoja está dentro de su ventana de validez.
func (c *Credential) Vigente(now time.Time) bool {
	if c.Leaf == nil {
		return false
	}
	return !now.Before(c.Leaf.NotBefore) && !now.After(c.Leaf.NotAfter)
}

// LoadFromP12 carga la credencial desde un archivo .p12/.pfx. Los contenedores
// emitidos por las entidades certificadoras ecuatorianas suelen incluir la cadena
// completa; el certificado hoja se identifica por su llave pública, no por posición.
// Cualquier falla de lectura, contraseña o decodificación es un CertificateError.
func LoadFromP12(path, password string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewCertificateError("leer contenedor p12", err)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, domain.NewCertificateError("decodificar p12 (¿contraseña incorrecta?)", err)
	}

	var priv *rsa.PrivateKey
	var certs []*x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY":
			key, err := parsePrivateKey(b.Bytes)
			if err != nil {
				return nil, domain.NewCertificateError("parsear llave privada", err)
			}
			priv = key
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, domain.NewCertificateError("parsear certificado", err)
			}
			certs = append(certs, cert)
		}
	}

	if priv == nil {
		return nil, domain.NewCertificateError("el contenedor no incluye llave privada RSA", nil)
	}
	if len(certs) == 0 {
		return nil, domain.NewCertificateError("el contenedor no incluye certificados", nil)
	}

	cred := &Credential{PrivateKey: priv}
	for _, cert := range certs {
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok && pub.N.Cmp(priv.N) == 0 && pub.E == priv.E {
			cred.Leaf = cert
			continue
		}
		cred.Chain = append(cred.Chain, cert)
	}
	if cred.Leaf == nil {
		return nil, domain.NewCertificateError("ningún certificado del contenedor corresponde a la llave privada", nil)
	}
	return cred, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave privada no es RSA (%T)", key)
	}
	return rsaKey, nil
}
