// Servicio de firma digital XAdES-BES para comprobantes electrónicos SRI.
// Inyecta <ds:Signature> como firma envuelta (enveloped) dentro del elemento raíz.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// Service firma comprobantes con perfil XAdES-BES: RSA/SHA-1, C14N inclusiva,
// exactamente dos referencias (documento completo y SignedProperties).
type Service struct {
	now func() time.Time
}

// NewService crea el servicio de firma.
func NewService() *Service {
	return &Service{now: time.Now}
}

// SignWithP12 carga la credencial desde el contenedor y firma. La llave se lee
// del .p12 en cada intento; nunca se retiene entre llamadas.
func (s *Service) SignWithP12(xmlBytes []byte, path, password string) ([]byte, error) {
	cred, err := LoadFromP12(path, password)
	if err != nil {
		return nil, err
	}
	return s.Sign(xmlBytes, cred)
}

// Sign envuelve el XML del comprobante en una firma XAdES-BES. El digest de
// SignedProperties se calcula en dos pasadas: se serializa el árbol de trabajo,
// se re-parsea y se canoniza el nodo dentro del documento re-parseado, porque
// las declaraciones de namespace solo quedan fijas con el contexto final de
// ancestros. Canonizar el nodo en memoria produce un digest distinto que el
// SRI rechaza como firma inválida.
func (s *Service) Sign(xmlBytes []byte, cred *Credential) ([]byte, error) {
	if cred == nil || cred.PrivateKey == nil || cred.Leaf == nil {
		return nil, domain.NewCertificateError("credencial incompleta", nil)
	}
	if !cred.Vigente(s.now()) {
		return nil, domain.NewCertificateError("certificado expirado o aún no vigente", nil)
	}
	if len(xmlBytes) == 0 {
		return nil, domain.NewValidationError("xml", "documento vacío")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, domain.NewValidationError("xml", "documento mal formado: "+err.Error())
	}
	root := doc.Root()
	if root == nil {
		return nil, domain.NewValidationError("xml", "documento sin elemento raíz")
	}
	rootID := root.SelectAttrValue("id", "")
	if rootID == "" {
		rootID = RootElementID
		root.CreateAttr("id", rootID)
	}

	// Digest del documento completo, canonizado antes de adjuntar la firma
	// (semántica de la transformada enveloped-signature).
	docC14N, err := canonicalSubtree(root)
	if err != nil {
		return nil, fmt.Errorf("canonizar documento: %w", err)
	}
	docDigest := sha1.Sum(docC14N)

	ids := newSignatureIDs()

	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("xmlns:etsi", NamespaceXAdES)
	sig.CreateAttr("Id", ids.signature)

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateAttr("Id", ids.signature+"-SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA1)

	// Primera referencia: documento completo, transformada enveloped.
	refDoc := signedInfo.CreateElement("ds:Reference")
	refDoc.CreateAttr("Id", ids.refDoc)
	refDoc.CreateAttr("URI", "#"+rootID)
	refDoc.CreateElement("ds:Transforms").
		CreateElement("ds:Transform").CreateAttr("Algorithm", TransformEnveloped)
	refDoc.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA1)
	refDoc.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(docDigest[:]))

	// Segunda referencia: SignedProperties. El digest se completa tras la
	// segunda pasada.
	refProps := signedInfo.CreateElement("ds:Reference")
	refProps.CreateAttr("Type", TypeSignedProperties)
	refProps.CreateAttr("URI", "#"+ids.signedProps)
	refProps.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA1)
	propsDigestEl := refProps.CreateElement("ds:DigestValue")

	sigValueEl := sig.CreateElement("ds:SignatureValue")
	sigValueEl.CreateAttr("Id", ids.sigValue)

	keyInfo := sig.CreateElement("ds:KeyInfo")
	keyInfo.CreateAttr("Id", ids.certificate)
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(cred.Leaf.Raw))
	for _, inter := range cred.Chain {
		x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(inter.Raw))
	}

	obj := sig.CreateElement("ds:Object")
	obj.CreateAttr("Id", ids.signature+"-Object")
	qp := obj.CreateElement("etsi:QualifyingProperties")
	qp.CreateAttr("Target", "#"+ids.signature)
	props := qp.CreateElement("etsi:SignedProperties")
	props.CreateAttr("Id", ids.signedProps)
	ssp := props.CreateElement("etsi:SignedSignatureProperties")
	ssp.CreateElement("etsi:SigningTime").SetText(s.now().Format(time.RFC3339))
	certDigest := sha1.Sum(cred.Leaf.Raw)
	cd := ssp.CreateElement("etsi:SigningCertificate").CreateElement("etsi:Cert")
	dig := cd.CreateElement("etsi:CertDigest")
	dig.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA1)
	dig.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(certDigest[:]))
	issuerSerial := cd.CreateElement("etsi:IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(cred.Leaf.Issuer.String())
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(cred.Leaf.SerialNumber.String())

	root.AddChild(sig)

	// Segunda pasada: serializar, re-parsear y canonizar SignedProperties en el
	// contexto del documento final.
	serialized, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar árbol de trabajo: %w", err)
	}
	reparsed := etree.NewDocument()
	if err := reparsed.ReadFromBytes(serialized); err != nil {
		return nil, fmt.Errorf("re-parsear árbol de trabajo: %w", err)
	}
	propsNode := reparsed.FindElement("//*[@Id='" + ids.signedProps + "']")
	if propsNode == nil {
		return nil, fmt.Errorf("no se encontró SignedProperties en el documento re-parseado")
	}
	propsC14N, err := canonicalSubtree(propsNode)
	if err != nil {
		return nil, fmt.Errorf("canonizar SignedProperties: %w", err)
	}
	propsDigest := sha1.Sum(propsC14N)
	propsDigestEl.SetText(base64.StdEncoding.EncodeToString(propsDigest[:]))

	// Con las dos referencias completas, canonizar SignedInfo y firmar.
	signedInfoC14N, err := canonicalSubtree(signedInfo)
	if err != nil {
		return nil, fmt.Errorf("canonizar SignedInfo: %w", err)
	}
	signedInfoDigest := sha1.Sum(signedInfoC14N)
	signature, err := rsa.SignPKCS1v15(rand.Reader, cred.PrivateKey, crypto.SHA1, signedInfoDigest[:])
	if err != nil {
		return nil, domain.NewCertificateError("firmar SignedInfo", err)
	}
	sigValueEl.SetText(base64.StdEncoding.EncodeToString(signature))

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar documento firmado: %w", err)
	}
	if !bytes.HasPrefix(out, []byte("<?xml")) {
		out = append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"), out...)
	}
	return out, nil
}

// canonicalSubtree canoniza (C14N inclusiva) un elemento como documento
// independiente, copiando las declaraciones xmlns heredadas de sus ancestros
// para que los prefijos en uso queden declarados.
func canonicalSubtree(el *etree.Element) ([]byte, error) {
	cp := el.Copy()

	declared := map[string]bool{}
	for _, a := range cp.Attr {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if isNamespaceDecl(a) && !declared[a.FullKey()] {
				cp.CreateAttr(a.FullKey(), a.Value)
				declared[a.FullKey()] = true
			}
		}
	}

	tmp := etree.NewDocument()
	tmp.SetRoot(cp)
	raw, err := tmp.WriteToBytes()
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// signatureIDs identificadores de los nodos de la firma. El SRI no exige
// valores concretos, solo consistencia interna entre URI e Id.
type signatureIDs struct {
	signature   string
	signedProps string
	sigValue    string
	certificate string
	refDoc      string
}

func newSignatureIDs() signatureIDs {
	n := mathrand.Intn(999000) + 1000
	return signatureIDs{
		signature:   fmt.Sprintf("Signature%d", n),
		signedProps: fmt.Sprintf("Signature%d-SignedProperties%d", n, n+1),
		sigValue:    fmt.Sprintf("SignatureValue%d", n+2),
		certificate: fmt.Sprintf("Certificate%d", n+3),
		refDoc:      fmt.Sprintf("Reference-ID-%d", n+4),
	}
}
