// Constantes para firma XAdES-BES (Ficha Técnica SRI, esquema offline).

package signer

// Namespaces y algoritmos XMLDSig / XAdES. El SRI exige RSA/SHA-1 y C14N
// inclusiva en todo el bloque de firma.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"

	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	TypeSignedProperties = "http://uri.etsi.org/01903#SignedProperties"
)

// RootElementID valor por defecto del atributo id del elemento raíz al que
// apunta la Reference envuelta.
const RootElementID = "comprobante"
