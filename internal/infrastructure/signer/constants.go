// Constantes da assinatura digital do padrão nacional de NFS-e (Sefin Nacional).

package signer

// Namespaces e algoritmos XMLDSig fixados pelo padrão nacional.
// SHA-1/RSA-SHA1 são exigência do validador da Sefin Nacional, não uma escolha.
const (
	NamespaceNFSe = "http://www.sped.fazenda.gov.br/nfse"
	NamespaceDS   = "http://www.w3.org/2000/09/xmldsig#"

	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
