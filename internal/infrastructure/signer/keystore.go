// Carga de credencial a partir de .pfx/.p12 (PKCS#12) e assinatura RSA.

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
)

// KeyStore abstrai o material criptográfico usado na assinatura, isolando a
// biblioteca concreta de criptografia da montagem do bloco Signature.
type KeyStore interface {
	// SignDigest assina o digest SHA-1 com RSASSA-PKCS1-v1_5.
	SignDigest(digest []byte) ([]byte, error)
	// CertificateDER devolve o certificado folha em DER.
	CertificateDER() []byte
}

// Credential implementa KeyStore com chave RSA e certificado em memória.
// Uso concorrente somente leitura é seguro após a construção.
type Credential struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// LoadCredential extrai chave privada e certificado de um bundle PKCS#12.
// password pode ser vazio se o arquivo não estiver protegido.
// Nunca devolve credencial parcial: ou chave e certificado, ou erro.
func LoadCredential(pfxData []byte, password string) (*Credential, error) {
	if len(pfxData) == 0 {
		return nil, fmt.Errorf("%w: arquivo PKCS#12 vazio", domain.ErrInvalidCredential)
	}
	priv, cert, err := pkcs12.Decode(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}
	if priv == nil || cert == nil {
		return nil, fmt.Errorf("%w: PKCS#12 sem chave privada ou certificado", domain.ErrInvalidCredential)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: a chave privada deve ser RSA", domain.ErrInvalidCredential)
	}
	return &Credential{key: rsaKey, cert: cert}, nil
}

// NewCredential monta uma credencial a partir de chave e certificado já
// carregados (ex.: testes ou material vindo de outro provedor).
func NewCredential(key *rsa.PrivateKey, cert *x509.Certificate) (*Credential, error) {
	if key == nil || cert == nil {
		return nil, fmt.Errorf("%w: chave e certificado são obrigatórios", domain.ErrInvalidCredential)
	}
	return &Credential{key: key, cert: cert}, nil
}

// SignDigest assina o digest SHA-1 com RSASSA-PKCS1-v1_5.
func (c *Credential) SignDigest(digest []byte) ([]byte, error) {
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA1, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return sig, nil
}

// CertificateDER devolve o certificado folha em DER.
func (c *Credential) CertificateDER() []byte {
	return c.cert.Raw
}

// TLSCertificate devolve a credencial no formato esperado pelo cliente mTLS
// do Portal Nacional. Para a Sefin basta o certificado folha.
func (c *Credential) TLSCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{c.cert.Raw},
		PrivateKey:  c.key,
		Leaf:        c.cert,
	}
}
