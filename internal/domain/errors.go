package domain

import "errors"

// Erros de domínio (sem dependências externas).
//
// Todos são terminais: a assinatura e o envio nunca produzem saída parcial.
// As mensagens não devem carregar senha nem material de chave.
var (
	ErrInvalidCredential  = errors.New("credencial inválida: PKCS#12 ilegível, senha incorreta ou sem chave/certificado")
	ErrElementNotFound    = errors.New("elemento a assinar não encontrado")
	ErrMissingSignatureID = errors.New("atributo Id ausente ou vazio no elemento a assinar")
	ErrMalformedXML       = errors.New("XML malformado")
	ErrSigningFailed      = errors.New("falha na operação criptográfica de assinatura")
)
