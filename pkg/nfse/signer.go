// Package nfse: portas e utilitários do padrão nacional de NFS-e.

package nfse

// Tags assináveis do padrão nacional.
const (
	TagInfDPS    = "infDPS"    // DPS (Declaração de Prestação de Serviço)
	TagInfPedReg = "infPedReg" // pedido de registro de evento (ex.: cancelamento)
)

// Signer assina a tag indicada de um XML (assinatura enveloped do padrão
// nacional) e devolve o documento com o nó Signature inserido como irmão
// imediato da tag assinada.
type Signer interface {
	SignTag(xmlBytes []byte, tag string) ([]byte, error)
}
