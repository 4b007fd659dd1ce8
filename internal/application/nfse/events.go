// Montagem do pedido de registro de evento de cancelamento (e101101).

package nfse

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
	pkgnfse "github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

const (
	namespaceNFSe = "http://www.sped.fazenda.gov.br/nfse"
	versaoLeiaute = "1.00"

	// Código do evento de cancelamento no leiaute nacional.
	eventoCancelamento = "101101"
)

// CancelRequest dados do cancelamento de uma NFS-e.
type CancelRequest struct {
	ChaveAcesso   string // chave de acesso da NFS-e a cancelar (50 dígitos)
	CNPJAutor     string // CNPJ do autor do evento (emitente)
	Justificativa string // motivo informado pelo emitente
	Ambiente      string // "1" produção, "2" homologação
	Sequencial    int    // nPedRegEvento; 1 para o primeiro pedido
}

// BuildCancelEvent monta o XML <pedRegEvento> com <infPedReg> pronto para ser
// assinado (tag infPedReg) e enviado a /nfse/{chave}/eventos. O atributo Id
// segue o formato PRE + chave + código do evento + sequencial (3 dígitos).
func BuildCancelEvent(req CancelRequest, now time.Time) ([]byte, error) {
	chave := pkgnfse.SanitizeDocument(req.ChaveAcesso)
	if chave == "" {
		return nil, fmt.Errorf("%w: chave de acesso vazia", domain.ErrMalformedXML)
	}
	if req.Justificativa == "" {
		return nil, fmt.Errorf("%w: justificativa do cancelamento vazia", domain.ErrMalformedXML)
	}
	seq := req.Sequencial
	if seq <= 0 {
		seq = 1
	}
	amb := req.Ambiente
	if amb == "" {
		amb = "2"
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ped := doc.CreateElement("pedRegEvento")
	ped.CreateAttr("xmlns", namespaceNFSe)
	ped.CreateAttr("versao", versaoLeiaute)

	inf := ped.CreateElement("infPedReg")
	inf.CreateAttr("Id", fmt.Sprintf("PRE%s%s%03d", chave, eventoCancelamento, seq))
	inf.CreateElement("tpAmb").SetText(amb)
	inf.CreateElement("verAplic").SetText("nfse-nacional-go")
	inf.CreateElement("dhEvento").SetText(now.Format(time.RFC3339))
	inf.CreateElement("CNPJAutor").SetText(pkgnfse.SanitizeDocument(req.CNPJAutor))
	inf.CreateElement("chNFSe").SetText(chave)
	inf.CreateElement("nPedRegEvento").SetText(fmt.Sprintf("%d", seq))

	ev := inf.CreateElement("e101101")
	ev.CreateElement("xDesc").SetText("Cancelamento de NFS-e")
	ev.CreateElement("cMotivo").SetText("1")
	ev.CreateElement("xMotivo").SetText(req.Justificativa)

	return doc.WriteToBytes()
}
