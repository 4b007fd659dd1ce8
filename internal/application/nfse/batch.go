// Caso de uso de lote: assinatura, empacotamento e envio de DPS e de eventos
// de cancelamento ao Portal Nacional.
//
// Ciclo por item: assinar (infDPS/infPedReg) → GZIP+Base64 → envio REST.
// Cada item do lote é processado de forma independente; falhas não
// interrompem os demais.

package nfse

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/besoft-tech/nfse-nacional/internal/domain"
	"github.com/besoft-tech/nfse-nacional/internal/infrastructure/sefin"
	"github.com/besoft-tech/nfse-nacional/pkg/logger"
	pkgnfse "github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

// dpsItem DPS aguardando envio.
type dpsItem struct {
	id  string
	xml []byte
}

// cancelItem evento de cancelamento aguardando envio.
type cancelItem struct {
	id          string
	chaveAcesso string
	xml         []byte
}

// DPSOutcome resultado do envio de uma DPS do lote.
type DPSOutcome struct {
	ItemID      string
	ChaveAcesso string
	IDDps       string
	NFSeXML     []byte // XML da NFS-e gerada pelo portal
	DANFSePDF   []byte // PDF oficial, quando já disponível
	Err         error  // falha local (assinatura/empacotamento/transporte)
	Rejection   string // erros devolvidos pelo portal, vazio quando aceita
}

// CancelOutcome resultado do envio de um evento de cancelamento.
type CancelOutcome struct {
	ItemID      string
	ChaveAcesso string
	Err         error
	Rejection   string
}

// BatchService orquestra o envio de DPS e cancelamentos. Seguro para uso
// concorrente; cada chamada de envio drena os itens enfileirados até então.
type BatchService struct {
	signer      pkgnfse.Signer
	transmitter sefin.Transmitter
	log         *logger.Logger

	mu          sync.Mutex
	dpsBatch    []dpsItem
	cancelBatch []cancelItem
}

// NewBatchService cria o serviço de lote.
func NewBatchService(signer pkgnfse.Signer, transmitter sefin.Transmitter, log *logger.Logger) *BatchService {
	return &BatchService{signer: signer, transmitter: transmitter, log: log}
}

// AddDPS valida e enfileira uma DPS (ainda sem assinatura) para envio.
// Devolve o identificador do item no lote.
func (s *BatchService) AddDPS(xml []byte) (string, error) {
	// O portal só aceita o leiaute nacional: raiz <DPS> no namespace da Sefin.
	if !bytes.Contains(xml, []byte("<DPS")) || !bytes.Contains(xml, []byte(namespaceNFSe)) {
		return "", domain.ErrMalformedXML
	}
	item := dpsItem{id: uuid.NewString(), xml: xml}

	s.mu.Lock()
	s.dpsBatch = append(s.dpsBatch, item)
	s.mu.Unlock()

	s.log.Debug().Str("item_id", item.id).Int("tamanho", len(xml)).Msg("DPS adicionada ao lote")
	return item.id, nil
}

// AddCancellation monta o evento de cancelamento e o enfileira para envio.
func (s *BatchService) AddCancellation(req CancelRequest) (string, error) {
	xml, err := BuildCancelEvent(req, time.Now())
	if err != nil {
		return "", err
	}
	item := cancelItem{
		id:          uuid.NewString(),
		chaveAcesso: pkgnfse.SanitizeDocument(req.ChaveAcesso),
		xml:         xml,
	}

	s.mu.Lock()
	s.cancelBatch = append(s.cancelBatch, item)
	s.mu.Unlock()

	s.log.Debug().Str("item_id", item.id).Str("chave_acesso", item.chaveAcesso).
		Msg("cancelamento adicionado ao lote")
	return item.id, nil
}

// SendBatch assina e envia todas as DPS enfileiradas, devolvendo um resultado
// por item. O lote é esvaziado; itens com falha precisam ser reenfileirados
// pelo chamador com entradas corrigidas.
func (s *BatchService) SendBatch(ctx context.Context) []DPSOutcome {
	s.mu.Lock()
	batch := s.dpsBatch
	s.dpsBatch = nil
	s.mu.Unlock()

	outcomes := make([]DPSOutcome, 0, len(batch))
	for _, item := range batch {
		outcomes = append(outcomes, s.sendOne(ctx, item))
	}
	return outcomes
}

func (s *BatchService) sendOne(ctx context.Context, item dpsItem) DPSOutcome {
	out := DPSOutcome{ItemID: item.id}

	s.log.Info().Str("item_id", item.id).Msg("assinando DPS")
	signed, err := s.signer.SignTag(item.xml, pkgnfse.TagInfDPS)
	if err != nil {
		out.Err = err
		return out
	}

	packed, err := pkgnfse.GzipBase64(signed)
	if err != nil {
		out.Err = err
		return out
	}

	result, err := s.transmitter.SendDPS(ctx, packed)
	if err != nil {
		out.Err = err
		return out
	}
	out.ChaveAcesso = result.ChaveAcesso
	out.IDDps = result.IDDps
	out.NFSeXML = result.NFSeXML
	out.Rejection = result.MensagemErro

	if result.Accepted() && result.ChaveAcesso != "" {
		pdf, err := s.transmitter.DownloadDANFSE(ctx, result.ChaveAcesso)
		if err != nil {
			s.log.Warn().Err(err).Str("chave_acesso", result.ChaveAcesso).Msg("falha ao baixar DANFSe")
		} else {
			out.DANFSePDF = pdf
		}
	}
	return out
}

// SendCancellations assina e envia todos os eventos de cancelamento
// enfileirados, um resultado por item.
func (s *BatchService) SendCancellations(ctx context.Context) []CancelOutcome {
	s.mu.Lock()
	batch := s.cancelBatch
	s.cancelBatch = nil
	s.mu.Unlock()

	outcomes := make([]CancelOutcome, 0, len(batch))
	for _, item := range batch {
		out := CancelOutcome{ItemID: item.id, ChaveAcesso: item.chaveAcesso}

		s.log.Info().Str("item_id", item.id).Str("chave_acesso", item.chaveAcesso).
			Msg("assinando evento de cancelamento")
		signed, err := s.signer.SignTag(item.xml, pkgnfse.TagInfPedReg)
		if err != nil {
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}

		packed, err := pkgnfse.GzipBase64(signed)
		if err != nil {
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}

		result, err := s.transmitter.SendCancelEvent(ctx, item.chaveAcesso, packed)
		if err != nil {
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}
		out.Rejection = result.MensagemErro
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// Pending devolve quantos itens aguardam envio (DPS, cancelamentos).
func (s *BatchService) Pending() (dps, cancels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dpsBatch), len(s.cancelBatch)
}
