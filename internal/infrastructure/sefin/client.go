// Cliente REST do Portal Nacional de NFS-e (Sefin Nacional / ADN).
// Toda comunicação usa mTLS com o certificado do emitente (e-CNPJ A1).

package sefin

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/besoft-tech/nfse-nacional/pkg/logger"
	"github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

// ── Constantes de endpoint ────────────────────────────────────────────────────

const (
	// URLSefinNacional endpoint de recepção/consulta de DPS e eventos.
	URLSefinNacional = "https://sefin.nfse.gov.br/SefinNacional/nfse"
	// URLDanfse endpoint do ADN para download do DANFSe em PDF.
	URLDanfse = "https://adn.nfse.gov.br/danfse"

	// O ADN pode demorar alguns segundos para disponibilizar o DANFSe
	// após a recepção da DPS.
	danfseRetries    = 3
	danfseRetryDelay = 2 * time.Second
)

// ── Porta (interface) ─────────────────────────────────────────────────────────

// Transmitter define a porta de saída para o Portal Nacional. A implementação
// concreta usa REST sobre mTLS; para testes pode-se injetar um mock.
type Transmitter interface {
	// SendDPS envia uma DPS assinada, já compactada e codificada (dpsXmlGZipB64).
	SendDPS(ctx context.Context, dpsGZipB64 string) (*SendResult, error)
	// SendCancelEvent registra um pedido de evento de cancelamento para a chave.
	SendCancelEvent(ctx context.Context, chaveAcesso, eventoGZipB64 string) (*EventResult, error)
	// QueryNFSe consulta uma NFS-e pela chave de acesso.
	QueryNFSe(ctx context.Context, chaveAcesso string) (*QueryResult, error)
	// DownloadDANFSE baixa o PDF oficial (DANFSe) da NFS-e. Devolve nil sem
	// erro quando o PDF ainda não está disponível.
	DownloadDANFSE(ctx context.Context, chaveAcesso string) ([]byte, error)
}

// ── Implementação REST ────────────────────────────────────────────────────────

// Config parâmetros do cliente. Certificate é obrigatório contra o portal
// real; os endpoints só devem ser trocados em testes.
type Config struct {
	BaseURL     string
	DanfseURL   string
	Certificate *tls.Certificate
	Timeout     time.Duration
	RetryDelay  time.Duration // intervalo entre tentativas de DANFSe; só os testes encurtam
}

// Client implementa Transmitter usando net/http com mTLS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	danfseURL  string
	retryDelay time.Duration
	log        *logger.Logger
}

// NewClient constrói o cliente REST do Portal Nacional.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = URLSefinNacional
	}
	if cfg.DanfseURL == "" {
		cfg.DanfseURL = URLDanfse
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = danfseRetryDelay
	}

	transport := &http.Transport{}
	if cfg.Certificate != nil {
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{*cfg.Certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		danfseURL:  strings.TrimRight(cfg.DanfseURL, "/"),
		retryDelay: cfg.RetryDelay,
		log:        log,
	}
}

// SendDPS envia a DPS para a Sefin Nacional e interpreta a resposta JSON.
func (c *Client) SendDPS(ctx context.Context, dpsGZipB64 string) (*SendResult, error) {
	c.log.Info().
		Str("url", c.baseURL).
		Int("payload_len", len(dpsGZipB64)).
		Msg("enviando DPS ao Portal Nacional")

	status, body, err := c.postJSON(ctx, c.baseURL, sendDPSRequest{DpsXmlGZipB64: dpsGZipB64})
	if err != nil {
		return nil, err
	}

	result := &SendResult{Status: status, Body: string(body)}
	var resp portalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// Resposta não estruturada (ex.: erro de gateway); devolve o corpo bruto
		c.log.Warn().Int("status", status).Msg("resposta do portal não é JSON")
		return result, nil
	}

	result.IDDps = resp.IDDps
	result.ChaveAcesso = resp.ChaveAcesso
	result.Erros = resp.Erros
	result.MensagemErro = FormatErrors(resp.Erros)

	if resp.NfseXmlGZipB64 != "" {
		xml, err := nfse.GunzipBase64(resp.NfseXmlGZipB64)
		if err != nil {
			c.log.Error().Err(err).Msg("descompactar XML da NFS-e da resposta")
		} else {
			result.NFSeXML = xml
		}
	}

	if result.MensagemErro != "" {
		c.log.Error().Int("status", status).Str("erros", result.MensagemErro).Msg("portal rejeitou a DPS")
	} else {
		c.log.Info().
			Int("status", status).
			Str("chave_acesso", result.ChaveAcesso).
			Str("id_dps", result.IDDps).
			Msg("resposta do Portal Nacional")
	}
	return result, nil
}

// SendCancelEvent registra o pedido de evento de cancelamento da NFS-e.
func (c *Client) SendCancelEvent(ctx context.Context, chaveAcesso, eventoGZipB64 string) (*EventResult, error) {
	url := fmt.Sprintf("%s/%s/eventos", c.baseURL, chaveAcesso)
	c.log.Info().Str("url", url).Msg("enviando evento de cancelamento")

	status, body, err := c.postJSON(ctx, url, sendEventRequest{PedidoRegistroEventoXmlGZipB64: eventoGZipB64})
	if err != nil {
		return nil, err
	}

	result := &EventResult{Status: status, ChaveAcesso: chaveAcesso, Body: string(body)}
	var resp portalResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		result.Erros = resp.Erros
		result.MensagemErro = FormatErrors(resp.Erros)
	}
	return result, nil
}

// QueryNFSe consulta a NFS-e pela chave de acesso. Found é falso para 404.
func (c *Client) QueryNFSe(ctx context.Context, chaveAcesso string) (*QueryResult, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, chaveAcesso)
	c.log.Info().Str("url", url).Msg("consultando NFS-e")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sefin: montar requisição: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefin: consultar NFS-e: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sefin: ler resposta: %w", err)
	}
	return &QueryResult{
		Status: resp.StatusCode,
		Found:  resp.StatusCode == http.StatusOK,
		Body:   string(body),
	}, nil
}

// DownloadDANFSE baixa o PDF oficial do ADN, com tentativas espaçadas porque
// o documento pode ainda não ter sido gerado. Devolve nil quando indisponível.
func (c *Client) DownloadDANFSE(ctx context.Context, chaveAcesso string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.danfseURL, chaveAcesso)

	for attempt := 1; attempt <= danfseRetries; attempt++ {
		c.log.Info().Str("url", url).Int("tentativa", attempt).Msg("baixando DANFSe")

		pdf, err := c.fetchPDF(ctx, url)
		if err != nil {
			return nil, err
		}
		if pdf != nil {
			return pdf, nil
		}
		if attempt < danfseRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	c.log.Warn().Str("chave_acesso", chaveAcesso).Msg("DANFSe não disponível")
	return nil, nil
}

func (c *Client) fetchPDF(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sefin: montar requisição: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefin: baixar DANFSe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK ||
		!strings.HasPrefix(resp.Header.Get("Content-Type"), "application/pdf") {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("sefin: serializar payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("sefin: montar requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sefin: requisição ao portal: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("sefin: ler resposta: %w", err)
	}
	return resp.StatusCode, body, nil
}

var _ Transmitter = (*Client)(nil)
