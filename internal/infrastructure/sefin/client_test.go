package sefin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besoft-tech/nfse-nacional/internal/infrastructure/sefin"
	"github.com/besoft-tech/nfse-nacional/pkg/logger"
	"github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de teste
// ──────────────────────────────────────────────────────────────────────────────

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func newTestClient(baseURL, danfseURL string) *sefin.Client {
	return sefin.NewClient(sefin.Config{
		BaseURL:    baseURL,
		DanfseURL:  danfseURL,
		Timeout:    5 * time.Second,
		RetryDelay: 10 * time.Millisecond,
	}, testLogger())
}

const chaveTeste = "42054079123456780001950000100000000000000001"

// ──────────────────────────────────────────────────────────────────────────────
// SendDPS
// ──────────────────────────────────────────────────────────────────────────────

func TestSendDPS_Aceita(t *testing.T) {
	nfseXML := `<NFSe xmlns="http://www.sped.fazenda.gov.br/nfse"><infNFSe Id="NFS1"/></NFSe>`
	nfseGz, err := nfse.GzipBase64([]byte(nfseXML))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req["dpsXmlGZipB64"], "o corpo deve levar o campo dpsXmlGZipB64")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"idDps":          "DPS-0001",
			"chaveAcesso":    chaveTeste,
			"nfseXmlGZipB64": nfseGz,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	result, err := client.SendDPS(context.Background(), "ZmFrZQ==")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, result.Status)
	assert.True(t, result.Accepted())
	assert.Equal(t, "DPS-0001", result.IDDps)
	assert.Equal(t, chaveTeste, result.ChaveAcesso)
	assert.Equal(t, nfseXML, string(result.NFSeXML), "o XML da NFS-e deve sair descompactado")
}

func TestSendDPS_Rejeitada(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"erros": []map[string]string{
				{"codigo": "E0001", "descricao": "DPS inválida", "complemento": "Id fora do padrão"},
				{"codigo": "E0002", "descricao": "Assinatura divergente"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	result, err := client.SendDPS(context.Background(), "ZmFrZQ==")
	require.NoError(t, err)

	assert.False(t, result.Accepted())
	assert.Equal(t, "E0001: DPS inválida - Id fora do padrão | E0002: Assinatura divergente",
		result.MensagemErro)
	assert.Len(t, result.Erros, 2)
}

// TestSendDPS_ErrosMesmoCom200: o portal pode devolver erros estruturados
// mesmo com status 200/201; Accepted deve refletir isso.
func TestSendDPS_ErrosMesmoCom200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"erros": []map[string]string{{"codigo": "E0100", "descricao": "Pendência cadastral"}},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	result, err := client.SendDPS(context.Background(), "ZmFrZQ==")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.False(t, result.Accepted())
}

func TestSendDPS_RespostaNaoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	result, err := client.SendDPS(context.Background(), "ZmFrZQ==")
	require.NoError(t, err, "resposta não estruturada não é erro de transporte")

	assert.Equal(t, http.StatusBadGateway, result.Status)
	assert.False(t, result.Accepted())
	assert.Contains(t, result.Body, "gateway error")
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos e consulta
// ──────────────────────────────────────────────────────────────────────────────

func TestSendCancelEvent_RotaEPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+chaveTeste+"/eventos", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req["pedidoRegistroEventoXmlGZipB64"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"chaveAcesso": chaveTeste})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	result, err := client.SendCancelEvent(context.Background(), chaveTeste, "ZmFrZQ==")
	require.NoError(t, err)

	assert.True(t, result.Accepted())
	assert.Equal(t, chaveTeste, result.ChaveAcesso)
}

func TestQueryNFSe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path == "/"+chaveTeste {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"chaveAcesso":"` + chaveTeste + `"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)

	found, err := client.QueryNFSe(context.Background(), chaveTeste)
	require.NoError(t, err)
	assert.True(t, found.Found)
	assert.Contains(t, found.Body, chaveTeste)

	missing, err := client.QueryNFSe(context.Background(), "00000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Equal(t, http.StatusNotFound, missing.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// DANFSe
// ──────────────────────────────────────────────────────────────────────────────

func TestDownloadDANFSE_DisponivelAposRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			// ainda não gerado
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 conteudo"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	pdf, err := client.DownloadDANFSE(context.Background(), chaveTeste)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "deve tentar novamente após a indisponibilidade")
	assert.Contains(t, string(pdf), "%PDF")
}

func TestDownloadDANFSE_Indisponivel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	pdf, err := client.DownloadDANFSE(context.Background(), chaveTeste)
	require.NoError(t, err, "indisponibilidade do DANFSe não é erro")
	assert.Nil(t, pdf)
}

// TestDownloadDANFSE_ContentTypeErrado: só application/pdf conta como PDF.
func TestDownloadDANFSE_ContentTypeErrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>em processamento</html>"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL)
	pdf, err := client.DownloadDANFSE(context.Background(), chaveTeste)
	require.NoError(t, err)
	assert.Nil(t, pdf)
}
