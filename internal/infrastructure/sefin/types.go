package sefin

import "strings"

// APIError erro estruturado devolvido pelo Portal Nacional.
type APIError struct {
	Codigo      string `json:"codigo"`
	Descricao   string `json:"descricao"`
	Complemento string `json:"complemento,omitempty"`
}

// String formata o erro como "codigo: descricao - complemento".
func (e APIError) String() string {
	var sb strings.Builder
	if e.Codigo != "" {
		sb.WriteString(e.Codigo)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Descricao)
	if e.Complemento != "" {
		sb.WriteString(" - ")
		sb.WriteString(e.Complemento)
	}
	return sb.String()
}

// FormatErrors junta as mensagens dos erros com " | ".
func FormatErrors(errs []APIError) string {
	if len(errs) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if m := e.String(); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, " | ")
}

// sendDPSRequest corpo do POST de recepção de DPS.
type sendDPSRequest struct {
	DpsXmlGZipB64 string `json:"dpsXmlGZipB64"`
}

// sendEventRequest corpo do POST de registro de evento (ex.: cancelamento).
type sendEventRequest struct {
	PedidoRegistroEventoXmlGZipB64 string `json:"pedidoRegistroEventoXmlGZipB64"`
}

// portalResponse resposta JSON da Sefin Nacional (recepção de DPS e eventos).
type portalResponse struct {
	IDDps          string     `json:"idDps"`
	ChaveAcesso    string     `json:"chaveAcesso"`
	NfseXmlGZipB64 string     `json:"nfseXmlGZipB64"`
	Erros          []APIError `json:"erros"`
}

// SendResult resultado da recepção de uma DPS pelo Portal Nacional.
type SendResult struct {
	Status       int        // status HTTP da resposta
	IDDps        string     // identificador da DPS atribuído pelo portal
	ChaveAcesso  string     // chave de acesso da NFS-e gerada
	NFSeXML      []byte     // XML da NFS-e (descompactado de nfseXmlGZipB64)
	Erros        []APIError // erros estruturados (pode haver mesmo com 200/201)
	MensagemErro string     // erros formatados, vazio quando aceita
	Body         string     // corpo bruto da resposta, para diagnóstico
}

// Accepted informa se o portal aceitou o documento.
func (r *SendResult) Accepted() bool {
	return (r.Status == 200 || r.Status == 201) && r.MensagemErro == ""
}

// EventResult resultado do registro de um evento (cancelamento).
type EventResult struct {
	Status       int
	ChaveAcesso  string
	Erros        []APIError
	MensagemErro string
	Body         string
}

// Accepted informa se o portal registrou o evento.
func (r *EventResult) Accepted() bool {
	return (r.Status == 200 || r.Status == 201) && r.MensagemErro == ""
}

// QueryResult resultado da consulta de uma NFS-e pela chave de acesso.
type QueryResult struct {
	Status int
	Found  bool
	Body   string // JSON ou XML devolvido pelo portal
}
