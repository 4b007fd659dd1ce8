package nfse

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// GzipBase64 compacta o XML com GZIP e codifica em Base64.
// É o formato dos campos dpsXmlGZipB64 e pedidoRegistroEventoXmlGZipB64
// exigidos pelo Portal Nacional.
func GzipBase64(xmlBytes []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(xmlBytes); err != nil {
		return "", fmt.Errorf("gzip: comprimir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip: fechar stream: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// GunzipBase64 decodifica Base64 e descompacta o GZIP, devolvendo o XML.
// Usado para extrair o XML da NFS-e dos campos nfseXmlGZipB64 das respostas.
func GunzipBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("gzip: base64 inválido: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gzip: stream inválido: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip: descomprimir: %w", err)
	}
	return out, nil
}
