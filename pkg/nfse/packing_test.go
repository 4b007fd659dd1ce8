package nfse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

func TestGzipBase64_IdaEVolta(t *testing.T) {
	xml := []byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<DPS xmlns="http://www.sped.fazenda.gov.br/nfse"><infDPS Id="DPS1"/></DPS>`)

	packed, err := nfse.GzipBase64(xml)
	require.NoError(t, err)
	assert.NotEmpty(t, packed)

	unpacked, err := nfse.GunzipBase64(packed)
	require.NoError(t, err)
	assert.Equal(t, xml, unpacked)
}

func TestGunzipBase64_EntradasInvalidas(t *testing.T) {
	_, err := nfse.GunzipBase64("não é base64!!")
	assert.Error(t, err)

	// Base64 válido que não é um stream GZIP
	_, err = nfse.GunzipBase64("ZmFrZQ==")
	assert.Error(t, err)
}
