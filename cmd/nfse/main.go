// CLI do nfse-nacional: assinatura, envio e consulta de DPS no Portal
// Nacional de NFS-e.
//
// Uso:
//
//	nfse assinar  -in dps.xml -out dps-assinada.xml [-tag infDPS]
//	nfse enviar   -in dps.xml
//	nfse consultar -chave <chave de acesso>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	appnfse "github.com/besoft-tech/nfse-nacional/internal/application/nfse"
	"github.com/besoft-tech/nfse-nacional/internal/infrastructure/sefin"
	"github.com/besoft-tech/nfse-nacional/internal/infrastructure/signer"
	"github.com/besoft-tech/nfse-nacional/pkg/config"
	"github.com/besoft-tech/nfse-nacional/pkg/logger"
	"github.com/besoft-tech/nfse-nacional/pkg/nfse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "carregar configuração:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "assinar":
		runAssinar(cfg, log, os.Args[2:])
	case "enviar":
		runEnviar(cfg, log, os.Args[2:])
	case "consultar":
		runConsultar(cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `uso: nfse <assinar|enviar|consultar> [opções]

O certificado é lido de NFSE_CERT_PATH / NFSE_CERT_PASSWORD.`)
}

// loadCredential carrega o PKCS#12 configurado. O arquivo é lido aqui; o
// núcleo de assinatura recebe apenas os bytes.
func loadCredential(cfg *config.Config, log *logger.Logger) *signer.Credential {
	if cfg.Cert.Path == "" {
		log.Fatal().Msg("NFSE_CERT_PATH não configurado")
	}
	pfxData, err := os.ReadFile(cfg.Cert.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Cert.Path).Msg("ler certificado")
	}
	cred, err := signer.LoadCredential(pfxData, cfg.Cert.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("carregar credencial PKCS#12")
	}
	return cred
}

func newTransmitter(cfg *config.Config, log *logger.Logger, cred *signer.Credential) sefin.Transmitter {
	tlsCert := cred.TLSCertificate()
	return sefin.NewClient(sefin.Config{
		BaseURL:     cfg.Portal.BaseURL,
		DanfseURL:   cfg.Portal.DanfseURL,
		Certificate: &tlsCert,
		Timeout:     time.Duration(cfg.Portal.TimeoutSeconds) * time.Second,
	}, log)
}

func runAssinar(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("assinar", flag.ExitOnError)
	in := fs.String("in", "", "arquivo XML da DPS (obrigatório)")
	out := fs.String("out", "", "arquivo de saída (padrão: stdout)")
	tag := fs.String("tag", nfse.TagInfDPS, "tag a assinar (infDPS ou infPedReg)")
	fs.Parse(args)

	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	xmlBytes, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal().Err(err).Str("path", *in).Msg("ler XML de entrada")
	}

	cred := loadCredential(cfg, log)
	svc := signer.NewXMLSignatureService(cred)

	signed, err := svc.SignTag(xmlBytes, *tag)
	if err != nil {
		log.Fatal().Err(err).Str("tag", *tag).Msg("assinar XML")
	}

	if *out == "" {
		os.Stdout.Write(signed)
		return
	}
	if err := os.WriteFile(*out, signed, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("gravar XML assinado")
	}
	log.Info().Str("path", *out).Int("tamanho", len(signed)).Msg("XML assinado gravado")
}

func runEnviar(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("enviar", flag.ExitOnError)
	in := fs.String("in", "", "arquivo XML da DPS (obrigatório)")
	fs.Parse(args)

	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	xmlBytes, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal().Err(err).Str("path", *in).Msg("ler XML de entrada")
	}

	cred := loadCredential(cfg, log)
	svc := signer.NewXMLSignatureService(cred)
	batch := appnfse.NewBatchService(svc, newTransmitter(cfg, log, cred), log)

	if _, err := batch.AddDPS(xmlBytes); err != nil {
		log.Fatal().Err(err).Msg("DPS fora do leiaute nacional")
	}

	ctx := context.Background()
	for _, outc := range batch.SendBatch(ctx) {
		switch {
		case outc.Err != nil:
			log.Error().Err(outc.Err).Str("item_id", outc.ItemID).Msg("falha no envio")
			os.Exit(1)
		case outc.Rejection != "":
			log.Error().Str("erros", outc.Rejection).Msg("DPS rejeitada pelo portal")
			os.Exit(1)
		default:
			log.Info().
				Str("chave_acesso", outc.ChaveAcesso).
				Str("id_dps", outc.IDDps).
				Bool("danfse", len(outc.DANFSePDF) > 0).
				Msg("DPS aceita pelo Portal Nacional")
		}
	}
}

func runConsultar(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("consultar", flag.ExitOnError)
	chave := fs.String("chave", "", "chave de acesso da NFS-e (obrigatório)")
	fs.Parse(args)

	if *chave == "" {
		fs.Usage()
		os.Exit(2)
	}

	cred := loadCredential(cfg, log)
	client := newTransmitter(cfg, log, cred)

	result, err := client.QueryNFSe(context.Background(), *chave)
	if err != nil {
		log.Fatal().Err(err).Msg("consultar NFS-e")
	}
	if !result.Found {
		log.Error().Int("status", result.Status).Msg("NFS-e não encontrada")
		os.Exit(1)
	}
	fmt.Println(result.Body)
}
