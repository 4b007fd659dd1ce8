package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Ambientes do Portal Nacional de NFS-e.
const (
	EnvProducao    = "producao"
	EnvHomologacao = "homologacao"
	urlSefinNFSe   = "https://sefin.nfse.gov.br/SefinNacional/nfse"
	urlADNDanfse   = "https://adn.nfse.gov.br/danfse"
)

// Config agrupa a configuração da aplicação (leitura via Viper de env e opcionalmente arquivo).
type Config struct {
	App    AppConfig
	Cert   CertConfig
	Portal PortalConfig
}

// AppConfig configuração geral da aplicação.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// CertConfig certificado digital (e-CNPJ A1) usado na assinatura e no mTLS.
type CertConfig struct {
	Path     string // caminho do arquivo .pfx/.p12
	Password string // senha do PKCS#12 (pode ser vazia)
}

// PortalConfig endpoints e ambiente do Portal Nacional (Sefin Nacional / ADN).
type PortalConfig struct {
	Environment    string // "producao" ou "homologacao"
	BaseURL        string // endpoint da Sefin Nacional (/nfse)
	DanfseURL      string // endpoint do ADN para download do DANFSe
	TimeoutSeconds int
}

// Load lê a configuração de variáveis de ambiente (e opcionalmente de arquivo).
// As env vars têm prioridade. Nomes esperados: APP_ENV, NFSE_CERT_PATH,
// NFSE_CERT_PASSWORD, NFSE_ENVIRONMENT, NFSE_BASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: arquivo de configuração (.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos erro se não existir

	// Também tenta config.env
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos erro se não existir

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "nfse-nacional"),
			LogLevel: getString(v, "APP_LOG_LEVEL", "info"),
		},
		Cert: CertConfig{
			Path:     getString(v, "NFSE_CERT_PATH", ""),
			Password: getString(v, "NFSE_CERT_PASSWORD", ""),
		},
		Portal: PortalConfig{
			Environment:    getString(v, "NFSE_ENVIRONMENT", EnvHomologacao),
			BaseURL:        getString(v, "NFSE_BASE_URL", urlSefinNFSe),
			DanfseURL:      getString(v, "NFSE_DANFSE_URL", urlADNDanfse),
			TimeoutSeconds: getInt(v, "NFSE_TIMEOUT_SECONDS", 30),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
