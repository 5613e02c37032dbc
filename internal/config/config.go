package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

type Config struct {
	App        App        `mapstructure:",squash"`
	Server     Server     `mapstructure:",squash"`
	Plausible  Plausible  `mapstructure:",squash"`
	Export     Export     `mapstructure:",squash"`
	ExportSync ExportSync `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Enabled bool   `mapstructure:"server_enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
}

type Plausible struct {
	BaseURL     string `mapstructure:"plausible_base_url"`
	SitesAPIKey string `mapstructure:"plausible_sites_api_key"`
	StatsAPIKey string `mapstructure:"plausible_stats_api_key"`

	// URLs derivadas da base (v1 para sites, v2 para estatísticas)
	SitesURL string `mapstructure:"-"`
	StatsURL string `mapstructure:"-"`

	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	MaxRetries            int `mapstructure:"max_retries"`
	RetryDelaySeconds     int `mapstructure:"retry_delay_seconds"`
	MaxRequestsPerHour    int `mapstructure:"max_requests_per_hour"`
	SitesPageSize         int `mapstructure:"sites_page_size"`
}

type Export struct {
	OutputDir string `mapstructure:"output_dir"`
}

type ExportSync struct {
	CronSchedule string `mapstructure:"export_sync_cron"`
	Enabled      bool   `mapstructure:"export_sync_enabled"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("SERVER_ENABLED", false)

	viper.SetDefault("PLAUSIBLE_BASE_URL", "https://plausible.io")

	viper.SetDefault("OUTPUT_DIR", "./output")

	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_DELAY_SECONDS", 1)
	viper.SetDefault("MAX_REQUESTS_PER_HOUR", 600) // Cota publicada do Plausible
	viper.SetDefault("SITES_PAGE_SIZE", 100)

	// Defaults para a exportação agendada
	viper.SetDefault("EXPORT_SYNC_CRON", "0 6 * * *") // Todos os dias às 6h da manhã
	viper.SetDefault("EXPORT_SYNC_ENABLED", false)

	viper.SetDefault("LOG_LEVEL", "info")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	// Configurar valores padrão
	SetDefaults()

	// Configurar o Viper
	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	// Tentar ler o arquivo .env com o Viper (opcional, já que usamos godotenv)
	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Plausible.SitesURL = fmt.Sprintf("%s/api/v1", config.Plausible.BaseURL)
	config.Plausible.StatsURL = fmt.Sprintf("%s/api/v2", config.Plausible.BaseURL)

	return config, nil
}

// Validate verifica a configuração antes de qualquer chamada de rede.
// Falhas aqui são fatais e abortam a execução com erro de configuração.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Plausible.SitesAPIKey) == "" {
		return apiErrors.New(apiErrors.ErrMissingAPIKey, "PLAUSIBLE_SITES_API_KEY não definida")
	}

	if strings.TrimSpace(c.Plausible.StatsAPIKey) == "" {
		return apiErrors.New(apiErrors.ErrMissingAPIKey, "PLAUSIBLE_STATS_API_KEY não definida")
	}

	if !strings.HasPrefix(c.Plausible.BaseURL, "http://") && !strings.HasPrefix(c.Plausible.BaseURL, "https://") {
		return apiErrors.New(apiErrors.ErrInvalidBaseURL, "PLAUSIBLE_BASE_URL deve começar com http:// ou https://")
	}

	if c.Export.OutputDir == "" {
		return apiErrors.New(apiErrors.ErrInvalidConfig, "OUTPUT_DIR não pode ser vazio")
	}

	if c.Plausible.MaxRequestsPerHour <= 0 {
		return apiErrors.New(apiErrors.ErrInvalidConfig, "MAX_REQUESTS_PER_HOUR deve ser maior que zero")
	}

	return nil
}

// RequestTimeout retorna o timeout das requisições como time.Duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Plausible.RequestTimeoutSeconds) * time.Second
}

// RetryDelay retorna o atraso base entre tentativas como time.Duration
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Plausible.RetryDelaySeconds) * time.Second
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../.env"),
	}

	for _, location := range locations {
		err := godotenv.Load(location)
		if err == nil {
			logrus.Debug("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Debug("Nenhum arquivo .env encontrado, usando apenas variáveis de ambiente")
}
