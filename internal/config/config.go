package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// EthereumConfig holds chain connection and service wallet configuration.
// The contract address is supplied here rather than read from a deploy file;
// use cmd/deploy to create the contract once and then configure its address.
type EthereumConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	PrivateKey          string        `mapstructure:"private_key"`
	ContractAddress     string        `mapstructure:"contract_address"`
	GasPriceGwei        int64         `mapstructure:"gas_price_gwei"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ExplorerURLTemplate string        `mapstructure:"explorer_url_template"`
}

// AssetsConfig holds uploaded asset storage configuration
type AssetsConfig struct {
	Root string `mapstructure:"root"`
}

// ClassifierConfig holds deepfake inference service configuration
type ClassifierConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CertificateConfig holds certificate issuance configuration
type CertificateConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	Assets      AssetsConfig      `mapstructure:"assets"`
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	Certificate CertificateConfig `mapstructure:"certificate"`
}

// DeployConfig holds configuration for the one-time contract deployment command
type DeployConfig struct {
	BaseConfig      `mapstructure:",squash"`
	Ethereum        EthereumConfig `mapstructure:"ethereum"`
	ContractBinPath string         `mapstructure:"contract_bin_path"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	// Mint requests block on transaction confirmation, so the write timeout
	// must exceed ethereum.confirmation_timeout.
	v.SetDefault("server.write_timeout", 180)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ethereum.gas_price_gwei", 3)
	v.SetDefault("ethereum.confirmation_timeout", "2m")
	v.SetDefault("ethereum.explorer_url_template", "https://cardona-zkevm.polygonscan.com/nft/%s/%d")
	v.SetDefault("assets.root", "assets")
	v.SetDefault("classifier.timeout", "30s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if config.Ethereum.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is required")
	}
	if config.Ethereum.PrivateKey == "" {
		return nil, errors.New("ethereum.private_key is required")
	}
	if config.Certificate.PublicBaseURL == "" {
		return nil, errors.New("certificate.public_base_url is required")
	}
	if config.Classifier.URL == "" {
		return nil, errors.New("classifier.url is required")
	}

	return &config, nil
}

// LoadDeployConfig loads configuration for cmd/deploy
func LoadDeployConfig(configFile string, envPath string) (*DeployConfig, error) {
	v := configureViper("deploy", configFile, envPath)

	v.SetDefault("ethereum.gas_price_gwei", 3)
	v.SetDefault("ethereum.confirmation_timeout", "5m")
	v.SetDefault("contract_bin_path", "contracts/SimpleCollectible.bin")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config DeployConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Ethereum.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is required")
	}
	if config.Ethereum.PrivateKey == "" {
		return nil, errors.New("ethereum.private_key is required")
	}

	return &config, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("CERTMINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.private_key",
		"ethereum.contract_address",
		"ethereum.gas_price_gwei",
		"ethereum.confirmation_timeout",
		"ethereum.explorer_url_template",
		// Assets
		"assets.root",
		// Classifier
		"classifier.url",
		"classifier.timeout",
		// Certificate
		"certificate.public_base_url",
		// Deploy specific
		"contract_bin_path",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
