package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Execution  ExecutionConfig  `yaml:"execution"`
	CORS       CORSConfig       `yaml:"cors"`
	Admin      AdminConfig      `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	Enabled       bool   `yaml:"enabled"`
}

// BlockchainConfig blockchain configuration
type BlockchainConfig struct {
	Networks map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig per-network configuration
type NetworkConfig struct {
	ChainID      int      `yaml:"chainId"`
	Name         string   `yaml:"name"`
	RPCEndpoints []string `yaml:"rpcEndpoints"`

	// Signing configuration: a direct private key (hex, no 0x prefix).
	PrivateKey string `yaml:"privateKey"`

	GasPrice string `yaml:"gasPrice"` // wei
	GasLimit uint64 `yaml:"gasLimit"`
	Enabled  bool   `yaml:"enabled"`
}

// ProvidersConfig bridge quote provider configuration
type ProvidersConfig struct {
	QueryTimeout int            `yaml:"queryTimeout"` // per-provider timeout (seconds)
	LiFi         ProviderConfig `yaml:"lifi"`
	Across       ProviderConfig `yaml:"across"`
}

// ProviderConfig single provider endpoint configuration
type ProviderConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeout"` // seconds
	Enabled bool   `yaml:"enabled"`
}

// RecoveryConfig guardian recovery configuration
type RecoveryConfig struct {
	DelaySeconds int64 `yaml:"delaySeconds"` // recovery delay, default 172800 (2 days)
	MaxGuardians int   `yaml:"maxGuardians"` // guardian set bound, default 10
}

// ExecutionConfig route execution configuration
type ExecutionConfig struct {
	SlippageTolerance float64 `yaml:"slippageTolerance"` // default 0.02
	DeadlineSeconds   int64   `yaml:"deadlineSeconds"`   // default 1800
	MinSplitAmount    float64 `yaml:"minSplitAmount"`    // native units, default 0.5
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // IP addresses or CIDR ranges
}

var AppConfig *Config

// LoadConfig loads the configuration file, then applies environment overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	overrideFromEnv(&config)

	AppConfig = &config
	return nil
}

func applyDefaults(config *Config) {
	if config.Providers.QueryTimeout <= 0 {
		config.Providers.QueryTimeout = 12
	}
	if config.Providers.LiFi.BaseURL == "" {
		config.Providers.LiFi.BaseURL = "https://li.quest/v1"
	}
	if config.Providers.Across.BaseURL == "" {
		config.Providers.Across.BaseURL = "https://app.across.to/api"
	}
	if config.Recovery.DelaySeconds <= 0 {
		config.Recovery.DelaySeconds = 172800 // 2 days
	}
	if config.Recovery.MaxGuardians <= 0 {
		config.Recovery.MaxGuardians = 10
	}
	if config.Execution.SlippageTolerance <= 0 {
		config.Execution.SlippageTolerance = 0.02
	}
	if config.Execution.DeadlineSeconds <= 0 {
		config.Execution.DeadlineSeconds = 1800
	}
	if config.Execution.MinSplitAmount <= 0 {
		config.Execution.MinSplitAmount = 0.5
	}
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
		config.NATS.Enabled = true
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if lifiURL := os.Getenv("LIFI_BASE_URL"); lifiURL != "" {
		config.Providers.LiFi.BaseURL = lifiURL
	}
	if acrossURL := os.Getenv("ACROSS_BASE_URL"); acrossURL != "" {
		config.Providers.Across.BaseURL = acrossURL
	}
	if timeout := os.Getenv("PROVIDER_QUERY_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Providers.QueryTimeout = t
		}
	}

	if delay := os.Getenv("RECOVERY_DELAY_SECONDS"); delay != "" {
		if d, err := strconv.ParseInt(delay, 10, 64); err == nil {
			config.Recovery.DelaySeconds = d
		}
	}

	for networkName, networkConfig := range config.Blockchain.Networks {
		envPrivateKey := fmt.Sprintf("%s_PRIVATE_KEY", strings.ToUpper(networkName))
		if privateKey := os.Getenv(envPrivateKey); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		} else if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		}

		envRPC := fmt.Sprintf("%s_RPC_ENDPOINTS", strings.ToUpper(networkName))
		if rpcEndpoints := os.Getenv(envRPC); rpcEndpoints != "" {
			networkConfig.RPCEndpoints = strings.Split(rpcEndpoints, ",")
		}

		envGasPrice := fmt.Sprintf("%s_GAS_PRICE", strings.ToUpper(networkName))
		if gasPrice := os.Getenv(envGasPrice); gasPrice != "" {
			networkConfig.GasPrice = gasPrice
		}

		envGasLimit := fmt.Sprintf("%s_GAS_LIMIT", strings.ToUpper(networkName))
		if gasLimit := os.Getenv(envGasLimit); gasLimit != "" {
			if limit, err := strconv.ParseUint(gasLimit, 10, 64); err == nil {
				networkConfig.GasLimit = limit
			}
		}

		config.Blockchain.Networks[networkName] = networkConfig
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// GetNetworkConfig returns the configuration for a named network
func GetNetworkConfig(networkName string) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	network, exists := AppConfig.Blockchain.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not found in config", networkName)
	}

	if !network.Enabled {
		return nil, fmt.Errorf("network %s is disabled", networkName)
	}

	return &network, nil
}

// GetNetworkConfigByChainID returns the configuration for a chain ID
func GetNetworkConfigByChainID(chainID int) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	for _, network := range AppConfig.Blockchain.Networks {
		if network.ChainID == chainID && network.Enabled {
			return &network, nil
		}
	}

	return nil, fmt.Errorf("network with chainID %d not found or disabled", chainID)
}
