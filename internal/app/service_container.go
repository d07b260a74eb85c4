package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"bridgeguard/internal/clients"
	"bridgeguard/internal/config"
	"bridgeguard/internal/db"
	"bridgeguard/internal/repository"
	"bridgeguard/internal/services"
	"bridgeguard/internal/submitter"

	"gorm.io/gorm"
)

// ServiceContainer wires repositories, clients, and services together
type ServiceContainer struct {
	// Database
	DB *gorm.DB

	// Repositories
	AccountRepo   *repository.AccountRepository
	RecoveryRepo  *repository.RecoveryRepository
	ExecutionRepo *repository.ExecutionRepository

	// Clients
	NATSClient   *clients.NATSClient
	LiFiClient   *clients.LiFiClient
	AcrossClient *clients.AcrossClient

	// On-chain submission
	Submitter *submitter.Submitter

	// Core Services
	RouteAggregator     *services.RouteAggregator
	SecurityScorer      *services.SecurityScorer
	StrategySynthesizer *services.StrategySynthesizer
	ExecutionService    *services.ExecutionService
	AccountService      *services.AccountService
	PushService         *services.PushService

	natsOnce sync.Once
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{
			DB: db.DB,
		}

		container.initRepositories()

		if err := container.initCoreServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize core services: %w", err)
			return
		}

		// Event services are optional, log but don't fail
		if err := container.initEventServices(); err != nil {
			log.Printf("⚠️ Event services initialization skipped or failed: %v", err)
		}

		container.initAccountServices()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")

	c.AccountRepo = repository.NewAccountRepository(c.DB)
	c.RecoveryRepo = repository.NewRecoveryRepository(c.DB)
	c.ExecutionRepo = repository.NewExecutionRepository(c.DB)

	log.Println("✅ Repositories initialized")
}

func (c *ServiceContainer) initCoreServices() error {
	log.Println("🔧 Initializing Core Services...")

	cfg := config.AppConfig
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// Bridge quote providers
	var providers []services.QuoteProvider

	if cfg.Providers.LiFi.Enabled || cfg.Providers.LiFi.BaseURL != "" {
		c.LiFiClient = clients.NewLiFiClient(cfg.Providers.LiFi.BaseURL, time.Duration(cfg.Providers.LiFi.Timeout)*time.Second)
		providers = append(providers, services.NewLiFiProvider(c.LiFiClient))
	}
	if cfg.Providers.Across.Enabled || cfg.Providers.Across.BaseURL != "" {
		c.AcrossClient = clients.NewAcrossClient(cfg.Providers.Across.BaseURL, time.Duration(cfg.Providers.Across.Timeout)*time.Second)
		providers = append(providers, services.NewAcrossProvider(c.AcrossClient))
	}
	if len(providers) == 0 {
		return fmt.Errorf("no bridge providers configured")
	}

	c.RouteAggregator = services.NewRouteAggregator(providers, time.Duration(cfg.Providers.QueryTimeout)*time.Second)
	c.SecurityScorer = services.NewSecurityScorer(services.DefaultReputationTable())
	c.StrategySynthesizer = services.NewStrategySynthesizer(cfg.Execution.MinSplitAmount)

	// Push Service
	c.PushService = services.NewPushService()

	// On-chain submitter (transactions fail until clients connect)
	c.Submitter = submitter.NewSubmitter(homeChainID(cfg))
	if err := c.Submitter.InitializeClients(); err != nil {
		log.Printf("⚠️ [ServiceContainer] Failed to initialize blockchain clients: %v", err)
		log.Printf("   → On-chain dispatch will fail until clients are initialized")
		log.Printf("   → Check blockchain network configuration in config.yaml")
	} else {
		log.Printf("✅ [ServiceContainer] Blockchain clients initialized: %d client(s)", c.Submitter.ClientCount())
	}

	log.Println("✅ Core Services initialized")
	return nil
}

// initAccountServices needs the NATS client, so it runs after event services
func (c *ServiceContainer) initAccountServices() {
	cfg := config.AppConfig

	c.ExecutionService = services.NewExecutionService(
		c.ExecutionRepo,
		c.NATSClient,
		cfg.Execution.SlippageTolerance,
		cfg.Execution.DeadlineSeconds,
	)

	c.AccountService = services.NewAccountService(
		c.AccountRepo,
		c.RecoveryRepo,
		c.NATSClient,
		c.Submitter,
		time.Duration(cfg.Recovery.DelaySeconds)*time.Second,
		cfg.Recovery.MaxGuardians,
	)

	// Forward execution events to connected websocket clients
	if c.NATSClient != nil {
		if err := c.PushService.StartNATSBridge(c.NATSClient); err != nil {
			log.Printf("⚠️ [ServiceContainer] Failed to start NATS push bridge: %v", err)
		}
	}
}

func (c *ServiceContainer) initEventServices() error {
	if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
		return fmt.Errorf("NATS not configured")
	}
	if !config.AppConfig.NATS.Enabled {
		return fmt.Errorf("NATS disabled in config")
	}

	log.Println("📡 Initializing Event Services...")

	if err := c.InitNATSClient(); err != nil {
		return fmt.Errorf("failed to initialize NATS client: %w", err)
	}

	log.Println("✅ Event Services initialized")
	return nil
}

// InitNATSClient connects to NATS once
func (c *ServiceContainer) InitNATSClient() error {
	var initErr error

	c.natsOnce.Do(func() {
		log.Println("🔌 Connecting to NATS...")

		natsURL := config.AppConfig.NATS.URL
		natsClient, err := clients.NewNATSClient(natsURL, "bridgeguard-events")
		if err != nil {
			log.Printf("❌ Failed to connect to NATS at %s: %v", natsURL, err)
			log.Printf("   → Please ensure NATS server is running on port 4222 (or configured port)")
			initErr = fmt.Errorf("failed to create NATS client: %w", err)
			return
		}

		c.NATSClient = natsClient
		log.Printf("✅ NATS client connected: %s", natsURL)
	})

	return initErr
}

// homeChainID picks the lowest enabled chain id as the smart account home network
func homeChainID(cfg *config.Config) int {
	home := 0
	for _, network := range cfg.Blockchain.Networks {
		if !network.Enabled {
			continue
		}
		if home == 0 || network.ChainID < home {
			home = network.ChainID
		}
	}
	if home == 0 {
		home = 1
	}
	return home
}

// Cleanup closes external connections
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.Submitter != nil {
		c.Submitter.Close()
	}

	log.Println("✅ Service Container cleaned up")
}
