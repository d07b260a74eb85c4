package submitter

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"bridgeguard/internal/account"
	"bridgeguard/internal/config"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	defaultGasLimit        = 500000
	confirmationMaxWait    = 5 * time.Minute
	confirmationPollPeriod = 10 * time.Second
)

// Submitter signs and broadcasts smart account calls to their home network.
// It implements account.Dispatcher so the engine can hand it batch calls.
type Submitter struct {
	mu          sync.RWMutex
	clients     map[int]*ethclient.Client // chainID -> client
	homeChainID int
}

func NewSubmitter(homeChainID int) *Submitter {
	return &Submitter{
		clients:     make(map[int]*ethclient.Client),
		homeChainID: homeChainID,
	}
}

// InitializeClients dials every enabled network from config.
// Failures are logged per network so one bad RPC does not block the rest.
func (s *Submitter) InitializeClients() error {
	if config.AppConfig == nil {
		return fmt.Errorf("config not loaded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for networkName, networkConfig := range config.AppConfig.Blockchain.Networks {
		if !networkConfig.Enabled {
			continue
		}
		if len(networkConfig.RPCEndpoints) == 0 {
			log.Printf("⚠️ [Submitter] Network %s has no RPC endpoints, skipping", networkName)
			continue
		}

		var client *ethclient.Client
		var err error
		for _, rpcEndpoint := range networkConfig.RPCEndpoints {
			client, err = ethclient.Dial(rpcEndpoint)
			if err == nil {
				break
			}
			log.Printf("⚠️ [Submitter] Failed to dial %s for network %s: %v", rpcEndpoint, networkName, err)
		}
		if client == nil {
			log.Printf("❌ [Submitter] No reachable RPC endpoint for network %s (chainID %d)", networkName, networkConfig.ChainID)
			continue
		}

		s.clients[networkConfig.ChainID] = client
		log.Printf("✅ [Submitter] Connected to network %s (chainID %d)", networkName, networkConfig.ChainID)
	}

	if len(s.clients) == 0 {
		return fmt.Errorf("no blockchain clients initialized")
	}
	return nil
}

// GetClient returns the client for a chain id
func (s *Submitter) GetClient(chainID int) (*ethclient.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[chainID]
	return client, ok
}

// ClientCount returns the number of connected networks
func (s *Submitter) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dispatch signs and broadcasts one call on the home network
func (s *Submitter) Dispatch(ctx context.Context, from common.Address, call account.Call) error {
	client, ok := s.GetClient(s.homeChainID)
	if !ok {
		return fmt.Errorf("no client for chainID %d", s.homeChainID)
	}

	networkConfig, err := config.GetNetworkConfigByChainID(s.homeChainID)
	if err != nil {
		return fmt.Errorf("failed to resolve network config: %w", err)
	}
	if networkConfig.PrivateKey == "" {
		return fmt.Errorf("no signing key configured for chainID %d", s.homeChainID)
	}

	privateKey, err := crypto.HexToECDSA(networkConfig.PrivateKey)
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	signerAddress := crypto.PubkeyToAddress(privateKey.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, signerAddress)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice := new(big.Int)
	if networkConfig.GasPrice != "" {
		if _, ok := gasPrice.SetString(networkConfig.GasPrice, 10); !ok {
			return fmt.Errorf("invalid gasPrice in config: %s", networkConfig.GasPrice)
		}
	} else {
		gasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	gasLimit := networkConfig.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}

	target := call.Target
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &target,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     call.Data,
	})

	chainID := big.NewInt(int64(s.homeChainID))
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	log.Printf("📤 [Submitter] Transaction broadcast: hash=%s account=%s target=%s chainID=%d",
		signedTx.Hash().Hex(), from.Hex(), target.Hex(), s.homeChainID)

	// Confirmation runs in the background so the engine is not held for minutes
	go s.confirmTransaction(client, signedTx)
	return nil
}

// confirmTransaction waits for the transaction to be mined, falling back to
// receipt polling when WaitMined times out on a slow node.
func (s *Submitter) confirmTransaction(client *ethclient.Client, tx *types.Transaction) {
	txHash := tx.Hash()
	deadline := time.Now().Add(confirmationMaxWait)

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	receipt, err := bind.WaitMined(waitCtx, client, tx)
	cancel()
	if err == nil && receipt != nil {
		s.logReceipt(txHash, receipt)
		return
	}

	ticker := time.NewTicker(confirmationPollPeriod)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		<-ticker.C
		pollCtx, cancelPoll := context.WithTimeout(context.Background(), 15*time.Second)
		receipt, err = client.TransactionReceipt(pollCtx, txHash)
		cancelPoll()
		if err == nil && receipt != nil {
			s.logReceipt(txHash, receipt)
			return
		}
	}
	log.Printf("⚠️ [Submitter] Transaction %s not confirmed within %v", txHash.Hex(), confirmationMaxWait)
}

func (s *Submitter) logReceipt(txHash common.Hash, receipt *types.Receipt) {
	if receipt.Status == types.ReceiptStatusSuccessful {
		log.Printf("✅ [Submitter] Transaction confirmed: hash=%s block=%d gasUsed=%d",
			txHash.Hex(), receipt.BlockNumber.Uint64(), receipt.GasUsed)
		return
	}
	log.Printf("❌ [Submitter] Transaction reverted on-chain: hash=%s block=%d",
		txHash.Hex(), receipt.BlockNumber.Uint64())
}

// Close disconnects all clients
func (s *Submitter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chainID, client := range s.clients {
		client.Close()
		delete(s.clients, chainID)
	}
}
