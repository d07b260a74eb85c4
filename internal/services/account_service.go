package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"bridgeguard/internal/account"
	"bridgeguard/internal/clients"
	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"
	"bridgeguard/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// AccountService manages guardian-recovery account engines: creation,
// recovery flow, guardian set changes, and mirroring engine state into
// the database and the event stream
type AccountService struct {
	mu      sync.RWMutex
	engines map[common.Address]*account.Engine

	accountRepo  *repository.AccountRepository
	recoveryRepo *repository.RecoveryRepository
	natsClient   *clients.NATSClient

	recoveryDelay time.Duration
	maxGuardians  int
	dispatcher    account.Dispatcher
}

// NewAccountService creates an account service. Repos and natsClient may
// be nil, which disables persistence and event publishing.
func NewAccountService(accountRepo *repository.AccountRepository, recoveryRepo *repository.RecoveryRepository, natsClient *clients.NATSClient, dispatcher account.Dispatcher, recoveryDelay time.Duration, maxGuardians int) *AccountService {
	if recoveryDelay <= 0 {
		recoveryDelay = 48 * time.Hour
	}
	return &AccountService{
		engines:       make(map[common.Address]*account.Engine),
		accountRepo:   accountRepo,
		recoveryRepo:  recoveryRepo,
		natsClient:    natsClient,
		recoveryDelay: recoveryDelay,
		maxGuardians:  maxGuardians,
		dispatcher:    dispatcher,
	}
}

// natsEventSink forwards engine events to the NATS event stream
type natsEventSink struct {
	service *AccountService
}

func (s *natsEventSink) Emit(event account.Event) {
	payload := map[string]interface{}{
		"account": event.Account.Hex(),
		"fields":  event.Fields,
	}
	if event.Type == account.EventRecoveryExecuted {
		metrics.RecoveryExecutions.Inc()
	}
	if s.service.natsClient == nil {
		return
	}
	if err := s.service.natsClient.PublishAccountEvent(event.Type, payload); err != nil {
		log.Printf("[AccountService] Failed to publish %s event: %v", event.Type, err)
	}
}

// CreateAccount builds a new account engine and persists its mirror. The
// address is derived from the owner and a fresh salt.
func (s *AccountService) CreateAccount(owner common.Address, guardians []common.Address, required int) (*account.Engine, error) {
	salt := uuid.New()
	address := common.BytesToAddress(crypto.Keccak256(owner.Bytes(), salt[:])[12:])

	engine, err := account.NewEngine(address, owner, guardians, required, account.Options{
		RecoveryDelay: s.recoveryDelay,
		MaxGuardians:  s.maxGuardians,
		Dispatcher:    s.dispatcher,
		Sink:          &natsEventSink{service: s},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[address] = engine
	s.mu.Unlock()

	if s.accountRepo != nil {
		guardianList := make([]string, 0, len(guardians))
		for _, guardian := range guardians {
			guardianList = append(guardianList, guardian.Hex())
		}
		guardiansJSON, _ := json.Marshal(guardianList)
		record := &models.SmartAccountRecord{
			ID:                uuid.New().String(),
			Address:           address.Hex(),
			Owner:             owner.Hex(),
			Guardians:         string(guardiansJSON),
			RequiredGuardians: required,
			Balance:           "0",
		}
		if err := s.accountRepo.Create(record); err != nil {
			log.Printf("[AccountService] Failed to persist account %s: %v", address.Hex(), err)
		}
	}

	log.Printf("[AccountService] Created account %s: owner=%s, guardians=%d, required=%d",
		address.Hex(), owner.Hex(), len(guardians), required)
	return engine, nil
}

// GetEngine returns the engine for an account address
func (s *AccountService) GetEngine(address common.Address) (*account.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.engines[address]
	if !ok {
		return nil, fmt.Errorf("account %s not found", address.Hex())
	}
	return engine, nil
}

// Deposit credits native currency to an account
func (s *AccountService) Deposit(address common.Address, amount *big.Int) error {
	engine, err := s.GetEngine(address)
	if err != nil {
		return err
	}
	engine.Deposit(amount)
	s.syncAccount(engine)
	return nil
}

// InitiateRecovery opens a recovery request on behalf of a guardian
func (s *AccountService) InitiateRecovery(address, guardian, newOwner common.Address) (uint64, error) {
	engine, err := s.GetEngine(address)
	if err != nil {
		return 0, err
	}

	requestID, err := engine.InitiateRecovery(guardian, newOwner)
	if err != nil {
		return 0, err
	}
	metrics.RecoveryRequestsActive.Inc()

	if s.recoveryRepo != nil {
		confirmations, _ := json.Marshal([]string{guardian.Hex()})
		record := &models.RecoveryRequestRecord{
			ID:             uuid.New().String(),
			AccountAddress: address.Hex(),
			RequestID:      requestID,
			ProposedOwner:  newOwner.Hex(),
			Confirmations:  string(confirmations),
			Status:         models.RecoveryStatusPending,
			InitiatedAt:    time.Now(),
		}
		if err := s.recoveryRepo.Create(record); err != nil {
			log.Printf("[AccountService] Failed to persist recovery request %d: %v", requestID, err)
		}
	}

	return requestID, nil
}

// ConfirmRecovery records a guardian confirmation; the recovery executes
// inline when the threshold and the delay are both satisfied
func (s *AccountService) ConfirmRecovery(address, guardian common.Address, requestID uint64) (bool, error) {
	engine, err := s.GetEngine(address)
	if err != nil {
		return false, err
	}

	executed, err := engine.ConfirmRecovery(guardian, requestID)
	if err != nil {
		return false, err
	}

	s.syncRecovery(engine, requestID, executed)
	if executed {
		metrics.RecoveryRequestsActive.Dec()
		s.syncAccount(engine)
	}
	return executed, nil
}

// ExecuteRecovery finalizes a mature recovery request
func (s *AccountService) ExecuteRecovery(address common.Address, requestID uint64) error {
	engine, err := s.GetEngine(address)
	if err != nil {
		return err
	}

	if err := engine.ExecuteRecovery(requestID); err != nil {
		return err
	}

	metrics.RecoveryRequestsActive.Dec()
	s.syncRecovery(engine, requestID, true)
	s.syncAccount(engine)
	return nil
}

// AddGuardian registers a new guardian on an account
func (s *AccountService) AddGuardian(address, caller, guardian common.Address) error {
	engine, err := s.GetEngine(address)
	if err != nil {
		return err
	}
	if err := engine.AddGuardian(caller, guardian); err != nil {
		return err
	}
	s.syncAccount(engine)
	return nil
}

// RemoveGuardian removes a guardian from an account
func (s *AccountService) RemoveGuardian(address, caller, guardian common.Address) error {
	engine, err := s.GetEngine(address)
	if err != nil {
		return err
	}
	if err := engine.RemoveGuardian(caller, guardian); err != nil {
		return err
	}
	s.syncAccount(engine)
	return nil
}

// syncAccount mirrors current engine state into the database
func (s *AccountService) syncAccount(engine *account.Engine) {
	if s.accountRepo == nil {
		return
	}
	record, err := s.accountRepo.GetByAddress(engine.Address().Hex())
	if err != nil {
		log.Printf("[AccountService] No persisted record for %s: %v", engine.Address().Hex(), err)
		return
	}

	guardians := engine.Guardians()
	guardianList := make([]string, 0, len(guardians))
	for _, guardian := range guardians {
		guardianList = append(guardianList, guardian.Hex())
	}
	guardiansJSON, _ := json.Marshal(guardianList)

	record.Owner = engine.Owner().Hex()
	record.Guardians = string(guardiansJSON)
	record.RequiredGuardians = engine.RequiredGuardians()
	record.Nonce = engine.Nonce()
	record.Balance = engine.Balance().String()
	if err := s.accountRepo.Update(record); err != nil {
		log.Printf("[AccountService] Failed to sync account %s: %v", engine.Address().Hex(), err)
	}
}

// syncRecovery mirrors a recovery request's confirmations and status
func (s *AccountService) syncRecovery(engine *account.Engine, requestID uint64, executed bool) {
	if s.recoveryRepo == nil {
		return
	}
	record, err := s.recoveryRepo.GetByRequestID(engine.Address().Hex(), requestID)
	if err != nil {
		log.Printf("[AccountService] No persisted record for recovery %d: %v", requestID, err)
		return
	}

	request, err := engine.Request(requestID)
	if err != nil {
		return
	}

	confirmations := make([]string, 0, len(request.Confirmations))
	for guardian := range request.Confirmations {
		confirmations = append(confirmations, guardian.Hex())
	}
	confirmationsJSON, _ := json.Marshal(confirmations)
	record.Confirmations = string(confirmationsJSON)

	switch {
	case executed:
		record.Status = models.RecoveryStatusExecuted
		now := time.Now()
		record.ExecutedAt = &now
	case len(request.Confirmations) >= engine.RequiredGuardians():
		record.Status = models.RecoveryStatusConfirmed
	default:
		record.Status = models.RecoveryStatusPending
	}

	if err := s.recoveryRepo.Update(record); err != nil {
		log.Printf("[AccountService] Failed to sync recovery %d: %v", requestID, err)
	}
}
