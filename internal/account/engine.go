package account

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RecoveryRequest is one owner-recovery attempt. Requests are identified by
// an auto-incrementing id and are immutable once executed. There is no
// cancellation path; a stale request simply never reaches its threshold.
type RecoveryRequest struct {
	ID            uint64
	ProposedOwner common.Address
	Confirmations map[common.Address]time.Time
	InitiatedAt   time.Time
	Executed      bool
}

// ConfirmationCount returns the number of distinct confirming guardians.
func (r *RecoveryRequest) ConfirmationCount() int {
	return len(r.Confirmations)
}

// HasConfirmed reports whether guardian has already confirmed this request.
func (r *RecoveryRequest) HasConfirmed(guardian common.Address) bool {
	_, ok := r.Confirmations[guardian]
	return ok
}

// Options configures an Engine beyond its identity fields.
type Options struct {
	RecoveryDelay time.Duration // default 48h
	MaxGuardians  int           // default 10
	Dispatcher    Dispatcher
	Sink          EventSink
	Now           func() time.Time
}

// Engine is the guardian-recovery account state machine. One Engine models
// one account: an owner, a bounded guardian set, a confirmation threshold,
// a monotonic nonce and a native-currency balance. Transactions against a
// single account are serialized by the platform; the engine enforces the
// same property with its reentrancy guard, so a callee re-entering during
// an external call gets ErrReentrantCall instead of interleaved state.
type Engine struct {
	mu      sync.Mutex
	entered bool

	address   common.Address
	owner     common.Address
	guardians map[common.Address]struct{}
	required  int
	nonce     uint64
	balance   *big.Int

	recoveryDelay time.Duration
	maxGuardians  int
	nextRequestID uint64
	requests      map[uint64]*RecoveryRequest

	dispatcher Dispatcher
	sink       EventSink
	now        func() time.Time
}

// NewEngine creates an account engine and validates the initial guardian
// configuration: owner non-zero, owner not a guardian, no duplicates,
// 1 <= required <= len(guardians), guardian count within bound.
func NewEngine(address, owner common.Address, guardians []common.Address, required int, opts Options) (*Engine, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("owner: %w", ErrZeroAddress)
	}
	if opts.RecoveryDelay <= 0 {
		opts.RecoveryDelay = 48 * time.Hour
	}
	if opts.MaxGuardians <= 0 {
		opts.MaxGuardians = 10
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if len(guardians) > opts.MaxGuardians {
		return nil, fmt.Errorf("%w: %d > %d", ErrGuardianLimit, len(guardians), opts.MaxGuardians)
	}
	if required < 1 || required > len(guardians) {
		return nil, fmt.Errorf("%w: required=%d guardians=%d", ErrInvalidThreshold, required, len(guardians))
	}

	set := make(map[common.Address]struct{}, len(guardians))
	for _, guardian := range guardians {
		if guardian == (common.Address{}) {
			return nil, fmt.Errorf("guardian: %w", ErrZeroAddress)
		}
		if guardian == owner {
			return nil, fmt.Errorf("%s: %w", guardian.Hex(), ErrOwnerAsGuardian)
		}
		if _, exists := set[guardian]; exists {
			return nil, fmt.Errorf("%s: %w", guardian.Hex(), ErrDuplicateGuardian)
		}
		set[guardian] = struct{}{}
	}

	return &Engine{
		address:       address,
		owner:         owner,
		guardians:     set,
		required:      required,
		balance:       new(big.Int),
		recoveryDelay: opts.RecoveryDelay,
		maxGuardians:  opts.MaxGuardians,
		requests:      make(map[uint64]*RecoveryRequest),
		dispatcher:    opts.Dispatcher,
		sink:          opts.Sink,
		now:           opts.Now,
	}, nil
}

// Address returns the account address.
func (e *Engine) Address() common.Address { return e.address }

// Owner returns the current owner.
func (e *Engine) Owner() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// Nonce returns the current transaction nonce.
func (e *Engine) Nonce() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nonce
}

// Balance returns a copy of the native-currency balance.
func (e *Engine) Balance() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.balance)
}

// Deposit credits native currency to the account.
func (e *Engine) Deposit(amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance.Add(e.balance, amount)
}

// Guardians returns a snapshot of the guardian set.
func (e *Engine) Guardians() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]common.Address, 0, len(e.guardians))
	for guardian := range e.guardians {
		out = append(out, guardian)
	}
	return out
}

// RequiredGuardians returns the confirmation threshold.
func (e *Engine) RequiredGuardians() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.required
}

// IsGuardian reports whether addr is in the guardian set.
func (e *Engine) IsGuardian(addr common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.guardians[addr]
	return ok
}

// Request returns a copy of the recovery request with the given id.
func (e *Engine) Request(id uint64) (*RecoveryRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.requests[id]
	if !ok {
		return nil, fmt.Errorf("id %d: %w", id, ErrRequestNotFound)
	}
	return copyRequest(req), nil
}

// Requests returns copies of all recovery requests, oldest first.
func (e *Engine) Requests() []*RecoveryRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*RecoveryRequest, 0, len(e.requests))
	for id := uint64(1); id <= e.nextRequestID; id++ {
		if req, ok := e.requests[id]; ok {
			out = append(out, copyRequest(req))
		}
	}
	return out
}

func copyRequest(req *RecoveryRequest) *RecoveryRequest {
	confirmations := make(map[common.Address]time.Time, len(req.Confirmations))
	for addr, at := range req.Confirmations {
		confirmations[addr] = at
	}
	return &RecoveryRequest{
		ID:            req.ID,
		ProposedOwner: req.ProposedOwner,
		Confirmations: confirmations,
		InitiatedAt:   req.InitiatedAt,
		Executed:      req.Executed,
	}
}

// AddGuardian registers a new guardian. Owner only.
func (e *Engine) AddGuardian(caller, guardian common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if guardian == (common.Address{}) {
		return ErrZeroAddress
	}
	if guardian == e.owner {
		return ErrOwnerAsGuardian
	}
	if _, exists := e.guardians[guardian]; exists {
		return fmt.Errorf("%s: %w", guardian.Hex(), ErrDuplicateGuardian)
	}
	if len(e.guardians) >= e.maxGuardians {
		return fmt.Errorf("%w: %d", ErrGuardianLimit, e.maxGuardians)
	}

	e.guardians[guardian] = struct{}{}
	// A recovery that promoted the last guardian leaves the threshold at
	// 0; the first guardian added afterwards re-arms it.
	if e.required == 0 {
		e.required = 1
	}
	e.emit(EventGuardianAdded, map[string]interface{}{
		"guardian": guardian.Hex(),
		"count":    len(e.guardians),
	})
	return nil
}

// RemoveGuardian removes a guardian. Owner only. Rejects any removal that
// would drop the guardian count below the confirmation threshold.
func (e *Engine) RemoveGuardian(caller, guardian common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if _, exists := e.guardians[guardian]; !exists {
		return fmt.Errorf("%s: %w", guardian.Hex(), ErrGuardianNotFound)
	}
	if len(e.guardians)-1 < e.required {
		return fmt.Errorf("%w: %d guardians, %d required", ErrThresholdViolation, len(e.guardians)-1, e.required)
	}

	delete(e.guardians, guardian)
	e.emit(EventGuardianRemoved, map[string]interface{}{
		"guardian": guardian.Hex(),
		"count":    len(e.guardians),
	})
	return nil
}

// InitiateRecovery opens a new recovery request proposing newOwner. The
// caller must be a guardian and is counted as the first confirmation.
func (e *Engine) InitiateRecovery(caller, newOwner common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.guardians[caller]; !ok {
		return 0, fmt.Errorf("%s: %w", caller.Hex(), ErrNotGuardian)
	}
	if newOwner == (common.Address{}) {
		return 0, fmt.Errorf("proposed owner: %w", ErrZeroAddress)
	}
	if newOwner == e.owner {
		return 0, ErrSameOwner
	}

	e.nextRequestID++
	now := e.now()
	req := &RecoveryRequest{
		ID:            e.nextRequestID,
		ProposedOwner: newOwner,
		Confirmations: map[common.Address]time.Time{caller: now},
		InitiatedAt:   now,
	}
	e.requests[req.ID] = req

	e.emit(EventRecoveryInitiated, map[string]interface{}{
		"request_id":     req.ID,
		"proposed_owner": newOwner.Hex(),
		"initiator":      caller.Hex(),
		"confirmations":  1,
		"required":       e.required,
	})
	return req.ID, nil
}

// ConfirmRecovery records one guardian confirmation for the request. Each
// guardian confirms at most once; a second confirmation errors instead of
// double-counting. When the threshold is met and the recovery delay has
// elapsed, the recovery executes in the same call.
func (e *Engine) ConfirmRecovery(caller common.Address, id uint64) (executed bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.guardians[caller]; !ok {
		return false, fmt.Errorf("%s: %w", caller.Hex(), ErrNotGuardian)
	}
	req, ok := e.requests[id]
	if !ok {
		return false, fmt.Errorf("id %d: %w", id, ErrRequestNotFound)
	}
	if req.Executed {
		return false, fmt.Errorf("id %d: %w", id, ErrAlreadyExecuted)
	}
	if _, confirmed := req.Confirmations[caller]; confirmed {
		return false, fmt.Errorf("%s on id %d: %w", caller.Hex(), id, ErrAlreadyConfirmed)
	}

	req.Confirmations[caller] = e.now()
	e.emit(EventRecoveryConfirmed, map[string]interface{}{
		"request_id":    req.ID,
		"guardian":      caller.Hex(),
		"confirmations": len(req.Confirmations),
		"required":      e.required,
	})

	// Explicit state check rather than a side-effecting callback: execute
	// only when both the threshold and the time gate pass.
	if len(req.Confirmations) >= e.required && e.elapsed(req) {
		e.executeRecoveryLocked(req)
		return true, nil
	}
	return false, nil
}

// ExecuteRecovery finalizes a mature recovery request. Any caller may
// trigger it; the guards are the confirmation threshold and the delay.
func (e *Engine) ExecuteRecovery(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.requests[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, ErrRequestNotFound)
	}
	if req.Executed {
		return fmt.Errorf("id %d: %w", id, ErrAlreadyExecuted)
	}
	if len(req.Confirmations) < e.required {
		return fmt.Errorf("id %d has %d of %d: %w", id, len(req.Confirmations), e.required, ErrInsufficientConfirmations)
	}
	if !e.elapsed(req) {
		remaining := e.recoveryDelay - e.now().Sub(req.InitiatedAt)
		return fmt.Errorf("id %d, %s remaining: %w", id, remaining.Round(time.Second), ErrRecoveryDelayNotElapsed)
	}

	e.executeRecoveryLocked(req)
	return nil
}

func (e *Engine) elapsed(req *RecoveryRequest) bool {
	return e.now().Sub(req.InitiatedAt) >= e.recoveryDelay
}

// executeRecoveryLocked swaps the owner and marks the request executed.
// Caller holds e.mu and has verified all preconditions.
func (e *Engine) executeRecoveryLocked(req *RecoveryRequest) {
	previousOwner := e.owner
	e.owner = req.ProposedOwner
	req.Executed = true

	// The new owner may have been a guardian; the owner invariant wins.
	// Promoting the sole guardian empties the set, which drops the
	// threshold to 0 until the new owner registers guardians again.
	if _, wasGuardian := e.guardians[e.owner]; wasGuardian {
		delete(e.guardians, e.owner)
		if e.required > len(e.guardians) {
			e.required = len(e.guardians)
		}
	}

	e.emit(EventRecoveryExecuted, map[string]interface{}{
		"request_id":     req.ID,
		"previous_owner": previousOwner.Hex(),
		"new_owner":      e.owner.Hex(),
		"confirmations":  len(req.Confirmations),
	})
	e.emit(EventOwnerChanged, map[string]interface{}{
		"previous_owner": previousOwner.Hex(),
		"new_owner":      e.owner.Hex(),
	})
}

func (e *Engine) emit(eventType string, fields map[string]interface{}) {
	e.sink.Emit(Event{Type: eventType, Account: e.address, Fields: fields})
}
