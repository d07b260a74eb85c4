package account

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Call is one outbound call from the account: a target, an attached
// native-currency value and opaque calldata.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// Dispatcher performs the external side of a Call. Implementations submit
// the call to a chain, a simulator or a test double. A dispatch error
// aborts the enclosing operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, from common.Address, call Call) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, from common.Address, call Call) error

func (f DispatcherFunc) Dispatch(ctx context.Context, from common.Address, call Call) error {
	return f(ctx, from, call)
}

// transferSelector is the 4-byte selector of the ERC-20 transfer function.
var transferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

// snapshot captures the mutable execution state touched by calls, so a
// failed batch can be rolled back as if it never ran.
type snapshot struct {
	nonce   uint64
	balance *big.Int
}

func (e *Engine) snapshotLocked() snapshot {
	return snapshot{nonce: e.nonce, balance: new(big.Int).Set(e.balance)}
}

func (e *Engine) restoreLocked(s snapshot) {
	e.nonce = s.nonce
	e.balance.Set(s.balance)
}

// enter acquires the execution slot. It returns ErrReentrantCall when an
// execution is already in flight, which is how a reentering callee is
// rejected without deadlocking on the state mutex.
func (e *Engine) enter(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.entered {
		return ErrReentrantCall
	}
	if caller != e.owner {
		return ErrNotOwner
	}
	if e.dispatcher == nil {
		return ErrNilDispatcher
	}
	e.entered = true
	return nil
}

func (e *Engine) exit() {
	e.mu.Lock()
	e.entered = false
	e.mu.Unlock()
}

// Execute performs a single owner call. The nonce advances and the value
// is debited only when the dispatch succeeds.
func (e *Engine) Execute(ctx context.Context, caller common.Address, call Call) error {
	if err := e.enter(caller); err != nil {
		return err
	}
	defer e.exit()

	e.mu.Lock()
	snap := e.snapshotLocked()
	if err := e.applyLocked(call); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	// Dispatch happens outside the mutex so a reentrant callee hits the
	// entered flag, not a deadlock.
	if err := e.dispatcher.Dispatch(ctx, e.address, call); err != nil {
		e.mu.Lock()
		e.restoreLocked(snap)
		e.mu.Unlock()
		return fmt.Errorf("dispatch to %s: %w", call.Target.Hex(), err)
	}

	e.emit(EventCallExecuted, map[string]interface{}{
		"target": call.Target.Hex(),
		"value":  valueString(call.Value),
		"nonce":  e.Nonce(),
	})
	return nil
}

// BatchExecute performs the calls in order as one atomic unit. The first
// failure rolls back every state change from the batch and returns an
// error identifying the failing index. One nonce is consumed per call,
// matching the single-call path.
func (e *Engine) BatchExecute(ctx context.Context, caller common.Address, calls []Call) error {
	if len(calls) == 0 {
		return ErrEmptyBatch
	}
	if err := e.enter(caller); err != nil {
		return err
	}
	defer e.exit()

	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	for i, call := range calls {
		e.mu.Lock()
		if err := e.applyLocked(call); err != nil {
			e.restoreLocked(snap)
			e.mu.Unlock()
			return fmt.Errorf("batch call %d: %w", i, err)
		}
		e.mu.Unlock()

		if err := e.dispatcher.Dispatch(ctx, e.address, call); err != nil {
			e.mu.Lock()
			e.restoreLocked(snap)
			e.mu.Unlock()
			return fmt.Errorf("batch call %d to %s: %w", i, call.Target.Hex(), err)
		}
	}

	e.emit(EventBatchExecuted, map[string]interface{}{
		"calls": len(calls),
		"nonce": e.Nonce(),
	})
	return nil
}

// PayGasWithToken compensates a relayer in an ERC-20 token instead of
// native currency: it packs a transfer(relayer, amount) call against the
// token contract and executes it through the normal call path, so the
// reentrancy guard and nonce accounting apply unchanged.
func (e *Engine) PayGasWithToken(ctx context.Context, caller, token, relayer common.Address, amount *big.Int) error {
	if token == (common.Address{}) || relayer == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("gas token amount must be positive")
	}

	data := make([]byte, 0, 4+64)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(relayer.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	if err := e.Execute(ctx, caller, Call{Target: token, Value: new(big.Int), Data: data}); err != nil {
		return err
	}

	e.emit(EventGasPaidInToken, map[string]interface{}{
		"token":   token.Hex(),
		"relayer": relayer.Hex(),
		"amount":  amount.String(),
	})
	return nil
}

// applyLocked validates and applies the local effects of one call: balance
// debit and nonce increment. Caller holds e.mu.
func (e *Engine) applyLocked(call Call) error {
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("negative call value %s", value.String())
	}
	if e.balance.Cmp(value) < 0 {
		return fmt.Errorf("need %s, have %s: %w", value.String(), e.balance.String(), ErrInsufficientBalance)
	}
	e.balance.Sub(e.balance, value)
	e.nonce++
	return nil
}

func valueString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
