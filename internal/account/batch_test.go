package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	target1 = common.HexToAddress("0x0000000000000000000000000000000000001111")
	target2 = common.HexToAddress("0x0000000000000000000000000000000000002222")
	target3 = common.HexToAddress("0x0000000000000000000000000000000000003333")
)

// recordingDispatcher captures dispatched calls and can fail on demand
type recordingDispatcher struct {
	calls  []Call
	failOn map[common.Address]error
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{failOn: make(map[common.Address]error)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ common.Address, call Call) error {
	if err, ok := d.failOn[call.Target]; ok {
		return err
	}
	d.calls = append(d.calls, call)
	return nil
}

func newExecEngine(t *testing.T, dispatcher Dispatcher, balance int64) *Engine {
	t.Helper()
	engine, err := NewEngine(accountAddr, owner, []common.Address{guardianA, guardianB}, 1, Options{
		RecoveryDelay: 48 * time.Hour,
		Dispatcher:    dispatcher,
	})
	require.NoError(t, err)
	engine.Deposit(big.NewInt(balance))
	return engine
}

func TestExecuteSingleCall(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	engine := newExecEngine(t, dispatcher, 1000)

	err := engine.Execute(context.Background(), owner, Call{Target: target1, Value: big.NewInt(300)})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), engine.Nonce())
	assert.Equal(t, "700", engine.Balance().String())
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, target1, dispatcher.calls[0].Target)
}

func TestExecuteOwnerOnly(t *testing.T) {
	engine := newExecEngine(t, newRecordingDispatcher(), 1000)

	err := engine.Execute(context.Background(), guardianA, Call{Target: target1})
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, uint64(0), engine.Nonce())
}

func TestExecuteNilDispatcher(t *testing.T) {
	engine, err := NewEngine(accountAddr, owner, []common.Address{guardianA}, 1, Options{})
	require.NoError(t, err)

	err = engine.Execute(context.Background(), owner, Call{Target: target1})
	require.ErrorIs(t, err, ErrNilDispatcher)
}

func TestExecuteDispatchFailureRollsBack(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.failOn[target1] = errors.New("rpc unavailable")
	engine := newExecEngine(t, dispatcher, 1000)

	err := engine.Execute(context.Background(), owner, Call{Target: target1, Value: big.NewInt(300)})
	require.Error(t, err)

	assert.Equal(t, uint64(0), engine.Nonce())
	assert.Equal(t, "1000", engine.Balance().String())
}

func TestBatchExecuteAtomic(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	engine := newExecEngine(t, dispatcher, 1000)

	calls := []Call{
		{Target: target1, Value: big.NewInt(100)},
		{Target: target2, Value: big.NewInt(200)},
		{Target: target3, Value: big.NewInt(300)},
	}
	require.NoError(t, engine.BatchExecute(context.Background(), owner, calls))

	assert.Equal(t, uint64(3), engine.Nonce())
	assert.Equal(t, "400", engine.Balance().String())
	assert.Len(t, dispatcher.calls, 3)
}

func TestBatchExecuteEmptyBatch(t *testing.T) {
	engine := newExecEngine(t, newRecordingDispatcher(), 1000)
	err := engine.BatchExecute(context.Background(), owner, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBatchExecuteMidBatchFailureRollsBackEverything(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.failOn[target2] = errors.New("bridge reverted")
	engine := newExecEngine(t, dispatcher, 1000)

	calls := []Call{
		{Target: target1, Value: big.NewInt(100)},
		{Target: target2, Value: big.NewInt(200)},
		{Target: target3, Value: big.NewInt(300)},
	}
	err := engine.BatchExecute(context.Background(), owner, calls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch call 1")

	// The first call succeeded before the failure, but atomicity means no
	// trace of it survives
	assert.Equal(t, uint64(0), engine.Nonce())
	assert.Equal(t, "1000", engine.Balance().String())
}

func TestBatchExecuteInsufficientBalance(t *testing.T) {
	engine := newExecEngine(t, newRecordingDispatcher(), 250)

	calls := []Call{
		{Target: target1, Value: big.NewInt(100)},
		{Target: target2, Value: big.NewInt(200)},
	}
	err := engine.BatchExecute(context.Background(), owner, calls)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "batch call 1")

	assert.Equal(t, uint64(0), engine.Nonce())
	assert.Equal(t, "250", engine.Balance().String())
}

func TestReentrantCallRejected(t *testing.T) {
	var engine *Engine
	var reentrantErr error

	// The dispatcher plays a malicious callee that re-enters the account
	dispatcher := DispatcherFunc(func(ctx context.Context, _ common.Address, call Call) error {
		if call.Target == target1 {
			reentrantErr = engine.Execute(ctx, owner, Call{Target: target2, Value: big.NewInt(999)})
		}
		return nil
	})
	engine = newExecEngine(t, dispatcher, 1000)

	err := engine.Execute(context.Background(), owner, Call{Target: target1, Value: big.NewInt(100)})
	require.NoError(t, err)

	require.ErrorIs(t, reentrantErr, ErrReentrantCall)
	// Only the outer call took effect
	assert.Equal(t, uint64(1), engine.Nonce())
	assert.Equal(t, "900", engine.Balance().String())
}

func TestReentrantBatchRejected(t *testing.T) {
	var engine *Engine
	var reentrantErr error

	dispatcher := DispatcherFunc(func(ctx context.Context, _ common.Address, call Call) error {
		if call.Target == target1 {
			reentrantErr = engine.BatchExecute(ctx, owner, []Call{{Target: target2}})
		}
		return nil
	})
	engine = newExecEngine(t, dispatcher, 1000)

	err := engine.BatchExecute(context.Background(), owner, []Call{{Target: target1}})
	require.NoError(t, err)
	require.ErrorIs(t, reentrantErr, ErrReentrantCall)
}

func TestSequentialExecutionsAfterCompletion(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	engine := newExecEngine(t, dispatcher, 1000)

	// The guard releases between executions
	for i := 0; i < 3; i++ {
		err := engine.Execute(context.Background(), owner, Call{Target: target1, Value: big.NewInt(int64(i * 10))})
		require.NoError(t, err, fmt.Sprintf("execution %d", i))
	}
	assert.Equal(t, uint64(3), engine.Nonce())
}

func TestPayGasWithToken(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000004444")
	relayer := common.HexToAddress("0x0000000000000000000000000000000000005555")

	dispatcher := newRecordingDispatcher()
	engine := newExecEngine(t, dispatcher, 1000)

	require.NoError(t, engine.PayGasWithToken(context.Background(), owner, token, relayer, big.NewInt(250)))

	require.Len(t, dispatcher.calls, 1)
	call := dispatcher.calls[0]
	assert.Equal(t, token, call.Target)
	assert.Equal(t, "0", call.Value.String())

	// transfer(address,uint256) selector plus two padded words
	require.Len(t, call.Data, 4+64)
	assert.Equal(t, transferSelector, call.Data[:4])
	assert.Equal(t, relayer.Bytes(), call.Data[4+12:4+32])
	assert.Equal(t, big.NewInt(250), new(big.Int).SetBytes(call.Data[4+32:]))

	// Token gas payment consumes a nonce but no native balance
	assert.Equal(t, uint64(1), engine.Nonce())
	assert.Equal(t, "1000", engine.Balance().String())
}

func TestPayGasWithTokenValidation(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000004444")
	relayer := common.HexToAddress("0x0000000000000000000000000000000000005555")
	engine := newExecEngine(t, newRecordingDispatcher(), 1000)

	err := engine.PayGasWithToken(context.Background(), owner, common.Address{}, relayer, big.NewInt(1))
	require.ErrorIs(t, err, ErrZeroAddress)

	err = engine.PayGasWithToken(context.Background(), owner, token, common.Address{}, big.NewInt(1))
	require.ErrorIs(t, err, ErrZeroAddress)

	err = engine.PayGasWithToken(context.Background(), owner, token, relayer, big.NewInt(0))
	require.Error(t, err)
}
