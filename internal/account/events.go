package account

import (
	"github.com/ethereum/go-ethereum/common"
)

// Event types emitted by the engine.
const (
	EventRecoveryInitiated = "RecoveryInitiated"
	EventRecoveryConfirmed = "RecoveryConfirmed"
	EventRecoveryExecuted  = "RecoveryExecuted"
	EventOwnerChanged      = "OwnerChanged"
	EventGuardianAdded     = "GuardianAdded"
	EventGuardianRemoved   = "GuardianRemoved"
	EventCallExecuted      = "CallExecuted"
	EventBatchExecuted     = "BatchExecuted"
	EventGasPaidInToken    = "GasPaidInToken"
)

// Event is a lifecycle notification for one account state transition.
type Event struct {
	Type    string                 `json:"type"`
	Account common.Address         `json:"account"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// EventSink receives engine events. Emit is called after the transition
// has committed; implementations must not call back into the engine.
type EventSink interface {
	Emit(event Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}
