package models

import (
	"time"
)

// account recovery request status enum
type RecoveryStatus string

const (
	RecoveryStatusPending   RecoveryStatus = "pending"   // initiated, collecting confirmations
	RecoveryStatusConfirmed RecoveryStatus = "confirmed" // threshold met, waiting for recovery delay
	RecoveryStatusExecuted  RecoveryStatus = "executed"  // owner swapped
)

// route execution status enum
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"   // strategy built, not submitted yet
	ExecutionStatusSubmitted ExecutionStatus = "submitted" // transaction(s) broadcast
	ExecutionStatusCompleted ExecutionStatus = "completed" // all splits confirmed on chain
	ExecutionStatusFailed    ExecutionStatus = "failed"    // at least one split reverted
	ExecutionStatusRefunded  ExecutionStatus = "refunded"  // funds returned after failure
)

// SmartAccountRecord persisted mirror of an account engine's identity
type SmartAccountRecord struct {
	ID                string    `json:"id" gorm:"primaryKey"` // UUID
	Address           string    `json:"address" gorm:"uniqueIndex;not null"`
	Owner             string    `json:"owner" gorm:"not null"`
	Guardians         string    `json:"guardians" gorm:"type:jsonb;not null"` // JSON array of addresses
	RequiredGuardians int       `json:"required_guardians" gorm:"not null"`
	Nonce             uint64    `json:"nonce" gorm:"default:0"`
	Balance           string    `json:"balance" gorm:"default:'0'"` // wei, decimal string
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RecoveryRequestRecord persisted mirror of a recovery request
type RecoveryRequestRecord struct {
	ID             string         `json:"id" gorm:"primaryKey"` // UUID
	AccountAddress string         `json:"account_address" gorm:"index;not null"`
	RequestID      uint64         `json:"request_id" gorm:"not null"` // engine-local auto-increment id
	ProposedOwner  string         `json:"proposed_owner" gorm:"not null"`
	Confirmations  string         `json:"confirmations" gorm:"type:jsonb;not null"` // JSON array of guardian addresses
	Status         RecoveryStatus `json:"status" gorm:"not null"`
	InitiatedAt    time.Time      `json:"initiated_at"`
	ExecutedAt     *time.Time     `json:"executed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ExecutionRecord one executed (or attempted) aggregated route strategy
type ExecutionRecord struct {
	ID             string          `json:"id" gorm:"primaryKey"` // UUID
	AccountAddress string          `json:"account_address" gorm:"index;not null"`
	StrategyType   string          `json:"strategy_type" gorm:"not null"` // single-route or split-route
	Protocols      string          `json:"protocols" gorm:"not null"`     // comma-separated protocol ids
	FromChainID    int             `json:"from_chain_id" gorm:"not null"`
	ToChainID      int             `json:"to_chain_id" gorm:"not null"`
	FromToken      string          `json:"from_token" gorm:"not null"`
	ToToken        string          `json:"to_token" gorm:"not null"`
	TotalAmount    string          `json:"total_amount" gorm:"not null"` // wei, decimal string
	MinOutput      string          `json:"min_output" gorm:"not null"`   // wei, decimal string; settlement reconciliation target
	Deadline       int64           `json:"deadline" gorm:"not null"`     // unix seconds
	SecurityScore  int             `json:"security_score"`
	EstimatedTime  int             `json:"estimated_time"` // seconds
	EstimatedFees  string          `json:"estimated_fees"`
	Status         ExecutionStatus `json:"status" gorm:"not null"`
	TxHashes       string          `json:"tx_hashes" gorm:"type:jsonb"` // JSON array, one per split
	ErrorMsg       string          `json:"error_message" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
