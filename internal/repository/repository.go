package repository

import (
	"fmt"
	"time"

	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"

	"gorm.io/gorm"
)

// observe records a query's duration under its query_type label
func observe(queryType string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
}

// AccountRepository persistence for smart account mirrors
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account record
func (r *AccountRepository) Create(record *models.SmartAccountRecord) error {
	defer observe("account_create", time.Now())
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create account record: %w", err)
	}
	return nil
}

// GetByAddress looks an account up by its address
func (r *AccountRepository) GetByAddress(address string) (*models.SmartAccountRecord, error) {
	defer observe("account_get", time.Now())
	var record models.SmartAccountRecord
	if err := r.db.Where("address = ?", address).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Update saves a mutated account record
func (r *AccountRepository) Update(record *models.SmartAccountRecord) error {
	defer observe("account_update", time.Now())
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("failed to update account record: %w", err)
	}
	return nil
}

// List returns all account records
func (r *AccountRepository) List() ([]models.SmartAccountRecord, error) {
	defer observe("account_list", time.Now())
	var records []models.SmartAccountRecord
	if err := r.db.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// RecoveryRepository persistence for recovery request mirrors
type RecoveryRepository struct {
	db *gorm.DB
}

// NewRecoveryRepository creates a recovery repository
func NewRecoveryRepository(db *gorm.DB) *RecoveryRepository {
	return &RecoveryRepository{db: db}
}

// Create inserts a new recovery record
func (r *RecoveryRepository) Create(record *models.RecoveryRequestRecord) error {
	defer observe("recovery_create", time.Now())
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create recovery record: %w", err)
	}
	return nil
}

// GetByRequestID finds the record for an engine-local request id
func (r *RecoveryRepository) GetByRequestID(accountAddress string, requestID uint64) (*models.RecoveryRequestRecord, error) {
	defer observe("recovery_get", time.Now())
	var record models.RecoveryRequestRecord
	err := r.db.Where("account_address = ? AND request_id = ?", accountAddress, requestID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update saves a mutated recovery record
func (r *RecoveryRepository) Update(record *models.RecoveryRequestRecord) error {
	defer observe("recovery_update", time.Now())
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("failed to update recovery record: %w", err)
	}
	return nil
}

// ListByAccount returns all recovery records for an account
func (r *RecoveryRepository) ListByAccount(accountAddress string) ([]models.RecoveryRequestRecord, error) {
	defer observe("recovery_list", time.Now())
	var records []models.RecoveryRequestRecord
	err := r.db.Where("account_address = ?", accountAddress).
		Order("initiated_at ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ExecutionRepository persistence for route execution records
type ExecutionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository creates an execution repository
func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create inserts a new execution record
func (r *ExecutionRepository) Create(record *models.ExecutionRecord) error {
	defer observe("execution_create", time.Now())
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create execution record: %w", err)
	}
	return nil
}

// GetByID looks an execution record up by id
func (r *ExecutionRepository) GetByID(id string) (*models.ExecutionRecord, error) {
	defer observe("execution_get", time.Now())
	var record models.ExecutionRecord
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus transitions an execution record's status
func (r *ExecutionRepository) UpdateStatus(id string, status models.ExecutionStatus, errorMsg string) error {
	defer observe("execution_update_status", time.Now())
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}
	if err := r.db.Model(&models.ExecutionRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update execution status: %w", err)
	}
	return nil
}

// ListByAccount returns execution records for an account, newest first
func (r *ExecutionRepository) ListByAccount(accountAddress string, limit int) ([]models.ExecutionRecord, error) {
	defer observe("execution_list", time.Now())
	if limit <= 0 {
		limit = 50
	}
	var records []models.ExecutionRecord
	err := r.db.Where("account_address = ?", accountAddress).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
