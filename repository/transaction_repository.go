package repository

import (
	"context"
	"time"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionRepository defines data-access operations for booking payments.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error)
	// UpdateStatus moves a PENDING row to status and stores raw. It reports
	// whether a transition happened; terminal rows are never rewritten.
	UpdateStatus(ctx context.Context, txnID, status string, raw []byte) (bool, error)
	SetGatewayOrderID(ctx context.Context, txnID, orderID string) error
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error)
}

type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) TransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.Status == "" {
		txn.Status = models.StatusPending
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTxnID
		}
		return err
	}
	return nil
}

func (r *GormTransactionRepository) FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).
		Where("txn_id = ?", txnID).
		First(&t).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &t, nil
}

func (r *GormTransactionRepository) UpdateStatus(ctx context.Context, txnID, status string, raw []byte) (bool, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if len(raw) > 0 {
		updates["gateway_response"] = datatypes.JSON(raw)
	}
	if models.IsTerminal(status) {
		updates["status"] = status
	}

	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("txn_id = ? AND status = ?", txnID, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return models.IsTerminal(status) && res.RowsAffected > 0, nil
}

func (r *GormTransactionRepository) SetGatewayOrderID(ctx context.Context, txnID, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("txn_id = ?", txnID).
		Update("gateway_order_id", orderID).Error
}

func (r *GormTransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error) {
	filter.Normalize()

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Transaction{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	offset := (filter.Page - 1) * filter.PageSize
	if err := scoped().
		Order("created_at DESC").
		Offset(offset).Limit(filter.PageSize).
		Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
