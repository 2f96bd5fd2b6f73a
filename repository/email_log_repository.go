package repository

import (
	"context"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmailLogRepository guards email sends with an insert-if-absent claim on
// (txn_id, outcome, recipient).
type EmailLogRepository interface {
	Claim(ctx context.Context, txnID, outcome, recipient, kind string) error
	MarkSent(ctx context.Context, txnID, outcome, recipient, messageID string) error
	Release(ctx context.Context, txnID, outcome, recipient string) error
	Exists(ctx context.Context, txnID, outcome, recipient string) (bool, error)
}

type GormEmailLogRepository struct {
	db *gorm.DB
}

func NewGormEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &GormEmailLogRepository{db: db}
}

func (r *GormEmailLogRepository) Claim(ctx context.Context, txnID, outcome, recipient, kind string) error {
	entry := &models.EmailLog{
		TxnID:     txnID,
		Outcome:   outcome,
		Recipient: recipient,
		Kind:      kind,
		State:     models.ClaimStateClaimed,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrAlreadyClaimed
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

func (r *GormEmailLogRepository) MarkSent(ctx context.Context, txnID, outcome, recipient, messageID string) error {
	return r.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("txn_id = ? AND outcome = ? AND recipient = ?", txnID, outcome, recipient).
		Updates(map[string]interface{}{
			"state":      models.ClaimStateSent,
			"message_id": messageID,
		}).Error
}

func (r *GormEmailLogRepository) Release(ctx context.Context, txnID, outcome, recipient string) error {
	return r.db.WithContext(ctx).
		Where("txn_id = ? AND outcome = ? AND recipient = ? AND state = ?", txnID, outcome, recipient, models.ClaimStateClaimed).
		Delete(&models.EmailLog{}).Error
}

func (r *GormEmailLogRepository) Exists(ctx context.Context, txnID, outcome, recipient string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("txn_id = ? AND outcome = ? AND recipient = ?", txnID, outcome, recipient).
		Count(&count).Error
	return count > 0, err
}
