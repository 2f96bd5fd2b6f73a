package repository

import (
	"context"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository guards CRM pushes with an insert-if-absent claim on
// (txn_id, status, form_type).
type SubmissionRepository interface {
	Claim(ctx context.Context, txnID, status, formType string) error
	MarkSent(ctx context.Context, txnID, status, formType, crmRecordID string) error
	Release(ctx context.Context, txnID, status, formType string) error
	Exists(ctx context.Context, txnID, status, formType string) (bool, error)
}

type GormSubmissionRepository struct {
	db *gorm.DB
}

func NewGormSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

func (r *GormSubmissionRepository) Claim(ctx context.Context, txnID, status, formType string) error {
	rec := &models.SubmissionRecord{
		TxnID:    txnID,
		Status:   status,
		FormType: formType,
		State:    models.ClaimStateClaimed,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
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

func (r *GormSubmissionRepository) MarkSent(ctx context.Context, txnID, status, formType, crmRecordID string) error {
	return r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("txn_id = ? AND status = ? AND form_type = ?", txnID, status, formType).
		Updates(map[string]interface{}{
			"state":         models.ClaimStateSent,
			"crm_record_id": crmRecordID,
		}).Error
}

// Release deletes an unsent claim so a later attempt can take it.
func (r *GormSubmissionRepository) Release(ctx context.Context, txnID, status, formType string) error {
	return r.db.WithContext(ctx).
		Where("txn_id = ? AND status = ? AND form_type = ? AND state = ?", txnID, status, formType, models.ClaimStateClaimed).
		Delete(&models.SubmissionRecord{}).Error
}

func (r *GormSubmissionRepository) Exists(ctx context.Context, txnID, status, formType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("txn_id = ? AND status = ? AND form_type = ?", txnID, status, formType).
		Count(&count).Error
	return count > 0, err
}
