package repository

import (
	"context"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TestRideRepository interface {
	Create(ctx context.Context, ride *models.TestRide) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TestRide, error)
	SetCRMRecordID(ctx context.Context, id uuid.UUID, crmRecordID string) error
}

type GormTestRideRepository struct {
	db *gorm.DB
}

func NewGormTestRideRepository(db *gorm.DB) TestRideRepository {
	return &GormTestRideRepository{db: db}
}

func (r *GormTestRideRepository) Create(ctx context.Context, ride *models.TestRide) error {
	if ride.ID == uuid.Nil {
		ride.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(ride).Error
}

func (r *GormTestRideRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TestRide, error) {
	var ride models.TestRide
	if err := r.db.WithContext(ctx).First(&ride, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &ride, nil
}

func (r *GormTestRideRepository) SetCRMRecordID(ctx context.Context, id uuid.UUID, crmRecordID string) error {
	return r.db.WithContext(ctx).
		Model(&models.TestRide{}).
		Where("id = ?", id).
		Update("crm_record_id", crmRecordID).Error
}
