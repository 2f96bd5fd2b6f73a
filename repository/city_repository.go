package repository

import (
	"context"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CityRepository interface {
	ListActive(ctx context.Context) ([]models.AllowedCity, error)
	List(ctx context.Context) ([]models.AllowedCity, error)
	SetActive(ctx context.Context, id uint, active bool) error
	Upsert(ctx context.Context, city *models.AllowedCity) error
}

type GormCityRepository struct {
	db *gorm.DB
}

func NewGormCityRepository(db *gorm.DB) CityRepository {
	return &GormCityRepository{db: db}
}

func (r *GormCityRepository) ListActive(ctx context.Context) ([]models.AllowedCity, error) {
	var cities []models.AllowedCity
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("city_name ASC").
		Find(&cities).Error
	return cities, err
}

func (r *GormCityRepository) List(ctx context.Context) ([]models.AllowedCity, error) {
	var cities []models.AllowedCity
	err := r.db.WithContext(ctx).Order("city_name ASC").Find(&cities).Error
	return cities, err
}

func (r *GormCityRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.AllowedCity{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts a city or refreshes coordinates and active flag by name.
func (r *GormCityRepository) Upsert(ctx context.Context, city *models.AllowedCity) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "city_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "is_active", "updated_at"}),
		}).
		Create(city).Error
}
