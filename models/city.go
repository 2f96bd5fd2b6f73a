package models

import (
	"fmt"
	"time"
)

type AllowedCity struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CityName  string    `json:"city_name" yaml:"city_name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Latitude  float64   `json:"latitude" yaml:"latitude" gorm:"not null"`
	Longitude float64   `json:"longitude" yaml:"longitude" gorm:"not null"`
	IsActive  bool      `json:"is_active" yaml:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" yaml:"-" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" gorm:"autoUpdateTime"`
}

// Coordinates renders "lat,lng" as used by the maps APIs and the public
// cities listing.
func (c AllowedCity) Coordinates() string {
	return fmt.Sprintf("%g,%g", c.Latitude, c.Longitude)
}
