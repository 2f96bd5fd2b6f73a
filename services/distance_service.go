package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/cache"
	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

const (
	defaultDistanceThresholdKm = 50
	defaultGeocodeTTL          = 24 * time.Hour
)

// CityDistance is one row of the distance breakdown.
type CityDistance struct {
	City         string  `json:"city"`
	Distance     float64 `json:"distance"`
	DistanceText string  `json:"distanceText"`
	Duration     string  `json:"duration"`
}

// DistanceResult answers whether a pincode is within delivery range.
type DistanceResult struct {
	Success     bool             `json:"success"`
	IsAllowed   bool             `json:"isAllowed"`
	MinDistance float64          `json:"minDistance"`
	NearestCity string           `json:"nearestCity"`
	City        string           `json:"city"`
	State       string           `json:"state"`
	Coordinates providers.LatLng `json:"coordinates"`
	Distances   []CityDistance   `json:"distances"`
}

// CityView is the public shape of an allowed city.
type CityView struct {
	CityName    string `json:"city_name"`
	Coordinates string `json:"coordinates"`
}

// DistanceService gates bookings on driving distance to the nearest
// allowed city.
type DistanceService struct {
	maps        providers.Maps
	cities      repository.CityRepository
	cache       cache.Cache
	thresholdKm float64
	geocodeTTL  time.Duration
	metrics     aws_pkg.MetricsRecorder
	logger      *zap.Logger
}

func NewDistanceService(
	maps providers.Maps,
	cities repository.CityRepository,
	c cache.Cache,
	thresholdKm float64,
	geocodeTTL time.Duration,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *DistanceService {
	if thresholdKm <= 0 {
		thresholdKm = defaultDistanceThresholdKm
	}
	if geocodeTTL <= 0 {
		geocodeTTL = defaultGeocodeTTL
	}
	return &DistanceService{
		maps:        maps,
		cities:      cities,
		cache:       c,
		thresholdKm: thresholdKm,
		geocodeTTL:  geocodeTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

func geocodeCacheKey(pincode string) string { return "geocode_" + pincode }

// Check geocodes pincode and measures it against every active city.
func (s *DistanceService) Check(ctx context.Context, pincode string) (*DistanceResult, *ServiceError) {
	if !IsValidPincode(pincode) {
		distanceChecks.WithLabelValues("invalid").Inc()
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Please enter a valid 6-digit pincode"}
	}

	cities, err := s.cities.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to load allowed cities", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not load service locations"}
	}
	if len(cities) == 0 {
		distanceChecks.WithLabelValues("no_cities").Inc()
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "No service locations are configured"}
	}

	geo, svcErr := s.geocode(ctx, pincode)
	if svcErr != nil {
		return nil, svcErr
	}

	destinations := make([]string, len(cities))
	for i, c := range cities {
		destinations[i] = c.Coordinates()
	}

	elements, err := s.maps.DistanceMatrix(ctx, geo.Location, destinations)
	if err != nil {
		s.logger.Error("distance matrix failed", zap.String("pincode", pincode), zap.Error(err))
		distanceChecks.WithLabelValues("error").Inc()
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Could not calculate distance right now"}
	}

	result := Nearest(cities, elements, s.thresholdKm)
	result.City = geo.City
	result.State = geo.State
	result.Coordinates = geo.Location

	label := "outside"
	if result.IsAllowed {
		label = "allowed"
	}
	distanceChecks.WithLabelValues(label).Inc()
	recordCount(ctx, s.metrics, aws_pkg.MetricDistanceChecks, map[string]string{"Result": label})

	s.logger.Info("distance check",
		zap.String("pincode", pincode),
		zap.String("nearest_city", result.NearestCity),
		zap.Float64("min_distance_km", result.MinDistance),
		zap.Bool("is_allowed", result.IsAllowed),
	)
	return result, nil
}

// Nearest folds distance-matrix elements into a result. Only elements with
// status OK count; when none do the result is not allowed.
func Nearest(cities []models.AllowedCity, elements []providers.DistanceElement, thresholdKm float64) *DistanceResult {
	result := &DistanceResult{Success: true, Distances: make([]CityDistance, 0, len(cities))}

	minMeters := -1
	for i, el := range elements {
		if i >= len(cities) || el.Status != "OK" {
			continue
		}
		result.Distances = append(result.Distances, CityDistance{
			City:         cities[i].CityName,
			Distance:     roundKm(el.DistanceMeters),
			DistanceText: el.DistanceText,
			Duration:     el.DurationText,
		})
		if minMeters < 0 || el.DistanceMeters < minMeters {
			minMeters = el.DistanceMeters
			result.NearestCity = cities[i].CityName
		}
	}

	if minMeters >= 0 {
		result.MinDistance = roundKm(minMeters)
		result.IsAllowed = float64(minMeters)/1000 <= thresholdKm
	}
	return result
}

func roundKm(meters int) float64 {
	return math.Round(float64(meters)/100) / 10
}

func (s *DistanceService) geocode(ctx context.Context, pincode string) (*providers.GeocodeResult, *ServiceError) {
	key := geocodeCacheKey(pincode)

	var cached providers.GeocodeResult
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
		recordCount(ctx, s.metrics, aws_pkg.MetricGeocodeCacheHits, nil)
		return &cached, nil
	}
	recordCount(ctx, s.metrics, aws_pkg.MetricGeocodeCacheMisses, nil)

	geo, err := s.maps.Geocode(ctx, pincode+", India")
	if err != nil {
		if errors.Is(err, providers.ErrZeroResults) {
			distanceChecks.WithLabelValues("not_found").Inc()
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "We could not find this pincode"}
		}
		s.logger.Error("geocode failed", zap.String("pincode", pincode), zap.Error(err))
		distanceChecks.WithLabelValues("error").Inc()
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Could not look up this pincode right now"}
	}

	if err := cache.SetJSON(ctx, s.cache, key, geo, s.geocodeTTL); err != nil {
		s.logger.Warn("failed to cache geocode", zap.String("pincode", pincode), zap.Error(err))
	}
	return geo, nil
}

// AllowedCities lists active cities in their public shape.
func (s *DistanceService) AllowedCities(ctx context.Context) ([]CityView, *ServiceError) {
	cities, err := s.cities.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list allowed cities", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not load service locations"}
	}

	views := make([]CityView, len(cities))
	for i, c := range cities {
		views[i] = CityView{CityName: c.CityName, Coordinates: c.Coordinates()}
	}
	return views, nil
}
