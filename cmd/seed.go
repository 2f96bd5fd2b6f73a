package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

// loadCities parses a seed file. Cities default to active unless the file
// says otherwise.
func loadCities(r io.Reader) ([]models.AllowedCity, error) {
	var raw struct {
		Cities []struct {
			CityName  string   `yaml:"city_name"`
			Latitude  *float64 `yaml:"latitude"`
			Longitude *float64 `yaml:"longitude"`
			IsActive  *bool    `yaml:"is_active"`
		} `yaml:"cities"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	out := make([]models.AllowedCity, 0, len(raw.Cities))
	seen := make(map[string]bool, len(raw.Cities))
	for i, c := range raw.Cities {
		name := strings.TrimSpace(c.CityName)
		switch {
		case name == "":
			return nil, fmt.Errorf("city %d: city_name is required", i+1)
		case c.Latitude == nil || c.Longitude == nil:
			return nil, fmt.Errorf("city %q: latitude and longitude are required", name)
		case *c.Latitude < -90 || *c.Latitude > 90 || *c.Longitude < -180 || *c.Longitude > 180:
			return nil, fmt.Errorf("city %q: coordinates out of range", name)
		case seen[strings.ToLower(name)]:
			return nil, fmt.Errorf("city %q listed twice", name)
		}
		seen[strings.ToLower(name)] = true

		active := true
		if c.IsActive != nil {
			active = *c.IsActive
		}
		out = append(out, models.AllowedCity{CityName: name, Latitude: *c.Latitude, Longitude: *c.Longitude, IsActive: active})
	}
	return out, nil
}

func seedCities(ctx context.Context, repo repository.CityRepository, cities []models.AllowedCity, logger *zap.Logger) error {
	for i := range cities {
		if err := repo.Upsert(ctx, &cities[i]); err != nil {
			return fmt.Errorf("upsert %s: %w", cities[i].CityName, err)
		}
		logger.Info("seeded city", zap.String("city", cities[i].CityName), zap.Bool("active", cities[i].IsActive))
	}
	return nil
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load allowed cities from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			cities, err := loadCities(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, "booking-seed")
			if err != nil {
				return err
			}
			defer a.close()

			return seedCities(ctx, repository.NewGormCityRepository(a.db), cities, a.logger)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "cities.yaml", "seed file")
	return cmd
}
