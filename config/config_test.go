package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "booking")
	t.Setenv("ADMIN_EMAILS", "ops@kineticev.in, sales@kineticev.in ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.SendAllPaymentsToCRM)
	assert.Equal(t, 50.0, cfg.Maps.DistanceThresholdKm)
	assert.Equal(t, 24*time.Hour, cfg.Maps.GeocodeCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.PhonePe.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.PhonePe.ReadTimeout)
	assert.Equal(t, []string{"dx", "dx_plus"}, cfg.Booking.Variants)
	assert.Equal(t, []string{"red", "blue", "white", "black", "grey"}, cfg.Booking.Colors)
	assert.Equal(t, []string{"ops@kineticev.in", "sales@kineticev.in"}, cfg.Email.AdminEmails)
	assert.True(t, cfg.RequireOTPForTestRide)
}

func TestLoad_Flag(t *testing.T) {
	t.Setenv("SEND_ALL_PAYMENTS_TO_CRM", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.SendAllPaymentsToCRM)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Postgres: PostgresConfig{User: "u", Password: "p", DB: "d", Host: "h"},
			Email:    EmailConfig{Driver: "ses"},
			Events:   EventsConfig{Driver: "none"},
			Maps:     MapsConfig{DistanceThresholdKm: 50},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Postgres.Password = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Email.Driver = "mailgun"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Events.Driver = "nats"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Maps.DistanceThresholdKm = 0
	assert.Error(t, cfg.Validate())
}

type stubSecrets map[string]string

func (s stubSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		Postgres: PostgresConfig{User: "env-user", Password: "env-pass", Host: "db"},
		PhonePe:  PhonePeConfig{ClientID: "env-client"},
	}

	cfg.ApplySecrets(context.Background(), stubSecrets{
		dbSecretName:      `{"POSTGRES_PASSWORD":"sm-pass"}`,
		gatewaySecretName: `{"PHONEPE_CLIENT_SECRET":"sm-secret","SALESFORCE_CLIENT_ID":"sf"}`,
	})

	assert.Equal(t, "env-user", cfg.Postgres.User)
	assert.Equal(t, "sm-pass", cfg.Postgres.Password)
	assert.Equal(t, "env-client", cfg.PhonePe.ClientID)
	assert.Equal(t, "sm-secret", cfg.PhonePe.ClientSecret)
	assert.Equal(t, "sf", cfg.Salesforce.ClientID)
}

func TestPostgresURLs(t *testing.T) {
	p := PostgresConfig{User: "u", Password: "p", DB: "d", Host: "h", Port: "5432", SSLMode: "disable", TimeZone: "Asia/Kolkata"}

	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=disable TimeZone=Asia/Kolkata", p.DSN())
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", p.URL())
}
