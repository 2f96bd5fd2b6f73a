package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
)

// Config holds all configuration for the booking service. Values come from
// the environment (and .env when present).
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	BaseURL     string `env:"BASE_URL" env-default:"http://localhost:8080"`
	BookingURL  string `env:"BOOKING_PAGE_URL" env-default:"/book-now"`
	ThankYouURL string `env:"THANK_YOU_URL" env-default:"/thank-you"`
	HomeURL     string `env:"HOME_URL" env-default:"/"`

	Postgres   PostgresConfig
	RedisURL   string `env:"REDIS_URL"`
	AWS        AWSConfig
	PhonePe    PhonePeConfig
	Salesforce SalesforceConfig
	Maps       MapsConfig
	Email      EmailConfig
	SMTP       SMTPConfig
	Twilio     TwilioConfig
	Events     EventsConfig
	Booking    BookingConfig

	SendAllPaymentsToCRM  bool     `env:"SEND_ALL_PAYMENTS_TO_CRM" env-default:"false"`
	SideEffectQueueURL    string   `env:"SIDE_EFFECT_QUEUE_URL"`
	JWTSecret             string   `env:"JWT_SECRET"`
	AllowedOrigins        []string `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	RequireOTPForTestRide bool     `env:"REQUIRE_OTP_FOR_TEST_RIDE" env-default:"true"`
}

type PostgresConfig struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	DB       string `env:"POSTGRES_DB"`
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
	TimeZone string `env:"POSTGRES_TIMEZONE" env-default:"Asia/Kolkata"`
}

// DSN returns the keyword/value connection string used by gorm.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode, p.TimeZone)
}

// URL returns the postgres:// form used by golang-migrate.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type AWSConfig struct {
	Region             string `env:"AWS_REGION" env-default:"ap-south-1"`
	Endpoint           string `env:"AWS_ENDPOINT"`
	UseSecrets         bool   `env:"AWS_USE_SECRETS" env-default:"false"`
	CloudWatchEnabled  bool   `env:"CLOUDWATCH_ENABLED" env-default:"false"`
	CloudWatchLogGroup string `env:"CLOUDWATCH_LOG_GROUP" env-default:"/kinetic/booking"`
	MetricsNamespace   string `env:"CLOUDWATCH_NAMESPACE" env-default:"KineticBooking"`
}

type PhonePeConfig struct {
	BaseURL         string        `env:"PHONEPE_BASE_URL" env-default:"https://api-preprod.phonepe.com/apis/pg-sandbox"`
	AuthURL         string        `env:"PHONEPE_AUTH_URL" env-default:"https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token"`
	ClientID        string        `env:"PHONEPE_CLIENT_ID"`
	ClientSecret    string        `env:"PHONEPE_CLIENT_SECRET"`
	ClientVersion   string        `env:"PHONEPE_CLIENT_VERSION" env-default:"1"`
	WebhookUsername string        `env:"PHONEPE_WEBHOOK_USERNAME"`
	WebhookPassword string        `env:"PHONEPE_WEBHOOK_PASSWORD"`
	ConnectTimeout  time.Duration `env:"GATEWAY_CONNECT_TIMEOUT" env-default:"10s"`
	ReadTimeout     time.Duration `env:"GATEWAY_READ_TIMEOUT" env-default:"30s"`
}

type SalesforceConfig struct {
	LoginURL     string `env:"SALESFORCE_LOGIN_URL" env-default:"https://login.salesforce.com"`
	ClientID     string `env:"SALESFORCE_CLIENT_ID"`
	ClientSecret string `env:"SALESFORCE_CLIENT_SECRET"`
	APIVersion   string `env:"SALESFORCE_API_VERSION" env-default:"v59.0"`
}

// Enabled reports whether CRM credentials are present.
func (s SalesforceConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type MapsConfig struct {
	APIKey              string        `env:"GOOGLE_MAPS_API_KEY"`
	BaseURL             string        `env:"GOOGLE_MAPS_BASE_URL" env-default:"https://maps.googleapis.com"`
	DistanceThresholdKm float64       `env:"DISTANCE_THRESHOLD_KM" env-default:"50"`
	GeocodeCacheTTL     time.Duration `env:"GEOCODE_CACHE_TTL" env-default:"24h"`
}

type EmailConfig struct {
	Driver      string        `env:"EMAIL_DRIVER" env-default:"ses"`
	From        string        `env:"EMAIL_FROM" env-default:"noreply@kineticev.in"`
	AdminEmails []string      `env:"ADMIN_EMAILS" env-separator:","`
	DedupTTL    time.Duration `env:"EMAIL_DEDUP_TTL" env-default:"30m"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" env-default:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
}

type EventsConfig struct {
	Driver       string   `env:"EVENTS_DRIVER" env-default:"none"`
	SNSTopicARN  string   `env:"PAYMENT_SNS_TOPIC_ARN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" env-default:"booking.payments"`
}

type BookingConfig struct {
	Variants []string `env:"BOOKING_VARIANTS" env-separator:"," env-default:"dx,dx_plus"`
	Colors   []string `env:"BOOKING_COLORS" env-separator:"," env-default:"red,blue,white,black,grey"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	cfg.Email.AdminEmails = compact(cfg.Email.AdminEmails)
	cfg.Events.KafkaBrokers = compact(cfg.Events.KafkaBrokers)
	cfg.AllowedOrigins = compact(cfg.AllowedOrigins)
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	p := c.Postgres
	if p.User == "" || p.Password == "" || p.DB == "" || p.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	switch c.Email.Driver {
	case "ses", "smtp":
	default:
		return fmt.Errorf("unknown EMAIL_DRIVER %q", c.Email.Driver)
	}
	switch c.Events.Driver {
	case "sns", "kafka", "none":
	default:
		return fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver)
	}
	if c.Maps.DistanceThresholdKm <= 0 {
		return fmt.Errorf("DISTANCE_THRESHOLD_KM must be positive")
	}
	return nil
}

const (
	dbSecretName      = "booking/DB_CREDENTIALS"
	gatewaySecretName = "booking/GATEWAY_CREDENTIALS"
)

// ApplySecrets overrides database and gateway credentials from Secrets
// Manager. Missing secrets leave the environment values untouched.
func (c *Config) ApplySecrets(ctx context.Context, sm aws_pkg.SecretGetter) {
	if m, err := aws_pkg.GetJSONSecret(ctx, sm, dbSecretName); err == nil {
		override(&c.Postgres.User, m["POSTGRES_USER"])
		override(&c.Postgres.Password, m["POSTGRES_PASSWORD"])
		override(&c.Postgres.DB, m["POSTGRES_DB"])
		override(&c.Postgres.Host, m["POSTGRES_HOST"])
		override(&c.Postgres.Port, m["POSTGRES_PORT"])
	}
	if m, err := aws_pkg.GetJSONSecret(ctx, sm, gatewaySecretName); err == nil {
		override(&c.PhonePe.ClientID, m["PHONEPE_CLIENT_ID"])
		override(&c.PhonePe.ClientSecret, m["PHONEPE_CLIENT_SECRET"])
		override(&c.PhonePe.WebhookUsername, m["PHONEPE_WEBHOOK_USERNAME"])
		override(&c.PhonePe.WebhookPassword, m["PHONEPE_WEBHOOK_PASSWORD"])
		override(&c.Salesforce.ClientID, m["SALESFORCE_CLIENT_ID"])
		override(&c.Salesforce.ClientSecret, m["SALESFORCE_CLIENT_SECRET"])
		override(&c.Maps.APIKey, m["GOOGLE_MAPS_API_KEY"])
		override(&c.Twilio.AuthToken, m["TWILIO_AUTH_TOKEN"])
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
