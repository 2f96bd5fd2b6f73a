package cmd

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/akshay-since1987/kineticev-sub002/cache"
	"github.com/akshay-since1987/kineticev-sub002/config"
	"github.com/akshay-since1987/kineticev-sub002/database"
	"github.com/akshay-since1987/kineticev-sub002/events"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/pkg/logger"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/sender"
	"github.com/akshay-since1987/kineticev-sub002/services"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

// app is the process-wide state every command starts from.
type app struct {
	cfg     *config.Config
	aws     sdkaws.Config
	logger  *zap.Logger
	db      *gorm.DB
	metrics aws_pkg.MetricsRecorder
	closers []func() error
}

// bootstrap loads config, applies Secrets Manager overrides, builds the
// logger (tee'd to CloudWatch when enabled) and connects to Postgres.
func bootstrap(ctx context.Context, processName string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx, aws_pkg.Options{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
	if err != nil {
		return nil, err
	}

	if cfg.AWS.UseSecrets {
		cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg, aws: awsCfg}

	var logErr error
	if cfg.AWS.CloudWatchEnabled {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.AWS.CloudWatchLogGroup, processName)
		if err != nil {
			logErr = err
			a.logger, err = logger.New(cfg.Environment, nil)
		} else {
			a.logger, err = logger.New(cfg.Environment, cw)
		}
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.AWS.MetricsNamespace, true)
	} else if a.logger, err = logger.New(cfg.Environment, nil); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a.logger = a.logger.With(zap.String("process", processName))
	a.closers = append(a.closers, func() error { _ = a.logger.Sync(); return nil })
	if logErr != nil {
		a.logger.Warn("cloudwatch logs unavailable, logging to console only", zap.Error(logErr))
	}

	db, err := database.Connect(cfg.Postgres.DSN(), a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() error { return database.Close(db) })
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
}

// components is the wired service graph shared by serve and worker.
type components struct {
	txns      repository.TransactionRepository
	cities    repository.CityRepository
	booking   *services.BookingService
	resolver  *services.StatusResolver
	distance  *services.DistanceService
	otp       *services.OTPService
	testRides *services.TestRideService
	crm       *services.CRMForwarder
	notifier  *services.Notifier
	queue     *services.RetryQueue
	sqs       *aws_pkg.SQSClient
	renderer  *templates.Renderer
}

func (a *app) buildComponents(ctx context.Context) (*components, error) {
	cfg, log := a.cfg, a.logger

	renderer, err := templates.New()
	if err != nil {
		return nil, err
	}

	kv := a.buildCache(ctx)

	emails, err := a.buildEmailSender()
	if err != nil {
		return nil, err
	}
	sms, err := a.buildSMSSender()
	if err != nil {
		return nil, err
	}
	publisher := a.buildPublisher()
	a.closers = append(a.closers, publisher.Close)

	var queueSender aws_pkg.QueueSender
	var sqsClient *aws_pkg.SQSClient
	if cfg.SideEffectQueueURL != "" {
		sqsClient = aws_pkg.NewSQSClient(a.aws, cfg.SideEffectQueueURL, log)
		queueSender = sqsClient
	} else {
		log.Warn("SIDE_EFFECT_QUEUE_URL not set, failed side effects will not be retried")
	}
	queue := services.NewRetryQueue(queueSender, log)

	httpClient := providers.NewHTTPClient(cfg.PhonePe.ConnectTimeout, cfg.PhonePe.ReadTimeout)
	gateway := providers.NewPhonePeClient(providers.PhonePeConfig{
		BaseURL:       cfg.PhonePe.BaseURL,
		AuthURL:       cfg.PhonePe.AuthURL,
		ClientID:      cfg.PhonePe.ClientID,
		ClientSecret:  cfg.PhonePe.ClientSecret,
		ClientVersion: cfg.PhonePe.ClientVersion,
	}, httpClient)

	var crmClient providers.CRM
	if cfg.Salesforce.Enabled() {
		crmClient = providers.NewSalesforceClient(providers.SalesforceConfig{
			LoginURL:     cfg.Salesforce.LoginURL,
			ClientID:     cfg.Salesforce.ClientID,
			ClientSecret: cfg.Salesforce.ClientSecret,
			APIVersion:   cfg.Salesforce.APIVersion,
		}, httpClient)
	} else {
		log.Warn("salesforce credentials not set, CRM forwarding disabled")
	}
	var maps providers.Maps = providers.DisabledMaps{}
	if cfg.Maps.APIKey != "" {
		client, err := providers.NewGoogleMapsClient(cfg.Maps.BaseURL, cfg.Maps.APIKey, httpClient)
		if err != nil {
			return nil, err
		}
		maps = client
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, distance checks will fail")
	}

	txns := repository.NewGormTransactionRepository(a.db)
	cities := repository.NewGormCityRepository(a.db)
	validator := services.NewRequestValidator()

	crm := services.NewCRMForwarder(crmClient, repository.NewGormSubmissionRepository(a.db), queue, cfg.SendAllPaymentsToCRM, a.metrics, log)
	notifier := services.NewNotifier(emails, repository.NewGormEmailLogRepository(a.db), kv, renderer, queue, services.NotifierConfig{
		AdminEmails: cfg.Email.AdminEmails,
		DedupTTL:    cfg.Email.DedupTTL,
		RetryURL:    absoluteURL(cfg.BaseURL, cfg.BookingURL),
	}, a.metrics, log)

	newTxnID, err := services.NewTxnIDGenerator()
	if err != nil {
		return nil, fmt.Errorf("init txn id generator: %w", err)
	}
	booking := services.NewBookingService(txns, gateway, notifier, validator, newTxnID, services.BookingConfig{
		BaseURL:  cfg.BaseURL,
		Variants: cfg.Booking.Variants,
		Colors:   cfg.Booking.Colors,
	}, a.metrics, log)

	otp := services.NewOTPService(repository.NewGormOTPRepository(a.db), sms, services.DefaultOTPConfig(), log)

	return &components{
		txns:      txns,
		cities:    cities,
		booking:   booking,
		resolver:  services.NewStatusResolver(txns, gateway, crm, notifier, publisher, a.metrics, log),
		distance:  services.NewDistanceService(maps, cities, kv, cfg.Maps.DistanceThresholdKm, cfg.Maps.GeocodeCacheTTL, a.metrics, log),
		otp:       otp,
		testRides: services.NewTestRideService(repository.NewGormTestRideRepository(a.db), otp, crm, notifier, validator, cfg.RequireOTPForTestRide, log),
		crm:       crm,
		notifier:  notifier,
		queue:     queue,
		sqs:       sqsClient,
		renderer:  renderer,
	}, nil
}

// buildCache prefers Redis and falls back to process memory; cached values
// are only shortcuts, so losing Redis degrades nothing but hit rate.
func (a *app) buildCache(ctx context.Context) cache.Cache {
	if a.cfg.RedisURL == "" {
		return cache.NewMemoryCache()
	}
	client, err := cache.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		return cache.NewMemoryCache()
	}
	a.closers = append(a.closers, client.Close)
	return cache.NewRedisCache(client, "booking:")
}

func (a *app) buildEmailSender() (sender.EmailSender, error) {
	switch a.cfg.Email.Driver {
	case "smtp":
		s := a.cfg.SMTP
		return sender.NewSMTPSender(s.Host, s.Port, s.Username, s.Password, a.cfg.Email.From)
	default:
		return sender.NewSESSender(aws_pkg.NewSESClient(a.aws), a.cfg.Email.From), nil
	}
}

func (a *app) buildSMSSender() (sender.SMSSender, error) {
	t := a.cfg.Twilio
	if t.AccountSID != "" || a.cfg.Environment == "production" {
		return sender.NewTwilioSender(t.AccountSID, t.AuthToken, t.FromNumber)
	}
	a.logger.Warn("twilio not configured, OTP messages are only logged")
	return sender.NewLogSMSSender(a.logger), nil
}

func (a *app) buildPublisher() events.Publisher {
	switch a.cfg.Events.Driver {
	case "sns":
		return events.NewSNSPublisher(aws_pkg.NewSNSClient(a.aws), a.cfg.Events.SNSTopicARN)
	case "kafka":
		return events.NewKafkaPublisher(a.cfg.Events.KafkaBrokers, a.cfg.Events.KafkaTopic)
	default:
		return events.NoopPublisher{}
	}
}

// absoluteURL resolves a site path against base; absolute URLs pass through.
func absoluteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
