package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/akshay-since1987/kineticev-sub002/controllers"
	"github.com/akshay-since1987/kineticev-sub002/database"
	"github.com/akshay-since1987/kineticev-sub002/middleware"
	"github.com/akshay-since1987/kineticev-sub002/routes"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, "booking-serve")
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger

	if migrate {
		if err := database.RunMigrations(a.db, log); err != nil {
			return err
		}
	}

	comp, err := a.buildComponents(ctx)
	if err != nil {
		return err
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.PrometheusMetrics(),
		middleware.CloudWatchMetrics(a.metrics, "booking-service"),
		middleware.Timeout(requestTimeout),
	)

	urls := controllers.PageURLs{
		Booking:  a.cfg.BookingURL,
		ThankYou: a.cfg.ThankYouURL,
		Home:     a.cfg.HomeURL,
	}
	webhook := controllers.WebhookCredentials{
		Username: a.cfg.PhonePe.WebhookUsername,
		Password: a.cfg.PhonePe.WebhookPassword,
	}

	limiter := middleware.NewRateLimiter(rate.Every(time.Minute/20), 10, 5*time.Minute)
	go limiter.Cleanup(ctx)

	routes.RegisterPaymentRoutes(r,
		controllers.NewBookingController(comp.booking, comp.renderer, urls, log),
		controllers.NewPaymentController(comp.resolver, comp.renderer, urls, webhook, log),
	)
	routes.RegisterPublicAPIRoutes(r,
		controllers.NewDistanceController(comp.distance),
		controllers.NewOTPController(comp.otp),
		controllers.NewTestRideController(comp.testRides, log),
		a.cfg.AllowedOrigins,
		limiter,
	)
	routes.RegisterAdminRoutes(r, controllers.NewAdminController(comp.txns, comp.cities, comp.resolver, log), []byte(a.cfg.JWTSecret))
	routes.RegisterOpsRoutes(r, controllers.NewHealthController(sqlDB))

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("booking service started", zap.String("port", a.cfg.Port), zap.String("environment", a.cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down booking service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("server exited cleanly")
	return nil
}
