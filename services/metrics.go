package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
)

var (
	paymentsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_payments_initiated_total",
			Help: "Booking submissions by initiation result",
		},
		[]string{"result"},
	)

	statusResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_status_resolutions_total",
			Help: "Gateway status checks by resolved state",
		},
		[]string{"state"},
	)

	sideEffects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_side_effects_total",
			Help: "CRM pushes and emails by outcome",
		},
		[]string{"kind", "result"},
	)

	distanceChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_distance_checks_total",
			Help: "Serviceability checks by result",
		},
		[]string{"result"},
	)
)

// recordCount forwards a counter to CloudWatch when a recorder is wired.
// Failures are ignored; CloudWatch metrics are advisory.
func recordCount(ctx context.Context, rec aws_pkg.MetricsRecorder, name string, dims map[string]string) {
	if rec == nil {
		return
	}
	_ = rec.RecordCount(ctx, name, dims)
}
