package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akshay-since1987/kineticev-sub002/services"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Retry failed CRM and email side effects from the SQS queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, "booking-worker")
	if err != nil {
		return err
	}
	defer a.close()

	comp, err := a.buildComponents(ctx)
	if err != nil {
		return err
	}
	if comp.sqs == nil {
		return fmt.Errorf("SIDE_EFFECT_QUEUE_URL is required for the worker")
	}

	worker := services.NewSideEffectWorker(comp.txns, comp.testRides, comp.crm, comp.notifier, comp.queue, a.metrics, a.logger)
	if err := comp.sqs.StartPolling(ctx, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
