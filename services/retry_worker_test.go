package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
)

func TestRetryQueue_Unconfigured(t *testing.T) {
	q := services.NewRetryQueue(nil, zap.NewNop())
	assert.NoError(t, q.Enqueue(context.Background(), models.SideEffectJob{Kind: models.JobKindCRM, TxnID: txnID, Attempt: 1}))

	var nilQueue *services.RetryQueue
	assert.NoError(t, nilQueue.Enqueue(context.Background(), models.SideEffectJob{Kind: models.JobKindCRM}))
}

func TestRetryQueue_DropsBeyondMaxAttempts(t *testing.T) {
	fq := &fakeQueue{}
	q := services.NewRetryQueue(fq, zap.NewNop())

	require.NoError(t, q.Enqueue(context.Background(), models.SideEffectJob{Kind: models.JobKindCRM, TxnID: txnID, Attempt: services.MaxJobAttempts}))
	require.NoError(t, q.Enqueue(context.Background(), models.SideEffectJob{Kind: models.JobKindCRM, TxnID: txnID, Attempt: services.MaxJobAttempts + 1}))
	assert.Len(t, fq.bodies, 1)
}

type workerHarness struct {
	*harness
	rides  *fakeTestRideRepo
	worker *services.SideEffectWorker
}

func newWorkerHarness(t *testing.T, rows ...*models.Transaction) *workerHarness {
	h := newHarness(t, false, rows...)
	rides := newFakeTestRideRepo()
	trs := services.NewTestRideService(rides, nil, h.forwarder, h.notifier, services.NewRequestValidator(), false, zap.NewNop())
	return &workerHarness{
		harness: h,
		rides:   rides,
		worker:  services.NewSideEffectWorker(h.txns, trs, h.forwarder, h.notifier, h.retry, nil, zap.NewNop()),
	}
}

func jobBody(t *testing.T, job models.SideEffectJob) string {
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return string(b)
}

func TestWorker_ReplaysCRM(t *testing.T) {
	done := pendingTxn(txnID)
	done.Status = models.StatusCompleted
	w := newWorkerHarness(t, done)

	err := w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindCRM, TxnID: txnID, Status: models.StatusCompleted, FormType: models.FormTypeBooking, Attempt: 1,
	}))
	require.NoError(t, err)
	require.Equal(t, 1, w.crm.count())
	assert.Equal(t, models.StatusCompleted, w.crm.leads[0].PaymentStatus)
	assert.Empty(t, w.queue.bodies)
}

func TestWorker_FailedReplayRequeuesWithNextAttempt(t *testing.T) {
	w := newWorkerHarness(t, pendingTxn(txnID))
	w.crm.err = errors.New("salesforce down")

	err := w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindCRM, TxnID: txnID, Status: models.StatusCompleted, FormType: models.FormTypeBooking, Attempt: 2,
	}))
	require.NoError(t, err)

	jobs := w.queue.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 3, jobs[0].Attempt)
}

func TestWorker_LastAttemptFailureIsDropped(t *testing.T) {
	w := newWorkerHarness(t, pendingTxn(txnID))
	w.crm.err = errors.New("salesforce down")

	err := w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindCRM, TxnID: txnID, Status: models.StatusCompleted, FormType: models.FormTypeBooking, Attempt: services.MaxJobAttempts,
	}))
	require.NoError(t, err)
	assert.Empty(t, w.queue.bodies)
}

func TestWorker_RequeueFailureKeepsMessage(t *testing.T) {
	w := newWorkerHarness(t, pendingTxn(txnID))
	w.crm.err = errors.New("salesforce down")
	w.queue.err = errors.New("sqs unavailable")

	err := w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindCRM, TxnID: txnID, Status: models.StatusCompleted, FormType: models.FormTypeBooking, Attempt: 1,
	}))
	assert.Error(t, err)
}

func TestWorker_DropsBadMessages(t *testing.T) {
	w := newWorkerHarness(t)

	assert.NoError(t, w.worker.Handle(context.Background(), "{not json"))
	assert.NoError(t, w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{Kind: "fax", TxnID: txnID, Attempt: 1})))
	assert.NoError(t, w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{Kind: models.JobKindCRM, TxnID: "KEVgone0001", Attempt: 1})))
	assert.NoError(t, w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{Kind: models.JobKindCRM, TxnID: txnID, Attempt: 9})))
	assert.Empty(t, w.queue.bodies)
	assert.Equal(t, 0, w.crm.count())
}

func TestWorker_ReplaysEmail(t *testing.T) {
	done := pendingTxn(txnID)
	done.Status = models.StatusCompleted
	w := newWorkerHarness(t, done)

	err := w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindEmail, TxnID: txnID, Outcome: models.OutcomeSuccess, Recipient: "asha@example.com", Attempt: 1,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@example.com"}, w.emails.recipients())

	// already sent: replay is a no-op
	err = w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindEmail, TxnID: txnID, Outcome: models.OutcomeSuccess, Recipient: "asha@example.com", Attempt: 1,
	}))
	require.NoError(t, err)
	assert.Len(t, w.emails.sent, 1)
}

func TestWorker_ReplaysTestRide(t *testing.T) {
	w := newWorkerHarness(t)
	ride := &models.TestRide{ID: uuid.New(), Name: "Ravi", Phone: "9123456789", Email: "ravi@example.com", Pincode: "560001"}
	require.NoError(t, w.rides.Create(context.Background(), ride))
	key := services.TestRideKey(ride)

	require.NoError(t, w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindCRM, TxnID: key, Status: services.StatusSubmitted, FormType: models.FormTypeTestRide, Attempt: 1,
	})))
	require.Equal(t, 1, w.crm.count())
	assert.Equal(t, key, w.crm.leads[0].TransactionID)

	require.NoError(t, w.worker.Handle(context.Background(), jobBody(t, models.SideEffectJob{
		Kind: models.JobKindEmail, TxnID: key, Outcome: models.OutcomeTestRide, Recipient: adminEmails[0], Attempt: 1,
	})))
	assert.Equal(t, []string{adminEmails[0]}, w.emails.recipients())
}
