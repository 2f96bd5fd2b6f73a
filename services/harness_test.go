package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/cache"
	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

var adminEmails = []string{"ops@kineticev.in", "sales@kineticev.in"}

type harness struct {
	txns      *fakeTxnRepo
	subs      fakeSubmissionRepo
	emailLogs fakeEmailLogRepo
	gateway   *fakeGateway
	crm       *fakeCRM
	emails    *fakeEmailSender
	queue     *fakeQueue
	publisher *fakePublisher
	cache     *cache.MemoryCache

	retry     *services.RetryQueue
	forwarder *services.CRMForwarder
	notifier  *services.Notifier
	resolver  *services.StatusResolver
	booking   *services.BookingService
}

func newHarness(t *testing.T, sendAll bool, rows ...*models.Transaction) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		txns:      newFakeTxnRepo(rows...),
		subs:      newFakeSubmissionRepo(),
		emailLogs: newFakeEmailLogRepo(),
		gateway:   &fakeGateway{},
		crm:       &fakeCRM{},
		emails:    &fakeEmailSender{},
		queue:     &fakeQueue{},
		publisher: &fakePublisher{},
		cache:     cache.NewMemoryCache(),
	}

	h.retry = services.NewRetryQueue(h.queue, logger)
	h.forwarder = services.NewCRMForwarder(h.crm, h.subs, h.retry, sendAll, nil, logger)
	h.notifier = services.NewNotifier(h.emails, h.emailLogs, h.cache, templates.MustNew(), h.retry,
		services.NotifierConfig{AdminEmails: adminEmails, RetryURL: "https://kineticev.in/book-now"}, nil, logger)
	h.resolver = services.NewStatusResolver(h.txns, h.gateway, h.forwarder, h.notifier, h.publisher, nil, logger)

	seq := 0
	newID := func() string {
		seq++
		return "KEV1700000000gen" + string(rune('a'+seq))
	}
	h.booking = services.NewBookingService(h.txns, h.gateway, h.notifier, services.NewRequestValidator(), newID,
		services.BookingConfig{
			BaseURL:  "https://kineticev.in/",
			Variants: []string{"dx", "dx_plus"},
			Colors:   []string{"red", "blue", "white", "black", "grey"},
		}, nil, logger)
	return h
}

func pendingTxn(id string) *models.Transaction {
	return &models.Transaction{
		TxnID:     id,
		FirstName: "Asha",
		Phone:     "9876543210",
		Email:     "asha@example.com",
		Address:   "12 MG Road",
		City:      "Pune",
		State:     "Maharashtra",
		Pincode:   "411001",
		Variant:   "dx",
		Color:     "red",
		Amount:    decimal.RequireFromString("1000.00"),
		Status:    models.StatusPending,
	}
}
