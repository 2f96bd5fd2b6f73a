package controllers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/controllers"
	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testRenderer = templates.MustNew()
	testLogger   = zap.NewNop()
	testURLs     = controllers.PageURLs{Booking: "/book-now", ThankYou: "/thank-you", Home: "/"}
)

const txnID = "KEV1700000000abcd1234"

type mockBooking struct {
	initiateFn func(ctx context.Context, req *services.BookingRequest) (*services.InitiateResult, error)
	got        *services.BookingRequest
}

func (m *mockBooking) Initiate(ctx context.Context, req *services.BookingRequest) (*services.InitiateResult, error) {
	m.got = req
	return m.initiateFn(ctx, req)
}

type mockResolver struct {
	resolveFn func(ctx context.Context, txnID string) (*services.Resolution, error)
	calls     []string
}

func (m *mockResolver) Resolve(ctx context.Context, txnID string) (*services.Resolution, error) {
	m.calls = append(m.calls, txnID)
	return m.resolveFn(ctx, txnID)
}

func resolvedAs(state string) *mockResolver {
	return &mockResolver{resolveFn: func(_ context.Context, id string) (*services.Resolution, error) {
		return &services.Resolution{TxnID: id, State: state, Changed: true}, nil
	}}
}

func failingResolver(err error) *mockResolver {
	return &mockResolver{resolveFn: func(context.Context, string) (*services.Resolution, error) {
		return nil, err
	}}
}

type mockDistance struct {
	checkFn  func(ctx context.Context, pincode string) (*services.DistanceResult, *services.ServiceError)
	citiesFn func(ctx context.Context) ([]services.CityView, *services.ServiceError)
}

func (m *mockDistance) Check(ctx context.Context, pincode string) (*services.DistanceResult, *services.ServiceError) {
	return m.checkFn(ctx, pincode)
}

func (m *mockDistance) AllowedCities(ctx context.Context) ([]services.CityView, *services.ServiceError) {
	return m.citiesFn(ctx)
}

type mockOTP struct {
	generateFn func(ctx context.Context, phone, purpose string) (*services.OTPIssued, *services.ServiceError)
	verifyFn   func(ctx context.Context, phone, code, purpose string) *services.ServiceError
}

func (m *mockOTP) Generate(ctx context.Context, phone, purpose string) (*services.OTPIssued, *services.ServiceError) {
	return m.generateFn(ctx, phone, purpose)
}

func (m *mockOTP) Verify(ctx context.Context, phone, code, purpose string) *services.ServiceError {
	return m.verifyFn(ctx, phone, code, purpose)
}

type mockTestRides struct {
	submitFn func(ctx context.Context, req *services.TestRideRequest) (*models.TestRide, *services.ServiceError)
	got      *services.TestRideRequest
}

func (m *mockTestRides) Submit(ctx context.Context, req *services.TestRideRequest) (*models.TestRide, *services.ServiceError) {
	m.got = req
	return m.submitFn(ctx, req)
}

type mockTxnReader struct {
	findFn func(ctx context.Context, txnID string) (*models.Transaction, error)
	listFn func(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error)
	filter models.TransactionFilter
}

func (m *mockTxnReader) FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error) {
	return m.findFn(ctx, txnID)
}

func (m *mockTxnReader) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error) {
	m.filter = filter
	return m.listFn(ctx, filter)
}

type mockCities struct {
	cities []models.AllowedCity
	err    error
	setID  uint
	setTo  bool
}

func (m *mockCities) List(context.Context) ([]models.AllowedCity, error) {
	return m.cities, m.err
}

func (m *mockCities) SetActive(_ context.Context, id uint, active bool) error {
	m.setID, m.setTo = id, active
	return m.err
}

type mockPinger struct{ err error }

func (m mockPinger) PingContext(context.Context) error { return m.err }
