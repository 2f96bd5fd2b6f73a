package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/sender"
)

// ---- transaction repository ----

type fakeTxnRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.Transaction
	createErr error
	updateErr error
	findErr   error
	creates   int
	orderIDs  map[string]string
}

func newFakeTxnRepo(rows ...*models.Transaction) *fakeTxnRepo {
	r := &fakeTxnRepo{rows: make(map[string]*models.Transaction), orderIDs: make(map[string]string)}
	for _, t := range rows {
		r.rows[t.TxnID] = t
	}
	return r
}

func (r *fakeTxnRepo) Create(_ context.Context, txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.rows[txn.TxnID]; ok {
		return repository.ErrDuplicateTxnID
	}
	cp := *txn
	r.rows[txn.TxnID] = &cp
	return nil
}

func (r *fakeTxnRepo) FindByTxnID(_ context.Context, txnID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	t, ok := r.rows[txnID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTxnRepo) UpdateStatus(_ context.Context, txnID, status string, raw []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return false, r.updateErr
	}
	t, ok := r.rows[txnID]
	if !ok || t.Status != models.StatusPending {
		return false, nil
	}
	t.GatewayResponse = raw
	if !models.IsTerminal(status) {
		return false, nil
	}
	t.Status = status
	return true, nil
}

func (r *fakeTxnRepo) SetGatewayOrderID(_ context.Context, txnID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orderIDs[txnID] = orderID
	return nil
}

func (r *fakeTxnRepo) List(_ context.Context, _ models.TransactionFilter) ([]models.Transaction, int64, error) {
	return nil, 0, nil
}

func (r *fakeTxnRepo) status(txnID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[txnID]; ok {
		return t.Status
	}
	return ""
}

// ---- claim logs (crm submissions and email logs share the shape) ----

type fakeClaims struct {
	mu       sync.Mutex
	state    map[string]string
	claimErr error
	released int
}

func newFakeClaims() *fakeClaims { return &fakeClaims{state: make(map[string]string)} }

func claimKey(parts ...string) string { return fmt.Sprint(parts) }

func (f *fakeClaims) claim(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	if _, ok := f.state[key]; ok {
		return repository.ErrAlreadyClaimed
	}
	f.state[key] = models.ClaimStateClaimed
	return nil
}

func (f *fakeClaims) markSent(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[key] = models.ClaimStateSent
	return nil
}

func (f *fakeClaims) release(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state[key] == models.ClaimStateClaimed {
		delete(f.state, key)
		f.released++
	}
	return nil
}

func (f *fakeClaims) exists(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.state[key]
	return ok
}

func (f *fakeClaims) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key]
}

type fakeSubmissionRepo struct{ *fakeClaims }

func newFakeSubmissionRepo() fakeSubmissionRepo { return fakeSubmissionRepo{newFakeClaims()} }

func (r fakeSubmissionRepo) Claim(_ context.Context, txnID, status, formType string) error {
	return r.claim(claimKey(txnID, status, formType))
}
func (r fakeSubmissionRepo) MarkSent(_ context.Context, txnID, status, formType, _ string) error {
	return r.markSent(claimKey(txnID, status, formType))
}
func (r fakeSubmissionRepo) Release(_ context.Context, txnID, status, formType string) error {
	return r.release(claimKey(txnID, status, formType))
}
func (r fakeSubmissionRepo) Exists(_ context.Context, txnID, status, formType string) (bool, error) {
	return r.exists(claimKey(txnID, status, formType)), nil
}

type fakeEmailLogRepo struct{ *fakeClaims }

func newFakeEmailLogRepo() fakeEmailLogRepo { return fakeEmailLogRepo{newFakeClaims()} }

func (r fakeEmailLogRepo) Claim(_ context.Context, txnID, outcome, recipient, _ string) error {
	return r.claim(claimKey(txnID, outcome, recipient))
}
func (r fakeEmailLogRepo) MarkSent(_ context.Context, txnID, outcome, recipient, _ string) error {
	return r.markSent(claimKey(txnID, outcome, recipient))
}
func (r fakeEmailLogRepo) Release(_ context.Context, txnID, outcome, recipient string) error {
	return r.release(claimKey(txnID, outcome, recipient))
}
func (r fakeEmailLogRepo) Exists(_ context.Context, txnID, outcome, recipient string) (bool, error) {
	return r.exists(claimKey(txnID, outcome, recipient)), nil
}

// ---- cities ----

type fakeCityRepo struct {
	cities []models.AllowedCity
	err    error
}

func (r *fakeCityRepo) ListActive(context.Context) ([]models.AllowedCity, error) {
	return r.cities, r.err
}
func (r *fakeCityRepo) List(context.Context) ([]models.AllowedCity, error) { return r.cities, r.err }
func (r *fakeCityRepo) SetActive(context.Context, uint, bool) error       { return r.err }
func (r *fakeCityRepo) Upsert(context.Context, *models.AllowedCity) error { return r.err }

// ---- otp ----

type fakeOTPRepo struct {
	mu   sync.Mutex
	rows []*models.OTPVerification
}

func (r *fakeOTPRepo) Create(_ context.Context, otp *models.OTPVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, otp)
	return nil
}

func (r *fakeOTPRepo) Latest(_ context.Context, phone, purpose string) (*models.OTPVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if o := r.rows[i]; o.Phone == phone && o.Purpose == purpose {
			return o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOTPRepo) FindActive(_ context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		o := r.rows[i]
		if o.Phone == phone && o.Purpose == purpose && o.VerifiedAt == nil && o.ExpiresAt.After(now) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOTPRepo) find(id uuid.UUID) *models.OTPVerification {
	for _, o := range r.rows {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r *fakeOTPRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.find(id); o != nil {
		o.Attempts++
	}
	return nil
}

func (r *fakeOTPRepo) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.find(id); o != nil {
		o.VerifiedAt = &at
	}
	return nil
}

func (r *fakeOTPRepo) VerifiedSince(_ context.Context, phone, purpose string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.rows {
		if o.Phone == phone && o.Purpose == purpose && o.VerifiedAt != nil && !o.VerifiedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// ---- test rides ----

type fakeTestRideRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.TestRide
	createErr error
}

func newFakeTestRideRepo() *fakeTestRideRepo {
	return &fakeTestRideRepo{rows: make(map[uuid.UUID]*models.TestRide)}
}

func (r *fakeTestRideRepo) Create(_ context.Context, ride *models.TestRide) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *ride
	r.rows[ride.ID] = &cp
	return nil
}

func (r *fakeTestRideRepo) FindByID(_ context.Context, id uuid.UUID) (*models.TestRide, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ride, ok := r.rows[id]; ok {
		cp := *ride
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTestRideRepo) SetCRMRecordID(_ context.Context, id uuid.UUID, crmRecordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ride, ok := r.rows[id]; ok {
		ride.CRMRecordID = crmRecordID
	}
	return nil
}

// ---- gateway ----

type fakeGateway struct {
	mu        sync.Mutex
	tokenErr  error
	orderErr  error
	statusErr error
	status    json.RawMessage
	orders    []providers.CreateOrderRequest
	calls     []string
}

func (g *fakeGateway) FetchToken(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "token")
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return "tok", nil
}

func (g *fakeGateway) CreateOrder(_ context.Context, _ string, req providers.CreateOrderRequest) (*providers.CreateOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "create")
	g.orders = append(g.orders, req)
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return &providers.CreateOrderResponse{
		OrderID:     "OMO123",
		State:       "PENDING",
		RedirectURL: "https://mercury.phonepe.com/transact/checkout?token=abc",
	}, nil
}

func (g *fakeGateway) OrderStatus(context.Context, string, string) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "status")
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

// ---- crm ----

type fakeCRM struct {
	mu    sync.Mutex
	err   error
	leads []providers.Lead
}

func (c *fakeCRM) Push(_ context.Context, lead providers.Lead) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = append(c.leads, lead)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("00Q%03d", len(c.leads)), nil
}

func (c *fakeCRM) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.leads)
}

// ---- maps ----

type fakeMaps struct {
	geo         *providers.GeocodeResult
	geoErr      error
	geoCalls    int
	elements    []providers.DistanceElement
	matrixErr   error
	lastDests   []string
	lastAddress string
}

func (m *fakeMaps) Geocode(_ context.Context, address string) (*providers.GeocodeResult, error) {
	m.geoCalls++
	m.lastAddress = address
	return m.geo, m.geoErr
}

func (m *fakeMaps) DistanceMatrix(_ context.Context, _ providers.LatLng, destinations []string) ([]providers.DistanceElement, error) {
	m.lastDests = destinations
	return m.elements, m.matrixErr
}

// ---- senders ----

type sentEmail struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu     sync.Mutex
	err    error
	failTo map[string]bool
	sent   []sentEmail
}

func (s *fakeEmailSender) SendEmail(_ context.Context, to, subject, body string) (sender.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return sender.SendResult{}, s.err
	}
	if s.failTo[to] {
		return sender.SendResult{}, errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, sentEmail{to, subject, body})
	return sender.SendResult{MessageID: fmt.Sprintf("msg-%d", len(s.sent))}, nil
}

func (s *fakeEmailSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, e := range s.sent {
		out[i] = e.to
	}
	return out
}

type fakeSMSSender struct {
	err  error
	to   []string
	msgs []string
}

func (s *fakeSMSSender) SendSMS(_ context.Context, to, msg string) (sender.SendResult, error) {
	if s.err != nil {
		return sender.SendResult{}, s.err
	}
	s.to = append(s.to, to)
	s.msgs = append(s.msgs, msg)
	return sender.SendResult{MessageID: "SM1"}, nil
}

// ---- queue and events ----

type fakeQueue struct {
	mu     sync.Mutex
	err    error
	bodies []string
}

func (q *fakeQueue) SendMessage(_ context.Context, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}

func (q *fakeQueue) jobs() []models.SideEffectJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.SideEffectJob, 0, len(q.bodies))
	for _, b := range q.bodies {
		var j models.SideEffectJob
		_ = json.Unmarshal([]byte(b), &j)
		out = append(out, j)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []models.PaymentEvent
}

func (p *fakePublisher) Publish(_ context.Context, e models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }
