package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
)

func newOTPService(repo *fakeOTPRepo, sms *fakeSMSSender) *services.OTPService {
	cfg := services.DefaultOTPConfig()
	cfg.HashCost = bcrypt.MinCost
	return services.NewOTPService(repo, sms, cfg, zap.NewNop())
}

func sentCode(t *testing.T, sms *fakeSMSSender) string {
	t.Helper()
	require.NotEmpty(t, sms.msgs)
	return sms.msgs[len(sms.msgs)-1][:6]
}

func wrongCode(code string) string {
	if code[0] == '9' {
		return "0" + code[1:]
	}
	return string(code[0]+1) + code[1:]
}

func TestOTPGenerate(t *testing.T) {
	repo, sms := &fakeOTPRepo{}, &fakeSMSSender{}
	svc := newOTPService(repo, sms)

	issued, svcErr := svc.Generate(context.Background(), "+91 98765 43210", models.OTPPurposeTestRide)
	require.Nil(t, svcErr)
	assert.Equal(t, 600, issued.ExpiresIn)

	assert.Equal(t, []string{"9876543210"}, sms.to)
	code := sentCode(t, sms)
	assert.Regexp(t, `^\d{6}$`, code)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.NotEqual(t, code, row.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(row.CodeHash), []byte(code)))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), row.ExpiresAt, 5*time.Second)
}

func TestOTPGenerate_Cooldown(t *testing.T) {
	repo, sms := &fakeOTPRepo{}, &fakeSMSSender{}
	svc := newOTPService(repo, sms)

	_, svcErr := svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.Nil(t, svcErr)

	_, svcErr = svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)

	// another purpose has its own cooldown
	_, svcErr = svc.Generate(context.Background(), "9876543210", models.OTPPurposeBooking)
	assert.Nil(t, svcErr)

	repo.rows[0].CreatedAt = time.Now().Add(-2 * time.Minute)
	_, svcErr = svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	assert.Nil(t, svcErr)
	assert.Len(t, sms.msgs, 3)
}

func TestOTPGenerate_Invalid(t *testing.T) {
	svc := newOTPService(&fakeOTPRepo{}, &fakeSMSSender{})

	_, svcErr := svc.Generate(context.Background(), "12345", models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = svc.Generate(context.Background(), "9876543210", "login")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestOTPGenerate_SMSFailure(t *testing.T) {
	svc := newOTPService(&fakeOTPRepo{}, &fakeSMSSender{err: errors.New("twilio 503")})

	_, svcErr := svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
}

func TestOTPVerify_Success(t *testing.T) {
	repo, sms := &fakeOTPRepo{}, &fakeSMSSender{}
	svc := newOTPService(repo, sms)

	_, svcErr := svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.Nil(t, svcErr)

	require.Nil(t, svc.Verify(context.Background(), "+919876543210", sentCode(t, sms), models.OTPPurposeTestRide))

	ok, err := svc.IsVerified(context.Background(), "9876543210", models.OTPPurposeTestRide, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// a used code cannot be replayed
	svcErr = svc.Verify(context.Background(), "9876543210", sentCode(t, sms), models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestOTPVerify_AttemptLimit(t *testing.T) {
	repo, sms := &fakeOTPRepo{}, &fakeSMSSender{}
	svc := newOTPService(repo, sms)

	_, svcErr := svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.Nil(t, svcErr)
	code := sentCode(t, sms)
	bad := wrongCode(code)

	svcErr = svc.Verify(context.Background(), "9876543210", bad, models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Invalid OTP. 4 attempts left.", svcErr.Message)

	for i := 0; i < 3; i++ {
		svcErr = svc.Verify(context.Background(), "9876543210", bad, models.OTPPurposeTestRide)
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	}

	svcErr = svc.Verify(context.Background(), "9876543210", bad, models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)

	// even the right code is refused once attempts are spent
	svcErr = svc.Verify(context.Background(), "9876543210", code, models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
	assert.Equal(t, 5, repo.rows[0].Attempts)
}

func TestOTPVerify_ExpiredOrMissing(t *testing.T) {
	repo, sms := &fakeOTPRepo{}, &fakeSMSSender{}
	svc := newOTPService(repo, sms)

	svcErr := svc.Verify(context.Background(), "9876543210", "123456", models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = svc.Generate(context.Background(), "9876543210", models.OTPPurposeTestRide)
	require.Nil(t, svcErr)
	repo.rows[0].ExpiresAt = time.Now().Add(-time.Second)

	svcErr = svc.Verify(context.Background(), "9876543210", sentCode(t, sms), models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Contains(t, svcErr.Message, "expired")

	svcErr = svc.Verify(context.Background(), "9876543210", "12ab56", models.OTPPurposeTestRide)
	require.NotNil(t, svcErr)
	assert.Equal(t, "OTP must be 6 digits", svcErr.Message)
}
