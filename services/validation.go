package services

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/akshay-since1987/kineticev-sub002/models"
)

var (
	mobileRe     = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRe    = regexp.MustCompile(`^[1-9]\d{5}$`)
	txnIDRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{6,38}$`)
	alphaSpaceRe = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*$`)
	amountRe     = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// NormalizePhone strips separators and a leading +91, 91 or 0 from an
// Indian mobile number.
func NormalizePhone(raw string) string {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(phone, "+91"):
		phone = phone[3:]
	case len(phone) == 12 && strings.HasPrefix(phone, "91"):
		phone = phone[2:]
	case len(phone) == 11 && strings.HasPrefix(phone, "0"):
		phone = phone[1:]
	}
	return phone
}

func IsValidMobile(raw string) bool  { return mobileRe.MatchString(NormalizePhone(raw)) }
func IsValidPincode(raw string) bool { return pincodeRe.MatchString(strings.TrimSpace(raw)) }
func IsValidTxnID(raw string) bool   { return txnIDRe.MatchString(raw) }

// TermsAccepted reports whether a checkbox value means "accepted".
func TermsAccepted(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}

// ParseAmount parses a positive plain-decimal rupee amount with at most two
// decimals, no larger than models.MaxAmount.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if !amountRe.MatchString(raw) {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() || amount.GreaterThan(models.MaxAmount) {
		return decimal.Zero, false
	}
	return amount, true
}

// RegisterValidations adds the in_mobile, pincode and alpha_space tags to v.
func RegisterValidations(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"in_mobile":   func(fl validator.FieldLevel) bool { return IsValidMobile(fl.Field().String()) },
		"pincode":     func(fl validator.FieldLevel) bool { return IsValidPincode(fl.Field().String()) },
		"alpha_space": func(fl validator.FieldLevel) bool { return alphaSpaceRe.MatchString(strings.TrimSpace(fl.Field().String())) },
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RequestValidator validates inbound forms and renders field messages.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// FieldError is one failed field with a human message.
type FieldError struct {
	Field   string
	Message string
}

// Struct validates s and returns one message per failed field, in field order.
// Fields are named by their form tag.
func (rv *RequestValidator) Struct(s interface{}, labels map[string]string) []FieldError {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "form", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe, labels)})
	}
	return out
}

func fieldMessage(fe validator.FieldError, labels map[string]string) string {
	label := labels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "alpha_space":
		return label + " may contain only letters and spaces"
	case "in_mobile":
		return label + " must be a valid 10-digit Indian mobile number"
	case "email":
		return label + " is not a valid email address"
	case "pincode":
		return label + " must be a valid 6-digit pincode"
	case "max":
		return label + " is too long"
	default:
		return label + " is invalid"
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
