package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var phoneRe = regexp.MustCompile(`^9[6-8][0-9]{8}$`)

// ValidPhone matches Nepali mobile numbers (NTC, Ncell and Smart ranges).
func ValidPhone(fl validator.FieldLevel) bool {
	return phoneRe.MatchString(fl.Field().String())
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nepaliphone", ValidPhone)
	return v
}()

type PaymentManager struct {
	gateways map[Provider]PaymentGateway
	newID    func() string
}

func NewPaymentManager() *PaymentManager {
	return &PaymentManager{
		gateways: make(map[Provider]PaymentGateway),
		newID:    func() string { return uuid.NewString() },
	}
}

func (m *PaymentManager) RegisterGateway(p Provider, gateway PaymentGateway) {
	m.gateways[p] = gateway
}

// Supports reports whether p is both a known provider and registered.
func (m *PaymentManager) Supports(p Provider) bool {
	_, ok := m.gateways[p]
	return ok
}

// Validate checks a request without touching any gateway. The returned
// error is a *ValidationError listing every rejected field.
func (m *PaymentManager) Validate(req PaymentRequest) error {
	var fields []FieldError

	if _, ok := ParseProvider(string(req.Gateway)); !ok {
		fields = append(fields, FieldError{Field: "gateway", Message: fmt.Sprintf("unsupported gateway %q", req.Gateway)})
	} else if !m.Supports(req.Gateway) {
		fields = append(fields, FieldError{Field: "gateway", Message: fmt.Sprintf("gateway %q is not enabled", req.Gateway)})
	}

	switch {
	case !req.Amount.IsPositive():
		fields = append(fields, FieldError{Field: "amount", Message: "must be greater than zero"})
	case !req.Amount.Equal(req.Amount.Round(2)):
		fields = append(fields, FieldError{Field: "amount", Message: "must have at most two decimal places"})
	}

	if c := strings.TrimSpace(req.Currency); c != "" && !strings.EqualFold(c, DefaultCurrency) {
		fields = append(fields, FieldError{Field: "currency", Message: "only NPR is supported"})
	}

	if err := validate.Struct(req.CustomerInfo); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   "customerInfo." + strings.ToLower(fe.Field()),
				Message: customerMessage(fe),
			})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func customerMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "nepaliphone":
		return "must be a 10 digit Nepali mobile number"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// InitiatePayment validates req, assigns a transaction id and asks the
// gateway adapter for a signed form or hosted URL. Invalid requests never
// reach an adapter.
func (m *PaymentManager) InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := m.Validate(req); err != nil {
		return PaymentResult{Success: false, Error: err.Error()}, err
	}

	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		txID = m.newID()
	}

	gateway := m.gateways[req.Gateway]
	form, err := gateway.BuildPaymentForm(ctx, FormRequest{
		TransactionID: txID,
		Amount:        req.Amount.Round(2),
		ProductName:   productName(req.Description),
		Customer:      req.CustomerInfo,
	})
	if err != nil {
		return PaymentResult{Success: false, TransactionID: txID, Error: err.Error()}, err
	}

	res := PaymentResult{
		Success:       true,
		TransactionID: txID,
		PaymentURL:    form.PaymentURL,
		ProviderRef:   form.ProviderRef,
		Fields:        form.Fields,
	}
	if form.Action != "" {
		html, err := renderFormHTML(req.Gateway, form)
		if err != nil {
			return PaymentResult{Success: false, TransactionID: txID, Error: err.Error()}, fmt.Errorf("render %s form: %w", req.Gateway, err)
		}
		res.FormHTML = html
	}

	return res, nil
}

func (m *PaymentManager) VerifyPayment(ctx context.Context, p Provider, req VerifyRequest) (*VerificationResult, error) {
	gateway, ok := m.gateways[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayDisabled, p)
	}
	return gateway.VerifyPayment(ctx, req)
}

func (m *PaymentManager) ParseCallback(p Provider, q url.Values) (*Callback, error) {
	gateway, ok := m.gateways[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayDisabled, p)
	}
	return gateway.ParseCallback(q)
}

func productName(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "Donation"
	}
	return truncate(desc, 100)
}
