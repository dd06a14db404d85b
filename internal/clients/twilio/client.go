package twilio

import (
	"context"
	"errors"
	"fmt"

	"voice-relay/internal/observability"

	twiliosdk "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	ErrTerminationRequestFailed = errors.New("call termination request failed")
	ErrMissingCallSID           = errors.New("call SID is required")
	ErrMissingCredentials       = errors.New("Twilio account SID and auth token are required")
)

// Call status values reported by the REST API.
const (
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusCanceled   = "canceled"
)

// CallUpdater is the slice of the v2010 API used to control live calls.
type CallUpdater interface {
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

// CallControl hangs up calls through the Twilio REST API.
type CallControl struct {
	calls  CallUpdater
	logger *observability.Logger
}

// NewCallControl builds a REST client authenticated with the account credentials.
func NewCallControl(accountSID, authToken string, logger *observability.Logger) (*CallControl, error) {
	if accountSID == "" || authToken == "" {
		return nil, ErrMissingCredentials
	}
	rest := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewCallControlWithUpdater(rest.Api, logger), nil
}

func NewCallControlWithUpdater(calls CallUpdater, logger *observability.Logger) *CallControl {
	return &CallControl{calls: calls, logger: logger}
}

// EndCall moves the call to completed, which disconnects the caller.
func (c *CallControl) EndCall(ctx context.Context, callSID string) error {
	if callSID == "" {
		c.logger.Warn(ctx, "No CallSid available to end call")
		return ErrMissingCallSID
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})

	params := &api.UpdateCallParams{}
	params.SetStatus(CallStatusCompleted)

	resp, err := c.calls.UpdateCall(callSID, params)
	if err != nil {
		c.logger.Error(ctx, "Failed to end call", err)
		return fmt.Errorf("%w: %w", ErrTerminationRequestFailed, err)
	}

	status := ""
	if resp != nil && resp.Status != nil {
		status = *resp.Status
	}
	c.logger.Info(observability.WithFields(ctx, observability.Field{Key: "status", Value: status}), "Call ended via Twilio")
	return nil
}

// SignatureValidator checks the X-Twilio-Signature header on webhook requests.
type SignatureValidator struct {
	validator client.RequestValidator
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: client.NewRequestValidator(authToken)}
}

// Validate reports whether signature matches the full request URL and its POST form values.
func (v *SignatureValidator) Validate(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	return v.validator.Validate(url, params, signature)
}
