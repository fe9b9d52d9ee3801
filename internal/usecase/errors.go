package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// cacheError marks a failed read or write of the local cache.
func cacheError(op string, err error) error {
	return &TechnicalError{Code: "CACHE", Message: op, Err: err}
}

var ErrCampaignRequired = &DomainError{Code: "CAMPAIGN_REQUIRED", Message: "a campaign id is required"}

const (
	MsgCredentials  = "Authentication failed: check the Lemlist API key and HubSpot token."
	MsgNotFound     = "Not found: check the campaign or contact identifier."
	MsgUnavailable  = "Service temporarily unavailable, retry later."
	MsgIntegrity    = "Some records were rejected because they reference unknown leads."
	MsgInvalidReply = "The remote service sent an unexpected answer."
	MsgCache        = "The local cache could not be read or written."
	MsgUnexpected   = "Sync failed unexpectedly."
)

// UserMessage maps any error onto the one message shown to an operator.
func UserMessage(err error) string {
	var de *DomainError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return de.Message
	case errors.Is(err, httpclient.ErrUnauthorized):
		return MsgCredentials
	case errors.Is(err, httpclient.ErrNotFound):
		return MsgNotFound
	case errors.Is(err, httpclient.ErrRateLimited),
		errors.Is(err, httpclient.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return MsgUnavailable
	case errors.Is(err, entity.ErrDataIntegrity):
		return MsgIntegrity
	case errors.Is(err, httpclient.ErrMalformed):
		return MsgInvalidReply
	case IsTechnicalError(err):
		return MsgCache
	default:
		return MsgUnexpected
	}
}
