package webhook

import (
	"errors"
	"net/http"

	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/httpx"
)

const (
	CodePersonaInactive    = "persona_inactive"
	CodeNotConfigured      = "chat_webhook_not_configured"
	CodeDecryptionFailed   = "webhook_url_decryption_failed"
	CodeValidationFailed   = "chat_webhook_validation_failed"
	CodeWebhookNotFound    = "webhook_not_found"
	CodeWebhookTimeout     = "webhook_timeout"
	CodeWebhookUnavailable = "webhook_unavailable"
	CodeWebhookFailed      = "webhook_failed"
	CodeRequestCancelled   = "request_cancelled"
)

const AuditConfigurationError = "webhook_configuration_error"

func errNotConfigured() *apierr.Error {
	return apierr.Newf(http.StatusServiceUnavailable, CodeNotConfigured,
		"this persona is not connected to a chat service yet")
}

func errDecryption() *apierr.Error {
	return apierr.Newf(http.StatusInternalServerError, CodeDecryptionFailed,
		"this persona's chat service configuration could not be read")
}

func errValidation() *apierr.Error {
	return apierr.Newf(http.StatusInternalServerError, CodeValidationFailed,
		"this persona's chat service configuration is invalid")
}

// errCancelled reports a dispatch abandoned because the caller went away.
// 499 follows the nginx convention; the client never reads it.
func errCancelled() *apierr.Error {
	return apierr.Newf(499, CodeRequestCancelled, "the request was cancelled")
}

// Classify maps the last transport error of an exhausted dispatch to the
// user-facing error category.
func Classify(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	switch status := httpx.StatusCode(err); {
	case status == http.StatusNotFound || status == http.StatusMethodNotAllowed:
		return apierr.New(http.StatusBadGateway, CodeWebhookNotFound,
			errors.New("the chat service endpoint was not found or does not accept messages"))
	case httpx.IsTimeout(err):
		return apierr.New(http.StatusGatewayTimeout, CodeWebhookTimeout,
			errors.New("the chat service timed out, please try again"))
	case httpx.IsConnRefused(err):
		return apierr.New(http.StatusServiceUnavailable, CodeWebhookUnavailable,
			errors.New("the chat service is unavailable, please try again later"))
	default:
		return apierr.New(http.StatusBadGateway, CodeWebhookFailed,
			errors.New("the chat service failed to respond"))
	}
}
