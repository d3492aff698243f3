package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/observability"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/httpx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const outcomeOK = "ok"

type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, userID *uuid.UUID, eventType string, payload map[string]any)
}

// Target is a persona endpoint that passed every precondition.
type Target struct {
	PersonaID uuid.UUID
	URL       *url.URL
}

type Result struct {
	Reply string
	// Matched is false when Reply is FallbackReply.
	Matched  bool
	Document gjson.Result
	Attempts int
	Status   int
}

type Deps struct {
	Log      *logger.Logger
	Client   *http.Client
	Cipher   Decrypter
	Breakers *breaker.Registry
	Audit    AuditRecorder
	Policy   Policy
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Dispatcher struct {
	log      *logger.Logger
	client   *http.Client
	cipher   Decrypter
	breakers *breaker.Registry
	audit    AuditRecorder
	policy   Policy
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewHTTPClient() *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{Transport: otelhttp.NewTransport(base)}
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		log:      deps.Log.With("component", "WebhookDispatcher"),
		client:   deps.Client,
		cipher:   deps.Cipher,
		breakers: deps.Breakers,
		audit:    deps.Audit,
		policy:   deps.Policy.withDefaults(),
		sleep:    deps.Sleep,
	}
	if d.client == nil {
		d.client = NewHTTPClient()
	}
	if d.breakers == nil {
		d.breakers = breaker.NewRegistry(breaker.Config{})
	}
	if d.sleep == nil {
		d.sleep = sleepCtx
	}
	return d
}

func (d *Dispatcher) Breakers() *breaker.Registry { return d.breakers }

func (d *Dispatcher) Policy() Policy { return d.policy }

// Prepare checks every precondition that does not need the network. Failures
// are configuration errors: they are audited and never touch the breaker.
func (d *Dispatcher) Prepare(ctx context.Context, persona *types.Persona, userID *uuid.UUID) (*Target, error) {
	if persona == nil {
		return nil, fmt.Errorf("prepare webhook: nil persona")
	}
	if !persona.IsActive {
		return nil, apierr.Newf(http.StatusBadRequest, CodePersonaInactive, "this persona is not active")
	}
	sealed := strings.TrimSpace(persona.WebhookURL)
	if sealed == "" {
		d.configError(ctx, persona.ID, userID, CodeNotConfigured, nil)
		return nil, errNotConfigured()
	}
	plain, err := d.cipher.Decrypt(sealed)
	if err != nil {
		d.configError(ctx, persona.ID, userID, CodeDecryptionFailed, err)
		return nil, errDecryption()
	}
	u, err := ValidateURL(plain, d.policy)
	if err != nil {
		d.configError(ctx, persona.ID, userID, CodeValidationFailed, err)
		return nil, errValidation()
	}
	return &Target{PersonaID: persona.ID, URL: u}, nil
}

func (d *Dispatcher) configError(ctx context.Context, personaID uuid.UUID, userID *uuid.UUID, reason string, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	d.log.Warn("webhook configuration error", "persona_id", personaID, "reason", reason, "detail", detail)
	observability.Current().IncWebhookConfigError(reason)
	if d.audit != nil {
		d.audit.Record(ctx, userID, AuditConfigurationError, map[string]any{
			"persona_id": personaID.String(),
			"reason":     reason,
			"detail":     detail,
		})
	}
}

// Dispatch delivers p with retries. The persona breaker is charged one
// failure only when every attempt ran and failed, and reset on success.
// A dispatch cut short by ctx leaves the breaker untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, t *Target, p Payload) (*Result, error) {
	ctx, span := observability.Tracer("webhook").Start(ctx, "webhook.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("persona.id", t.PersonaID.String()), attribute.Bool("webhook.edit", false))

	start := time.Now()
	br := d.breakers.Get(t.PersonaID.String())
	res, attempts, err := d.run(ctx, t, p, "send")
	span.SetAttributes(attribute.Int("webhook.attempts", attempts))
	if err != nil && ctx.Err() != nil {
		// The caller left before the attempts ran out; the persona is not at fault.
		span.SetStatus(codes.Error, CodeRequestCancelled)
		observability.Current().ObserveWebhookDispatch("send", CodeRequestCancelled, time.Since(start))
		d.log.Info("webhook dispatch abandoned by caller",
			"persona_id", t.PersonaID,
			"attempts", attempts,
			"error", ctx.Err(),
		)
		return nil, errCancelled()
	}
	if err != nil {
		if attempts == d.policy.Attempts() {
			br.OnFailure()
		}
		classified, ok := apierr.As(err)
		if !ok {
			classified = Classify(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, classified.Code)
		observability.Current().ObserveWebhookDispatch("send", classified.Code, time.Since(start))
		d.log.Error("webhook dispatch failed",
			"persona_id", t.PersonaID,
			"attempts", attempts,
			"code", classified.Code,
			"error", err,
		)
		return nil, classified
	}
	br.OnSuccess()
	observability.Current().ObserveWebhookDispatch("send", outcomeOK, time.Since(start))
	return res, nil
}

// Regenerate runs the same retry loop for an edit without consulting or
// charging the breaker. ok is false when every attempt failed.
func (d *Dispatcher) Regenerate(ctx context.Context, t *Target, p Payload) (*Result, bool) {
	ctx, span := observability.Tracer("webhook").Start(ctx, "webhook.regenerate")
	defer span.End()
	span.SetAttributes(attribute.String("persona.id", t.PersonaID.String()), attribute.Bool("webhook.edit", true))

	start := time.Now()
	res, attempts, err := d.run(ctx, t, p, "edit")
	span.SetAttributes(attribute.Int("webhook.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "regenerate failed")
		outcome := CodeWebhookFailed
		if ae, ok := apierr.As(err); ok {
			outcome = ae.Code
		} else if c := Classify(err); c != nil {
			outcome = c.Code
		}
		observability.Current().ObserveWebhookDispatch("edit", outcome, time.Since(start))
		d.log.Warn("webhook regeneration failed, keeping edit without reply",
			"persona_id", t.PersonaID,
			"attempts", attempts,
			"error", err,
		)
		return nil, false
	}
	observability.Current().ObserveWebhookDispatch("edit", outcomeOK, time.Since(start))
	return res, true
}

func (d *Dispatcher) run(ctx context.Context, t *Target, p Payload, mode string) (*Result, int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, 0, apierr.Internal()
	}
	endpoint := t.URL.String()
	maxAttempts := d.policy.Attempts()

	var lastErr error
	attempts := 0
	for n := 1; n <= maxAttempts; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if lastErr == nil {
				lastErr = ctxErr
			}
			break
		}
		attempts = n
		status, raw, err := d.attempt(ctx, endpoint, body)
		if err == nil {
			observability.Current().ObserveWebhookAttempt(mode, outcomeOK)
			doc := Document(raw)
			reply, matched := ExtractReply(doc)
			if !matched {
				d.log.Warn("webhook reply had no recognised shape, using fallback", "persona_id", t.PersonaID, "status", status)
			}
			return &Result{Reply: reply, Matched: matched, Document: doc, Attempts: n, Status: status}, n, nil
		}
		lastErr = err
		observability.Current().ObserveWebhookAttempt(mode, "error")
		d.log.Warn("webhook attempt failed",
			"persona_id", t.PersonaID,
			"mode", mode,
			"attempt", n,
			"max_attempts", maxAttempts,
			"status", status,
			"error", err,
		)
		if n == maxAttempts {
			break
		}
		if err := d.sleep(ctx, d.policy.Backoff(n)); err != nil {
			lastErr = err
			break
		}
	}
	return nil, attempts, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	actx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if d.policy.SigningSecret != "" {
		req.Header.Set(SignatureHeader, Sign(body, d.policy.SigningSecret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return resp.StatusCode, raw, &httpx.StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return resp.StatusCode, raw, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
