package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/platform/auditlog"
	"github.com/shipline-labs/shipline/internal/platform/auth"
	"github.com/shipline-labs/shipline/internal/repo/postgres"
)

const (
	eventHeaderTimestamp = "X-Shipline-Ts"
	eventHeaderSignature = "X-Shipline-Sig"

	maxEventBodyBytes = 1 << 20
)

type triggerEventRequest struct {
	Kind       string `json:"kind"`
	Revision   string `json:"revision"`
	Branch     string `json:"branch,omitempty"`
	PRNumber   int    `json:"pr_number,omitempty"`
	OriginRepo string `json:"origin_repo"`
	OptIn      bool   `json:"opt_in,omitempty"`
}

func (req triggerEventRequest) toEvent() (domain.TriggerEvent, error) {
	kind, err := domain.ParseTriggerKind(req.Kind)
	if err != nil {
		return domain.TriggerEvent{}, err
	}
	event := domain.TriggerEvent{
		Kind:       kind,
		Revision:   strings.TrimSpace(req.Revision),
		Branch:     strings.TrimSpace(req.Branch),
		PRNumber:   req.PRNumber,
		OriginRepo: strings.TrimSpace(req.OriginRepo),
		OptIn:      req.OptIn,
	}
	if err := event.Validate(); err != nil {
		return domain.TriggerEvent{}, err
	}
	return event, nil
}

func (api *releaserAPI) handleEvent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	if strings.TrimSpace(api.webhookSecret) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	ts := strings.TrimSpace(r.Header.Get(eventHeaderTimestamp))
	sig := strings.TrimSpace(r.Header.Get(eventHeaderSignature))
	if ts == "" || sig == "" {
		api.logger.Warn("event rejected", "reason", "missing_signature_headers")
		api.writeError(w, r, http.StatusUnauthorized, "event_signature_required")
		return
	}

	if err := auth.VerifyTimestamp(ts, time.Now().UTC(), api.webhookMaxSkew); err != nil {
		api.logger.Warn("event rejected", "reason", "invalid_signature_timestamp", "error", err)
		api.writeError(w, r, http.StatusUnauthorized, "event_signature_invalid")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := verifyEventSignature(api.webhookSecret, ts, r.Method, body, sig); err != nil {
		api.logger.Warn("event rejected", "reason", "invalid_signature")
		api.writeError(w, r, http.StatusUnauthorized, "event_signature_invalid")
		return
	}

	var req triggerEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	event, err := req.toEvent()
	if err != nil {
		api.logger.Warn("event rejected", "reason", "invalid_event", "error", err)
		api.writeError(w, r, http.StatusBadRequest, "invalid_event")
		return
	}

	payloadSum := sha256.Sum256(body)
	payloadSHA256 := hex.EncodeToString(payloadSum[:])

	run, err := domain.NewPipelineRun(event)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_event")
		return
	}

	now := time.Now().UTC()
	requestID := r.Header.Get("X-Request-Id")

	// Dedupe row, opt-in upsert, run row, and audit commit together: a
	// transient failure rolls everything back, so the sender's redelivery is
	// a fresh first delivery, never a swallowed duplicate.
	var duplicate bool
	err = api.intake.WithTx(r.Context(), func(tx postgres.Tx) error {
		inserted, err := tx.InsertEvent(r.Context(), run.ID, payloadSHA256, identity.Subject, body)
		if err != nil {
			return err
		}
		if !inserted {
			duplicate = true
			return tx.Audit(r.Context(), auditlog.Event{
				OccurredAt:   now,
				Actor:        identity.Subject,
				Action:       "trigger_event.duplicate",
				ResourceType: "trigger_event",
				ResourceID:   payloadSHA256,
				RequestID:    requestID,
				Payload: map[string]any{
					"service":  "releaser",
					"revision": event.Revision,
				},
			})
		}

		if event.Kind == domain.TriggerPullRequest {
			if event.OptIn {
				if err := tx.MarkOptIn(r.Context(), event.PRNumber); err != nil {
					return err
				}
			}
			// The opt-in signal is sticky per PR: a prior opted-in event
			// keeps authorizing later events that omit the signal.
			optedIn, err := tx.HasOptIn(r.Context(), event.PRNumber)
			if err != nil {
				return err
			}
			event.OptIn = optedIn
			run.Event = event
		}

		if err := tx.InsertRun(r.Context(), run); err != nil {
			return err
		}

		return tx.Audit(r.Context(), auditlog.Event{
			OccurredAt:   now,
			Actor:        identity.Subject,
			Action:       "pipeline_run.create",
			ResourceType: "pipeline_run",
			ResourceID:   run.ID,
			RequestID:    requestID,
			Payload: map[string]any{
				"service":        "releaser",
				"trigger_kind":   string(event.Kind),
				"revision":       event.Revision,
				"origin_repo":    event.OriginRepo,
				"payload_sha256": payloadSHA256,
			},
		})
	})
	if err != nil {
		api.logger.Error("record event failed", "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if duplicate {
		api.writeJSON(w, http.StatusOK, map[string]any{
			"status":         "duplicate",
			"payload_sha256": payloadSHA256,
		})
		return
	}

	api.runner.Start(run)

	w.Header().Set("Location", "/runs/"+run.ID)
	api.writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":         run.ID,
		"status":         string(domain.RunStatusRunning),
		"revision":       event.Revision,
		"payload_sha256": payloadSHA256,
		"received_at":    now,
	})
}

func verifyEventSignature(secret string, ts string, method string, body []byte, signature string) error {
	expected, err := computeEventMAC(secret, ts, method, body)
	if err != nil {
		return err
	}
	got, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return errors.New("invalid signature encoding")
	}
	if !hmac.Equal(expected, got) {
		return errors.New("invalid signature")
	}
	return nil
}

func computeEventMAC(secret string, ts string, method string, body []byte) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return nil, errors.New("timestamp is required")
	}

	sum := sha256.Sum256(body)
	msg := strings.Join([]string{
		ts,
		strings.ToUpper(strings.TrimSpace(method)),
		hex.EncodeToString(sum[:]),
	}, "\n")

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write([]byte(msg)); err != nil {
		return nil, err
	}
	return mac.Sum(nil), nil
}
