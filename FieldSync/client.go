package FieldSync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Classification describes how a submission attempt resolved.
type Classification int

const (
	// Delivered: the server accepted the report.
	Delivered Classification = iota
	// ValidationRejected: the server refused the payload as malformed.
	// Retrying the identical payload can never succeed.
	ValidationRejected
	// NotFound: the referenced business does not exist on the server.
	NotFound
	// Retryable: a transient server condition; keep the submission queued.
	Retryable
	// NonRetryable: any other definitive refusal; dead-letter it.
	NonRetryable
	// TransportFailure: the request never reached the server.
	TransportFailure
)

func (c Classification) String() string {
	switch c {
	case Delivered:
		return "delivered"
	case ValidationRejected:
		return "validation_rejected"
	case NotFound:
		return "not_found"
	case Retryable:
		return "retryable"
	case NonRetryable:
		return "non_retryable"
	case TransportFailure:
		return "transport_failure"
	}
	return "unknown"
}

// classifyStatus maps an HTTP status onto a submission classification.
func classifyStatus(status int) Classification {
	switch {
	case status >= 200 && status < 300:
		return Delivered
	case status == http.StatusBadRequest:
		return ValidationRejected
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return Retryable
	default:
		return NonRetryable
	}
}

// retryable reports whether a queued submission should stay queued after a
// drain attempt ends with this classification.
func (c Classification) retryable() bool {
	return c == Retryable || c == TransportFailure
}

// Attempt is the result of one POST to the reports endpoint.
type Attempt struct {
	Classification Classification
	StatusCode     int
	Body           []byte
	Err            error
}

// Submitter sends report payloads to the server.
type Submitter struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// Online reports current connectivity. Nil means always online.
	Online func() bool
}

func (s *Submitter) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (s *Submitter) online() bool {
	if s.Online == nil {
		return true
	}
	return s.Online()
}

// Post sends one report payload and classifies the outcome. A transport
// error never returns classifications other than TransportFailure.
func (s *Submitter) Post(ctx context.Context, payload []byte) Attempt {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/reports", bytes.NewReader(payload))
	if err != nil {
		return Attempt{Classification: TransportFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return Attempt{Classification: TransportFailure, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return Attempt{
		Classification: classifyStatus(resp.StatusCode),
		StatusCode:     resp.StatusCode,
		Body:           body,
	}
}

// Outcome tells the caller what happened to a submission handed to Submit.
type Outcome int

const (
	// OutcomeDelivered: accepted by the server, draft cleared.
	OutcomeDelivered Outcome = iota
	// OutcomeQueued: stored for a later drain, draft kept.
	OutcomeQueued
	// OutcomeRejected: definitively refused, draft kept for correction.
	OutcomeRejected
)

// Pipeline binds the submitter to the local store.
type Pipeline struct {
	Store     *Store
	Submitter *Submitter
}

// Submit tries to deliver a report now. Offline or transient failures queue
// the submission; the draft under draftKey survives until the server has
// confirmed delivery.
func (p *Pipeline) Submit(ctx context.Context, draftKey string, payload interface{}) (Outcome, Attempt, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutcomeRejected, Attempt{}, fmt.Errorf("encoding submission: %w", err)
	}

	sub := QueuedSubmission{
		LocalID:  uuid.NewString(),
		DraftKey: draftKey,
		Payload:  datatypes.JSON(raw),
	}

	if !p.Submitter.online() {
		if err := p.Store.Enqueue(sub); err != nil {
			return OutcomeRejected, Attempt{}, err
		}
		return OutcomeQueued, Attempt{Classification: TransportFailure}, nil
	}

	attempt := p.Submitter.Post(ctx, raw)
	switch attempt.Classification {
	case Delivered:
		if draftKey != "" {
			if err := p.Store.ClearDraft(draftKey); err != nil {
				return OutcomeDelivered, attempt, err
			}
		}
		return OutcomeDelivered, attempt, nil

	case Retryable, TransportFailure:
		if err := p.Store.Enqueue(sub); err != nil {
			return OutcomeRejected, attempt, err
		}
		return OutcomeQueued, attempt, nil

	default:
		return OutcomeRejected, attempt, nil
	}
}
