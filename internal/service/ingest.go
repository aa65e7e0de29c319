package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alexcrichton/bors2/internal/adapter/otel"
	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/domain/event"
	"github.com/alexcrichton/bors2/internal/domain/project"
	"github.com/alexcrichton/bors2/internal/port/ciprovider"
	"github.com/alexcrichton/bors2/internal/port/database"
	"github.com/alexcrichton/bors2/internal/port/eventstore"
	"github.com/alexcrichton/bors2/internal/port/messagequeue"
	"github.com/alexcrichton/bors2/internal/signature"
)

// GitHubDelivery is one inbound GitHub webhook request, split out from
// its transport headers.
type GitHubDelivery struct {
	DeliveryID string // X-GitHub-Delivery
	EventType  string // X-GitHub-Event
	Signature  string // X-Hub-Signature
	Body       []byte
}

// TravisDelivery is one inbound Travis notification: the form-decoded
// payload field, the detached base64 signature header, and the
// repository slug header.
type TravisDelivery struct {
	Payload   string // form field "payload"
	Signature string // Signature header, base64
	RepoSlug  string // Travis-Repo-Slug header
}

// IngestService verifies inbound webhook deliveries and appends the
// accepted ones to the event log. A row only ever exists for a delivery
// whose signature verified; every rejection is final.
type IngestService struct {
	store   database.Store
	events  eventstore.Log
	travis  ciprovider.Travis
	queue   messagequeue.Publisher
	metrics *otel.Metrics
}

// NewIngestService creates an IngestService. queue may be nil when no
// fanout is configured.
func NewIngestService(
	store database.Store,
	events eventstore.Log,
	travis ciprovider.Travis,
	queue messagequeue.Publisher,
	metrics *otel.Metrics,
) *IngestService {
	return &IngestService{
		store:   store,
		events:  events,
		travis:  travis,
		queue:   queue,
		metrics: metrics,
	}
}

// IngestGitHub authenticates a GitHub delivery for the (owner, name)
// project and records it. The signature is an HMAC over the exact raw
// body under the project's webhook secret; the body is stored untouched.
func (s *IngestService) IngestGitHub(ctx context.Context, owner, name string, d GitHubDelivery) (*event.InboundEvent, error) {
	if d.DeliveryID == "" || d.EventType == "" || d.Signature == "" {
		s.reject(ctx, event.ProviderGitHub, "missing headers")
		return nil, fmt.Errorf("missing delivery headers: %w", domain.ErrMalformedInput)
	}

	p, err := s.store.GetProjectByRepo(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	if err := signature.VerifyGitHub(p.WebhookSecret, d.Body, d.Signature); err != nil {
		s.reject(ctx, event.ProviderGitHub, "bad signature")
		return nil, err
	}

	if !utf8.Valid(d.Body) {
		s.reject(ctx, event.ProviderGitHub, "payload not utf-8")
		return nil, fmt.Errorf("payload is not valid UTF-8: %w", domain.ErrDecode)
	}

	ev, err := s.events.Insert(ctx, &event.InboundEvent{
		Provider:           event.ProviderGitHub,
		ProviderDeliveryID: d.DeliveryID,
		ProviderEvent:      d.EventType,
		Payload:            string(d.Body),
	})
	if err != nil {
		return nil, fmt.Errorf("record github event: %w", err)
	}

	s.accept(ctx, ev, p.FullName())
	return ev, nil
}

// IngestTravis authenticates a Travis notification and records it. The
// signing key is fetched fresh from the Travis config endpoint for every
// delivery; Travis sends no delivery id, so one is minted here.
func (s *IngestService) IngestTravis(ctx context.Context, d TravisDelivery) (*event.InboundEvent, error) {
	if d.Payload == "" || d.Signature == "" || d.RepoSlug == "" {
		s.reject(ctx, event.ProviderTravis, "missing fields")
		return nil, fmt.Errorf("missing delivery fields: %w", domain.ErrMalformedInput)
	}

	sig, err := base64.StdEncoding.DecodeString(d.Signature)
	if err != nil {
		s.reject(ctx, event.ProviderTravis, "bad signature encoding")
		return nil, fmt.Errorf("decode signature: %w", domain.ErrInvalidSignature)
	}

	keyPEM, err := s.travis.PublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch travis public key: %w", err)
	}
	key, err := signature.ParsePublicKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse travis public key: %w", err)
	}

	if err := signature.VerifyTravis(key, []byte(d.Payload), sig); err != nil {
		s.reject(ctx, event.ProviderTravis, "bad signature")
		return nil, err
	}

	owner, name, err := project.SplitFullName(d.RepoSlug)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProjectByRepo(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	ev, err := s.events.Insert(ctx, &event.InboundEvent{
		Provider:           event.ProviderTravis,
		ProviderDeliveryID: uuid.NewString(),
		ProviderEvent:      "build",
		Payload:            d.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("record travis event: %w", err)
	}

	s.accept(ctx, ev, p.FullName())
	return ev, nil
}

// accept logs the stored event and fans it out. Fanout is best effort:
// the delivery is already durable, so a publish failure is only logged.
func (s *IngestService) accept(ctx context.Context, ev *event.InboundEvent, repo string) {
	slog.Info("event recorded",
		"provider", ev.Provider.String(), "repo", repo,
		"event", ev.ProviderEvent, "delivery_id", ev.ProviderDeliveryID, "id", ev.ID)
	if s.metrics != nil {
		s.metrics.DeliveriesAccepted.Add(ctx, 1)
	}

	if s.queue == nil {
		return
	}
	subject := fmt.Sprintf("events.%s.%s", ev.Provider.String(), ev.ProviderEvent)
	if err := s.queue.Publish(ctx, subject, []byte(ev.Payload)); err != nil {
		slog.Error("event fanout failed", "subject", subject, "id", ev.ID, "error", err)
	}
}

func (s *IngestService) reject(ctx context.Context, p event.Provider, reason string) {
	slog.Warn("delivery rejected", "provider", p.String(), "reason", reason)
	if s.metrics != nil {
		s.metrics.DeliveriesRejected.Add(ctx, 1)
	}
}
