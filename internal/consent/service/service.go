package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"consents/internal/audit"
	"consents/internal/consent/metrics"
	"consents/internal/consent/models"
	"consents/internal/platform/middleware"
	"consents/internal/platform/tracer"
	"consents/internal/sentinel"
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/validation"
)

// Store defines the persistence interface for consent records.
// Error Contract:
// - FindByID, Update and Delete return sentinel.ErrNotFound when no record exists
// - Create assigns the record id
type Store interface {
	Create(ctx context.Context, consent *models.Consent) error
	FindByID(ctx context.Context, id int64) (*models.Consent, error)
	Update(ctx context.Context, consent *models.Consent) error
	Delete(ctx context.Context, id int64) error
}

// TxRunner runs fn against a Store bound to a single transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// inlineTx runs fn directly against the service store. It is the default for
// stores that serialize writes themselves.
type inlineTx struct {
	store Store
}

func (t inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return fn(ctx, t.store)
}

type Option func(*Service)

// Service applies the consent lifecycle rules on top of a Store.
type Service struct {
	store   Store
	tx      TxRunner
	auditor *audit.Publisher
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		tracer: tracer.NewNoop(),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = inlineTx{store: store}
	}
	return svc
}

// WithTx makes Update and Revoke read and write inside one transaction.
func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithAuditor sets the publisher for lifecycle events.
func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Timestamps are truncated to seconds.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Create stores a new consent. Consents always start as AWAITING_AUTHORISATION.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (_ *models.Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentCreate,
		tracer.String(tracer.AttrUserID, req.UserID),
	)
	defer func() { span.End(err) }()

	if req.Status != models.StatusAwaitingAuthorisation {
		return nil, invalidInput(models.MessageInvalidInitialStatus)
	}

	now := s.clock()
	consent := &models.Consent{
		UserID:      req.UserID,
		Permissions: slices.Clone(req.Permissions),
		Status:      req.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	start := time.Now()
	err = s.store.Create(ctx, consent)
	s.observe("create", start)
	if err != nil {
		return nil, s.translate(err, 0, "failed to save consent")
	}

	span.SetAttributes(
		tracer.String(tracer.AttrConsentID, consent.FormattedID()),
		tracer.String(tracer.AttrStatus, string(consent.Status)),
		tracer.Strings(tracer.AttrPermissions, consent.PermissionStrings()),
	)
	s.emit(ctx, span, models.AuditActionConsentCreated, consent, now)
	if s.metrics != nil {
		for _, p := range consent.Permissions {
			s.metrics.IncrementCreated(string(p))
		}
	}
	s.logger.InfoContext(ctx, "consent created",
		"consent_id", consent.FormattedID(),
		"user_id", consent.UserID,
	)
	return &models.Result{Consent: consent, RequestedAt: now}, nil
}

func (s *Service) Retrieve(ctx context.Context, id int64) (_ *models.Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentRetrieve,
		tracer.String(tracer.AttrConsentID, models.FormatConsentID(id)),
	)
	defer func() { span.End(err) }()

	consent, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	return &models.Result{Consent: consent, RequestedAt: s.clock()}, nil
}

// Update replaces the permissions and status of an existing consent. A consent
// can never be moved back to AWAITING_AUTHORISATION.
func (s *Service) Update(ctx context.Context, id int64, req *models.UpdateRequest) (_ *models.Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentUpdate,
		tracer.String(tracer.AttrConsentID, models.FormatConsentID(id)),
		tracer.String(tracer.AttrStatus, string(req.Status)),
	)
	defer func() { span.End(err) }()

	if req.Status == models.StatusAwaitingAuthorisation {
		return nil, invalidInput(models.MessageInvalidUpdateStatus)
	}

	now := s.clock()
	var consent *models.Consent
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		found, err := s.find(ctx, st, id)
		if err != nil {
			return err
		}
		found.Permissions = slices.Clone(req.Permissions)
		found.Status = req.Status
		found.UpdatedAt = now

		start := time.Now()
		err = st.Update(ctx, found)
		s.observe("update", start)
		if err != nil {
			return s.translate(err, id, "failed to update consent")
		}
		consent = found
		return nil
	})
	if err != nil {
		return nil, s.translate(err, id, "failed to update consent")
	}

	s.emit(ctx, span, models.AuditActionConsentUpdated, consent, now)
	if s.metrics != nil {
		s.metrics.IncrementUpdated(string(consent.Status))
	}
	s.logger.InfoContext(ctx, "consent updated",
		"consent_id", consent.FormattedID(),
		"status", consent.Status,
	)
	return &models.Result{Consent: consent, RequestedAt: now}, nil
}

// Revoke deletes a consent.
func (s *Service) Revoke(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentRevoke,
		tracer.String(tracer.AttrConsentID, models.FormatConsentID(id)),
	)
	defer func() { span.End(err) }()

	var consent *models.Consent
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		found, err := s.find(ctx, st, id)
		if err != nil {
			return err
		}

		start := time.Now()
		err = st.Delete(ctx, id)
		s.observe("delete", start)
		if err != nil {
			return s.translate(err, id, "failed to revoke consent")
		}
		consent = found
		return nil
	})
	if err != nil {
		return s.translate(err, id, "failed to revoke consent")
	}

	s.emit(ctx, span, models.AuditActionConsentRevoked, consent, s.clock())
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	s.logger.InfoContext(ctx, "consent revoked", "consent_id", consent.FormattedID())
	return nil
}

func (s *Service) find(ctx context.Context, st Store, id int64) (*models.Consent, error) {
	start := time.Now()
	consent, err := st.FindByID(ctx, id)
	s.observe("find", start)
	if err != nil {
		return nil, s.translate(err, id, "failed to read consent")
	}
	return consent, nil
}

// translate maps store errors to domain errors exactly once.
func (s *Service) translate(err error, id int64, msg string) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.ErrNotFound(id)
	}
	if errors.Is(err, sentinel.ErrInvalidInput) {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Invalid input")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(op, time.Since(start).Seconds())
	}
}

// emit publishes a lifecycle event. Delivery failures are logged and never
// fail the operation.
func (s *Service) emit(ctx context.Context, span tracer.Span, action string, consent *models.Consent, at time.Time) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Timestamp:   at,
		Action:      action,
		ConsentID:   consent.FormattedID(),
		UserID:      consent.UserID,
		Status:      string(consent.Status),
		Permissions: consent.PermissionStrings(),
		RequestID:   middleware.GetRequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish consent event",
			"error", err,
			"action", action,
			"consent_id", event.ConsentID,
		)
		span.AddEvent(tracer.EventAuditFailed, tracer.String(tracer.AttrAuditAction, action))
		return
	}
	span.AddEvent(tracer.EventAuditEmitted, tracer.String(tracer.AttrAuditAction, action))
}

func invalidInput(detail string) error {
	return dErrors.WithDetails(dErrors.CodeValidation, validation.MessageInvalidInput, detail)
}
