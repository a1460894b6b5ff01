package number

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/core/events"
	"github.com/frahmantamala/number-provisioning/internal/observability"
	"github.com/frahmantamala/number-provisioning/internal/paymentgateway"
	"github.com/frahmantamala/number-provisioning/internal/provisioning"
	"github.com/frahmantamala/number-provisioning/pkg/logger"
)

// PaymentVerifier is satisfied by *paymentgateway.Registry.
type PaymentVerifier interface {
	Verify(ctx context.Context, ref paymentgateway.Reference) (*paymentgateway.VerifiedPayment, error)
}

type Service struct {
	verifier  PaymentVerifier
	repo      Repository
	activator provisioning.Activator
	publisher events.Publisher
	metrics   *observability.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(verifier PaymentVerifier, repo Repository, activator provisioning.Activator, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		verifier:  verifier,
		repo:      repo,
		activator: activator,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision turns a completed payment into an allocated number for the account.
// Repeating a request for the same number and account returns the existing record.
func (s *Service) Provision(ctx context.Context, accountID int64, req ProvisionRequest) (*ProvisionResult, error) {
	req.Normalize()
	log := s.loggerFor(ctx).With("account_id", accountID, "payment_reference", req.PaymentReference, "gateway", req.Gateway)
	log.Debug("provisioning started", "state", StateStart)

	if accountID <= 0 {
		return nil, s.reject(log, StateStart, internal.ErrAuthRequired)
	}
	if appErr := req.Validate(); appErr != nil {
		return nil, s.reject(log, StateStart, appErr)
	}

	log.Debug("verifying payment", "state", StateVerifying)
	tag, err := paymentgateway.ParseTag(req.Gateway)
	if err != nil {
		return nil, s.reject(log, StateVerifying,
			internal.NewValidationFieldError("gateway", "gateway must be one of A, B", internal.ErrCodeInvalidGateway))
	}
	payment, err := s.verifier.Verify(ctx, paymentgateway.Reference{ID: req.PaymentReference, Gateway: tag})
	if err != nil {
		appErr := verificationError(err)
		if appErr.StatusCode >= 500 {
			return nil, s.fail(log, StateVerifying, appErr)
		}
		return nil, s.reject(log, StateVerifying, appErr)
	}

	log.Debug("reconciling metadata", "state", StateReconciling)
	purchase, err := Reconcile(payment.Metadata, req.CallerFields())
	if err != nil {
		appErr := internal.NewValidationError(err.Error(), internal.ErrCodeMetadataIncomplete).WithCause(err)
		var metaErr *MetadataError
		if errors.As(err, &metaErr) && len(metaErr.Invalid) > 0 {
			appErr = appErr.WithDetails(internal.ValidationErrors{Errors: metaErr.Invalid})
		}
		return nil, s.reject(log, StateReconciling, appErr)
	}
	log = log.With("number", purchase.PhoneNumber, "region", purchase.Region, "category", purchase.Category)

	log.Debug("checking for existing allocation", "state", StateCheckingExisting)
	existing, err := s.repo.FindByNumber(ctx, purchase.PhoneNumber, accountID)
	if err != nil {
		return nil, s.fail(log, StateCheckingExisting,
			internal.NewRetryableError("failed to look up existing allocation", internal.ErrCodeAllocationFailed, err))
	}
	if existing != nil {
		return s.fulfilledExisting(log, existing), nil
	}

	log.Debug("activating number", "state", StateProvisioningExternal)
	activationErr := s.activate(ctx, log, purchase)

	log.Debug("allocating records", "state", StateAllocating)
	now := s.now()
	alloc := Allocation{
		AccountID:        accountID,
		Purchase:         purchase,
		Validity:         ComputeValidity(purchase, now),
		PaymentReference: req.PaymentReference,
		Gateway:          tag.String(),
		Amount:           payment.Amount,
		Currency:         payment.Currency,
		ActivatedAt:      now,
	}
	if activationErr != nil {
		alloc.ActivationError = activationErr.Error()
	}

	result, err := s.repo.Allocate(ctx, alloc)
	if err != nil {
		if errors.Is(err, ErrAllocationConflict) {
			return s.resolveConflict(ctx, log, purchase.PhoneNumber, accountID)
		}
		return nil, s.fail(log, StateAllocating,
			internal.NewRetryableError("failed to allocate phone number", internal.ErrCodeAllocationFailed, err))
	}

	if result.TaskID != 0 {
		s.metrics.ActivationResult(observability.ActivationDeferred)
		log.Warn("telecom activation deferred, number recorded as active",
			"reconcile", "manual",
			"task_id", result.TaskID,
			"phone_number_id", result.Number.ID,
			"error", activationErr)
		s.publish(ctx, events.NewProvisioningEvent(events.EventTypeProvisioningDeferred,
			result.TaskID, result.Number.ID, result.Number.Number, result.Number.Region, 0, alloc.ActivationError))
	}
	s.publish(ctx, events.NewNumberProvisionedEvent(result.Number.ID, accountID,
		result.Number.Number, result.Number.Region, result.Number.Category, req.PaymentReference))

	s.metrics.ProvisionOutcome(observability.OutcomeFulfilledNew)
	log.Info("number provisioned", "state", StateFulfilledNew, "phone_number_id", result.Number.ID)
	return &ProvisionResult{State: StateFulfilledNew, Number: result.Number}, nil
}

// GetNumber returns a number owned by the account.
func (s *Service) GetNumber(ctx context.Context, accountID int64, phoneNumber string) (*PhoneNumber, error) {
	if accountID <= 0 {
		return nil, internal.ErrAuthRequired
	}
	n, err := s.repo.FindByNumber(ctx, phoneNumber, accountID)
	if err != nil {
		s.loggerFor(ctx).Error("failed to look up phone number", "error", err, "account_id", accountID)
		return nil, internal.NewInternalError("failed to look up phone number", err)
	}
	if n == nil {
		return nil, internal.ErrPhoneNumberNotFound
	}
	return n, nil
}

// activate is best effort: the error is returned for bookkeeping, never to the caller.
func (s *Service) activate(ctx context.Context, log *slog.Logger, p Purchase) error {
	if s.activator == nil {
		return provisioning.ErrActivationFailed
	}
	ack, err := s.activator.Activate(ctx, p.PhoneNumber, p.Region)
	if err != nil {
		log.Warn("telecom activation failed, continuing with allocation", "error", err)
		return err
	}
	s.metrics.ActivationResult(observability.ActivationOK)
	log.Debug("telecom activation acknowledged", "reference", ack.Reference, "status", ack.Status)
	return nil
}

func (s *Service) resolveConflict(ctx context.Context, log *slog.Logger, phoneNumber string, accountID int64) (*ProvisionResult, error) {
	log.Info("allocation lost a concurrent race, re-reading", "state", StateCheckingExisting)

	existing, err := s.repo.FindByNumber(ctx, phoneNumber, accountID)
	if err != nil || existing == nil {
		if err == nil {
			err = ErrAllocationConflict
		}
		return nil, s.fail(log, StateAllocating,
			internal.NewRetryableError("failed to allocate phone number", internal.ErrCodeAllocationFailed, err))
	}
	return s.fulfilledExisting(log, existing), nil
}

func (s *Service) fulfilledExisting(log *slog.Logger, existing *PhoneNumber) *ProvisionResult {
	s.metrics.ProvisionOutcome(observability.OutcomeFulfilledExisting)
	log.Info("payment already fulfilled, returning existing number",
		"state", StateFulfilledExisting,
		"phone_number_id", existing.ID)
	return &ProvisionResult{State: StateFulfilledExisting, Number: existing}
}

func (s *Service) reject(log *slog.Logger, from State, appErr *internal.AppError) error {
	s.metrics.ProvisionOutcome(observability.OutcomeRejected)
	log.Warn("provisioning rejected",
		"state", StateRejected,
		"from", from,
		"code", appErr.Code,
		"error", appErr)
	return appErr
}

func (s *Service) fail(log *slog.Logger, from State, appErr *internal.AppError) error {
	s.metrics.ProvisionOutcome(observability.OutcomeError)
	log.Error("provisioning failed",
		"state", StateError,
		"from", from,
		"code", appErr.Code,
		"error", appErr)
	return appErr
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.loggerFor(ctx).Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// loggerFor prefers the request-scoped logger so trace fields follow the call.
func (s *Service) loggerFor(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l
	}
	return s.logger
}

func verificationError(err error) *internal.AppError {
	switch {
	case errors.Is(err, paymentgateway.ErrPaymentIncomplete):
		return internal.NewPaymentRequiredError("payment has not completed", internal.ErrCodePaymentNotCompleted).WithCause(err)
	case errors.Is(err, paymentgateway.ErrPaymentNotFound):
		return internal.NewValidationError("payment reference not found", internal.ErrCodePaymentNotFound).WithCause(err)
	case errors.Is(err, paymentgateway.ErrUnknownGateway):
		return internal.NewValidationError("unsupported payment gateway", internal.ErrCodeInvalidGateway).WithCause(err)
	default:
		return internal.NewExternalError("payment gateway unavailable, retry later", internal.ErrCodePaymentGateway, err)
	}
}
