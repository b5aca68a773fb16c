package session

import (
	"context"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Recovery errors
var (
	ErrNothingToRetry = shared.NewDomainError("NOTHING_TO_RETRY", "Session is not in an error state")
	ErrNotRetryable   = shared.NewDomainError("NOT_RETRYABLE", "Error cannot be retried")
)

// SectionRunner re-runs the loader of one section
type SectionRunner interface {
	Retry(ctx context.Context, name session.SectionName) (any, error)
}

// Recovery re-invokes the step that produced the current error
type Recovery struct {
	bootstrapper *Bootstrapper
	sections     SectionRunner
	logger       *zap.Logger
}

// NewRecovery creates a new recovery
func NewRecovery(bootstrapper *Bootstrapper, sections SectionRunner, logger *zap.Logger) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovery{
		bootstrapper: bootstrapper,
		sections:     sections,
		logger:       logger,
	}
}

// Retry re-runs the failed step. Bootstrap failures re-run Boot. A failed
// section load re-runs exactly that section's loader and, on success, returns
// the machine to ready with the last known user.
func (r *Recovery) Retry(ctx context.Context) error {
	machine := r.bootstrapper.Machine()
	failed, ok := machine.State().(session.Failed)
	if !ok {
		return ErrNothingToRetry
	}
	if !failed.Err.CanRetry {
		return ErrNotRetryable
	}

	prior := origin(failed)
	logger.LOr(ctx, r.logger).Info("Retrying failed step",
		zap.String("code", failed.Err.Code),
		zap.String("previous_state", string(prior.Status())))

	if sec, ok := prior.(session.LoadingSection); ok {
		return r.retrySection(ctx, sec)
	}
	if prior.Status() == session.StatusUnauthenticated {
		return ErrNotRetryable
	}
	r.bootstrapper.Boot(ctx)
	return nil
}

// retrySection re-runs one section. The outcome is applied under the session
// token taken before the run, so a logout or a newer boot while the loader is
// busy leaves the machine alone.
func (r *Recovery) retrySection(ctx context.Context, sec session.LoadingSection) error {
	if r.sections == nil {
		r.bootstrapper.Boot(ctx)
		return nil
	}

	b := r.bootstrapper
	tok := b.current()
	_, err := r.sections.Retry(ctx, sec.Section)

	reboot := false
	applied := b.apply(tok, func() {
		switch {
		case err != nil:
			if !b.machine.IsError() {
				b.machine.StartLoadingSection(sec.Section, sec.Operation)
				b.machine.SetError(session.NewRetryableError(session.CodeSectionFailed, err.Error()))
			}
		case b.user != nil:
			b.machine.SetReady(*b.user)
		default:
			reboot = true
		}
	})
	if !applied {
		logger.LOr(ctx, r.logger).Debug("Dropping stale section retry result",
			zap.String("section", sec.Section.String()),
			zap.Error(err))
		return err
	}
	if reboot {
		b.Boot(ctx)
	}
	return err
}

// origin walks back through nested errors to the state whose step failed
func origin(f session.Failed) session.LoadingState {
	var prior session.LoadingState = f
	for {
		failed, ok := prior.(session.Failed)
		if !ok || failed.Prior == nil {
			break
		}
		prior = failed.Prior
	}
	if _, ok := prior.(session.Failed); ok {
		return session.Initializing{}
	}
	return prior
}
