package voucher

import (
	"context"
	"fmt"
	"time"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/party"
	"bizzplus/pkg/logger"
)

// Service persists vouchers and drives their export.
type Service struct {
	repo      Repository
	queue     Queue
	exporter  Exporter
	audit     audit.Recorder
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new voucher service. exporter may be nil in processes
// that only create vouchers.
func NewService(repo Repository, queue Queue, exporter Exporter, recorder audit.Recorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		audit:     recorder,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateForOrder builds and stores the sales and purchase vouchers of a
// fulfilled order. It joins the caller's transaction; enqueueing is left to
// the caller once that transaction commits.
func (s *Service) CreateForOrder(ctx context.Context, snap OrderSnapshot) ([]id.ID, error) {
	sales, purchase, err := BuildForOrder(snap)
	if err != nil {
		return nil, err
	}

	vouchers := []*Voucher{sales, purchase}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateBatch(ctx, vouchers)
	})
	if err != nil {
		return nil, fmt.Errorf("create vouchers for %s: %w", snap.OrderNumber, err)
	}
	return []id.ID{sales.ID, purchase.ID}, nil
}

// EnqueueAll hands vouchers to the export queue. Failures are logged, not
// returned: the vouchers stay queued and the sweeper picks them up.
func (s *Service) EnqueueAll(ctx context.Context, voucherIDs []id.ID) {
	for _, vid := range voucherIDs {
		if err := s.queue.Enqueue(ctx, vid); err != nil {
			logger.Error(ctx, "failed to enqueue voucher export", "voucher_id", vid, "error", err)
		}
	}
}

// ErrOrderExported reports that vouchers already exist for the order.
func ErrOrderExported(orderNumber string) *apperror.AppError {
	return apperror.NewConflict("vouchers already exist for order").
		WithDetail("orderNumber", orderNumber)
}

// CreateExport creates vouchers for an order that has none yet and records
// the export. It joins the caller's transaction; the caller enqueues the
// returned ids after commit. It fails with CONFLICT when vouchers already
// exist for the order.
func (s *Service) CreateExport(ctx context.Context, snap OrderSnapshot) ([]id.ID, error) {
	var ids []id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsForOrder(ctx, snap.OrderNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrOrderExported(snap.OrderNumber)
		}

		ids, err = s.CreateForOrder(ctx, snap)
		if err != nil {
			return err
		}

		entry, err := audit.NewEntry(ctx, audit.EntityOrder, snap.OrderID, audit.ActionExport,
			map[string]any{"vouchers": ids})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Get returns a voucher visible to the caller.
func (s *Service) Get(ctx context.Context, voucherID id.ID) (*Voucher, error) {
	v, err := s.repo.GetByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(ctx, v.Party()) {
		return nil, apperror.NewNotFound("voucher", voucherID)
	}
	return v, nil
}

// List returns vouchers. Non-admin callers only see their own party's vouchers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Voucher], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		ref, err := callerParty(user)
		if err != nil {
			return domain.ListResult[*Voucher]{}, err
		}
		filter.Party = &ref
	}
	return s.repo.List(ctx, filter)
}

// Export pushes one queued voucher to the ledger. Vouchers that are no longer
// queued are skipped. On failure the attempt is recorded and the error
// returned for retry; on the final attempt the voucher moves to error.
func (s *Service) Export(ctx context.Context, voucherID id.ID, final bool) error {
	if s.exporter == nil {
		return fmt.Errorf("voucher exporter is not configured")
	}

	v, err := s.repo.GetByID(ctx, voucherID)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "dropping export of unknown voucher", "voucher_id", voucherID)
			return nil
		}
		return err
	}
	if v.Status != StatusQueued {
		logger.Debug(ctx, "voucher already exported", "voucher_id", voucherID, "status", v.Status)
		return nil
	}

	externalID, exportErr := s.exporter.Export(ctx, v)
	if exportErr != nil {
		if final {
			if _, err := s.repo.MarkError(ctx, v.ID, exportErr.Error()); err != nil {
				return fmt.Errorf("mark voucher error: %w", err)
			}
			logger.Error(ctx, "voucher export failed permanently",
				"voucher_id", v.ID, "order_number", v.OrderNumber, "error", exportErr)
			return exportErr
		}
		if err := s.repo.RecordAttempt(ctx, v.ID, exportErr.Error()); err != nil {
			logger.Error(ctx, "failed to record export attempt", "voucher_id", v.ID, "error", err)
		}
		return exportErr
	}

	changed, err := s.repo.MarkSent(ctx, v.ID, externalID, s.now())
	if err != nil {
		return fmt.Errorf("mark voucher sent: %w", err)
	}
	if changed {
		logger.Info(ctx, "voucher exported",
			"voucher_id", v.ID, "type", v.Type, "external_id", externalID)
	}
	return nil
}

// RequeueStale re-enqueues queued vouchers untouched for longer than staleAfter.
// It returns how many were handed to the queue.
func (s *Service) RequeueStale(ctx context.Context, staleAfter time.Duration, limit int) (int, error) {
	var ids []id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.repo.ClaimStale(ctx, s.now().Add(-staleAfter), limit)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("claim stale vouchers: %w", err)
	}

	n := 0
	for _, vid := range ids {
		if err := s.queue.Enqueue(ctx, vid); err != nil {
			logger.Warn(ctx, "failed to requeue voucher", "voucher_id", vid, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		logger.Info(ctx, "stale vouchers requeued", "count", n)
	}
	return n, nil
}

func visibleTo(ctx context.Context, ref party.Ref) bool {
	user := appctx.GetUser(ctx)
	if user == nil || user.IsAdmin() {
		return true
	}
	return user.PartyKind == string(ref.Kind) && user.PartyID == ref.ID.String()
}

func callerParty(user *appctx.UserContext) (party.Ref, error) {
	kind, err := party.ParseKind(user.PartyKind)
	if err != nil {
		return party.Ref{}, apperror.NewForbidden("user is not linked to a party")
	}
	pid, err := id.Parse(user.PartyID)
	if err != nil {
		return party.Ref{}, apperror.NewForbidden("user is not linked to a party")
	}
	return party.Ref{Kind: kind, ID: pid}, nil
}
