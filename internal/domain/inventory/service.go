package inventory

import (
	"context"
	"fmt"
	"sort"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/pkg/logger"
)

// Service maintains balances.
type Service struct {
	repo       Repository
	classifier *Classifier
	txManager  tx.Manager
}

// NewService creates a new inventory service.
func NewService(repo Repository, classifier *Classifier, txManager tx.Manager) *Service {
	return &Service{repo: repo, classifier: classifier, txManager: txManager}
}

// Receive increments on-hand for each line. It joins the caller's transaction
// when ctx carries one. Each pair is find-or-created and then locked, so
// concurrent increments on the same pair serialize.
func (s *Service) Receive(ctx context.Context, distributorID id.ID, lines []Line) error {
	if id.IsNil(distributorID) {
		return apperror.NewValidation("distributor is required").WithDetail("field", "distributorId")
	}

	merged, order := mergeLines(lines)
	for _, skuID := range order {
		if err := types.CheckQuantity(merged[skuID]); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("skuId", skuID)
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, skuID := range order {
			if err := s.repo.Ensure(ctx, distributorID, skuID); err != nil {
				return fmt.Errorf("ensure balance: %w", err)
			}
			bal, err := s.repo.GetForUpdate(ctx, distributorID, skuID)
			if err != nil {
				return err
			}
			if err := s.repo.AddOnHand(ctx, bal.ID, merged[skuID]); err != nil {
				return fmt.Errorf("increment balance: %w", err)
			}
			logger.Debug(ctx, "stock received",
				"distributor_id", distributorID,
				"sku_id", skuID,
				"qty", merged[skuID].String())
		}
		return nil
	})
}

// mergeLines sums quantities per SKU and orders the SKU ids by their string
// form. Every caller locks balance rows in that order, so two receipts
// touching the same SKUs cannot deadlock.
func mergeLines(lines []Line) (map[id.ID]types.Quantity, []id.ID) {
	merged := make(map[id.ID]types.Quantity, len(lines))
	var order []id.ID
	for _, l := range lines {
		if q, ok := merged[l.SKUID]; ok {
			merged[l.SKUID] = q.Add(l.Qty)
			continue
		}
		merged[l.SKUID] = l.Qty
		order = append(order, l.SKUID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	return merged, order
}

// List returns a distributor's balances joined with SKU data.
func (s *Service) List(ctx context.Context, distributorID id.ID, filter domain.ListFilter) (domain.ListResult[*BalanceView], error) {
	return s.repo.List(ctx, distributorID, filter.Normalize())
}

// Alerts classifies every balance of the distributor and returns the flagged ones.
func (s *Service) Alerts(ctx context.Context, distributorID id.ID) ([]Alert, error) {
	rows, err := s.repo.ListAll(ctx, distributorID)
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0)
	for _, row := range rows {
		kind, err := s.classifier.Classify(row.Balance)
		if err != nil {
			return nil, err
		}
		if kind != AlertNone {
			alerts = append(alerts, Alert{Kind: kind, Balance: row})
		}
	}
	return alerts, nil
}
