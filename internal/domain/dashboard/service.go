package dashboard

import (
	"context"
	"fmt"
	"time"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/party"
)

// AlertSource classifies a distributor's balances.
type AlertSource interface {
	Alerts(ctx context.Context, distributorID id.ID) ([]inventory.Alert, error)
}

// Service assembles dashboards.
type Service struct {
	repo    Repository
	parties *party.Resolver
	alerts  AlertSource
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a new dashboard service. "Today" is the calendar day in loc
// (UTC when nil).
func NewService(repo Repository, parties *party.Resolver, alerts AlertSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, parties: parties, alerts: alerts, loc: loc, now: time.Now}
}

// Manufacturer returns the manufacturer dashboard.
func (s *Service) Manufacturer(ctx context.Context, manufacturerID id.ID) (*ManufacturerSummary, error) {
	ref := party.Manufacturer(manufacturerID)
	if err := s.check(ctx, ref); err != nil {
		return nil, err
	}

	now := s.now()
	counts, err := s.repo.ManufacturerCounts(ctx, manufacturerID, s.dayStart(now))
	if err != nil {
		return nil, fmt.Errorf("manufacturer counts: %w", err)
	}
	latest, err := s.repo.LatestOrders(ctx, manufacturerID, LatestOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("latest orders: %w", err)
	}
	changes, err := s.repo.PriceChanges(ctx, manufacturerID, now.Add(-PriceChangesWindow), PriceChangesLimit)
	if err != nil {
		return nil, fmt.Errorf("price changes: %w", err)
	}

	return &ManufacturerSummary{
		ManufacturerCounts: counts,
		LatestOrders:       nonNil(latest),
		PriceChanges:       nonNil(changes),
	}, nil
}

// Distributor returns the distributor dashboard. Low and negative stock come
// from the inventory alert rule.
func (s *Service) Distributor(ctx context.Context, distributorID id.ID) (*DistributorSummary, error) {
	ref := party.Distributor(distributorID)
	if err := s.check(ctx, ref); err != nil {
		return nil, err
	}

	counts, err := s.repo.DistributorCounts(ctx, distributorID, s.dayStart(s.now()))
	if err != nil {
		return nil, fmt.Errorf("distributor counts: %w", err)
	}
	alerts, err := s.alerts.Alerts(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("stock alerts: %w", err)
	}
	vouchers, err := s.repo.RecentVouchers(ctx, ref, RecentVouchersLimit)
	if err != nil {
		return nil, fmt.Errorf("recent vouchers: %w", err)
	}

	summary := &DistributorSummary{
		DistributorCounts: counts,
		NegativeStock:     make([]*inventory.BalanceView, 0),
		RecentVouchers:    nonNil(vouchers),
	}
	for _, a := range alerts {
		switch a.Kind {
		case inventory.AlertLow:
			summary.LowStock++
		case inventory.AlertNegative:
			if len(summary.NegativeStock) < NegativeStockLimit {
				summary.NegativeStock = append(summary.NegativeStock, a.Balance)
			}
		}
	}
	return summary, nil
}

func (s *Service) check(ctx context.Context, ref party.Ref) error {
	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		if user.PartyKind != string(ref.Kind) || user.PartyID != ref.ID.String() {
			return apperror.NewForbidden("dashboard belongs to another party")
		}
	}
	_, err := s.parties.Resolve(ctx, ref)
	return err
}

func (s *Service) dayStart(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
