package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/core/validation"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/party"
	"bizzplus/pkg/logger"
)

// UpsertSKUInput is a SKU master record pushed from a manufacturer's books.
type UpsertSKUInput struct {
	ManufacturerID id.ID         `json:"manufacturerId" validate:"required"`
	Code           string        `json:"skuCode" validate:"required,max=64"`
	Name           string        `json:"name" validate:"required,max=200"`
	HSN            string        `json:"hsn" validate:"omitempty,max=16"`
	GSTPercent     types.Percent `json:"gstPercent" validate:"pct"`
	UOM            string        `json:"uom" validate:"required,max=16"`
}

// Delta fields a change may target.
const (
	FieldName       = "name"
	FieldHSN        = "hsn"
	FieldGSTPercent = "gstPercent"
	FieldUOM        = "uom"
)

// DeltaChange sets one field of one SKU. OldValue is what the sender
// believed the field held; it is reported back, not enforced.
type DeltaChange struct {
	Code     string          `json:"skuCode" validate:"required"`
	Field    string          `json:"field" validate:"required"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue" validate:"required"`
}

// DeltaInput is a batch of field changes for one manufacturer's SKUs.
type DeltaInput struct {
	ManufacturerID id.ID         `json:"manufacturerId" validate:"required"`
	Changes        []DeltaChange `json:"changes" validate:"required,min=1,max=500,dive"`
}

// DeltaResult reports the outcome of one change. A missing SKU or an
// unusable value fails only its own change.
type DeltaResult struct {
	Code     string          `json:"skuCode"`
	Success  bool            `json:"success"`
	Field    string          `json:"field,omitempty"`
	OldValue any             `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// UpsertSKU creates the SKU with the manufacturer's code or updates its
// descriptive fields. It reports whether the SKU was created.
func (s *Service) UpsertSKU(ctx context.Context, in UpsertSKUInput) (*SKU, bool, error) {
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}
	if err := authorizeManufacturer(ctx, in.ManufacturerID); err != nil {
		return nil, false, err
	}
	if _, err := s.parties.Resolve(ctx, party.Manufacturer(in.ManufacturerID)); err != nil {
		return nil, false, err
	}

	now := s.now()
	sku := &SKU{
		ID:             id.New(),
		ManufacturerID: in.ManufacturerID,
		Code:           strings.TrimSpace(in.Code),
		Name:           strings.TrimSpace(in.Name),
		HSN:            strings.TrimSpace(in.HSN),
		GSTPercent:     in.GSTPercent,
		UOM:            strings.ToUpper(strings.TrimSpace(in.UOM)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var created bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.repo.UpsertSKU(ctx, sku); err != nil {
			return fmt.Errorf("upsert sku: %w", err)
		}
		action := audit.ActionUpdate
		if created {
			action = audit.ActionCreate
		}
		entry, err := audit.NewEntry(ctx, audit.EntitySKU, sku.ID, action, map[string]any{
			"skuCode": sku.Code, "name": sku.Name, "hsn": sku.HSN,
			"gstPercent": sku.GSTPercent.String(), "uom": sku.UOM,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, false, err
	}

	logger.Info(ctx, "sku ingested", "manufacturer_id", sku.ManufacturerID, "sku_code", sku.Code, "created", created)
	return sku, created, nil
}

// ApplyDelta applies field changes in one transaction. Per-change failures
// are reported in the results; storage errors abort the whole batch.
func (s *Service) ApplyDelta(ctx context.Context, in DeltaInput) ([]DeltaResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := authorizeManufacturer(ctx, in.ManufacturerID); err != nil {
		return nil, err
	}
	if _, err := s.parties.Resolve(ctx, party.Manufacturer(in.ManufacturerID)); err != nil {
		return nil, err
	}

	var results []DeltaResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		results = make([]DeltaResult, 0, len(in.Changes))
		for _, change := range in.Changes {
			res, err := s.applyChange(ctx, in.ManufacturerID, change)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) applyChange(ctx context.Context, manufacturerID id.ID, change DeltaChange) (DeltaResult, error) {
	res := DeltaResult{Code: change.Code, Field: change.Field, NewValue: change.NewValue}

	sku, err := s.repo.GetSKUByCodeForUpdate(ctx, manufacturerID, change.Code)
	if apperror.IsNotFound(err) {
		res.Error = "SKU not found"
		return res, nil
	}
	if err != nil {
		return res, err
	}

	old, err := setField(sku, change.Field, change.NewValue)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	sku.UpdatedAt = s.now()
	if err := s.repo.UpdateSKU(ctx, sku); err != nil {
		return res, fmt.Errorf("update sku %s: %w", sku.Code, err)
	}

	entry, err := audit.NewEntry(ctx, audit.EntitySKU, sku.ID, audit.ActionUpdate, map[string]any{
		"field": change.Field, "oldValue": old, "newValue": change.NewValue,
	})
	if err != nil {
		return res, err
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return res, err
	}

	logger.Info(ctx, "sku delta applied", "sku_code", sku.Code, "field", change.Field)
	res.Success = true
	res.OldValue = old
	return res, nil
}

// setField writes raw into the named field and returns the previous value.
func setField(sku *SKU, field string, raw json.RawMessage) (any, error) {
	switch field {
	case FieldGSTPercent:
		var pct decimal.Decimal
		if err := json.Unmarshal(raw, &pct); err != nil {
			return nil, fmt.Errorf("gstPercent must be a number")
		}
		if err := types.CheckPercent(pct); err != nil {
			return nil, err
		}
		old := sku.GSTPercent.String()
		sku.GSTPercent = pct
		return old, nil
	case FieldName, FieldHSN, FieldUOM:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s must be a string", field)
		}
		v = strings.TrimSpace(v)
		switch field {
		case FieldName:
			if v == "" {
				return nil, fmt.Errorf("name must not be empty")
			}
			old := sku.Name
			sku.Name = v
			return old, nil
		case FieldHSN:
			old := sku.HSN
			sku.HSN = v
			return old, nil
		default:
			if v == "" {
				return nil, fmt.Errorf("uom must not be empty")
			}
			old := sku.UOM
			sku.UOM = strings.ToUpper(v)
			return old, nil
		}
	}
	return nil, fmt.Errorf("field %q cannot be changed", field)
}
