// Package audit records who changed which entity and how.
package audit

import (
	"context"
	"encoding/json"
	"time"

	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate      Action = "create"
	ActionPlace       Action = "place"
	ActionAccept      Action = "accept"
	ActionReject      Action = "reject"
	ActionFulfill     Action = "fulfill"
	ActionPriceChange Action = "price_change"
	ActionExport      Action = "export"
	ActionUpdate      Action = "update"
)

// Entity types used in audit records.
const (
	EntityOrder   = "order"
	EntitySKU     = "sku"
	EntityContact = "contact"
)

// Entry is a single audit record.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Action     Action          `db:"action" json:"action"`
	UserID     string          `db:"user_id" json:"userId,omitempty"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Recorder persists audit entries. Record joins the transaction carried by ctx.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// NewEntry builds an entry for the acting user in ctx.
func NewEntry(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) (Entry, error) {
	e := Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			return Entry{}, err
		}
		e.Changes = raw
	}
	return e, nil
}

// Transition describes a status change for the changes column.
func Transition(from, to string) map[string]any {
	return map[string]any{"status": map[string]any{"old": from, "new": to}}
}
