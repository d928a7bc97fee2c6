package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for the changes column.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the changes size above which rows are compressed.
const DefaultCompressThreshold = 10 * 1024

var _ audit.Recorder = (*AuditRecorder)(nil)

// auditRow is the stored shape of an audit entry.
type auditRow struct {
	audit.Entry
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
}

// changesCodec compresses large change sets with zstd.
type changesCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

func newChangesCodec(threshold int) (*changesCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &changesCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

func (c *changesCodec) pack(e audit.Entry) auditRow {
	row := auditRow{Entry: e, CompressionAlgo: CompressionNone}
	if len(e.Changes) > c.threshold {
		row.ChangesCompressed = c.encoder.EncodeAll(e.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

func (c *changesCodec) unpack(row auditRow) (audit.Entry, error) {
	e := row.Entry
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		raw, err := c.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("decompress changes: %w", err)
		}
		e.Changes = raw
	}
	return e, nil
}

// AuditRecorder writes audit_logs rows in the transaction carried by ctx.
type AuditRecorder struct {
	txManager *TxManager
	codec     *changesCodec
}

// NewAuditRecorder creates a recorder that compresses changes above threshold bytes.
func NewAuditRecorder(txManager *TxManager, threshold int) (*AuditRecorder, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	codec, err := newChangesCodec(threshold)
	if err != nil {
		return nil, err
	}
	return &AuditRecorder{txManager: txManager, codec: codec}, nil
}

// Record inserts an audit entry.
func (r *AuditRecorder) Record(ctx context.Context, entry audit.Entry) error {
	row := r.codec.pack(entry)

	q := sq.Insert("audit_logs").
		SetMap(StructToMap(row)).
		PlaceholderFormat(sq.Dollar)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the newest entries for an entity, decompressing transparently.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := sq.Select(ExtractDBColumns[auditRow]()...).
		From("audit_logs").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := r.codec.unpack(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
