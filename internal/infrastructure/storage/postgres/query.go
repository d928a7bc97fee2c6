package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Get scans the single row of q into dst. No row yields NOT_FOUND for entity/key.
func Get(ctx context.Context, querier Querier, dst any, q sq.Sqlizer, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", entity, err)
	}
	if err := pgxscan.Get(ctx, querier, dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, key)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

// Select scans all rows of q into dst, a pointer to a slice.
func Select(ctx context.Context, querier Querier, dst any, q sq.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, dst, sql, args...); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

// Exec runs q and returns the affected row count.
func Exec(ctx context.Context, querier Querier, q sq.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Page counts the rows of q, then loads one ordered page of them into dst.
func Page(ctx context.Context, querier Querier, dst any, q sq.SelectBuilder, orderBy string, f domain.ListFilter) (int64, error) {
	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy(orderBy)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	if err := Select(ctx, querier, dst, q); err != nil {
		return 0, err
	}
	return total, nil
}

// Search matches term case-insensitively against any of the columns.
// LIKE wildcards in term are matched literally.
func Search(term string, columns ...string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: pattern})
	}
	return or
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
