package refbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"terminology/internal/pg"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Raw SQL for the queries squirrel would only obscure.

const effectiveVersionSQL = `
SELECT id, refbook_id, version, start_date
FROM refbook_versions
WHERE refbook_id = $1 AND start_date <= $2
ORDER BY start_date DESC, id DESC
LIMIT 1`

const refbooksAsOfSQL = `
SELECT r.id, r.code, r.name, r.description
FROM refbooks r
WHERE EXISTS (
    SELECT 1 FROM refbook_versions v
    WHERE v.refbook_id = r.id AND v.start_date <= $1
)
ORDER BY r.id`

const elementExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM refbook_items
    WHERE version_id = $1 AND code = $2 AND value = $3
)`

// Repo implements the read side of the refbook store over PostgreSQL.
type Repo struct {
	q pg.Querier
}

// NewRepo creates a repository on top of a pool, transaction or mock.
func NewRepo(q pg.Querier) *Repo {
	return &Repo{q: q}
}

// RefbookByID returns one refbook or ErrNotFound.
func (r *Repo) RefbookByID(ctx context.Context, id int64) (*Refbook, error) {
	query, args, err := psql.
		Select("id", "code", "name", "description").
		From("refbooks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build refbook query: %w", err)
	}

	var rb Refbook
	if err := pgxscan.Get(ctx, r.q, &rb, query, args...); err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("refbook %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get refbook %d: %w", id, err)
	}
	return &rb, nil
}

// Refbooks returns every refbook in id order.
func (r *Repo) Refbooks(ctx context.Context) ([]Refbook, error) {
	query, args, err := psql.
		Select("id", "code", "name", "description").
		From("refbooks").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build refbooks query: %w", err)
	}

	var out []Refbook
	if err := pgxscan.Select(ctx, r.q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list refbooks: %w", err)
	}
	return out, nil
}

// RefbooksAsOf returns refbooks having at least one version with
// start_date <= asOf. Existence filter only: no version is picked, and a book
// with several qualifying versions appears once.
func (r *Repo) RefbooksAsOf(ctx context.Context, asOf time.Time) ([]Refbook, error) {
	var out []Refbook
	if err := pgxscan.Select(ctx, r.q, &out, refbooksAsOfSQL, dateOf(asOf)); err != nil {
		return nil, fmt.Errorf("list refbooks as of %s: %w", asOf.Format(DateLayout), err)
	}
	return out, nil
}

// VersionByLabel returns the version of a refbook with the exact label,
// or ErrNotFound. Matching is case-sensitive, no normalization.
func (r *Repo) VersionByLabel(ctx context.Context, refbookID int64, label string) (*Version, error) {
	query, args, err := psql.
		Select("id", "refbook_id", "version", "start_date").
		From("refbook_versions").
		Where(sq.Eq{"refbook_id": refbookID}).
		Where(sq.Eq{"version": label}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build version query: %w", err)
	}

	var v Version
	if err := pgxscan.Get(ctx, r.q, &v, query, args...); err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("version %q of refbook %d: %w", label, refbookID, ErrNotFound)
		}
		return nil, fmt.Errorf("get version %q of refbook %d: %w", label, refbookID, err)
	}
	return &v, nil
}

// EffectiveVersion returns the version with the greatest start_date not
// exceeding asOf. Equal start dates resolve to the highest id; that tie-break
// is part of the contract, not an implementation accident. ErrNotFound covers
// both "no versions" and "none effective yet".
func (r *Repo) EffectiveVersion(ctx context.Context, refbookID int64, asOf time.Time) (*Version, error) {
	var v Version
	if err := pgxscan.Get(ctx, r.q, &v, effectiveVersionSQL, refbookID, dateOf(asOf)); err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("effective version of refbook %d: %w", refbookID, ErrNotFound)
		}
		return nil, fmt.Errorf("get effective version of refbook %d: %w", refbookID, err)
	}
	return &v, nil
}

// Elements returns the (code, value) pairs of one version. Order is whatever
// storage yields; callers compare as sets.
func (r *Repo) Elements(ctx context.Context, versionID int64) ([]Element, error) {
	query, args, err := psql.
		Select("code", "value").
		From("refbook_items").
		Where(sq.Eq{"version_id": versionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build elements query: %w", err)
	}

	var out []Element
	if err := pgxscan.Select(ctx, r.q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list elements of version %d: %w", versionID, err)
	}
	return out, nil
}

// ElementExists reports whether the version contains an item matching both
// code and value exactly (case-sensitive).
func (r *Repo) ElementExists(ctx context.Context, versionID int64, code, value string) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, elementExistsSQL, versionID, code, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("check element of version %d: %w", versionID, err)
	}
	return exists, nil
}

// dateOf strips the time-of-day so comparisons against DATE columns stay in
// calendar-date space regardless of session timezone.
func dateOf(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func noRows(err error) bool {
	return pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows)
}
