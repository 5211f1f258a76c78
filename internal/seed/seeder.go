package seed

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"terminology/internal/pg"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Beginner starts transactions. *pgxpool.Pool satisfies it, as do mocks.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Seeder inserts fixtures, one transaction per fixture: a failure mid-fixture
// (bad value, lost connection) rolls the whole refbook back so a corrected
// re-run starts clean. Insert-only: duplicate refbook codes or version labels
// fail on the database uniqueness constraints rather than being silently
// merged.
type Seeder struct {
	db  Beginner
	log *slog.Logger
}

func New(db Beginner, log *slog.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// Apply inserts every fixture with its versions and items.
func (s *Seeder) Apply(ctx context.Context, fixtures []Fixture) error {
	for _, f := range fixtures {
		if err := s.applyFixture(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) applyFixture(ctx context.Context, f Fixture) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refbook %q: %w", f.Code, err)
	}
	defer tx.Rollback(ctx)

	if err := s.applyOne(ctx, tx, f); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refbook %q: %w", f.Code, err)
	}
	return nil
}

func (s *Seeder) applyOne(ctx context.Context, q pg.Querier, f Fixture) error {
	var description *string
	if f.Description != "" {
		description = &f.Description
	}

	query, args, err := psql.
		Insert("refbooks").
		Columns("code", "name", "description").
		Values(f.Code, f.Name, description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build refbook insert: %w", err)
	}

	var refbookID int64
	if err := q.QueryRow(ctx, query, args...).Scan(&refbookID); err != nil {
		return fmt.Errorf("insert refbook %q: %w", f.Code, err)
	}

	for _, v := range f.Versions {
		start, err := v.Start()
		if err != nil {
			return err
		}

		query, args, err := psql.
			Insert("refbook_versions").
			Columns("refbook_id", "version", "start_date").
			Values(refbookID, v.Version, pgtype.Date{Time: start, Valid: true}).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build version insert: %w", err)
		}

		var versionID int64
		if err := q.QueryRow(ctx, query, args...).Scan(&versionID); err != nil {
			return fmt.Errorf("insert version %q of refbook %q: %w", v.Version, f.Code, err)
		}

		for _, it := range v.Items {
			query, args, err := psql.
				Insert("refbook_items").
				Columns("version_id", "code", "value").
				Values(versionID, it.Code, it.Value).
				ToSql()
			if err != nil {
				return fmt.Errorf("build item insert: %w", err)
			}
			if _, err := q.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert item %q of %q/%q: %w", it.Code, f.Code, v.Version, err)
			}
		}

		s.log.Info("seeded version",
			slog.String("refbook", f.Code),
			slog.String("version", v.Version),
			slog.Int("items", len(v.Items)))
	}
	return nil
}
