package refbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Store is the persistent-store contract the service reads through.
// *Repo implements it; tests substitute fakes.
type Store interface {
	RefbookByID(ctx context.Context, id int64) (*Refbook, error)
	Refbooks(ctx context.Context) ([]Refbook, error)
	RefbooksAsOf(ctx context.Context, asOf time.Time) ([]Refbook, error)
	VersionByLabel(ctx context.Context, refbookID int64, label string) (*Version, error)
	EffectiveVersion(ctx context.Context, refbookID int64, asOf time.Time) (*Version, error)
	Elements(ctx context.Context, versionID int64) ([]Element, error)
	ElementExists(ctx context.Context, versionID int64, code, value string) (bool, error)
}

// Service answers the three read operations of the API: catalog listing,
// element listing and element validation. It holds no state between calls;
// every request is resolved from scratch against the store and the reference
// date the caller captured at request entry.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// List returns refbook summaries, optionally filtered to books having at
// least one version effective on or before asOf.
func (s *Service) List(ctx context.Context, asOf *time.Time) ([]Refbook, error) {
	if asOf == nil {
		return s.store.Refbooks(ctx)
	}
	return s.store.RefbooksAsOf(ctx, *asOf)
}

// Describe returns the refbook card: code, name, description and the version
// currently effective as of asOf. A refbook without an effective version is
// still a valid card, just without version fields.
func (s *Service) Describe(ctx context.Context, id int64, asOf time.Time) (*Card, error) {
	rb, err := s.refbookByID(ctx, id)
	if err != nil {
		return nil, err
	}

	card := &Card{Refbook: *rb}
	v, err := s.store.EffectiveVersion(ctx, id, asOf)
	switch {
	case errors.Is(err, ErrNotFound):
		// no effective version: card stays bare
	case err != nil:
		return nil, err
	default:
		card.CurrentVersion = v.Version
		card.CurrentVersionStartDate = v.StartDate.Format(DateLayout)
	}
	return card, nil
}

// Elements returns the (code, value) pairs of the resolved version of a
// refbook: the explicitly selected one, or the latest effective as of asOf.
func (s *Service) Elements(ctx context.Context, id int64, selector string, asOf time.Time) ([]Element, error) {
	rb, err := s.refbookByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v, err := s.resolveVersion(ctx, rb.ID, selector, asOf)
	if err != nil {
		return nil, err
	}

	return s.store.Elements(ctx, v.ID)
}

// CheckElement reports whether the resolved version contains an item matching
// code and value exactly. Both parameters are required and are validated
// before any store access; an absent pair is a normal false, never an error.
func (s *Service) CheckElement(ctx context.Context, id int64, code, value, selector string, asOf time.Time) (bool, error) {
	if code == "" || value == "" {
		s.log.WarnContext(ctx, "element check rejected: missing parameters",
			slog.Int64("refbook_id", id), slog.String("code", code), slog.String("value", value))
		return false, ErrMissingParameters
	}

	rb, err := s.refbookByID(ctx, id)
	if err != nil {
		return false, err
	}

	v, err := s.resolveVersion(ctx, rb.ID, selector, asOf)
	if err != nil {
		return false, err
	}

	valid, err := s.store.ElementExists(ctx, v.ID, code, value)
	if err != nil {
		return false, err
	}

	s.log.InfoContext(ctx, "element check",
		slog.Int64("refbook_id", id),
		slog.String("version", v.Version),
		slog.String("code", code),
		slog.Bool("valid", valid))
	return valid, nil
}

// resolveVersion selects the single applicable version of a refbook.
//
// With a selector: the unique version whose label equals it exactly, else
// VersionNotFoundError. Without: the version with the maximum start_date not
// after asOf, ties going to the highest id, else NoEffectiveVersionError
// (which also covers a refbook with no versions at all — the two causes are
// intentionally indistinguishable to callers).
//
// The result is a pure function of (version set, selector, asOf); nothing is
// cached across calls.
func (s *Service) resolveVersion(ctx context.Context, refbookID int64, selector string, asOf time.Time) (*Version, error) {
	if selector != "" {
		v, err := s.store.VersionByLabel(ctx, refbookID, selector)
		if errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "version not found",
				slog.Int64("refbook_id", refbookID), slog.String("version", selector))
			return nil, &VersionNotFoundError{RefbookID: refbookID, Label: selector}
		}
		if err != nil {
			return nil, fmt.Errorf("resolve version %q: %w", selector, err)
		}
		return v, nil
	}

	v, err := s.store.EffectiveVersion(ctx, refbookID, asOf)
	if errors.Is(err, ErrNotFound) {
		s.log.WarnContext(ctx, "no effective version",
			slog.Int64("refbook_id", refbookID), slog.Time("as_of", asOf))
		return nil, &NoEffectiveVersionError{RefbookID: refbookID}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve effective version: %w", err)
	}
	return v, nil
}

func (s *Service) refbookByID(ctx context.Context, id int64) (*Refbook, error) {
	rb, err := s.store.RefbookByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.log.WarnContext(ctx, "refbook not found", slog.Int64("refbook_id", id))
		return nil, &RefbookNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load refbook %d: %w", id, err)
	}
	return rb, nil
}
