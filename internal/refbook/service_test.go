package refbook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminology/internal/refbook"
)

// fakeStore implements refbook.Store in memory, emulating the repository
// contract: ErrNotFound for missing rows, highest-id tie-break on equal
// start dates.
type fakeStore struct {
	refbooks map[int64]refbook.Refbook
	versions []refbook.Version
	elements map[int64][]refbook.Element

	failWith error
	calls    int
}

func (f *fakeStore) RefbookByID(_ context.Context, id int64) (*refbook.Refbook, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	rb, ok := f.refbooks[id]
	if !ok {
		return nil, refbook.ErrNotFound
	}
	return &rb, nil
}

func (f *fakeStore) Refbooks(context.Context) ([]refbook.Refbook, error) {
	f.calls++
	out := make([]refbook.Refbook, 0, len(f.refbooks))
	for _, rb := range f.refbooks {
		out = append(out, rb)
	}
	return out, nil
}

func (f *fakeStore) RefbooksAsOf(_ context.Context, asOf time.Time) ([]refbook.Refbook, error) {
	f.calls++
	var out []refbook.Refbook
	for _, rb := range f.refbooks {
		for _, v := range f.versions {
			if v.RefbookID == rb.ID && !v.StartDate.After(asOf) {
				out = append(out, rb)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) VersionByLabel(_ context.Context, refbookID int64, label string) (*refbook.Version, error) {
	f.calls++
	for _, v := range f.versions {
		if v.RefbookID == refbookID && v.Version == label {
			v := v
			return &v, nil
		}
	}
	return nil, refbook.ErrNotFound
}

func (f *fakeStore) EffectiveVersion(_ context.Context, refbookID int64, asOf time.Time) (*refbook.Version, error) {
	f.calls++
	var best *refbook.Version
	for i := range f.versions {
		v := &f.versions[i]
		if v.RefbookID != refbookID || v.StartDate.After(asOf) {
			continue
		}
		if best == nil || v.StartDate.After(best.StartDate) ||
			(v.StartDate.Equal(best.StartDate) && v.ID > best.ID) {
			best = v
		}
	}
	if best == nil {
		return nil, refbook.ErrNotFound
	}
	out := *best
	return &out, nil
}

func (f *fakeStore) Elements(_ context.Context, versionID int64) ([]refbook.Element, error) {
	f.calls++
	return f.elements[versionID], nil
}

func (f *fakeStore) ElementExists(_ context.Context, versionID int64, code, value string) (bool, error) {
	f.calls++
	for _, el := range f.elements[versionID] {
		if el.Code == code && el.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newScenario builds the canonical data set: REF1 with one old version,
// REF2 with an old and a current version, REF3 with none.
func newScenario(now time.Time) *fakeStore {
	twoDaysAgo := now.AddDate(0, 0, -2)
	return &fakeStore{
		refbooks: map[int64]refbook.Refbook{
			1: {ID: 1, Code: "REF1", Name: "Refbook 1"},
			2: {ID: 2, Code: "REF2", Name: "Refbook 2"},
			3: {ID: 3, Code: "REF3", Name: "Refbook 3"},
		},
		versions: []refbook.Version{
			{ID: 10, RefbookID: 1, Version: "1.0", StartDate: twoDaysAgo},
			{ID: 20, RefbookID: 2, Version: "1.0", StartDate: twoDaysAgo},
			{ID: 21, RefbookID: 2, Version: "2.0", StartDate: now},
		},
		elements: map[int64][]refbook.Element{
			20: {{Code: "ITEM1", Value: "Value 1 old"}},
			21: {{Code: "ITEM1", Value: "Value 1"}, {Code: "ITEM2", Value: "Value 2"}},
		},
	}
}

func TestService_Elements_LatestEffective(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	got, err := svc.Elements(context.Background(), 2, "", now)
	require.NoError(t, err)
	require.ElementsMatch(t, []refbook.Element{
		{Code: "ITEM1", Value: "Value 1"},
		{Code: "ITEM2", Value: "Value 2"},
	}, got)
}

func TestService_Elements_ExplicitVersion(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	got, err := svc.Elements(context.Background(), 2, "1.0", now)
	require.NoError(t, err)
	require.ElementsMatch(t, []refbook.Element{
		{Code: "ITEM1", Value: "Value 1 old"},
	}, got)
}

func TestService_Elements_VersionNotFound(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	_, err := svc.Elements(context.Background(), 1, "1.99", now)

	var vn *refbook.VersionNotFoundError
	require.ErrorAs(t, err, &vn)
	assert.Equal(t, "1.99", vn.Label)
	assert.Equal(t, "Version '1.99' not found for the given refbook.", err.Error())
}

func TestService_Elements_NoVersionsAtAll(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	_, err := svc.Elements(context.Background(), 3, "", now)

	var ne *refbook.NoEffectiveVersionError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "No valid version found for the refbook ID '3'.", err.Error())
}

func TestService_Elements_NoneEffectiveYet(t *testing.T) {
	// A future-dated version must produce the same error kind as no versions.
	now := time.Now()
	store := newScenario(now)
	store.versions = append(store.versions, refbook.Version{
		ID: 30, RefbookID: 3, Version: "1.0", StartDate: now.AddDate(0, 0, 5),
	})
	svc := refbook.NewService(store, testLogger())

	_, err := svc.Elements(context.Background(), 3, "", now)

	var ne *refbook.NoEffectiveVersionError
	require.ErrorAs(t, err, &ne)
}

func TestService_Elements_RefbookNotFound(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	_, err := svc.Elements(context.Background(), 999, "", now)

	var rb *refbook.RefbookNotFoundError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, "Refbook with ID '999' not found.", err.Error())
}

func TestService_EffectiveVersion_TieBreakByID(t *testing.T) {
	// Two versions starting the same day: the later-created (higher id) wins.
	now := time.Now()
	store := newScenario(now)
	day := now.AddDate(0, 0, -1)
	store.refbooks[4] = refbook.Refbook{ID: 4, Code: "TIE", Name: "Tie"}
	store.versions = append(store.versions,
		refbook.Version{ID: 40, RefbookID: 4, Version: "a", StartDate: day},
		refbook.Version{ID: 41, RefbookID: 4, Version: "b", StartDate: day},
	)
	store.elements = map[int64][]refbook.Element{
		40: {{Code: "X", Value: "from a"}},
		41: {{Code: "X", Value: "from b"}},
	}
	svc := refbook.NewService(store, testLogger())

	got, err := svc.Elements(context.Background(), 4, "", now)
	require.NoError(t, err)
	require.Equal(t, []refbook.Element{{Code: "X", Value: "from b"}}, got)
}

func TestService_CheckElement_MissingParameters(t *testing.T) {
	now := time.Now()
	store := newScenario(now)
	svc := refbook.NewService(store, testLogger())

	for _, tc := range []struct{ code, value string }{
		{"", "Value 1"},
		{"ITEM1", ""},
		{"", ""},
	} {
		_, err := svc.CheckElement(context.Background(), 2, tc.code, tc.value, "", now)
		require.ErrorIs(t, err, refbook.ErrMissingParameters)
	}
	// Fail fast: no store access happens before parameter validation.
	assert.Zero(t, store.calls)
}

func TestService_CheckElement_OldVersionPair(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())
	ctx := context.Background()

	// Present in version 1.0.
	valid, err := svc.CheckElement(ctx, 2, "ITEM1", "Value 1 old", "1.0", now)
	require.NoError(t, err)
	assert.True(t, valid)

	// The latest version carries a different value for the same code.
	valid, err = svc.CheckElement(ctx, 2, "ITEM1", "Value 1 old", "", now)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestService_CheckElement_AbsentPairIsFalseNotError(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())

	valid, err := svc.CheckElement(context.Background(), 2, "NOPE", "nothing", "", now)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestService_CheckElement_StorageFailurePropagates(t *testing.T) {
	now := time.Now()
	store := newScenario(now)
	store.failWith = errors.New("connection reset")
	svc := refbook.NewService(store, testLogger())

	_, err := svc.CheckElement(context.Background(), 2, "ITEM1", "Value 1", "", now)
	require.Error(t, err)
	assert.False(t, refbook.IsNotFound(err))
	assert.NotErrorIs(t, err, refbook.ErrMissingParameters)
	assert.ErrorContains(t, err, "load refbook 2")
	assert.ErrorIs(t, err, store.failWith)
}

func TestService_List(t *testing.T) {
	now := time.Now()
	store := newScenario(now)
	svc := refbook.NewService(store, testLogger())
	ctx := context.Background()

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// One day ago only REF1 and REF2 had an effective version.
	oneDayAgo := now.AddDate(0, 0, -1)
	filtered, err := svc.List(ctx, &oneDayAgo)
	require.NoError(t, err)
	codes := make([]string, 0, len(filtered))
	for _, rb := range filtered {
		codes = append(codes, rb.Code)
	}
	assert.ElementsMatch(t, []string{"REF1", "REF2"}, codes)
}

func TestService_Describe(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())
	ctx := context.Background()

	card, err := svc.Describe(ctx, 2, now)
	require.NoError(t, err)
	assert.Equal(t, "REF2", card.Code)
	assert.Equal(t, "2.0", card.CurrentVersion)
	assert.Equal(t, now.Format(refbook.DateLayout), card.CurrentVersionStartDate)

	// No effective version: the card is still served, without version info.
	card, err = svc.Describe(ctx, 3, now)
	require.NoError(t, err)
	assert.Empty(t, card.CurrentVersion)
	assert.Empty(t, card.CurrentVersionStartDate)

	_, err = svc.Describe(ctx, 999, now)
	var rb *refbook.RefbookNotFoundError
	require.ErrorAs(t, err, &rb)
}

func TestService_Idempotence(t *testing.T) {
	now := time.Now()
	svc := refbook.NewService(newScenario(now), testLogger())
	ctx := context.Background()

	first, err := svc.Elements(ctx, 2, "", now)
	require.NoError(t, err)
	second, err := svc.Elements(ctx, 2, "", now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
