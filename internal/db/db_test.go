package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenAndMigrate(t *testing.T) {
	d := openTestDB(t)

	for _, table := range []string{"analyses", "goose_db_version"} {
		var name string
		err := d.Conn().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		assert.NoError(t, err, "table %q should exist after migrations", table)
	}

	var version int64
	require.NoError(t, d.Conn().QueryRow(
		`SELECT MAX(version_id) FROM goose_db_version WHERE is_applied = 1`,
	).Scan(&version))
	assert.Equal(t, int64(1), version)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	require.NoError(t, err)
	id, err := d.InsertAnalysis(&Analysis{Kind: "rain", Request: `{}`, Result: `{}`})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()
	a, err := d.GetAnalysis(id)
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestInsertAndGetAnalysis(t *testing.T) {
	d := openTestDB(t)

	a := &Analysis{Kind: "flow", Request: `{"inflow1":{}}`, Result: `{"inflow1":{}}`}
	id, err := d.InsertAnalysis(a)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "ids are uuids")
	assert.NotEmpty(t, a.CreatedAt)

	got, err := d.GetAnalysis(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *a, *got)
}

func TestGetAnalysisNotFound(t *testing.T) {
	d := openTestDB(t)

	a, err := d.GetAnalysis(uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestListAnalyses(t *testing.T) {
	d := openTestDB(t)

	for i, ts := range []string{
		"2021-09-24T10:00:00Z",
		"2021-09-24T12:00:00Z",
		"2021-09-24T11:00:00Z",
	} {
		_, err := d.InsertAnalysis(&Analysis{
			ID:        []string{"a", "b", "c"}[i],
			Kind:      "rain",
			Request:   `{}`,
			Result:    `{}`,
			CreatedAt: ts,
		})
		require.NoError(t, err)
	}

	all, err := d.ListAnalyses(10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "c", all[1].ID)
	assert.Equal(t, "a", all[2].ID)

	page, err := d.ListAnalyses(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)

	none, err := d.ListAnalyses(10, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertAnalysisDuplicateID(t *testing.T) {
	d := openTestDB(t)

	_, err := d.InsertAnalysis(&Analysis{ID: "x", Kind: "rain", Request: `{}`, Result: `{}`})
	require.NoError(t, err)
	_, err = d.InsertAnalysis(&Analysis{ID: "x", Kind: "rain", Request: `{}`, Result: `{}`})
	assert.Error(t, err)
}

func TestListAnalysesOrdersWithinOneSecond(t *testing.T) {
	d := openTestDB(t)

	base := time.Date(2021, 9, 24, 12, 0, 5, 0, time.UTC)
	stamps := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(500 * time.Millisecond),
	}
	next := 0
	d.now = func() time.Time {
		ts := stamps[next]
		next++
		return ts
	}

	var ids []string
	for range stamps {
		id, err := d.InsertAnalysis(&Analysis{Kind: "rain", Request: `{}`, Result: `{}`})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := d.ListAnalyses(10, 0)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i, a := range list {
		assert.Equal(t, ids[len(ids)-1-i], a.ID, "position %d", i)
	}
	assert.Equal(t, "2021-09-24T12:00:05.100000000Z", list[2].CreatedAt)
}
