package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reinhart/sqlagent/internal/store"
	"github.com/reinhart/sqlagent/internal/store/storetest"
)

func TestTablesLexicalAndStable(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)
	ctx := context.Background()

	first, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Album", "Artist", "Empty", "InvoiceLine", "Numbers", "Track"}, first)

	second, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConnInspectsTables(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)
	ctx := context.Background()

	err := s.With(ctx, func(c *store.Conn) error {
		ok, err := c.TableExists(ctx, "Artist")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.TableExists(ctx, "Artists")
		require.NoError(t, err)
		assert.False(t, ok)

		cols, err := c.Columns(ctx, "Album")
		require.NoError(t, err)
		require.Len(t, cols, 3)
		assert.Equal(t, store.Column{Name: "AlbumId", Type: "INTEGER", NotNull: true, PrimaryKey: true}, cols[0])
		assert.Equal(t, store.Column{Name: "Title", Type: "NVARCHAR(160)", NotNull: true}, cols[1])

		sample, err := c.Sample(ctx, "Artist", 3)
		require.NoError(t, err)
		assert.Len(t, sample.Rows, 3)

		empty, err := c.Sample(ctx, "Empty", 3)
		require.NoError(t, err)
		assert.Empty(t, empty.Rows)
		return nil
	})
	require.NoError(t, err)
}

func TestQueryKeepsAndCounts(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)

	res, err := s.Query(context.Background(), "SELECT n FROM Numbers ORDER BY n", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, res.Columns)
	assert.Len(t, res.Rows, 10)
	assert.Equal(t, storetest.NumbersRows, res.Total)

	v, ok := res.Rows[0].Get("n")
	require.True(t, ok)
	assert.EqualValues(t, 1, v)
}

func TestQueryError(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)

	_, err := s.Query(context.Background(), "SELECT * FROM Nope", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)

	_, err := s.Query(context.Background(), "INSERT INTO Artist (Name) VALUES ('x')", 0)
	require.Error(t, err)
}

func TestMissingDatabase(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "missing.db"), true)

	_, err := s.Tables(context.Background())
	require.Error(t, err)
}

func TestRowMarshalsInColumnOrder(t *testing.T) {
	row := store.Row{Columns: []string{"b", "a"}, Values: []any{int64(2), nil}}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":null}`, string(data))
	assert.Equal(t, map[string]any{"a": nil, "b": int64(2)}, row.Map())
}

func TestQueryStrings(t *testing.T) {
	s := store.New(storetest.NewMusicStore(t), true)

	names, err := s.QueryStrings(context.Background(), "SELECT Name FROM Artist ORDER BY ArtistId")
	require.NoError(t, err)
	assert.Equal(t, storetest.TopArtists, names)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"Artist"`, store.QuoteIdent("Artist"))
	assert.Equal(t, `"a""b"`, store.QuoteIdent(`a"b`))
}
