// Package storetest builds small SQLite databases for tests.
package storetest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Artists in descending order of total sales in the music store
var TopArtists = []string{"Iron Maiden", "U2", "Metallica", "Led Zeppelin", "Queen", "Deep Purple", "Lenny Kravitz"}

// NumbersRows is the row count of the Numbers table
const NumbersRows = 150

var schema = []string{
	`CREATE TABLE Artist (ArtistId INTEGER PRIMARY KEY NOT NULL, Name NVARCHAR(120))`,
	`CREATE TABLE Album (AlbumId INTEGER PRIMARY KEY NOT NULL, Title NVARCHAR(160) NOT NULL, ArtistId INTEGER NOT NULL REFERENCES Artist(ArtistId))`,
	`CREATE TABLE Track (TrackId INTEGER PRIMARY KEY NOT NULL, Name NVARCHAR(200) NOT NULL, AlbumId INTEGER REFERENCES Album(AlbumId), UnitPrice NUMERIC(10,2) NOT NULL)`,
	`CREATE TABLE InvoiceLine (InvoiceLineId INTEGER PRIMARY KEY NOT NULL, InvoiceId INTEGER NOT NULL, TrackId INTEGER NOT NULL REFERENCES Track(TrackId), UnitPrice NUMERIC(10,2) NOT NULL, Quantity INTEGER NOT NULL)`,
	`CREATE TABLE Numbers (n INTEGER NOT NULL)`,
	`CREATE TABLE Empty (id INTEGER PRIMARY KEY)`,
}

// NewMusicStore creates a music-store database in a temp dir and returns
// its path.
func NewMusicStore(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "music.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()

	for _, stmt := range schema {
		mustExec(t, db, stmt)
	}

	line := 1
	for i, name := range TopArtists {
		artistID := i + 1
		mustExec(t, db, `INSERT INTO Artist (ArtistId, Name) VALUES (?, ?)`, artistID, name)
		mustExec(t, db, `INSERT INTO Album (AlbumId, Title, ArtistId) VALUES (?, ?, ?)`, artistID, fmt.Sprintf("%s: 12 Greatest Hits", name), artistID)
		mustExec(t, db, `INSERT INTO Track (TrackId, Name, AlbumId, UnitPrice) VALUES (?, ?, ?, 0.99)`, artistID, fmt.Sprintf("Track %d", artistID), artistID)

		// earlier artists sell more
		sales := len(TopArtists) - i
		for j := 0; j < sales; j++ {
			mustExec(t, db, `INSERT INTO InvoiceLine (InvoiceLineId, InvoiceId, TrackId, UnitPrice, Quantity) VALUES (?, ?, ?, 0.99, 1)`, line, line, artistID)
			line++
		}
	}

	for n := 1; n <= NumbersRows; n++ {
		mustExec(t, db, `INSERT INTO Numbers (n) VALUES (?)`, n)
	}
	return path
}

func mustExec(t testing.TB, db *sql.DB, stmt string, args ...any) {
	t.Helper()
	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}
