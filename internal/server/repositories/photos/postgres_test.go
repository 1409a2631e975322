package photos

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func samplePhoto() *models.Photo {
	return &models.Photo{
		ID:         "p-1",
		AlbumID:    "a-1",
		UserID:     "u-1",
		FileName:   "roof.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  2_500_000,
		StorageKey: "albums/a-1/x/roof.jpg",
		Checksum:   "abc123",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p := samplePhoto()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+photos`).
		WithArgs(p.ID, p.AlbumID, p.UserID, p.FileName, p.MimeType,
			p.SizeBytes, p.StorageKey, p.Checksum, p.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+photos`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), samplePhoto())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSelectByAlbum(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p := samplePhoto()
	rows := sqlmock.NewRows([]string{
		"id", "album_id", "user_id", "file_name", "mime_type",
		"size_bytes", "storage_key", "checksum", "created_at",
	}).AddRow(p.ID, p.AlbumID, p.UserID, p.FileName, p.MimeType,
		p.SizeBytes, p.StorageKey, p.Checksum, p.CreatedAt)

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+photos\s+WHERE\s+album_id\s*=\s*\$1`).
		WithArgs("a-1").
		WillReturnRows(rows)

	got, err := repo.SelectByAlbum(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("SelectByAlbum error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p-1" || got[0].Checksum != "abc123" {
		t.Fatalf("unexpected photos: %+v", got)
	}
}
