package kv

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, 0)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM kv_entries WHERE key = ").
			WithArgs("saved_files").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":1}]`))

		v, ok, err := store.Get(ctx, "saved_files")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":1}]`, v)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM kv_entries WHERE key = ").
			WithArgs("alarm_list").
			WillReturnError(sql.ErrNoRows)

		v, ok, err := store.Get(ctx, "alarm_list")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM kv_entries WHERE key = ").
			WithArgs("alarm_list").
			WillReturnError(errors.New("connection reset"))

		_, _, err := store.Get(ctx, "alarm_list")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, 8)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("hasNewAlarm", "true", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Set(ctx, "hasNewAlarm", "true"))

	// Over quota never reaches the database
	err = store.Set(ctx, "edit_file", "data:text/csv;base64,AAAA")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := NewPostgresStore(db, 0)

	mock.ExpectExec("DELETE FROM kv_entries WHERE key = ").
		WithArgs("comments_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "comments_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
