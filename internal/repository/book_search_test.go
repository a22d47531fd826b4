package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookListMatchesWildcardsLiterally(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookRepo(db)
	now := time.Now().UTC()
	pattern := `%50\%\_off\\%`

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE LOWER\(title\) LIKE \? AND LOWER\(author\) LIKE \?`).
		WithArgs(pattern, `%o\_brien%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM books\s+WHERE LOWER\(title\) LIKE \? AND LOWER\(author\) LIKE \?\s+ORDER BY id ASC\s+LIMIT \? OFFSET \?`).
		WithArgs(pattern, `%o\_brien%`, 12, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "category", "price", "stock", "created_at", "updated_at"}).
			AddRow(4, "50%_off\\ sale", "O_Brien", "misc", "9.99", 3, now, now))

	books, total, err := repo.List(context.Background(), BookQuery{Search: `50%_OFF\`, Author: "O_Brien"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, books, 1)
	assert.Equal(t, "9.99", books[0].Price.String())
}

func TestBookListCapsPage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \? OFFSET \?`).
		WithArgs(10, (MaxPage-1)*10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "category", "price", "stock", "created_at", "updated_at"}))

	books, total, err := repo.List(context.Background(), BookQuery{Page: int(^uint(0) >> 1), PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, books)
}
