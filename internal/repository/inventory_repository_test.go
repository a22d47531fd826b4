package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reserveSQL = regexp.QuoteMeta(`UPDATE books SET stock = stock - ?`)
	releaseSQL = regexp.QuoteMeta(`UPDATE books SET stock = stock + ?`)
	stockSQL   = regexp.QuoteMeta(`SELECT title, stock FROM books WHERE id = ?`)
)

func TestTryReserveTxDecrements(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(2, 7, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.TryReserveTx(ctx, tx, 7, 2))
	require.NoError(t, tx.Commit())
}

func TestTryReserveTxReportsRemainingStock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(3, 7, 3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(stockSQL).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"title", "stock"}).AddRow("Dune", 1))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = repo.TryReserveTx(ctx, tx, 7, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var se *InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, uint64(7), se.BookID)
	assert.Equal(t, 3, se.Requested)
	assert.Equal(t, 1, se.Available)
	assert.Equal(t, `book "Dune" (id 7) has only 1 left in stock`, se.Error())
	require.NoError(t, tx.Rollback())
}

func TestTryReserveTxMissingBook(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(1, 99, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(stockSQL).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"title", "stock"}))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = repo.TryReserveTx(ctx, tx, 99, 1)
	assert.True(t, errors.Is(err, ErrBookNotFound))
	assert.False(t, errors.Is(err, ErrInsufficientStock))
	require.NoError(t, tx.Rollback())
}

func TestTryReserveTxRejectsNonPositive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.TryReserveTx(ctx, tx, 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, repo.ReleaseTx(ctx, tx, 1, -2), ErrInvalidQuantity)
	require.NoError(t, tx.Rollback())
}

func TestAdjustRestock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(releaseSQL).WithArgs(5, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM books WHERE id = ?`)).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectCommit()

	stock, err := repo.Adjust(context.Background(), 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 8, stock)
}

func TestAdjustCannotGoNegative(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInventoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(10, 4, 10).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(stockSQL).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"title", "stock"}).AddRow("Emma", 3))
	mock.ExpectRollback()

	_, err := repo.Adjust(context.Background(), 4, -10)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}
