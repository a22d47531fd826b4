package repository

import (
	"context"
	"strings"

	"github.com/bookstore/bookstore-api/internal/model"
)

// MaxPage bounds the page number of every paged listing so the offset
// cannot overflow.
const MaxPage = 10000

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere in
// the column.  Backslash is MySQL's default LIKE escape character.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// BookQuery defines filters & pagination for browsing the catalog.
type BookQuery struct {
	Search   string // substring of the title
	Category string // exact category key
	Author   string // substring of the author
	Page     int
	PageSize int
}

// List returns one page of books matching q together with the total
// number of matches.  Page and PageSize are clamped to sane values.
func (r *BookRepo) List(ctx context.Context, q BookQuery) ([]model.Book, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 12
	}

	where := []string{}
	args := []any{}
	if q.Search != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, containsPattern(q.Search))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Author != "" {
		where = append(where, "LOWER(author) LIKE ?")
		args = append(args, containsPattern(q.Author))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + bookColumns + `
		FROM books
		WHERE ` + cond + `
		ORDER BY id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Book, 0, q.PageSize)
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
