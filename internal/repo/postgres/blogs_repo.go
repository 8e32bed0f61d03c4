package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/bloghub/internal/domain/blog"
	"github.com/geocoder89/bloghub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const blogCols = `id, title, description, body, tags, author_id, state, read_count, reading_time, created_at, updated_at`

const searchVector = `to_tsvector('english', title || ' ' || body)`

// Sort fields callers may ask for, mapped to real columns. Anything else is
// ignored rather than rejected.
var sortColumns = map[string]string{
	"read_count":   "read_count",
	"reading_time": "reading_time",
	"createdAt":    "created_at",
}

type BlogsRepo struct {
	pool           *pgxpool.Pool
	prom           *observability.Prom
	wordsPerMinute int
}

func NewBlogsRepo(pool *pgxpool.Pool, prom *observability.Prom, wordsPerMinute int) *BlogsRepo {
	return &BlogsRepo{
		pool:           pool,
		prom:           prom,
		wordsPerMinute: wordsPerMinute,
	}
}

func (r *BlogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create persists a new draft. Reading time is derived from the body right
// before the write, so it can never drift from the stored text.
func (r *BlogsRepo) Create(ctx context.Context, req blog.CreateBlogRequest, authorID string) (blog.Blog, error) {
	id := uuid.NewString()
	readingTime := blog.EstimateReadingTime(req.Body, r.wordsPerMinute)

	var b blog.Blog

	err := r.observe("blogs.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO blogs(id, title, description, body, tags, author_id, state, reading_time)
			 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+blogCols,
			id, req.Title, req.Description, req.Body, req.Tags, authorID, blog.StateDraft, readingTime,
		).Scan(blogDests(&b)...)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return blog.Blog{}, blog.ErrTitleTaken
		}

		return blog.Blog{}, err
	}

	return b, nil
}

func (r *BlogsRepo) List(ctx context.Context, filter blog.ListFilter) ([]blog.Blog, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.State != "" {
		conds = append(conds, fmt.Sprintf("state = $%d", argsPosition))
		args = append(args, filter.State)
		argsPosition++
	}

	if filter.AuthorID != "" {
		conds = append(conds, fmt.Sprintf("author_id = $%d", argsPosition))
		args = append(args, filter.AuthorID)
		argsPosition++
	}

	searchTerm := ""
	if filter.Search != nil {
		searchTerm = strings.TrimSpace(*filter.Search)
	}
	searching := searchTerm != ""

	query := `SELECT ` + blogCols + `, COUNT(*) OVER() AS total`

	if searching {
		query += fmt.Sprintf(", ts_rank(%s, plainto_tsquery('english', $%d)) AS score", searchVector, argsPosition)
		conds = append(conds, fmt.Sprintf("%s @@ plainto_tsquery('english', $%d)", searchVector, argsPosition))
		args = append(args, searchTerm)
		argsPosition++
	}

	query += " FROM blogs"

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += " ORDER BY " + orderClause(filter, searching)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, filter.Limit, filter.Offset)

	output := make([]blog.Blog, 0, filter.Limit)
	total := 0

	err := r.observe("blogs.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var b blog.Blog
			var t int
			var score float64

			dests := append(blogDests(&b), &t)

			if searching {
				dests = append(dests, &score)
			}

			err = rows.Scan(dests...)

			if err != nil {
				return err
			}

			total = t
			output = append(output, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// GetAndCountRead bumps read_count and returns the updated record with the
// author's public fields resolved. The bump and the read are one statement,
// so concurrent fetches never lose an increment.
func (r *BlogsRepo) GetAndCountRead(ctx context.Context, id string) (blog.Blog, error) {
	var b blog.Blog
	var a blog.Author

	err := r.observe("blogs.get_and_count_read", func() error {
		return r.pool.QueryRow(ctx, `
			WITH bumped AS (
				UPDATE blogs
				SET read_count = read_count + 1
				WHERE id = $1
				RETURNING `+blogCols+`
			)
			SELECT b.id, b.title, b.description, b.body, b.tags, b.author_id, b.state,
			       b.read_count, b.reading_time, b.created_at, b.updated_at,
			       u.id, u.first_name, u.last_name, u.email
			FROM bumped b
			JOIN users u ON u.id = b.author_id
		`, id).Scan(append(blogDests(&b), &a.ID, &a.FirstName, &a.LastName, &a.Email)...)
	})

	if err != nil {
		return blog.Blog{}, asBlogNotFound(err)
	}

	b.Author = &a
	return b, nil
}

// Edit applies the whitelisted fields under an ownership-scoped filter. The
// check and the write are a single conditional UPDATE, never read-then-write.
func (r *BlogsRepo) Edit(ctx context.Context, id, authorID string, req blog.EditBlogRequest) (blog.Blog, error) {
	if req.Empty() {
		return r.getOwned(ctx, id, authorID)
	}

	var sets []string
	args := []interface{}{id, authorID}
	argsPosition := 3

	if req.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argsPosition))
		args = append(args, *req.Title)
		argsPosition++
	}

	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argsPosition))
		args = append(args, *req.Description)
		argsPosition++
	}

	if req.Tags != nil {
		sets = append(sets, fmt.Sprintf("tags = $%d", argsPosition))
		args = append(args, *req.Tags)
		argsPosition++
	}

	if req.Body != nil {
		sets = append(sets, fmt.Sprintf("body = $%d", argsPosition))
		args = append(args, *req.Body)
		argsPosition++

		// body changed, so the derived estimate must change with it
		sets = append(sets, fmt.Sprintf("reading_time = $%d", argsPosition))
		args = append(args, blog.EstimateReadingTime(*req.Body, r.wordsPerMinute))
		argsPosition++
	}

	sets = append(sets, "updated_at = NOW()")

	var b blog.Blog

	err := r.observe("blogs.edit", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE blogs SET `+strings.Join(sets, ", ")+`
			 WHERE id = $1 AND author_id = $2
			 RETURNING `+blogCols,
			args...,
		).Scan(blogDests(&b)...)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return blog.Blog{}, blog.ErrTitleTaken
		}

		return blog.Blog{}, asBlogNotFound(err)
	}

	return b, nil
}

// Publish flips a post to published, scoped to its owner. Re-publishing an
// already published post is a no-op that still returns the record.
func (r *BlogsRepo) Publish(ctx context.Context, id, authorID string) (blog.Blog, error) {
	var b blog.Blog

	err := r.observe("blogs.publish", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE blogs
			 SET state = $3, updated_at = NOW()
			 WHERE id = $1 AND author_id = $2
			 RETURNING `+blogCols,
			id, authorID, blog.StatePublished,
		).Scan(blogDests(&b)...)
	})

	if err != nil {
		return blog.Blog{}, asBlogNotFound(err)
	}

	return b, nil
}

func (r *BlogsRepo) Delete(ctx context.Context, id, authorID string) error {
	var tag pgconn.CommandTag

	err := r.observe("blogs.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1 AND author_id = $2`, id, authorID)
		return execErr
	})

	if err != nil {
		return asBlogNotFound(err)
	}

	// no rows deleted means absent or not yours; callers see one signal
	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}

	return nil
}

func (r *BlogsRepo) getOwned(ctx context.Context, id, authorID string) (blog.Blog, error) {
	var b blog.Blog

	err := r.observe("blogs.get_owned", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT `+blogCols+` FROM blogs WHERE id = $1 AND author_id = $2`,
			id, authorID,
		).Scan(blogDests(&b)...)
	})

	if err != nil {
		return blog.Blog{}, asBlogNotFound(err)
	}

	return b, nil
}

func blogDests(b *blog.Blog) []interface{} {
	return []interface{}{
		&b.ID,
		&b.Title,
		&b.Description,
		&b.Body,
		&b.Tags,
		&b.AuthorID,
		&b.State,
		&b.ReadCount,
		&b.ReadingTime,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
}

func orderClause(filter blog.ListFilter, searching bool) string {
	col, ok := sortColumns[filter.SortBy]

	if ok {
		dir := "DESC"

		if strings.EqualFold(filter.Order, "asc") {
			dir = "ASC"
		}

		return col + " " + dir + ", id ASC"
	}

	if searching {
		return "score DESC, id ASC"
	}

	return "created_at DESC, id ASC"
}

// asBlogNotFound folds "no matching row" shapes into the one public signal.
// A malformed id is indistinguishable from an absent one on purpose.
func asBlogNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.ErrNotFound
	}

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return blog.ErrNotFound
	}

	return err
}
