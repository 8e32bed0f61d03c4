package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/bloghub/internal/domain/blog"
	"github.com/google/uuid"
)

// BlogsRepo keeps posts in a map guarded by one mutex, which gives it the
// same lost-update-free increment behaviour the postgres store gets from a
// single conditional UPDATE. Text search degrades to a substring match.
type BlogsRepo struct {
	mu             sync.Mutex
	items          map[string]blog.Blog
	users          *UsersRepo
	wordsPerMinute int
}

func NewBlogsRepo(users *UsersRepo, wordsPerMinute int) *BlogsRepo {
	return &BlogsRepo{
		items:          make(map[string]blog.Blog),
		users:          users,
		wordsPerMinute: wordsPerMinute,
	}
}

func (r *BlogsRepo) Create(ctx context.Context, req blog.CreateBlogRequest, authorID string) (blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Title == req.Title {
			return blog.Blog{}, blog.ErrTitleTaken
		}
	}

	now := time.Now().UTC()
	b := blog.Blog{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
		AuthorID:    authorID,
		State:       blog.StateDraft,
		ReadingTime: blog.EstimateReadingTime(req.Body, r.wordsPerMinute),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.items[b.ID] = b
	return b, nil
}

func (r *BlogsRepo) List(ctx context.Context, filter blog.ListFilter) ([]blog.Blog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]blog.Blog, 0, len(r.items))

	for _, b := range r.items {
		if filter.State != "" && b.State != filter.State {
			continue
		}
		if filter.AuthorID != "" && b.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Search != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.Search))
			if term != "" &&
				!strings.Contains(strings.ToLower(b.Title), term) &&
				!strings.Contains(strings.ToLower(b.Body), term) {
				continue
			}
		}
		matched = append(matched, b)
	}

	sortBlogs(matched, filter)

	total := len(matched)

	if filter.Offset >= total {
		return []blog.Blog{}, total, nil
	}

	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}

	return matched[filter.Offset:end], total, nil
}

func (r *BlogsRepo) GetAndCountRead(ctx context.Context, id string) (blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]

	if !ok {
		return blog.Blog{}, blog.ErrNotFound
	}

	b.ReadCount++
	r.items[id] = b

	if r.users != nil {
		if u, err := r.users.GetByID(ctx, b.AuthorID); err == nil {
			b.Author = &blog.Author{
				ID:        u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Email:     u.Email,
			}
		}
	}

	return b, nil
}

func (r *BlogsRepo) Edit(ctx context.Context, id, authorID string, req blog.EditBlogRequest) (blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]

	if !ok || b.AuthorID != authorID {
		return blog.Blog{}, blog.ErrNotFound
	}

	if req.Title != nil {
		for _, existing := range r.items {
			if existing.ID != id && existing.Title == *req.Title {
				return blog.Blog{}, blog.ErrTitleTaken
			}
		}
		b.Title = *req.Title
	}

	if req.Description != nil {
		b.Description = *req.Description
	}

	if req.Tags != nil {
		b.Tags = *req.Tags
	}

	if req.Body != nil {
		b.Body = *req.Body
		b.ReadingTime = blog.EstimateReadingTime(*req.Body, r.wordsPerMinute)
	}

	if !req.Empty() {
		b.UpdatedAt = time.Now().UTC()
	}

	r.items[id] = b
	return b, nil
}

func (r *BlogsRepo) Publish(ctx context.Context, id, authorID string) (blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]

	if !ok || b.AuthorID != authorID {
		return blog.Blog{}, blog.ErrNotFound
	}

	b.State = blog.StatePublished
	b.UpdatedAt = time.Now().UTC()
	r.items[id] = b

	return b, nil
}

func (r *BlogsRepo) Delete(ctx context.Context, id, authorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]

	if !ok || b.AuthorID != authorID {
		return blog.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func sortBlogs(items []blog.Blog, filter blog.ListFilter) {
	asc := strings.EqualFold(filter.Order, "asc")

	less := func(i, j blog.Blog) bool {
		switch filter.SortBy {
		case "read_count":
			if i.ReadCount != j.ReadCount {
				return i.ReadCount < j.ReadCount
			}
		case "reading_time":
			if i.ReadingTime != j.ReadingTime {
				return i.ReadingTime < j.ReadingTime
			}
		case "createdAt":
			if !i.CreatedAt.Equal(j.CreatedAt) {
				return i.CreatedAt.Before(j.CreatedAt)
			}
		default:
			// newest first when no recognized sort was asked for
			if !i.CreatedAt.Equal(j.CreatedAt) {
				return i.CreatedAt.After(j.CreatedAt)
			}
			return i.ID < j.ID
		}
		return i.ID < j.ID
	}

	sort.SliceStable(items, func(i, j int) bool {
		if _, known := knownSort[filter.SortBy]; known && !asc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

var knownSort = map[string]struct{}{
	"read_count":   {},
	"reading_time": {},
	"createdAt":    {},
}
