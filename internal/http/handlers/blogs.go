package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/bloghub/internal/config"
	"github.com/geocoder89/bloghub/internal/domain/blog"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type BlogStore interface {
	Create(ctx context.Context, req blog.CreateBlogRequest, authorID string) (blog.Blog, error)
	List(ctx context.Context, filter blog.ListFilter) ([]blog.Blog, int, error)
	GetAndCountRead(ctx context.Context, id string) (blog.Blog, error)
	Edit(ctx context.Context, id, authorID string, req blog.EditBlogRequest) (blog.Blog, error)
	Publish(ctx context.Context, id, authorID string) (blog.Blog, error)
	Delete(ctx context.Context, id, authorID string) error
}

type BlogsHandler struct {
	repo BlogStore
}

func NewBlogsHandler(repo BlogStore) *BlogsHandler {
	return &BlogsHandler{repo: repo}
}

// ListBlogs is the public feed: published posts only, optionally searched
// and sorted, always paginated.
func (h *BlogsHandler) ListBlogs(ctx *gin.Context) {
	page, limit := pagination(ctx)

	filter := blog.ListFilter{
		State:  blog.StatePublished,
		SortBy: ctx.Query("sortBy"),
		Order:  ctx.Query("order"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if term := ctx.Query("searchTerm"); term != "" {
		filter.Search = &term
	}

	h.respondPage(ctx, filter, page, limit, "blogs fetched successfully")
}

// ListBlogsByUser shows the caller their own posts, drafts included, with an
// optional state filter.
func (h *BlogsHandler) ListBlogsByUser(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	page, limit := pagination(ctx)

	filter := blog.ListFilter{
		AuthorID: userID,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	// unknown state values are ignored, same as unknown sort fields
	if state := ctx.Query("state"); state == blog.StateDraft || state == blog.StatePublished {
		filter.State = state
	}

	h.respondPage(ctx, filter, page, limit, "user's blogs fetched successfully")
}

func (h *BlogsHandler) respondPage(ctx *gin.Context, filter blog.ListFilter, page, limit int, message string) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	blogs, total, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list blogs")
		return
	}

	totalPages := (total + limit - 1) / limit

	ctx.JSON(http.StatusOK, gin.H{
		"message":     message,
		"currentPage": page,
		"totalPages":  totalPages,
		"totalBlogs":  total,
		"blogs":       blogs,
	})
}

// GetBlogByID is public and counts the read. Each call bumps read_count by
// exactly one.
func (h *BlogsHandler) GetBlogByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetAndCountRead(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not fetch blog")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "blog fetched successfully",
		"blog":    b,
	})
}

func (h *BlogsHandler) CreateBlog(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	var req blog.CreateBlogRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Create(cctx, req, userID)

	if err != nil {
		if errors.Is(err, blog.ErrTitleTaken) {
			RespondConflict(ctx, "title_taken", "Title is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create blog")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "successfully created",
		"blog":    b,
	})
}

func (h *BlogsHandler) EditBlog(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	var req blog.EditBlogRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Edit(cctx, ctx.Param("id"), userID, req)

	if err != nil {
		switch {
		case errors.Is(err, blog.ErrNotFound):
			// absent and not-yours collapse into one answer
			RespondNotFound(ctx, "Blog not found")
		case errors.Is(err, blog.ErrTitleTaken):
			RespondConflict(ctx, "title_taken", "Title is already in use.")
		default:
			RespondInternal(ctx, "Could not edit blog")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "blog edited successfully",
		"blog":    b,
	})
}

func (h *BlogsHandler) PublishBlog(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.Publish(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not publish blog")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "blog post published successfully",
		"blog":    b,
	})
}

func (h *BlogsHandler) DeleteBlog(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not delete blog")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "blog deleted successfully",
	})
}

func pagination(ctx *gin.Context) (page, limit int) {
	page = queryInt(ctx, "page", 1)
	limit = queryInt(ctx, "limit", defaultPageSize)

	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	return page, limit
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	v := ctx.Query(key)

	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)

	if err != nil {
		return fallback
	}

	return n
}
