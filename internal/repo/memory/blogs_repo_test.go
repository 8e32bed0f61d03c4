package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/geocoder89/bloghub/internal/domain/blog"
	"github.com/geocoder89/bloghub/internal/repo/memory"
)

func newRepo() *memory.BlogsRepo {
	return memory.NewBlogsRepo(memory.NewUsersRepo(), 200)
}

func TestCreateEnforcesUniqueTitle(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, blog.CreateBlogRequest{Title: "One Title", Body: "words"}, "author-1")

	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = repo.Create(ctx, blog.CreateBlogRequest{Title: "One Title", Body: "other words"}, "author-2")

	if !errors.Is(err, blog.ErrTitleTaken) {
		t.Fatalf("second create error = %v, want ErrTitleTaken", err)
	}
}

func TestCreateSetsDraftStateAndReadingTime(t *testing.T) {
	repo := newRepo()

	b, err := repo.Create(context.Background(), blog.CreateBlogRequest{Title: "T", Body: "a few words"}, "author-1")

	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if b.State != blog.StateDraft {
		t.Fatalf("state = %q, want draft", b.State)
	}

	if b.ReadCount != 0 {
		t.Fatalf("read_count = %d, want 0", b.ReadCount)
	}

	if b.ReadingTime != 1 {
		t.Fatalf("reading_time = %d, want 1", b.ReadingTime)
	}
}

func TestGetAndCountReadIncrementsExactlyOncePerCall(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	b, err := repo.Create(ctx, blog.CreateBlogRequest{Title: "Counted", Body: "words"}, "author-1")

	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const calls = 100

	var wg sync.WaitGroup
	wg.Add(calls)

	for i := 0; i < calls; i++ {
		go func() {
			defer wg.Done()
			_, _ = repo.GetAndCountRead(ctx, b.ID)
		}()
	}

	wg.Wait()

	got, err := repo.GetAndCountRead(ctx, b.ID)

	if err != nil {
		t.Fatalf("final get: %v", err)
	}

	// the final read itself counts too: no increment may be lost
	if got.ReadCount != calls+1 {
		t.Fatalf("read_count = %d, want %d", got.ReadCount, calls+1)
	}
}

func TestOwnershipScopedMutations(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	b, err := repo.Create(ctx, blog.CreateBlogRequest{Title: "Mine", Body: "words"}, "owner")

	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.Publish(ctx, b.ID, "intruder"); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("publish by non-owner = %v, want ErrNotFound", err)
	}

	// the failed publish must not have moved the state
	current, err := repo.GetAndCountRead(ctx, b.ID)

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if current.State != blog.StateDraft {
		t.Fatalf("state after rejected publish = %q, want draft", current.State)
	}

	if err := repo.Delete(ctx, b.ID, "intruder"); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("delete by non-owner = %v, want ErrNotFound", err)
	}

	published, err := repo.Publish(ctx, b.ID, "owner")

	if err != nil {
		t.Fatalf("publish by owner: %v", err)
	}

	if published.State != blog.StatePublished {
		t.Fatalf("state = %q, want published", published.State)
	}

	// re-publishing is a harmless no-op
	if _, err := repo.Publish(ctx, b.ID, "owner"); err != nil {
		t.Fatalf("idempotent publish: %v", err)
	}

	if err := repo.Delete(ctx, b.ID, "owner"); err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
}

func TestEditRecomputesReadingTimeOnBodyChange(t *testing.T) {
	repo := memory.NewBlogsRepo(memory.NewUsersRepo(), 10)
	ctx := context.Background()

	b, err := repo.Create(ctx, blog.CreateBlogRequest{Title: "T", Body: "one two three"}, "owner")

	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if b.ReadingTime != 1 {
		t.Fatalf("initial reading_time = %d, want 1", b.ReadingTime)
	}

	longBody := ""
	for i := 0; i < 25; i++ {
		longBody += "word "
	}

	edited, err := repo.Edit(ctx, b.ID, "owner", blog.EditBlogRequest{Body: &longBody})

	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if edited.ReadingTime != 3 {
		t.Fatalf("reading_time after edit = %d, want 3", edited.ReadingTime)
	}

	// editing only tags must not touch the estimate
	tags := "go,testing"
	edited, err = repo.Edit(ctx, b.ID, "owner", blog.EditBlogRequest{Tags: &tags})

	if err != nil {
		t.Fatalf("edit tags: %v", err)
	}

	if edited.ReadingTime != 3 {
		t.Fatalf("reading_time after tag edit = %d, want 3", edited.ReadingTime)
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		b, err := repo.Create(ctx, blog.CreateBlogRequest{Title: fmt.Sprintf("Post %02d", i), Body: "words"}, "author-1")

		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}

		if _, err := repo.Publish(ctx, b.ID, "author-1"); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	// one draft that must never show up in the published feed
	if _, err := repo.Create(ctx, blog.CreateBlogRequest{Title: "Hidden Draft", Body: "words"}, "author-1"); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	page3, total, err := repo.List(ctx, blog.ListFilter{State: blog.StatePublished, Limit: 20, Offset: 40})

	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 45 {
		t.Fatalf("total = %d, want 45", total)
	}

	if len(page3) != 5 {
		t.Fatalf("page 3 size = %d, want 5", len(page3))
	}

	drafts, _, err := repo.List(ctx, blog.ListFilter{AuthorID: "author-1", State: blog.StateDraft, Limit: 20})

	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}

	if len(drafts) != 1 || drafts[0].Title != "Hidden Draft" {
		t.Fatalf("draft listing wrong: %+v", drafts)
	}

	searched, _, err := repo.List(ctx, blog.ListFilter{State: blog.StatePublished, Search: strPtr("post 07"), Limit: 20})

	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(searched) != 1 || searched[0].Title != "Post 07" {
		t.Fatalf("search result wrong: %+v", searched)
	}
}

func strPtr(s string) *string { return &s }
