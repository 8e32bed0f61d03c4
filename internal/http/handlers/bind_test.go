package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/bloghub/internal/domain/blog"
	"github.com/geocoder89/bloghub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindTarget(ctx *gin.Context) {
	var req blog.CreateBlogRequest
	if !handlers.BindJSON(ctx, &req) {
		return
	}
	ctx.Status(http.StatusCreated)
}

func TestBindJSONValidationErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/blogs", bindTarget)

	req := httptest.NewRequest(http.MethodPost, "/blogs", bytes.NewBufferString(`{"title":"go"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("code = %q", resp.Error.Code)
	}

	found := false
	for _, f := range resp.Error.Details.Fields {
		if f.Field == "body" && f.Rule == "required" {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a required error for field body, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSONSyntaxError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/blogs", bindTarget)

	req := httptest.NewRequest(http.MethodPost, "/blogs", bytes.NewBufferString(`{"title":}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("details.json = %q, want invalid_json_syntax", resp.Error.Details.JSON)
	}
}
