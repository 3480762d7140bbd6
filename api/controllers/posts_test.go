package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/internal/posts"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/types"
)

type testPostsService struct {
	createFn func(ctx context.Context, actor authz.Actor, dto posts.CreatePostDTO) (*posts.PostDTO, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*posts.PostDTO, error)
	listFn   func(ctx context.Context, params posts.ListParams) (*posts.ListResult, error)
	updateFn func(ctx context.Context, actor authz.Actor, id uuid.UUID, dto posts.UpdatePostDTO) (*posts.PostDTO, error)
	deleteFn func(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

func (s *testPostsService) Create(ctx context.Context, actor authz.Actor, dto posts.CreatePostDTO) (*posts.PostDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, actor, dto)
	}
	return &posts.PostDTO{}, nil
}

func (s *testPostsService) Get(ctx context.Context, id uuid.UUID) (*posts.PostDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &posts.PostDTO{}, nil
}

func (s *testPostsService) List(ctx context.Context, params posts.ListParams) (*posts.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &posts.ListResult{}, nil
}

func (s *testPostsService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto posts.UpdatePostDTO) (*posts.PostDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, actor, id, dto)
	}
	return &posts.PostDTO{}, nil
}

func (s *testPostsService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, actor, id)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreatePostForwardsActor(t *testing.T) {
	actorID := uuid.New()
	var gotActor authz.Actor
	svc := &testPostsService{
		createFn: func(ctx context.Context, actor authz.Actor, dto posts.CreatePostDTO) (*posts.PostDTO, error) {
			gotActor = actor
			if dto.ItemName != "Blue backpack" {
				t.Fatalf("unexpected item name %q", dto.ItemName)
			}
			return &posts.PostDTO{ID: uuid.New(), ItemName: dto.ItemName}, nil
		},
	}

	body := `{"title":"Lost: backpack","post_type":"lost","item_name":"Blue backpack"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(body))
	req = req.WithContext(middleware.WithActor(req.Context(), authz.Actor{UserID: actorID}))

	resp := httptest.NewRecorder()
	CreatePost(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotActor.UserID != actorID {
		t.Fatalf("actor not forwarded, got %s", gotActor.UserID)
	}
}

func TestCreatePostRejectsUnknownFields(t *testing.T) {
	svc := &testPostsService{
		createFn: func(ctx context.Context, actor authz.Actor, dto posts.CreatePostDTO) (*posts.PostDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"title":"x","post_type":"lost","item_name":"y","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePost(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetPostInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts/not-a-uuid", nil)
	req = withRouteParam(req, "postID", "not-a-uuid")

	resp := httptest.NewRecorder()
	GetPost(&testPostsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Code)
	}
}

func TestListPostsPaginationEnvelope(t *testing.T) {
	svc := &testPostsService{
		listFn: func(ctx context.Context, params posts.ListParams) (*posts.ListResult, error) {
			if params.Type != "lost" {
				t.Fatalf("type filter not forwarded, got %q", params.Type)
			}
			if params.Limit != 5 {
				t.Fatalf("limit not forwarded, got %d", params.Limit)
			}
			return &posts.ListResult{
				Items:  []posts.PostDTO{{ID: uuid.New()}},
				Cursor: "next-token",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts?type=lost&limit=5", nil)
	resp := httptest.NewRecorder()
	ListPosts(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body types.PageEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.HasMore || body.NextCursor != "next-token" {
		t.Fatalf("unexpected pagination %+v", body)
	}
}

func TestDeletePostPropagatesServiceError(t *testing.T) {
	svc := &testPostsService{
		deleteFn: func(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin may delete this post")
		},
	}

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/posts/"+id.String(), nil)
	req = withRouteParam(req, "postID", id.String())

	resp := httptest.NewRecorder()
	DeletePost(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}
