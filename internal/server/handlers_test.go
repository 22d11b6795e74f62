package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manimate/manimate-api/internal/artifact"
	"github.com/manimate/manimate-api/internal/auth"
	"github.com/manimate/manimate-api/internal/render"
	"github.com/manimate/manimate-api/internal/script"
	"github.com/manimate/manimate-api/internal/video"
)

const (
	testSecret  = "test-secret"
	sceneSource = "from manim import *\n\nclass RotatingSquareScene(Scene):\n    def construct(self):\n        pass"
)

// mockGenerator implements script.Generator for testing.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// mockDispatcher implements render.Dispatcher for testing.
type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Render(ctx context.Context, jobID, source, sceneName string) (string, error) {
	args := m.Called(ctx, jobID, source, sceneName)
	return args.String(0), args.Error(1)
}

// mockStore implements artifact.Store for testing.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) AccessURLs(ctx context.Context, key string) (artifact.AccessURLs, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(artifact.AccessURLs), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

type testAPI struct {
	router    http.Handler
	repo      *video.MemoryRepository
	generator *mockGenerator
	renderer  *mockDispatcher
	store     *mockStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		repo:      video.NewMemoryRepository(),
		generator: &mockGenerator{},
		renderer:  &mockDispatcher{},
		store:     &mockStore{},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := video.NewService(api.repo, api.generator, api.renderer, api.store, logger)
	handlers := NewHandlers(svc, logger)

	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)

	api.router = NewRouter(handlers, verifier, logger, DefaultConfig())
	return api
}

// do sends a request through the full middleware chain with a valid token
// for ownerID. An empty ownerID sends no Authorization header.
func (a *testAPI) do(t *testing.T, method, target, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if ownerID != "" {
		token, err := auth.Sign(testSecret, ownerID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func seedJob(t *testing.T, api *testAPI, ownerID, prompt, source string) *video.Job {
	t.Helper()
	job := video.New(ownerID, prompt, source)
	require.NoError(t, api.repo.Create(context.Background(), job))
	return job
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
}

func TestUserRoutes_RequireToken(t *testing.T) {
	api := newTestAPI(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/user/generate"},
		{http.MethodPost, "/user/compile"},
		{http.MethodGet, "/user/videos"},
		{http.MethodGet, "/user/prompts"},
		{http.MethodGet, "/user/code?videoId=x"},
		{http.MethodDelete, "/user/clear-history"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.target, func(t *testing.T) {
			rec := api.do(t, rt.method, rt.target, "", nil)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, "UNAUTHORIZED", resp.Code)
		})
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "wrong secret", header: "Bearer " + signWith(t, "other-secret")},
		{name: "expired", header: "Bearer " + signExpired(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user/videos", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func signWith(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.Sign(secret, "owner-1", time.Hour)
	require.NoError(t, err)
	return token
}

func signExpired(t *testing.T) string {
	t.Helper()
	token, err := auth.Sign(testSecret, "owner-1", -time.Minute)
	require.NoError(t, err)
	return token
}

func TestGenerate(t *testing.T) {
	api := newTestAPI(t)
	api.generator.On("Generate", mock.Anything, "draw a rotating square").Return(sceneSource, nil).Once()

	rec := api.do(t, http.MethodPost, "/user/generate", "owner-1", GenerateRequest{Prompt: "draw a rotating square"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[GenerateResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, sceneSource, resp.Script)
	assert.NotEmpty(t, resp.VideoID)

	job, err := api.repo.FindByID(context.Background(), resp.VideoID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", job.OwnerID)
	api.generator.AssertExpectations(t)
}

func TestGenerate_InvalidBody(t *testing.T) {
	api := newTestAPI(t)

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/user/generate", strings.NewReader("{not json"))
		token, err := auth.Sign(testSecret, "owner-1", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "INVALID_JSON", resp.Code)
	})

	t.Run("empty prompt", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/user/generate", "owner-1", GenerateRequest{Prompt: ""})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})

	api.generator.AssertNumberOfCalls(t, "Generate", 0)
}

func TestGenerate_ModelFailure(t *testing.T) {
	api := newTestAPI(t)
	api.generator.On("Generate", mock.Anything, "p").
		Return("", fmt.Errorf("%w: model unavailable", script.ErrGenerationFailed)).Once()

	rec := api.do(t, http.MethodPost, "/user/generate", "owner-1", GenerateRequest{Prompt: "p"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "GENERATION_FAILED", resp.Code)
}

func TestCompile(t *testing.T) {
	api := newTestAPI(t)
	job := seedJob(t, api, "owner-1", "p", sceneSource)

	urls := artifact.AccessURLs{StreamURL: "https://s/stream", DownloadURL: "https://s/download"}
	api.renderer.On("Render", mock.Anything, job.ID, sceneSource, "RotatingSquareScene").
		Return("videos/key.mp4", nil).Once()
	api.store.On("AccessURLs", mock.Anything, "videos/key.mp4").Return(urls, nil).Once()

	rec := api.do(t, http.MethodPost, "/user/compile", "owner-1", CompileRequest{VideoID: job.ID})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[CompileResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "https://s/stream", resp.VideoURL)
	assert.Equal(t, "https://s/download", resp.DownloadURL)
	api.renderer.AssertExpectations(t)
}

func TestCompile_Errors(t *testing.T) {
	api := newTestAPI(t)
	owned := seedJob(t, api, "owner-1", "p", sceneSource)
	noScene := seedJob(t, api, "owner-1", "p", "print('hello')")
	broken := seedJob(t, api, "owner-1", "p", sceneSource)

	api.renderer.On("Render", mock.Anything, broken.ID, sceneSource, "RotatingSquareScene").
		Return("", fmt.Errorf("%w: syntax error", render.ErrRenderFailed)).Once()

	tests := []struct {
		name       string
		ownerID    string
		videoID    string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown job", ownerID: "owner-1", videoID: "missing", wantStatus: http.StatusNotFound, wantCode: "JOB_NOT_FOUND"},
		{name: "foreign job", ownerID: "intruder", videoID: owned.ID, wantStatus: http.StatusForbidden, wantCode: "NOT_OWNER"},
		{name: "no scene class", ownerID: "owner-1", videoID: noScene.ID, wantStatus: http.StatusBadRequest, wantCode: "NO_SCENE_FOUND"},
		{name: "worker failure", ownerID: "owner-1", videoID: broken.ID, wantStatus: http.StatusBadGateway, wantCode: "RENDER_FAILED"},
		{name: "missing videoId", ownerID: "owner-1", videoID: "", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/user/compile", tt.ownerID, CompileRequest{VideoID: tt.videoID})

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestCode(t *testing.T) {
	api := newTestAPI(t)
	job := seedJob(t, api, "owner-1", "p", sceneSource)

	rec := api.do(t, http.MethodGet, "/user/code?videoId="+job.ID, "owner-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ScriptResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, sceneSource, resp.Script)
}

func TestCode_Errors(t *testing.T) {
	api := newTestAPI(t)
	job := seedJob(t, api, "owner-1", "p", sceneSource)

	t.Run("missing videoId", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/user/code", "owner-1", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "MISSING_VIDEO_ID", resp.Code)
	})

	t.Run("foreign job", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/user/code?videoId="+job.ID, "intruder", nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestListings(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	first := video.New("owner-1", "first", sceneSource)
	first.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	second := video.New("owner-1", "second", sceneSource)
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	other := video.New("owner-2", "other", sceneSource)
	require.NoError(t, api.repo.Create(ctx, first))
	require.NoError(t, api.repo.Create(ctx, second))
	require.NoError(t, api.repo.Create(ctx, other))
	require.NoError(t, api.repo.SetArtifactKey(ctx, second.ID, "videos/second.mp4"))

	t.Run("videos newest first", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/user/videos", "owner-1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		items := decodeBody[[]VideoItem](t, rec)
		require.Len(t, items, 2)
		assert.Equal(t, second.ID, items[0].ID)
		assert.Equal(t, "videos/second.mp4", items[0].Filename)
		assert.Equal(t, first.ID, items[1].ID)
		assert.Empty(t, items[1].Filename)
	})

	t.Run("prompts oldest first", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/user/prompts", "owner-1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		items := decodeBody[[]VideoItem](t, rec)
		require.Len(t, items, 2)
		assert.Equal(t, first.ID, items[0].ID)
		assert.Equal(t, "first", items[0].Prompt)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/user/videos", "owner-3", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestClearHistory(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	job := seedJob(t, api, "owner-1", "p", sceneSource)
	require.NoError(t, api.repo.SetArtifactKey(ctx, job.ID, "videos/key.mp4"))

	deleted := make(chan []string, 1)
	api.store.On("Delete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { deleted <- args.Get(1).([]string) }).
		Return(nil).Once()

	rec := api.do(t, http.MethodDelete, "/user/clear-history", "owner-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ClearHistoryResponse](t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	jobs, err := api.repo.ListByOwner(ctx, "owner-1", video.OldestFirst)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	select {
	case keys := <-deleted:
		assert.Equal(t, []string{"videos/key.mp4"}, keys)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a storage delete")
	}
}
