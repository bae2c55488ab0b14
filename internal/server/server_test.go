package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
	"document-qa/internal/session"
)

type stubAsker struct {
	err error
}

func (s *stubAsker) Ask(_ context.Context, query string) (*models.PromptResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PromptResponse{
		Query:   query,
		Content: "The sky is blue.",
		Sources: []models.SearchResult{{Chunk: models.Chunk{SourceFilename: "sky.pdf", PageNumber: 1, EndPageNumber: 1}}},
	}, nil
}

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) Count(context.Context) (int, error) { return s.n, s.err }

func setupRouter(t *testing.T, asker *stubAsker, counter Counter) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sess := session.New(asker, nil)
	return NewRouter(NewHandler(sess, counter))
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAskAndHistory(t *testing.T) {
	router := setupRouter(t, &stubAsker{}, stubCounter{n: 2})

	resp := do(t, router, http.MethodPost, "/api/ask", `{"question":"What color is the sky?"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var result struct {
		Data askResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "The sky is blue.", result.Data.Answer)
	require.Equal(t, "sky.pdf p.1", result.Data.Sources)

	resp = do(t, router, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var history struct {
		Data []models.HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &history))
	require.Len(t, history.Data, 1)
	require.Equal(t, "What color is the sky?", history.Data[0].User)
}

func TestAskEmptyQuestion(t *testing.T) {
	router := setupRouter(t, &stubAsker{}, stubCounter{})

	resp := do(t, router, http.MethodPost, "/api/ask", `{"question":"  "}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), models.PromptForInput)

	resp = do(t, router, http.MethodGet, "/api/history", "")
	require.JSONEq(t, `{"data":[]}`, resp.Body.String())
}

func TestAskInvalidBody(t *testing.T) {
	router := setupRouter(t, &stubAsker{}, stubCounter{})
	resp := do(t, router, http.MethodPost, "/api/ask", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAskFailure(t *testing.T) {
	router := setupRouter(t, &stubAsker{err: apperrors.NewGenerationError("llama3.1", errors.New("refused"))}, stubCounter{})

	resp := do(t, router, http.MethodPost, "/api/ask", `{"question":"q"}`)
	require.Equal(t, http.StatusBadGateway, resp.Code)
	var result struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "answer_failed", result.Error.Code)
	require.Equal(t, session.FailureMessage(apperrors.NewGenerationError("", nil)), result.Error.Message)
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, &stubAsker{}, stubCounter{n: 3})
	resp := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"data":{"status":"ok","chunks":3}}`, resp.Body.String())

	router = setupRouter(t, &stubAsker{}, stubCounter{err: errors.New("down")})
	resp = do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router := setupRouter(t, &stubAsker{}, stubCounter{})
	resp := do(t, router, http.MethodGet, "/healthz", "")
	require.NotEmpty(t, resp.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
