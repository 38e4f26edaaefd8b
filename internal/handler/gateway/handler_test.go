package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type stubGenerator struct {
	question, history string
	err               error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, question, history string) (string, error) {
	s.question, s.history = question, history
	if s.err != nil {
		return "", s.err
	}
	return "answer to " + question, nil
}

func serve(gen *stubGenerator, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(gen).RegisterRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body)))
	return rr
}

func TestGenerate(t *testing.T) {
	gen := &stubGenerator{}
	rr := serve(gen, `{"question":"Hello","context":"Hello"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"response":"answer to Hello"}`, rr.Body.String())
	assert.Equal(t, "Hello", gen.history)
}

func TestGenerateRejectsBlankQuestion(t *testing.T) {
	gen := &stubGenerator{}
	for _, body := range []string{`{"question":"  "}`, `{}`, `nope`} {
		rr := serve(gen, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, gen.question)
}

func TestGenerateProviderFailure(t *testing.T) {
	rr := serve(&stubGenerator{err: errors.New("quota exceeded")}, `{"question":"Hello"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"generation failed"}`, rr.Body.String())
}
