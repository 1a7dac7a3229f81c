package scoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
)

func TestClientScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"risk_score":0.42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.Score(context.Background(), "u1", &models.FeatureVector{TransactionCount30d: 3})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got != 0.42 {
		t.Fatalf("unexpected score %v", got)
	}
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Score(context.Background(), "u1", &models.FeatureVector{})
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Fatalf("expected ErrScoringUnavailable, got %v", err)
	}
}

func TestClientBadRequestIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Score(context.Background(), "u1", &models.FeatureVector{})
	if err == nil || errors.Is(err, ErrScoringUnavailable) {
		t.Fatalf("expected a non-unavailable error, got %v", err)
	}
}
