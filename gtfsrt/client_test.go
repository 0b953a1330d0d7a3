package gtfsrt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	data, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestClient_Fetch_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error should be *FetchError, got %T", err)
	}
	if fe.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", fe.Status)
	}
}

func TestClient_Fetch_TransportFailure(t *testing.T) {
	c := NewClient(time.Second)
	_, err := c.Fetch(context.Background(), "http://127.0.0.1:1")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error should be *FetchError, got %T (%v)", err, err)
	}
	if fe.Status != 0 {
		t.Errorf("transport failure should carry no status, got %d", fe.Status)
	}
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(0)
	if _, err := c.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected context deadline error")
	}
}
