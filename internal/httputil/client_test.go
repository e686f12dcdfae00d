package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type echo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDoJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			MethodNotAllowed(w)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			BadRequest(w, "content-type "+ct)
			return
		}
		var in echo
		if err := DecodeJSON(w, r, &in); err != nil {
			BadRequest(w, err.Error())
			return
		}
		in.Count++
		WriteJSON(w, http.StatusCreated, in)
	}))
	defer srv.Close()

	var out echo
	err := DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, echo{Name: "a", Count: 1}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out != (echo{Name: "a", Count: 2}) {
		t.Errorf("out = %+v", out)
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no such attempt")
	}))
	defer srv.Close()

	err := DoJSON(context.Background(), nil, http.MethodGet, srv.URL, nil, &echo{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Code != http.StatusNotFound || se.Message != "no such attempt" {
		t.Errorf("got %+v", se)
	}
	if se.Error() != "http 404: no such attempt" {
		t.Errorf("Error() = %q", se.Error())
	}
}

func TestDoJSON_NoContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := echo{Name: "unchanged"}
	if err := DoJSON(context.Background(), srv.Client(), http.MethodDelete, srv.URL, nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Name != "unchanged" {
		t.Errorf("out modified: %+v", out)
	}
}

type failingClient struct{ err error }

func (c failingClient) Do(*http.Request) (*http.Response, error) { return nil, c.err }

func TestDoJSON_TransportError(t *testing.T) {
	t.Parallel()

	want := errors.New("connection refused")
	err := DoJSON(context.Background(), failingClient{err: want}, http.MethodGet, "http://example.invalid", nil, nil)
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestDoJSON_BadResponseBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out echo
	err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, &out)
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		t.Errorf("error = %v, want json syntax error", err)
	}
}
