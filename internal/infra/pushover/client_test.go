package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"apiary-voice/internal/infra/pushover"
)

func TestClient_Notify(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages.json" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		got = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"message": r.PostForm.Get("message"),
			"title":   r.PostForm.Get("title"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL)
	if err := client.Notify(context.Background(), "Monitoreo guardado"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	want := map[string]string{
		"token":   "app-token",
		"user":    "user-key",
		"message": "Monitoreo guardado",
		"title":   "Monitoreo de colmenas",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestClient_NotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL)
	if err := client.Notify(context.Background(), "x"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestClient_NotifyWithoutCredentials(t *testing.T) {
	client := pushover.NewClientWithURL("", "", "http://127.0.0.1:1")
	if err := client.Notify(context.Background(), "x"); err != nil {
		t.Errorf("missing credentials should be a no-op: %v", err)
	}
}
