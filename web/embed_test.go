package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesIndex(t *testing.T) {
	for _, path := range []string{"/", "/unknown/route"} {
		w := httptest.NewRecorder()
		Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `id="chatMessages"`) {
			t.Errorf("%s: expected chat page, got %q", path, w.Body.String())
		}
	}
}

func TestHandlerServesScript(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/js/chat.js", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/chat") {
		t.Error("expected chat script body")
	}
}
