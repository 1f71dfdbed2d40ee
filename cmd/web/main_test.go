package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStaticHandler(t *testing.T) {
	h, err := staticHandler()
	if err != nil {
		t.Fatalf("staticHandler: %v", err)
	}
	for _, path := range []string{"/static/app.js", "/static/app.css"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d, want 200", path, rec.Code)
		}
		if rec.Body.Len() == 0 {
			t.Errorf("%s: empty body", path)
		}
	}
}

func TestAppJS_TouchStartClearsLongPress(t *testing.T) {
	h, err := staticHandler()
	if err != nil {
		t.Fatalf("staticHandler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	js := rec.Body.String()
	start := strings.Index(js, `addEventListener("touchstart"`)
	if start < 0 {
		t.Fatal("no touchstart handler")
	}
	handler := js[start:]
	handler = handler[:strings.Index(handler, "});")]
	if !strings.Contains(handler, "suppressClick = false") {
		t.Error("touchstart must reset suppressClick so the next tap is not swallowed")
	}
}
