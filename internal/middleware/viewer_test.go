package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/kidsched/internal/viewer"
)

func TestViewerIssuesCookie(t *testing.T) {
	var got viewer.Viewer
	handler := Viewer(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = viewer.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !got.New || !viewer.Valid(got.ID) {
		t.Fatalf("viewer = %+v, want new valid viewer", got)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != ViewerCookieName || c.Value != got.ID {
		t.Errorf("cookie = %s=%s, want %s=%s", c.Name, c.Value, ViewerCookieName, got.ID)
	}
	if !c.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
}

func TestViewerKeepsExistingCookie(t *testing.T) {
	id := viewer.NewID()
	var got viewer.Viewer
	handler := Viewer(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = viewer.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookieName, Value: id})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.ID != id || got.New {
		t.Errorf("viewer = %+v, want existing %s", got, id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("should not reissue a valid cookie")
	}
}

func TestViewerReplacesMalformedCookie(t *testing.T) {
	var got viewer.Viewer
	handler := Viewer(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = viewer.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookieName, Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.ID == "not-a-uuid" || !got.New {
		t.Errorf("viewer = %+v, want replacement", got)
	}
}

func TestViewerKey(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	if got := ViewerKey(req); got != "ip:10.0.0.9" {
		t.Errorf("ViewerKey without viewer = %q", got)
	}

	id := viewer.NewID()
	req = req.WithContext(viewer.WithViewer(req.Context(), viewer.Viewer{ID: id}))
	if got := ViewerKey(req); got != "viewer:"+id {
		t.Errorf("ViewerKey = %q", got)
	}
}
