package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"strings"
	"testing"
)

func TestLayoutRendersCards(t *testing.T) {
	tmpl := Templates()

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", map[string]any{
		"Title": "Kids Schedule",
		"Cards": []template.HTML{`<div data-card-id="1">one</div>`, `<div data-card-id="2">two</div>`},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()
	if strings.Count(out, `class="dashboard-cell"`) != 2 {
		t.Errorf("expected two cells, got:\n%s", out)
	}
	if !strings.Contains(out, `<div data-card-id="1">one</div>`) {
		t.Error("card markup should not be escaped")
	}
	if !strings.Contains(out, "/static/app.js") {
		t.Error("expected page script")
	}
}

func TestLayoutEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Templates().ExecuteTemplate(&buf, "layout", map[string]any{"Title": "x"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(buf.String(), "No cards configured yet.") {
		t.Error("expected empty dashboard text")
	}
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"app.js", "app.css"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
