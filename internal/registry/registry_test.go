package registry

import (
	"bytes"
	"strings"
	"testing"
)

func TestRegisterAndList(t *testing.T) {
	Register(CardType{Type: "zz-test-card", Name: "ZZ", Version: "0.1.0"})
	Register(CardType{Type: "aa-test-card", Name: "AA", Version: "0.2.0"})
	Register(CardType{Type: "aa-test-card", Name: "AA v2", Version: "0.3.0"})

	ct, ok := Lookup("aa-test-card")
	if !ok {
		t.Fatal("expected aa-test-card to be registered")
	}
	if ct.Name != "AA v2" {
		t.Errorf("name = %q, want replacement entry", ct.Name)
	}

	list := List()
	var ia, iz = -1, -1
	for i, c := range list {
		switch c.Type {
		case "aa-test-card":
			ia = i
		case "zz-test-card":
			iz = i
		}
	}
	if ia < 0 || iz < 0 || ia > iz {
		t.Errorf("expected sorted list containing both types, got %+v", list)
	}

	if _, ok := Lookup("missing-card"); ok {
		t.Error("unexpected lookup hit")
	}
}

func TestBanner(t *testing.T) {
	got := Banner(CardType{Type: "kids-schedule-card", Version: "1.0.0"})
	if !strings.Contains(got, "KIDS-SCHEDULE-CARD") {
		t.Errorf("banner missing name: %q", got)
	}
	if !strings.Contains(got, "Version 1.0.0") {
		t.Errorf("banner missing version: %q", got)
	}

	var buf bytes.Buffer
	Register(CardType{Type: "banner-test-card", Version: "9.9.9"})
	PrintBanners(&buf)
	if !strings.Contains(buf.String(), "BANNER-TEST-CARD") {
		t.Errorf("PrintBanners output missing card: %q", buf.String())
	}
}
