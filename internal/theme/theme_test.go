package theme

import (
	"strings"
	"testing"
)

func TestDarken(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#1E1E1E", "#000000", true},
		{"#FF0000", "#e10000", true},
		{"#ffffff", "#e1e1e1", true},
		{"#3c3c3c", "#1e1e1e", true},
		{"#fff", "#e1e1e1", true},
		{"#000000", "#000000", true},
		{"red", "", false},
		{"#12345", "", false},
		{"#GGGGGG", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Darken(tt.in, DarkenAmount)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Darken(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestVars_InvalidColorKeepsBaseOnly(t *testing.T) {
	vars := Vars("not-a-color", "#1E1E1E")
	if vars[VarPrimary] != "not-a-color" {
		t.Fatalf("base property must be set verbatim, got %q", vars[VarPrimary])
	}
	if _, ok := vars[VarPrimaryDark]; ok {
		t.Fatal("dark property must be absent for an invalid color")
	}
	if vars[VarSecondaryDark] != "#000000" {
		t.Fatalf("unexpected secondary dark %q", vars[VarSecondaryDark])
	}
}

func TestPalette_CSS(t *testing.T) {
	p := NewPalette()
	p.Apply("#FF0000", "#00FF00")
	css := p.CSS()
	for _, want := range []string{
		"--primary-color: #FF0000;",
		"--primary-color-dark: #e10000;",
		"--secondary-color: #00FF00;",
		"--secondary-color-dark: #00e100;",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("missing %q in\n%s", want, css)
		}
	}
	if !strings.HasPrefix(css, ":root {") {
		t.Fatalf("unexpected css %s", css)
	}

	p.Apply("x;}body{", "#000")
	if strings.Contains(p.CSS(), "body{") {
		t.Fatalf("css injection not neutralized: %s", p.CSS())
	}
	if p.Vars()[VarPrimary] != "x;}body{" {
		t.Fatal("palette must keep the raw value")
	}
}
