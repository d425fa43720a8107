package validation

import "testing"

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	HexColor("primary", "blue", v)
	HexColor("secondary", "#0a0", v)
	Email("email", "not-an-email", v)
	RangeInt("hours", 400, 0, 168, v)
	Key("key", "Youth Leaders", v)
	OneOf("priority", "urgent", []string{"low", "normal", "high"}, v)
	MaxLen("slogan", "abcdef", 3, v)

	want := map[string]string{
		"name":     "required",
		"primary":  "invalid_color",
		"email":    "invalid_email",
		"hours":    "out_of_range",
		"key":      "invalid_key",
		"priority": "invalid_choice",
		"slogan":   "too_long",
	}
	if len(v) != len(want) {
		t.Fatalf("expected %d violations, got %v", len(want), v)
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s: got %q, want %q", field, v[field], code)
		}
	}
	if v.Empty() {
		t.Fatal("expected violations")
	}
}

func TestValidators_Pass(t *testing.T) {
	v := Violations{}
	Required("name", "Igreja", v)
	HexColor("primary", "#1E1E1E", v)
	Email("email", "", v)
	Email("email2", "contato@igreja.org", v)
	Key("key", "youth_leaders", v)
	if !v.Empty() {
		t.Fatalf("expected no violations, got %v", v)
	}
}
