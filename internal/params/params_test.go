package params

import "testing"

func TestTypedExtraction(t *testing.T) {
	p := Params{
		"gain":    Number(0.5),
		"bypass":  Bool(true),
		"preset":  String("warm"),
		"modelPath": String("/tmp/model.json"),
	}

	if got, err := p.Number("gain"); err != nil || got != 0.5 {
		t.Fatalf("Number(gain) = %v, %v, want 0.5, nil", got, err)
	}
	if got, err := p.Bool("bypass"); err != nil || got != true {
		t.Fatalf("Bool(bypass) = %v, %v, want true, nil", got, err)
	}
	if got, err := p.String("preset"); err != nil || got != "warm" {
		t.Fatalf("String(preset) = %q, %v, want \"warm\", nil", got, err)
	}
}

func TestWrongVariantErrors(t *testing.T) {
	p := Params{"gain": Number(1)}

	if _, err := p.String("gain"); err == nil {
		t.Fatal("String(gain) on a number variant should error")
	}
	if _, err := p.Bool("gain"); err == nil {
		t.Fatal("Bool(gain) on a number variant should error")
	}
	if _, err := p.Number("missing"); err == nil {
		t.Fatal("Number(missing) should error")
	}
}

func TestFirstString(t *testing.T) {
	p := Params{"url": String("http://host/model")}

	if got, ok := p.FirstString("modelPath", "url"); !ok || got != "http://host/model" {
		t.Fatalf("FirstString() = %q, %v, want url value, true", got, ok)
	}
	if _, ok := p.FirstString("other"); ok {
		t.Fatal("FirstString(other) should report not found")
	}

	// A non-string value under an alias must not satisfy the lookup.
	p["modelPath"] = Number(3)
	if got, ok := p.FirstString("modelPath", "url"); !ok || got != "http://host/model" {
		t.Fatalf("FirstString() skipped wrong variant = %q, %v", got, ok)
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Number(1), "number"},
		{Bool(false), "bool"},
		{String(""), "string"},
	}
	for _, c := range cases {
		if got := c.v.Kind().String(); got != c.want {
			t.Fatalf("Kind().String() = %q, want %q", got, c.want)
		}
	}
}
