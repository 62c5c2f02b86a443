package bus

import (
	"reflect"
	"testing"
)

func TestSplitSignature(t *testing.T) {
	tests := []struct {
		sig  string
		want []string
	}{
		{"", nil},
		{"s", []string{"s"}},
		{"ss", []string{"s", "s"}},
		{"sa{sv}i", []string{"s", "a{sv}", "i"}},
		{"a(ii)", []string{"a(ii)"}},
		{"(sis)", []string{"(sis)"}},
		{"aas", []string{"aas"}},
		{"v", []string{"v"}},
		{"a{s(ii)}x", []string{"a{s(ii)}", "x"}},
	}

	for _, tt := range tests {
		got, err := SplitSignature(tt.sig)
		if err != nil {
			t.Errorf("SplitSignature(%q) failed: %v", tt.sig, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitSignature(%q) = %v, want %v", tt.sig, got, tt.want)
		}
	}
}

func TestSplitSignatureInvalid(t *testing.T) {
	for _, sig := range []string{"a", "(s", "z", "a{s}{"} {
		if _, err := SplitSignature(sig); err == nil {
			t.Errorf("SplitSignature(%q) = nil error, want failure", sig)
		}
	}
}

func TestArity(t *testing.T) {
	tests := map[string]int{
		"":       0,
		"s":      1,
		"ss":     2,
		"sa{sv}": 2,
		"(ii)x":  2,
	}
	for sig, want := range tests {
		got, err := Arity(sig)
		if err != nil {
			t.Errorf("Arity(%q) failed: %v", sig, err)
			continue
		}
		if got != want {
			t.Errorf("Arity(%q) = %d, want %d", sig, got, want)
		}
	}
}
