package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Olá", "ola"},
		{"  AÇÃO  ", "acao"},
		{"não", "nao"},
		{"English stays", "english stays"},
		{"Fatura?", "fatura?"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeStrict(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Olá!", "ola"},
		{"Como emitir 2a via?", "como emitir 2a via"},
		{"  what's up  ", "whats up"},
		{"...", ""},
		{"Boleto, por favor.", "boleto por favor"},
	}

	for _, tc := range tests {
		if got := NormalizeStrict(tc.in); got != tc.want {
			t.Fatalf("NormalizeStrict(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
	}{
		{"pt", Portuguese},
		{"PT-BR", Portuguese},
		{"Português", Portuguese},
		{"portugues", Portuguese},
		{"en", English},
		{"en-US", English},
		{"", English},
		{"es", English},
	}

	for _, tc := range tests {
		if got := ParseTag(tc.in); got != tc.want {
			t.Fatalf("ParseTag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
