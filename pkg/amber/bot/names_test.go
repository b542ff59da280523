package bot

import "testing"

func TestExtractName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"meu nome é Maria", "Maria", true},
		{"Meu nome é João!", "João", true},
		{"o meu nome e pedro", "pedro", true},
		{"meu nome é a Ana", "Ana", true},
		// Composite names truncate to the first token.
		{"meu nome é Ana Maria", "Ana", true},
		{"oi, meu nome é Carlos, tudo bem?", "Carlos", true},
		{"qual é o meu nome?", "", false},
		{"bom dia", "", false},
		{"nome é Maria", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractName(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractName(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsNameQuestion(t *testing.T) {
	t.Parallel()

	yes := []string{
		"qual é o meu nome?",
		"qual meu nome",
		"você sabe qual é meu nome?",
		"Qual o meu nome mesmo?",
	}
	for _, in := range yes {
		if !IsNameQuestion(in) {
			t.Errorf("IsNameQuestion(%q) = false, want true", in)
		}
	}

	no := []string{
		"meu nome é Maria",
		"qual é o seu nome?",
		"bom dia",
	}
	for _, in := range no {
		if IsNameQuestion(in) {
			t.Errorf("IsNameQuestion(%q) = true, want false", in)
		}
	}
}

func TestNameFactRoundTrip(t *testing.T) {
	t.Parallel()

	fact := NameFact("Maria")
	if fact != "O nome do usuário é Maria" {
		t.Errorf("NameFact = %q", fact)
	}

	name, ok := NameFromFact(fact)
	if !ok || name != "Maria" {
		t.Errorf("NameFromFact(%q) = %q, %v", fact, name, ok)
	}

	if _, ok := NameFromFact("lembrete: comprar pão"); ok {
		t.Error("NameFromFact should reject non-fact content")
	}
}
