package textutil

import (
	"math"
	"reflect"
	"testing"
)

func TestTokensNormalizesText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"case and punctuation", "Hello, WORLD!", []string{"hello", "world"}},
		{"html tags", "<i>Where are you?</i>", []string{"where", "are", "you"}},
		{"ass override", `{\an8}Bonjour`, []string{"bonjour"}},
		{"combining marks", "café déjà", []string{"cafe", "deja"}},
		{"fullwidth", "ＡＢＣ １２", []string{"abc", "12"}},
		{"apostrophe kept", "don't stop", []string{"don't", "stop"}},
		{"zero width", "a\u200bb c", []string{"ab", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Tokens(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeJoinsTokens(t *testing.T) {
	if got := Normalize("  <b>Hi</b>   there...  "); got != "hi there" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestSimilarityBounds(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1},
		{"left empty", "", "hello", 0},
		{"right empty", "hello", "  ", 0},
		{"identical after folding", "Hello there!", "hello THERE", 1},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"one substitution of four", "the cat sat down", "the dog sat down", 0.75},
		{"one insertion", "see you", "see you soon", 1 - 1.0/3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := "I never said she stole my money"
	b := "she said I stole money"
	if Similarity(a, b) != Similarity(b, a) {
		t.Fatal("expected symmetric similarity")
	}
}

func TestDistance(t *testing.T) {
	if d := Distance([]string{"a", "b", "c"}, []string{"a", "c"}); d != 1 {
		t.Fatalf("distance = %d, want 1", d)
	}
	if d := Distance(nil, []string{"x", "y"}); d != 2 {
		t.Fatalf("distance = %d, want 2", d)
	}
}
