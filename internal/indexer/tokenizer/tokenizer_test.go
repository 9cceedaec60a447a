package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}

func TestTokenizeDefaults(t *testing.T) {
	tok := Default()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace", "   \t", []string{}},
		{"simple", "Customer Model", []string{"customer", "model"}},
		{"punctuation", "order-line/v2 (draft)", []string{"order", "line", "v2", "draft"}},
		{"short tokens dropped", "a b cd e", []string{"cd"}},
		{"stop words kept", "the customer", []string{"the", "customer"}},
		{"unicode fold", "STRASSE Straße ÉCOLE", []string{"strasse", "strasse", "école"}},
		{"fullwidth", "ＣＵＳＴＯＭＥＲ", []string{"customer"}},
		{"digits", "ISO 8601", []string{"iso", "8601"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := terms(tok.Tokenize(tt.in))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens := Default().Tokenize("a customer x model")
	assert.Equal(t, []Token{{Term: "customer", Position: 0}, {Term: "model", Position: 1}}, tokens)
}

func TestTokenizeOptions(t *testing.T) {
	tok := New(Options{MinLength: 3, Stem: true, StopWords: true})
	assert.Equal(t, []string{"custom", "model"}, terms(tok.Tokenize("The customer of models")))
	assert.Empty(t, tok.Tokenize("an of to"))
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := Default()
	in := "Données clients – Customer Data Ünïcode"
	assert.Equal(t, tok.Tokenize(in), tok.Tokenize(in))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"customer", "model"}, Default().Terms("customer model Customer"))
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "cust", NormalizePrefix("  CUST "))
	assert.Equal(t, "", NormalizePrefix("   "))
}
