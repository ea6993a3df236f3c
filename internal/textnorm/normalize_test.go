package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase", in: "X-Burger", want: "x burger"},
		{name: "diacritics stripped", in: "batata rústica com pão", want: "batata rustica com pao"},
		{name: "punctuation removed", in: "quero, uma coca!", want: "quero uma coca"},
		{name: "hyphen becomes space", in: "coca-cola lata", want: "coca cola lata"},
		{name: "whitespace collapsed", in: "  dallas   duplo  ", want: "dallas duplo"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Coca-Cola Zero Lata!", "pão de alho", "X-TUDO, sem cebola."}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "stopwords removed", in: "pão de alho", want: []string{"pao", "alho"}},
		{name: "quantity words survive", in: "duas coca lata", want: []string{"duas", "coca", "lata"}},
		{name: "connectives survive", in: "dallas com bacon e coca", want: []string{"dallas", "com", "bacon", "e", "coca"}},
		{name: "empty", in: "   ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestNGram(t *testing.T) {
	tokens := []string{"coca", "zero", "lata"}

	got, ok := NGram(tokens, 0, 3)
	assert.True(t, ok)
	assert.Equal(t, "coca zero lata", got)

	got, ok = NGram(tokens, 1, 2)
	assert.True(t, ok)
	assert.Equal(t, "zero lata", got)

	_, ok = NGram(tokens, 2, 2)
	assert.False(t, ok, "window past end of tokens")

	_, ok = NGram(tokens, 0, 0)
	assert.False(t, ok, "zero-width window")
}
