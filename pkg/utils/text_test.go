package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"diacritics", "Cách điện 004002 dùng chụp khí gì?", "cach dien 004002 dung chup khi gi"},
		{"d stroke", "Đặt hàng", "dat hang"},
		{"amp token", "350A", "350a"},
		{"collapse spaces", "  sứ   phân phối  khí ", "su phan phoi khi"},
		{"edge punctuation", "mã 004002.", "ma 004002"},
		{"keeps inner dot", "size 1.2mm", "size 1.2mm"},
		{"emoji dropped", "🏢 Tên công ty", "ten cong ty"},
		{"en dash range", "liệt kê 2\u20134 chụp khí", "liet ke 2-4 chup khi"},
		{"em dash range", "2\u20144 mã", "2-4 ma"},
		{"minus sign", "2\u22124", "2-4"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestContainsPhrase(t *testing.T) {
	text := NormalizeText("Cho em xem chụp khí 350A")

	assert.True(t, ContainsPhrase(text, "chup khi"))
	assert.True(t, ContainsPhrase(text, "350a"))
	assert.False(t, ContainsPhrase(text, "chu"))
	assert.False(t, ContainsPhrase(text, "50a"))
	assert.False(t, ContainsPhrase(text, ""))
}

func TestExtractJSONBlock(t *testing.T) {
	assert.Equal(t, `{"intent":"LIST"}`, ExtractJSONBlock("```json\n{\"intent\":\"LIST\"}\n```"))
	assert.Equal(t, "", ExtractJSONBlock("no json here"))
	assert.Equal(t, "", ExtractJSONBlock("} backwards {"))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a b c"}, SplitWords("a b c", 5))
	assert.Equal(t, []string{"a b", "c d", "e"}, SplitWords("a b c d e", 2))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Chụp", TruncateRunes("Chụp khí", 4))
	assert.Equal(t, "ok", TruncateRunes("ok", 10))
	assert.Equal(t, "", TruncateRunes("ok", 0))
}

func TestExtractDigits(t *testing.T) {
	assert.Equal(t, "004002", ExtractDigits("Tokin 004-002"))
	assert.Equal(t, "", ExtractDigits("none"))
}
