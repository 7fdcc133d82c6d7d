package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "งบ 800,000 บาท", NormalizeText("  งบ   ๘๐๐,๐๐๐ บาท "))
	assert.Equal(t, "toyota yaris", NormalizeText("Toyota\tYARIS"))
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		name string
		text string
		kw   string
		want bool
	}{
		{"thai substring", "อยากได้เกียร์ออโต้", "ออโต้", true},
		{"short latin standalone", "ขอ at ครับ", "at", true},
		{"short latin inside word", "ชอบ toyota corolla altis", "at", false},
		{"short latin at end", "อยากได้ ev", "ev", true},
		{"short latin inside word ev", "chevrolet", "ev", false},
		{"long latin substring", "manual gearbox", "manual", true},
		{"empty keyword", "anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsKeyword(tt.text, tt.kw))
		})
	}
}

func TestExpandMakeAliases(t *testing.T) {
	assert.Equal(t, "อยากได้โตโยต้า toyota", ExpandMakeAliases("อยากได้โตโยต้า"))
	assert.Equal(t, "toyota yaris", ExpandMakeAliases("toyota yaris"))
	assert.Equal(t, "ขอ benz mercedes-benz", ExpandMakeAliases("ขอ benz"))
	assert.Equal(t, "honda", NormalizeMake(" ฮอนด้า "))
	assert.Equal(t, "mazda", NormalizeMake("Mazda"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "สวัส...", Truncate("สวัสดีครับ", 4))
	assert.Equal(t, 4, RuneLen("สวัส"))
}
