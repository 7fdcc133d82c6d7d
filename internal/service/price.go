package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"carmatch/internal/utils"
)

const (
	numberExpr = `(\d+(?:\.\d+)?)(ล้าน|แสน|หมื่น|พัน|k)?`

	// bareNumberSpread widens a single amount into a budget window.
	bareNumberSpread = 100_000
)

var (
	priceNoMore     = regexp.MustCompile(`ไม่เกิน` + numberExpr)
	priceBetween    = regexp.MustCompile(`(?:ระหว่าง|ช่วง|ตั้งแต่)?` + numberExpr + `(?:ถึง|-)` + numberExpr)
	priceUnbounded  = regexp.MustCompile(`(?:เกิน|มากกว่า|>)+` + numberExpr)
	priceBareNumber = regexp.MustCompile(numberExpr)
)

var magnitudes = map[string]float64{
	"ล้าน": 1_000_000,
	"แสน":  100_000,
	"หมื่น": 10_000,
	"พัน":  1_000,
	"k":    1_000,
}

// PriceRange is the outcome of parsing a budget phrase. Ambiguous is set for
// open-ended lower bounds such as "เกิน 1 ล้าน", which yield no bounds.
// Bare marks a window built around the single Amount.
type PriceRange struct {
	Min       *float64
	Max       *float64
	Ambiguous bool
	Bare      bool
	Amount    float64
}

// Found reports whether either bound was recognized.
func (r PriceRange) Found() bool {
	return r.Min != nil || r.Max != nil
}

// ParsePrice reads a Thai budget phrase. Patterns are tried in order:
// "ไม่เกิน X" gives (0, X); "A ถึง B" or "A-B" gives (min, max); an
// open-ended "เกิน X" is ambiguous; a bare X gives (X-100000, X+100000)
// clamped at zero.
func ParsePrice(text string) PriceRange {
	s := utils.NormalizeText(text)
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" {
		return PriceRange{}
	}

	if m := priceNoMore.FindStringSubmatch(s); m != nil {
		if x := toAmount(m[1], m[2]); x > 0 {
			return PriceRange{Min: ptr(0.0), Max: ptr(x)}
		}
	}

	if m := priceBetween.FindStringSubmatch(s); m != nil {
		a, b := toAmount(m[1], m[2]), toAmount(m[3], m[4])
		if a > 0 && b > 0 {
			return PriceRange{Min: ptr(min(a, b)), Max: ptr(max(a, b))}
		}
	}

	for _, loc := range priceUnbounded.FindAllStringIndex(s, -1) {
		if !strings.HasSuffix(s[:loc[0]], "ไม่") {
			return PriceRange{Ambiguous: true}
		}
	}

	if m := priceBareNumber.FindStringSubmatch(s); m != nil {
		if x := toAmount(m[1], m[2]); x > 0 {
			return PriceRange{Min: ptr(max(0, x-bareNumberSpread)), Max: ptr(x + bareNumberSpread), Bare: true, Amount: x}
		}
	}

	return PriceRange{}
}

func toAmount(num, unit string) float64 {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if mul, ok := magnitudes[unit]; ok {
		n *= mul
	}
	return math.Round(n)
}

func ptr[T any](v T) *T { return &v }
