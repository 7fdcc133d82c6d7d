package service

import (
	"context"
	"math"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"carmatch/internal/catalog"
	"carmatch/internal/config"
	"carmatch/internal/model"
	"carmatch/internal/utils"
)

// Usage bonuses and floor penalties, in squared-distance units.
const (
	bonusLongEngine   = 0.35
	bonusLongGears    = 0.2
	bonusLongDiesel   = 0.35
	bonusLongBody     = 0.2
	bonusLongPower    = 0.1
	bonusCityEngine   = 0.3
	bonusCityHybrid   = 0.2
	bonusCityCompact  = 0.15
	penaltyHorsepower = 0.4
	penaltyCC         = 0.3
)

var (
	autoMarkers   = []string{"a/t", " auto", "ออโต้", "cvt", "dct"}
	manualMarkers = []string{"m/t", " manual", "ธรรมดา"}
	autoExprs     = []*regexp.Regexp{regexp.MustCompile(`\b\d+\s*at\b`), regexp.MustCompile(`\bat\b`)}
	manualExprs   = []*regexp.Regexp{regexp.MustCompile(`\bmt\b`), regexp.MustCompile(`\b\d+\s*mt\b`)}

	makeDelimiters = regexp.MustCompile(`[,\s/&|]+`)
	makeStopwords  = []string{"และ", "กับ", "หรือ", "and", "or"}

	longDistanceNames = []string{"suv", "pickup", "navara", "terra"}
	cityCompactNames  = []string{"almera", "march", "yaris", "mazda2"}
)

// RankOptions tunes one ranking call.
type RankOptions struct {
	TopN int
	// Exclude lists vehicle ids that must not be returned again.
	Exclude []string
}

// Ranker is the hybrid retrieval engine: vector search, hard filters, a
// catalog-filter fallback, then usage bonuses and floor penalties.
type Ranker struct {
	catalog  *catalog.Catalog
	embedder Embedder
	cfg      config.RankingConfig
	log      *zap.Logger
}

// NewRanker creates a ranker over cat.
func NewRanker(cat *catalog.Catalog, embedder Embedder, cfg config.RankingConfig, log *zap.Logger) *Ranker {
	return &Ranker{catalog: cat, embedder: embedder, cfg: cfg, log: log.Named("ranker")}
}

// RankQuery is the text embedded for a ranking: the user's words followed
// by the make, series and usage slots.
func RankQuery(text string, prefs *model.Preferences) string {
	parts := []string{strings.TrimSpace(text)}
	for _, s := range []string{prefs.Make, prefs.Series, prefs.UsageText} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Rank returns at most opts.TopN vehicles, best (lowest score) first. When
// the embedding is unavailable the result is a plain price-sorted listing
// of the catalog filtered on make, price and body.
func (r *Ranker) Rank(ctx context.Context, query string, prefs *model.Preferences, opts RankOptions) []model.ScoredVehicle {
	topN := opts.TopN
	if topN <= 0 {
		topN = r.cfg.TopN
	}
	if topN <= 0 || r.catalog.Len() == 0 {
		return nil
	}

	var vec []float32
	if r.embedder != nil {
		out := r.embedder.Embed(ctx, query)
		if !out.OK() {
			r.log.Warn("query embedding failed, using price-sorted listing", zap.Error(out.Err))
		}
		vec = out.Or(nil)
	}

	var results []model.ScoredVehicle
	if vec != nil {
		results = r.primary(vec, prefs, topN, opts.Exclude)
	}
	if len(results) < topN {
		results = r.fallback(vec, prefs, topN, opts.Exclude)
		if vec == nil {
			return results
		}
	}

	for i := range results {
		results[i].Score = results[i].Distance - usageBonus(results[i].Vehicle, prefs) + floorPenalty(results[i].Vehicle, prefs)
	}
	slices.SortStableFunc(results, func(a, b model.ScoredVehicle) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
	if len(results) > topN {
		results = results[:topN]
	}
	return results
}

// candidateCount is how many neighbours the vector search fetches.
func (r *Ranker) candidateCount(topN int) int {
	mult, floor := r.cfg.CandidateMultiplier, r.cfg.CandidateFloor
	if mult <= 0 {
		mult = 50
	}
	if floor <= 0 {
		floor = 200
	}
	return min(max(topN*mult, floor), r.catalog.Len())
}

func (r *Ranker) primary(vec []float32, prefs *model.Preferences, topN int, exclude []string) []model.ScoredVehicle {
	hits := r.catalog.Search(vec, r.candidateCount(topN))
	makeTokens := splitMakes(prefs.Make)

	results := make([]model.ScoredVehicle, 0, topN)
	for _, h := range hits {
		v := r.catalog.At(h.Index)
		if slices.Contains(exclude, v.ID) {
			continue
		}
		if !matchBody(v, prefs) || !matchTransmission(v, prefs.Transmission) ||
			!matchMake(v, makeTokens) || !matchSeries(v, prefs.Series) || !matchPrice(v, prefs) {
			continue
		}
		results = append(results, model.ScoredVehicle{Vehicle: v, Distance: h.Distance, Score: h.Distance})
		if len(results) >= topN {
			break
		}
	}
	return results
}

// fallback filters the whole catalog on make, price and body. If nothing
// passes and a price bound exists, vehicles of the wanted make are taken by
// closeness to the nearest bound; otherwise the cheapest come first.
func (r *Ranker) fallback(vec []float32, prefs *model.Preferences, topN int, exclude []string) []model.ScoredVehicle {
	makeTokens := splitMakes(prefs.Make)

	var rows []int
	for i, v := range r.catalog.Vehicles() {
		if slices.Contains(exclude, v.ID) {
			continue
		}
		if matchMake(&v, makeTokens) && matchPrice(&v, prefs) && matchBody(&v, prefs) {
			rows = append(rows, i)
		}
	}

	if len(rows) > 0 {
		slices.SortStableFunc(rows, func(a, b int) int {
			return compareFloat(r.catalog.At(a).Price, r.catalog.At(b).Price)
		})
	} else if prefs.HasPrice() {
		for i, v := range r.catalog.Vehicles() {
			if !slices.Contains(exclude, v.ID) && matchMake(&v, makeTokens) {
				rows = append(rows, i)
			}
		}
		slices.SortStableFunc(rows, func(a, b int) int {
			return compareFloat(boundGap(r.catalog.At(a).Price, prefs), boundGap(r.catalog.At(b).Price, prefs))
		})
	}

	if len(rows) > topN {
		rows = rows[:topN]
	}
	if len(rows) > 0 {
		r.log.Debug("fallback candidates", zap.Int("count", len(rows)))
	}

	results := make([]model.ScoredVehicle, 0, len(rows))
	for _, i := range rows {
		d := r.catalog.Distance(vec, i)
		results = append(results, model.ScoredVehicle{Vehicle: r.catalog.At(i), Distance: d, Score: d, Fallback: true})
	}
	return results
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// boundGap is the distance from price to the nearest given price bound.
func boundGap(price float64, prefs *model.Preferences) float64 {
	gap := math.Inf(1)
	if prefs.PriceMin != nil {
		gap = min(gap, math.Abs(price-*prefs.PriceMin))
	}
	if prefs.PriceMax != nil {
		gap = min(gap, math.Abs(price-*prefs.PriceMax))
	}
	return gap
}

// splitMakes breaks a make preference such as "toyota, honda" into tokens.
func splitMakes(raw string) []string {
	var tokens []string
	for _, tok := range makeDelimiters.Split(strings.ToLower(strings.TrimSpace(raw)), -1) {
		if tok != "" && !slices.Contains(makeStopwords, tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func matchBody(v *model.Vehicle, prefs *model.Preferences) bool {
	body := NormalizeBody(v.Body)
	if prefs.Body != "" {
		return body == prefs.Body
	}
	if prefs.HasUsageTag(UsageInCity) {
		return body != "pickup"
	}
	return true
}

func matchTransmission(v *model.Vehicle, want string) bool {
	text := v.CompositeText()
	switch want {
	case TransmissionManual:
		return !hasMarker(text, autoMarkers, autoExprs)
	case TransmissionAuto:
		return !hasMarker(text, manualMarkers, manualExprs)
	}
	return true
}

func hasMarker(text string, markers []string, exprs []*regexp.Regexp) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	for _, re := range exprs {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func matchMake(v *model.Vehicle, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	name := v.CompositeName()
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

func matchSeries(v *model.Vehicle, series string) bool {
	if series == "" {
		return true
	}
	return strings.Contains(strings.ToLower(v.Series+" "+v.Name), strings.ToLower(series))
}

func matchPrice(v *model.Vehicle, prefs *model.Preferences) bool {
	if prefs.PriceMin != nil && v.Price < *prefs.PriceMin {
		return false
	}
	if prefs.PriceMax != nil && v.Price > *prefs.PriceMax {
		return false
	}
	return true
}

func usageBonus(v *model.Vehicle, prefs *model.Preferences) float64 {
	var bonus float64
	fuel := strings.ToLower(v.Fuel)
	name := strings.ToLower(v.Name + " " + v.Body)

	if prefs.HasUsageTag(UsageLongDistance) {
		if v.EngineL != nil && *v.EngineL >= 1.5 {
			bonus += bonusLongEngine
		}
		if v.Gears != nil && *v.Gears >= 6 {
			bonus += bonusLongGears
		}
		if strings.Contains(fuel, "diesel") {
			bonus += bonusLongDiesel
		}
		if utils.ContainsAny(name, longDistanceNames...) {
			bonus += bonusLongBody
		}
		if v.Horsepower != nil && *v.Horsepower >= 120 {
			bonus += bonusLongPower
		}
	}
	if prefs.HasUsageTag(UsageInCity) {
		if v.EngineL != nil && *v.EngineL <= 1.3 {
			bonus += bonusCityEngine
		}
		if strings.Contains(fuel, "hybrid") || strings.Contains(fuel, "hev") {
			bonus += bonusCityHybrid
		}
		if utils.ContainsAny(name, cityCompactNames...) {
			bonus += bonusCityCompact
		}
	}
	return bonus
}

// floorPenalty only counts figures the listing states; a missing figure is
// not taken as falling short.
func floorPenalty(v *model.Vehicle, prefs *model.Preferences) float64 {
	var penalty float64
	if prefs.MinHorsepower > 0 && v.Horsepower != nil && *v.Horsepower < prefs.MinHorsepower {
		penalty += penaltyHorsepower
	}
	if prefs.MinCC > 0 && v.EngineCC != nil && *v.EngineCC < prefs.MinCC {
		penalty += penaltyCC
	}
	return penalty
}
