package service

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"carmatch/internal/catalog"
	"carmatch/internal/model"
	"carmatch/internal/utils"
)

// minGeneralBudget keeps stray small numbers in free text ("1.5", "7")
// from becoming a budget outside the price question.
const minGeneralBudget = 10_000

var (
	horsepowerExpr = regexp.MustCompile(`(\d{2,4})\s*(?:แรงม้า|hp)|แรงม้า\s*(\d{2,4})`)
	displacementCC = regexp.MustCompile(`(\d{3,4})\s*cc`)

	// non-price figures removed before a free-text budget parse
	nonPriceFigures = []*regexp.Regexp{
		regexp.MustCompile(`คันที่\s*\d+`),
		regexp.MustCompile(`item\s*\d+`),
		horsepowerExpr,
		displacementCC,
		regexp.MustCompile(`\d+\s*(?:ที่นั่ง|สปีด|speed|ประตู|ล้อ)`),
		regexp.MustCompile(`0\s*-\s*100`),
		regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:km/l|กม\.?/ลิตร|กม/ล)`),
		regexp.MustCompile(`(?:ปี|year|รุ่นปี)\s*\d{4}`),
		regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:ลิตร|l\b)`),
	}
)

// Extractor turns user text into slot updates: deterministic rule tables
// first, then the model for whatever the rules left empty.
type Extractor struct {
	catalog *catalog.Catalog
	ai      SlotExtractor
	log     *zap.Logger
}

// NewExtractor creates an extractor. ai may be nil.
func NewExtractor(cat *catalog.Catalog, ai SlotExtractor, log *zap.Logger) *Extractor {
	return &Extractor{catalog: cat, ai: ai, log: log.Named("extractor")}
}

// DetectMake returns the first catalog make and series root mentioned in
// text. Catalog first-seen order breaks ties. A series named by a bare
// number ("2") only counts directly after its own make. A series alone
// never implies a make.
func (e *Extractor) DetectMake(text string) (mk, series string) {
	q := utils.ExpandMakeAliases(utils.NormalizeText(text))
	for _, m := range e.catalog.Makes() {
		if utils.ContainsKeyword(q, m) {
			mk = m
			break
		}
	}
	for _, sr := range e.catalog.Series() {
		root := strings.Fields(sr)[0]
		if isDigits(root) {
			if mk == "" || tokenAfterMake(q, mk) != root || !e.makeHasSeries(mk, root) {
				continue
			}
		} else if !strings.Contains(q, sr) && !utils.ContainsKeyword(q, root) {
			continue
		}
		series = root
		break
	}
	return mk, series
}

func (e *Extractor) makeHasSeries(mk, root string) bool {
	for _, v := range e.catalog.Vehicles() {
		if f := strings.Fields(strings.ToLower(v.Series)); len(f) > 0 && f[0] == root && strings.EqualFold(strings.TrimSpace(v.Make), mk) {
			return true
		}
	}
	return false
}

var makeFollowerCache sync.Map // make -> *regexp.Regexp

// tokenAfterMake returns the word directly following mk in q, or "".
func tokenAfterMake(q, mk string) string {
	cached, ok := makeFollowerCache.Load(mk)
	if !ok {
		cached, _ = makeFollowerCache.LoadOrStore(mk, regexp.MustCompile(`(?:^|[^a-z0-9])`+regexp.QuoteMeta(mk)+`\s+([a-z0-9ก-๙:.\-]+)`))
	}
	if m := cached.(*regexp.Regexp).FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolvePending interprets text only as an answer for slot. A reply that
// carries no value for the slot but declines to answer marks it skipped;
// anything else leaves the slot as it was so it is asked again.
func (e *Extractor) ResolvePending(prefs *model.Preferences, slot model.Slot, text string) {
	t := utils.NormalizeText(text)

	switch slot {
	case model.SlotPrice:
		r := ParsePrice(t)
		if r.Found() {
			prefs.SetPrice(r.Min, r.Max)
			prefs.Unskip(model.SlotPrice)
			return
		}
		if r.Ambiguous {
			return
		}
	case model.SlotMake:
		mk, series := e.DetectMake(t)
		if series != "" {
			prefs.Series = series
		}
		if mk != "" {
			prefs.Make = mk
			prefs.Unskip(model.SlotMake)
			return
		}
	case model.SlotTransmission:
		if v := firstCategory(t, transmissionTable); v != "" {
			prefs.Transmission = v
			prefs.Unskip(slot)
			return
		}
	case model.SlotFuel:
		if v := firstCategory(t, fuelTable); v != "" {
			prefs.Fuel = v
			prefs.Unskip(slot)
			return
		}
	case model.SlotDrivetrain:
		if v := firstCategory(t, driveTable); v != "" {
			prefs.Drivetrain = v
			prefs.Unskip(slot)
			return
		}
	case model.SlotUsage:
		if IsNegativeAnswer(t) && len(allCategories(t, usageTable)) == 0 {
			prefs.Skip(slot)
			return
		}
		e.applyUsage(prefs, text)
		if body := firstCategory(t, bodyTable); body != "" {
			prefs.Body = body
		}
		if prefs.UsageText != "" {
			prefs.Unskip(slot)
		}
		return
	case model.SlotExtra:
		e.applyExtra(prefs, text)
		return
	}

	if IsNegativeAnswer(t) {
		prefs.Skip(slot)
	}
}

// applyUsage stores text as the usage description unless it is really
// about performance or gearboxes, in which case it feeds those slots.
func (e *Extractor) applyUsage(prefs *model.Preferences, text string) {
	t := utils.NormalizeText(text)
	if t == "" {
		return
	}
	if utils.ContainsAny(t, notUsageVocabulary...) {
		if v := firstCategory(t, transmissionTable); v != "" {
			prefs.Transmission = v
			prefs.Unskip(model.SlotTransmission)
		}
		if v := firstCategory(t, fuelTable); v != "" {
			prefs.Fuel = v
			prefs.Unskip(model.SlotFuel)
		}
		e.applyFloors(prefs, t)
		return
	}
	prefs.UsageText = strings.TrimSpace(text)
	prefs.UsageTags = allCategories(t, usageTable)
}

func (e *Extractor) applyExtra(prefs *model.Preferences, text string) {
	txt := strings.TrimSpace(text)
	t := utils.NormalizeText(txt)
	if t == "" || IsNegativeAnswer(t) {
		return
	}
	if prefs.Extra == nil {
		prefs.Extra = map[string]string{}
	}
	if prev := prefs.Extra["text"]; prev != "" {
		txt = prev + " " + txt
	}
	prefs.Extra["text"] = txt
	e.applyFloors(prefs, t)
}

// applyFloors raises the horsepower and displacement floors; they never
// decrease within a conversation.
func (e *Extractor) applyFloors(prefs *model.Preferences, t string) {
	if m := horsepowerExpr.FindStringSubmatch(t); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if hp, err := strconv.Atoi(raw); err == nil {
			prefs.MinHorsepower = max(prefs.MinHorsepower, hp)
		}
	}
	if m := displacementCC.FindStringSubmatch(t); m != nil {
		if cc, err := strconv.Atoi(m[1]); err == nil {
			prefs.MinCC = max(prefs.MinCC, cc)
		}
	}
}

// FreshSignals applies the price and make patterns that count as a new
// preference even while results are showing.
func (e *Extractor) FreshSignals(prefs *model.Preferences, text string) {
	t := utils.NormalizeText(text)
	if r := ParsePrice(stripNonPriceFigures(t)); r.Found() && (!r.Bare || r.Amount >= minGeneralBudget) {
		prefs.SetPrice(r.Min, r.Max)
		prefs.Unskip(model.SlotPrice)
	}
	mk, series := e.DetectMake(stripNonPriceFigures(t))
	if mk != "" {
		prefs.Make = mk
		prefs.Unskip(model.SlotMake)
	}
	if series != "" {
		prefs.Series = series
	}
}

// ExtractGeneral runs every rule over free text that answers no particular
// question, then asks the model to fill slots the rules left empty.
func (e *Extractor) ExtractGeneral(ctx context.Context, prefs *model.Preferences, text string) {
	t := utils.NormalizeText(text)
	if t == "" {
		return
	}

	e.FreshSignals(prefs, text)

	hintText := utils.NormalizeText(prefs.UsageText + " " + t)
	if v := firstCategory(hintText, transmissionTable); v != "" {
		prefs.Transmission = v
		prefs.Unskip(model.SlotTransmission)
	}
	if v := firstCategory(t, fuelTable); v != "" {
		prefs.Fuel = v
		prefs.Unskip(model.SlotFuel)
	}
	if v := firstCategory(t, driveTable); v != "" {
		prefs.Drivetrain = v
		prefs.Unskip(model.SlotDrivetrain)
	}
	if v := firstCategory(hintText, bodyTable); v != "" {
		prefs.Body = v
	}
	if tags := allCategories(t, usageTable); len(tags) > 0 && prefs.UsageText == "" {
		prefs.UsageText = strings.Join(matchedKeywords(t, usageTable), " ")
		prefs.UsageTags = tags
		prefs.Unskip(model.SlotUsage)
	}
	e.applyFloors(prefs, t)

	e.fillFromModel(ctx, prefs, text)
}

func (e *Extractor) fillFromModel(ctx context.Context, prefs *model.Preferences, text string) {
	if e.ai == nil || !hasOpenSlot(prefs) {
		return
	}
	out := e.ai.ExtractSlots(ctx, text)
	if !out.OK() {
		e.log.Debug("model slot extraction unavailable", zap.Error(out.Err))
		return
	}
	ai := out.Value

	if !prefs.Satisfied(model.SlotPrice) && (ai.PriceMin != nil || ai.PriceMax != nil) {
		prefs.SetPrice(ai.PriceMin, ai.PriceMax)
	}
	if !prefs.Satisfied(model.SlotMake) && ai.Make != "" {
		if mk := utils.NormalizeMake(ai.Make); slices.Contains(e.catalog.Makes(), mk) {
			prefs.Make = mk
		}
	}
	if prefs.Series == "" && ai.Series != "" && e.knownSeries(ai.Series) {
		prefs.Series = ai.Series
	}
	if !prefs.Satisfied(model.SlotUsage) && ai.UsageText != "" {
		e.applyUsage(prefs, ai.UsageText)
	}
	if !prefs.Satisfied(model.SlotTransmission) {
		prefs.Transmission = ai.Transmission
	}
	if !prefs.Satisfied(model.SlotFuel) {
		prefs.Fuel = ai.Fuel
	}
	if !prefs.Satisfied(model.SlotDrivetrain) {
		prefs.Drivetrain = ai.Drivetrain
	}
	if prefs.Body == "" {
		prefs.Body = ai.Body
	}
}

// hasOpenSlot reports whether any slot the model can fill is still empty.
func hasOpenSlot(prefs *model.Preferences) bool {
	return !prefs.RequiredSatisfied() || prefs.Series == "" || prefs.Body == ""
}

func (e *Extractor) knownSeries(series string) bool {
	for _, sr := range e.catalog.Series() {
		if strings.Contains(sr, series) {
			return true
		}
	}
	return false
}

// InferSeries takes the token after the chosen make in text as the series
// when none was detected, keeping it only if some catalog series contains it.
func (e *Extractor) InferSeries(prefs *model.Preferences, text string) {
	if prefs.Make != "" && prefs.Series == "" {
		q := utils.ExpandMakeAliases(utils.NormalizeText(text))
		if root := tokenAfterMake(q, prefs.Make); root != "" {
			if !slices.Contains([]string{"กับ", "และ", "หรือ", "and", "or"}, root) && utils.RuneLen(root) >= 2 {
				prefs.Series = root
			}
		}
	}
	if prefs.Series == "" {
		return
	}
	if slices.Contains(dontCareSeries, strings.ReplaceAll(prefs.Series, " ", "")) || !e.knownSeries(prefs.Series) {
		prefs.Series = ""
	}
}

func matchedKeywords(text string, table []category) []string {
	var out []string
	for _, c := range table {
		for _, kw := range c.keywords {
			if utils.ContainsKeyword(text, kw) {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}

func stripNonPriceFigures(t string) string {
	for _, re := range nonPriceFigures {
		t = re.ReplaceAllString(t, " ")
	}
	return t
}
