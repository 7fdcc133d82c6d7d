package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
)

// Stage is the top-level conversation phase.
type Stage string

const (
	StageCollecting    Stage = "collecting"
	StageAwaitingExtra Stage = "awaiting_extra"
	StageResults       Stage = "results"
)

// Slot names a preference field.
type Slot string

const (
	SlotPrice        Slot = "price"
	SlotMake         Slot = "make"
	SlotSeries       Slot = "series"
	SlotUsage        Slot = "usage_text"
	SlotTransmission Slot = "transmission"
	SlotFuel         Slot = "fuel"
	SlotDrivetrain   Slot = "drivetrain"
	SlotBody         Slot = "body"
	SlotExtra        Slot = "extra"
)

// RequiredSlots must be filled or skipped before leaving StageCollecting.
var RequiredSlots = []Slot{SlotMake, SlotUsage, SlotTransmission, SlotPrice, SlotFuel, SlotDrivetrain}

// shuffledSlots are asked in a per-conversation random order between the
// anchored price/make prefix and the trailing extra question.
var shuffledSlots = []Slot{SlotUsage, SlotTransmission, SlotFuel, SlotDrivetrain}

// Preferences is the per-conversation state.
type Preferences struct {
	PriceMin      *float64 `json:"price_min,omitempty"`
	PriceMax      *float64 `json:"price_max,omitempty"`
	Make          string   `json:"make,omitempty"`
	Series        string   `json:"series,omitempty"`
	UsageText     string   `json:"usage_text,omitempty"`
	UsageTags     []string `json:"usage_tags,omitempty"`
	Transmission  string   `json:"transmission,omitempty"`
	Fuel          string   `json:"fuel,omitempty"`
	Drivetrain    string   `json:"drivetrain,omitempty"`
	Body          string   `json:"body,omitempty"`
	MinHorsepower int      `json:"min_horsepower,omitempty"`
	MinCC         int      `json:"min_cc,omitempty"`

	// Extra holds the free-text answer to the open-ended question.
	Extra map[string]string `json:"extra,omitempty"`

	Skipped        []Slot   `json:"skipped,omitempty"`
	Seed           int64    `json:"seed"`
	AskOrder       []Slot   `json:"ask_order,omitempty"`
	PendingSlot    Slot     `json:"pending_slot,omitempty"`
	LastQuestion   string   `json:"last_question,omitempty"`
	Stage          Stage    `json:"stage"`
	ExtraAsked     bool     `json:"extra_asked"`
	LastCandidates []string `json:"last_candidates,omitempty"`
	Shown          []string `json:"shown,omitempty"`
	Turn           int      `json:"turn"`
}

// NewPreferences creates an empty conversation state whose ask order is
// derived from seed.
func NewPreferences(seed int64) *Preferences {
	p := &Preferences{Seed: seed, Stage: StageCollecting}
	p.EnsureAskOrder()
	return p
}

// EnsureAskOrder sets AskOrder once; later calls leave it untouched.
func (p *Preferences) EnsureAskOrder() {
	if len(p.AskOrder) > 0 {
		return
	}
	middle := slices.Clone(shuffledSlots)
	rng := rand.New(rand.NewSource(p.Seed))
	rng.Shuffle(len(middle), func(i, j int) { middle[i], middle[j] = middle[j], middle[i] })
	order := make([]Slot, 0, len(middle)+3)
	order = append(order, SlotPrice, SlotMake)
	order = append(order, middle...)
	p.AskOrder = append(order, SlotExtra)
}

// HasPrice reports whether either price bound is set.
func (p *Preferences) HasPrice() bool {
	return p.PriceMin != nil || p.PriceMax != nil
}

// SetPrice stores a range, swapping bounds when both are given out of order.
func (p *Preferences) SetPrice(min, max *float64) {
	if min != nil && max != nil && *min > *max {
		min, max = max, min
	}
	p.PriceMin, p.PriceMax = min, max
}

// Filled reports whether slot carries a value.
func (p *Preferences) Filled(slot Slot) bool {
	switch slot {
	case SlotPrice:
		return p.HasPrice()
	case SlotMake:
		return p.Make != ""
	case SlotSeries:
		return p.Series != ""
	case SlotUsage:
		return p.UsageText != ""
	case SlotTransmission:
		return p.Transmission != ""
	case SlotFuel:
		return p.Fuel != ""
	case SlotDrivetrain:
		return p.Drivetrain != ""
	case SlotBody:
		return p.Body != ""
	case SlotExtra:
		return p.Extra["text"] != ""
	}
	return false
}

// IsSkipped reports whether the user declined slot.
func (p *Preferences) IsSkipped(slot Slot) bool {
	return slices.Contains(p.Skipped, slot)
}

// Skip marks slot as declined and clears any value it held.
func (p *Preferences) Skip(slot Slot) {
	p.clear(slot)
	if !p.IsSkipped(slot) {
		p.Skipped = append(p.Skipped, slot)
	}
}

// Unskip removes slot from the skipped set once a real value arrives.
func (p *Preferences) Unskip(slot Slot) {
	p.Skipped = slices.DeleteFunc(p.Skipped, func(s Slot) bool { return s == slot })
}

func (p *Preferences) clear(slot Slot) {
	switch slot {
	case SlotPrice:
		p.PriceMin, p.PriceMax = nil, nil
	case SlotMake:
		p.Make = ""
	case SlotSeries:
		p.Series = ""
	case SlotUsage:
		p.UsageText, p.UsageTags = "", nil
	case SlotTransmission:
		p.Transmission = ""
	case SlotFuel:
		p.Fuel = ""
	case SlotDrivetrain:
		p.Drivetrain = ""
	case SlotBody:
		p.Body = ""
	}
}

// Satisfied reports whether slot is filled or skipped.
func (p *Preferences) Satisfied(slot Slot) bool {
	return p.Filled(slot) || p.IsSkipped(slot)
}

// RequiredSatisfied reports whether every required slot is satisfied.
func (p *Preferences) RequiredSatisfied() bool {
	for _, s := range RequiredSlots {
		if !p.Satisfied(s) {
			return false
		}
	}
	return true
}

// NextMissing returns the first unsatisfied required slot in ask order.
func (p *Preferences) NextMissing() (Slot, bool) {
	p.EnsureAskOrder()
	for _, s := range p.AskOrder {
		if s == SlotExtra || !slices.Contains(RequiredSlots, s) {
			continue
		}
		if !p.Satisfied(s) {
			return s, true
		}
	}
	return "", false
}

// HasUsageTag reports whether tag was detected in the usage text.
func (p *Preferences) HasUsageTag(tag string) bool {
	return slices.Contains(p.UsageTags, tag)
}

// Clone returns a deep copy.
func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}
	c := *p
	if p.PriceMin != nil {
		v := *p.PriceMin
		c.PriceMin = &v
	}
	if p.PriceMax != nil {
		v := *p.PriceMax
		c.PriceMax = &v
	}
	c.UsageTags = slices.Clone(p.UsageTags)
	c.Skipped = slices.Clone(p.Skipped)
	c.AskOrder = slices.Clone(p.AskOrder)
	c.LastCandidates = slices.Clone(p.LastCandidates)
	c.Shown = slices.Clone(p.Shown)
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Value implements driver.Valuer interface
func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface
func (p *Preferences) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported preferences type %T", value)
	}
}
