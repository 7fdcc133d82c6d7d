package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"carmatch/internal/model"
	"carmatch/internal/utils"
)

const (
	noCandidatesReply = "ยังไม่มีรายการรถล่าสุดให้ถามต่อครับ พิมพ์ \"เริ่มใหม่\" เพื่อค้นหาใหม่ได้เลย"
	economyReply      = "จากชุดล่าสุด คันที่ประหยัดน้ำมันสุดคือ “%s” (เครื่อง %s / เชื้อเพลิง %s). อยากทราบรายละเอียดเพิ่มไหม?"
	followupTail      = "\nอยากทราบรายละเอียดคันไหนเพิ่มเติม บอกหมายเลขคันได้เลยครับ"

	// missingEngine sorts vehicles without a displacement last.
	missingEngine      = 99.0
	economyBonusHybrid = 1.0
	economyBonusDiesel = 0.2
)

var ordinalExprs = []*regexp.Regexp{
	regexp.MustCompile(`คันที่\s*(\d+)`),
	regexp.MustCompile(`(?:อันดับ|ลำดับ)(?:ที่)?\s*(\d+)`),
	regexp.MustCompile(`item\s*(\d+)`),
}

var electrifiedFuels = []string{"hybrid", "hev", "phev", "bev", "ev", "electric"}

// followup answers a question about the last recommendation: one vehicle
// by number or name, the most economical one, a comparison, or anything
// else grounded in the list.
func (d *Dialogue) followup(ctx context.Context, prefs *model.Preferences, text string) *model.ChatResponse {
	cands := d.lastCandidates(prefs)
	if len(cands) == 0 {
		return &model.ChatResponse{Mode: model.ModeFollowup, Reply: noCandidatesReply}
	}
	t := utils.NormalizeText(text)

	if i, ok := referencedVehicle(t, cands); ok {
		vc := ContextOf(cands[i])
		reply := d.gen.Detail(ctx, vc, text).Or("")
		if strings.TrimSpace(reply) == "" {
			reply = fmt.Sprintf("ข้อมูลของ “%s”:\n%s", vc.Name, vc.Block())
		}
		return &model.ChatResponse{Mode: model.ModeFollowup, Reply: reply}
	}

	if utils.ContainsAny(t, efficiencyKeywords...) {
		v := mostEconomical(cands)
		engine := notSpecified
		if v.EngineL != nil {
			engine = formatLiters(*v.EngineL) + "L"
		}
		return &model.ChatResponse{Mode: model.ModeFollowup, Reply: fmt.Sprintf(economyReply, v.Name, engine, FuelText(v.Fuel))}
	}

	contexts := make([]VehicleContext, len(cands))
	for i, v := range cands {
		contexts[i] = ContextOf(v)
	}
	lines := ContextLines(contexts)

	var out Outcome[string]
	if utils.ContainsAny(t, compareKeywords...) {
		out = d.gen.Compare(ctx, contexts, text)
	} else {
		out = d.gen.Followup(ctx, contexts, text)
	}
	if !out.OK() {
		d.log.Debug("follow-up generation failed", zap.Error(out.Err))
	}
	reply := strings.TrimSpace(out.Or(""))
	if reply == "" {
		reply = lines + followupTail
	}
	return &model.ChatResponse{Mode: model.ModeFollowup, Reply: reply}
}

// lastCandidates resolves the ids of the last recommendation, skipping ids
// that are no longer in the catalog.
func (d *Dialogue) lastCandidates(prefs *model.Preferences) []*model.Vehicle {
	out := make([]*model.Vehicle, 0, len(prefs.LastCandidates))
	for _, id := range prefs.LastCandidates {
		v, err := d.catalog.Get(id)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// referencedVehicle finds the candidate named by a 1-based ordinal or by
// its full name in t.
func referencedVehicle(t string, cands []*model.Vehicle) (int, bool) {
	for _, re := range ordinalExprs {
		if m := re.FindStringSubmatch(t); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n >= 1 && n <= len(cands) {
				return n - 1, true
			}
		}
	}
	for i, v := range cands {
		if name := utils.NormalizeText(v.Name); name != "" && strings.Contains(t, name) {
			return i, true
		}
	}
	return 0, false
}

// economyScore ranks fuel economy: smaller engines first, with electrified
// and diesel drivetrains pulled ahead.
func economyScore(v *model.Vehicle) float64 {
	score := missingEngine
	if v.EngineL != nil {
		score = *v.EngineL
	}
	fuel := strings.ToLower(v.Fuel)
	switch {
	case utils.ContainsAny(fuel, electrifiedFuels...):
		score -= economyBonusHybrid
	case strings.Contains(fuel, "diesel"):
		score -= economyBonusDiesel
	}
	return score
}

// mostEconomical returns the first candidate with the lowest economy score.
func mostEconomical(cands []*model.Vehicle) *model.Vehicle {
	best := cands[0]
	for _, v := range cands[1:] {
		if economyScore(v) < economyScore(best) {
			best = v
		}
	}
	return best
}
