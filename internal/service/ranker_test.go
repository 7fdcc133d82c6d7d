package service

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmatch/internal/catalog"
	"carmatch/internal/config"
	"carmatch/internal/model"
)

var testRanking = config.RankingConfig{TopN: 5, CandidateMultiplier: 50, CandidateFloor: 200}

func ids(results []model.ScoredVehicle) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Vehicle.ID)
	}
	return out
}

func TestRank_BudgetSedanScenario(t *testing.T) {
	cat := catalog.New([]model.Vehicle{
		{ID: "sedan", Name: "Sedan One", Make: "Acme", Price: 800_000, Body: "sedan"},
		{ID: "suv", Name: "SUV Two", Make: "Acme", Price: 1_200_000, Body: "suv"},
		{ID: "pickup", Name: "Pickup Three", Make: "Acme", Price: 900_000, Body: "pickup"},
	}, [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}})
	r := NewRanker(cat, &fakeAI{vector: []float32{0.6, 0.8}}, testRanking, nopLogger())

	prefs := model.NewPreferences(1)
	prefs.SetPrice(floatp(0), floatp(1_000_000))
	prefs.Body = "sedan"

	got := r.Rank(context.Background(), "ไม่เกิน 1 ล้าน เก๋ง", prefs, RankOptions{})
	assert.Equal(t, []string{"sedan"}, ids(got))
}

func TestRank_PrimaryPathHonoursHardFilters(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{0.2, 0.9, 0.1}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.Make = "toyota"
	prefs.Transmission = TransmissionManual

	got := r.Rank(context.Background(), "กระบะ", prefs, RankOptions{TopN: 1})

	require.Len(t, got, 1)
	assert.Equal(t, "6", got[0].Vehicle.ID)
	assert.False(t, got[0].Fallback)
}

func TestRank_FallbackWhenTooFewSurvive(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{0.2, 0.9, 0.1}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.Make = "toyota"
	prefs.Transmission = TransmissionManual

	got := r.Rank(context.Background(), "กระบะ", prefs, RankOptions{TopN: 2})

	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"1", "6"}, ids(got))
	for _, sv := range got {
		assert.True(t, sv.Fallback)
		assert.Less(t, sv.Distance, catalog.MaxDistance)
	}
}

func TestRank_FallbackNearestPriceBound(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{1, 0, 0}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.Make = "mazda"
	prefs.SetPrice(floatp(0), floatp(500_000))

	got := r.Rank(context.Background(), "mazda", prefs, RankOptions{})
	assert.Equal(t, []string{"5"}, ids(got))
}

func TestRank_EmptyWhenNothingMatches(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{1, 0, 0}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.Make = "ferrari"

	assert.Empty(t, r.Rank(context.Background(), "ferrari", prefs, RankOptions{}))
}

func TestRank_EmbeddingFailureListsByPrice(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.Make = "honda"

	got := r.Rank(context.Background(), "honda", prefs, RankOptions{})

	assert.Equal(t, []string{"7", "3"}, ids(got))
	for _, sv := range got {
		assert.Equal(t, catalog.MaxDistance, sv.Distance)
	}
}

func TestRank_ExcludesShownVehicles(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{1, 0, 0}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)

	first := r.Rank(context.Background(), "รถเก๋ง", prefs, RankOptions{TopN: 1})
	next := r.Rank(context.Background(), "รถเก๋ง", prefs, RankOptions{TopN: 1, Exclude: ids(first)})

	assert.Equal(t, []string{"1"}, ids(first))
	assert.Equal(t, []string{"5"}, ids(next))
}

func TestRank_UsageBonusAndFloorPenalty(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{1, 0, 0}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.UsageText = "ในเมือง"
	prefs.UsageTags = []string{UsageInCity}
	prefs.MinHorsepower = 120

	got := r.Rank(context.Background(), "ในเมือง", prefs, RankOptions{TopN: 3})

	assert.Equal(t, []string{"7", "1", "5"}, ids(got))
	assert.InDelta(t, -0.05, got[1].Score, 1e-6)
}

func TestRank_LongDistanceBonusReorders(t *testing.T) {
	cat := catalog.New([]model.Vehicle{
		{ID: "compact", Name: "Compact 1.2", Make: "Acme", Price: 550_000, Body: "sedan",
			EngineL: floatp(1.2), Horsepower: intp(90), Fuel: "petrol"},
		{ID: "tourer", Name: "Tourer 2.4", Make: "Acme", Price: 1_300_000, Body: "suv",
			EngineL: floatp(2.4), Gears: intp(6), Horsepower: intp(150), Fuel: "diesel"},
	}, [][]float32{{1, 0}, {0.8, 0.6}})
	r := NewRanker(cat, &fakeAI{vector: []float32{1, 0}}, testRanking, nopLogger())

	plain := r.Rank(context.Background(), "รถสักคัน", model.NewPreferences(1), RankOptions{})
	assert.Equal(t, []string{"compact", "tourer"}, ids(plain))

	prefs := model.NewPreferences(1)
	prefs.UsageText = "เดินทางไกล"
	prefs.UsageTags = []string{UsageLongDistance}
	got := r.Rank(context.Background(), "รถสักคัน เดินทางไกล", prefs, RankOptions{})

	require.Len(t, got, 2)
	assert.Equal(t, []string{"tourer", "compact"}, ids(got))
	assert.Less(t, got[0].Score, got[0].Distance)
}

func TestFloorPenalty_MissingFiguresAreNotPenalised(t *testing.T) {
	prefs := model.NewPreferences(1)
	prefs.MinHorsepower = 120
	prefs.MinCC = 1500

	assert.Zero(t, floorPenalty(&model.Vehicle{}, prefs))
	assert.InDelta(t, penaltyHorsepower, floorPenalty(&model.Vehicle{Horsepower: intp(90), EngineCC: intp(1800)}, prefs), 1e-9)
	assert.InDelta(t, penaltyHorsepower+penaltyCC, floorPenalty(&model.Vehicle{Horsepower: intp(90), EngineCC: intp(1200)}, prefs), 1e-9)
	assert.Zero(t, floorPenalty(&model.Vehicle{Horsepower: intp(150)}, prefs))
}

func TestRank_Idempotent(t *testing.T) {
	r := NewRanker(testCatalog(), &fakeAI{vector: []float32{0.4, 0.4, 0.2}}, testRanking, nopLogger())
	prefs := model.NewPreferences(1)
	prefs.UsageText = "เดินทางไกล"
	prefs.UsageTags = []string{UsageLongDistance}

	first := r.Rank(context.Background(), "เดินทางไกล", prefs, RankOptions{})
	second := r.Rank(context.Background(), "เดินทางไกล", prefs, RankOptions{})

	require.NotEmpty(t, first)
	assert.LessOrEqual(t, len(first), testRanking.TopN)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ranking changed between runs (-first +second):\n%s", diff)
	}
}

func TestMatchTransmission(t *testing.T) {
	vehicles, _ := testVehicles()

	var manualOK, autoOK []string
	for i := range vehicles {
		if matchTransmission(&vehicles[i], TransmissionManual) {
			manualOK = append(manualOK, vehicles[i].ID)
		}
		if matchTransmission(&vehicles[i], TransmissionAuto) {
			autoOK = append(autoOK, vehicles[i].ID)
		}
	}
	assert.Equal(t, []string{"2", "6"}, manualOK)
	assert.Equal(t, []string{"1", "3", "4", "5", "7"}, autoOK)
}

func TestSplitMakes(t *testing.T) {
	assert.Equal(t, []string{"toyota", "honda"}, splitMakes("Toyota, Honda"))
	assert.Equal(t, []string{"toyota", "mazda"}, splitMakes("toyota หรือ mazda"))
	assert.Nil(t, splitMakes(""))
}

func TestRankQuery(t *testing.T) {
	prefs := model.NewPreferences(1)
	prefs.Make = "toyota"
	prefs.UsageText = "ในเมือง"
	assert.Equal(t, "อยากได้รถ toyota ในเมือง", RankQuery(" อยากได้รถ ", prefs))
}
