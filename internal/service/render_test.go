package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carmatch/internal/model"
)

func TestFuelText(t *testing.T) {
	tests := map[string]string{
		"diesel": "ดีเซล",
		"Petrol": "เบนซิน",
		"BEV":    "ไฟฟ้า",
		"e:HEV":  "ไฮบริด",
		"phev":   "ปลั๊กอินไฮบริด",
		"mhev":   "ไฮบริดแบบ MHEV",
		"e20":    "E20",
		"":       "ไม่ระบุ",
		"hydro":  "hydro",
	}
	for in, want := range tests {
		assert.Equal(t, want, FuelText(in), in)
	}
}

func TestSummarize(t *testing.T) {
	vehicles, _ := testVehicles()
	sv := model.ScoredVehicle{Vehicle: &vehicles[3], Score: 0.25}

	got := Summarize(2, sv, "เหมาะกับครอบครัว")

	assert.Equal(t, model.VehicleSummary{
		Rank:        2,
		ID:          "4",
		Name:        "Toyota Fortuner 2.4 Leader A/T",
		Price:       1_500_000,
		Year:        vehicles[3].Year,
		Series:      "Fortuner",
		EngineText:  "2.4 L (2393 cc)",
		HPText:      "150 แรงม้า",
		FuelText:    "ดีเซล",
		GearsText:   "6 สปีด",
		DriveText:   "4WD",
		Explanation: "เหมาะกับครอบครัว",
		Score:       0.25,
	}, got)
}

func TestGearsText_FallsBackToGearbox(t *testing.T) {
	vehicles, _ := testVehicles()
	assert.Equal(t, "CVT", GearsText(&vehicles[0]))
	assert.Equal(t, "ไม่ระบุ", GearsText(&model.Vehicle{}))
}

func TestPriceText(t *testing.T) {
	assert.Equal(t, "549,000", PriceText(549000))
	assert.Equal(t, "1,599,000", PriceText(1599000))
	assert.Equal(t, "900", PriceText(900))
}
