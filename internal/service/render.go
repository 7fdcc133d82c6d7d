package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"carmatch/internal/model"
)

const notSpecified = "ไม่ระบุ"

var fuelLabels = map[string]string{
	"diesel":   "ดีเซล",
	"petrol":   "เบนซิน",
	"gasoline": "เบนซิน",
	"benzine":  "เบนซิน",
	"ev":       "ไฟฟ้า",
	"bev":      "ไฟฟ้า",
	"electric": "ไฟฟ้า",
	"hybrid":   "ไฮบริด",
	"hev":      "ไฮบริด",
	"e:hev":    "ไฮบริด",
	"phev":     "ปลั๊กอินไฮบริด",
	"mhev":     "ไฮบริดแบบ MHEV",
	"e20":      "E20",
	"e85":      "E85",
	"cng":      "CNG",
	"lpg":      "LPG",
}

// FuelText returns the Thai label for a catalog fuel value.
func FuelText(fuel string) string {
	f := strings.ToLower(strings.TrimSpace(fuel))
	if f == "" {
		return notSpecified
	}
	if label, ok := fuelLabels[f]; ok {
		return label
	}
	return fuel
}

// EngineText renders displacement as "1.5 L (1496 cc)".
func EngineText(v *model.Vehicle) string {
	switch {
	case v.EngineL != nil && v.EngineCC != nil:
		return fmt.Sprintf("%s L (%d cc)", formatLiters(*v.EngineL), *v.EngineCC)
	case v.EngineL != nil:
		return formatLiters(*v.EngineL) + " L"
	case v.EngineCC != nil:
		return fmt.Sprintf("%d cc", *v.EngineCC)
	}
	return notSpecified
}

func formatLiters(l float64) string {
	return strconv.FormatFloat(l, 'f', 1, 64)
}

// HorsepowerText renders "120 แรงม้า".
func HorsepowerText(v *model.Vehicle) string {
	if v.Horsepower == nil {
		return notSpecified
	}
	return fmt.Sprintf("%d แรงม้า", *v.Horsepower)
}

// GearsText renders "6 สปีด", falling back to the raw gearbox text.
func GearsText(v *model.Vehicle) string {
	if v.Gears != nil {
		return fmt.Sprintf("%d สปีด", *v.Gears)
	}
	if v.Gearbox != "" {
		return v.Gearbox
	}
	return notSpecified
}

// DriveText upper-cases the drivetrain.
func DriveText(v *model.Vehicle) string {
	if strings.TrimSpace(v.Drivetrain) == "" {
		return notSpecified
	}
	return strings.ToUpper(strings.TrimSpace(v.Drivetrain))
}

// PriceText renders a price with thousands separators.
func PriceText(price float64) string {
	s := strconv.FormatInt(int64(math.Round(price)), 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ContextOf flattens a vehicle for the text generator.
func ContextOf(v *model.Vehicle) VehicleContext {
	year := notSpecified
	if v.Year != nil {
		year = strconv.Itoa(*v.Year)
	}
	return VehicleContext{
		Name:        v.Name,
		Series:      v.Series,
		Year:        year,
		Price:       PriceText(v.Price),
		Engine:      EngineText(v),
		Horsepower:  HorsepowerText(v),
		Fuel:        FuelText(v.Fuel),
		Gears:       GearsText(v),
		Drivetrain:  DriveText(v),
		Description: v.Description,
	}
}

// Summarize renders one ranked vehicle. rank starts at 1.
func Summarize(rank int, sv model.ScoredVehicle, explanation string) model.VehicleSummary {
	v := sv.Vehicle
	return model.VehicleSummary{
		Rank:        rank,
		ID:          v.ID,
		Name:        v.Name,
		Price:       int64(math.Round(v.Price)),
		Year:        v.Year,
		Series:      v.Series,
		EngineText:  EngineText(v),
		HPText:      HorsepowerText(v),
		FuelText:    FuelText(v.Fuel),
		GearsText:   GearsText(v),
		DriveText:   DriveText(v),
		Explanation: explanation,
		Score:       sv.Score,
	}
}

// TemplateExplanation is used when no generated explanation is available.
func TemplateExplanation(v *model.Vehicle) string {
	return fmt.Sprintf("%s ราคา %s บาท เครื่องยนต์ %s %s เชื้อเพลิง%s",
		v.Name, PriceText(v.Price), EngineText(v), HorsepowerText(v), FuelText(v.Fuel))
}
