package model

import (
	"fmt"
	"strings"
)

// Vehicle represents one catalog row. Records are immutable after load.
type Vehicle struct {
	ID          string   `json:"id" db:"id"`
	Name        string   `json:"name" db:"full_name"`
	Make        string   `json:"make" db:"make"`
	Series      string   `json:"series,omitempty" db:"series"`
	Year        *int     `json:"year,omitempty" db:"year"`
	Price       float64  `json:"price" db:"price_thb"`
	EngineL     *float64 `json:"engine_l,omitempty" db:"engine_l"`
	EngineCC    *int     `json:"engine_cc,omitempty" db:"engine_cc"`
	Horsepower  *int     `json:"horsepower,omitempty" db:"horsepower_hp"`
	Fuel        string   `json:"fuel,omitempty" db:"fuel_type"`
	Gears       *int     `json:"gears,omitempty" db:"gears"`
	Gearbox     string   `json:"gearbox,omitempty" db:"gearbox"` // raw gear text, e.g. "CVT" or "6 สปีด"
	Drivetrain  string   `json:"drivetrain,omitempty" db:"drive"`
	Body        string   `json:"body,omitempty" db:"body_type"`
	Description string   `json:"description,omitempty" db:"description"`
}

// CompositeText joins the descriptive fields scanned by transmission filters.
func (v *Vehicle) CompositeText() string {
	parts := []string{v.Name, v.Series, v.Description}
	if v.Gearbox != "" {
		parts = append(parts, v.Gearbox)
	} else if v.Gears != nil {
		parts = append(parts, fmt.Sprintf("%d", *v.Gears))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// CompositeName is the lowercase name plus make, used by make filters.
func (v *Vehicle) CompositeName() string {
	return strings.ToLower(v.Name + " " + v.Make)
}

// ScoredVehicle is one ranked candidate. Lower scores are better matches.
type ScoredVehicle struct {
	Vehicle  *Vehicle `json:"vehicle"`
	Score    float64  `json:"score"`
	Distance float64  `json:"distance"`
	Fallback bool     `json:"fallback,omitempty"`
}

// VehicleSummary is the rendered form of a recommendation.
type VehicleSummary struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Year        *int    `json:"year,omitempty"`
	Series      string  `json:"series,omitempty"`
	EngineText  string  `json:"engine_text"`
	HPText      string  `json:"hp_text"`
	FuelText    string  `json:"fuel_text"`
	GearsText   string  `json:"gears_text"`
	DriveText   string  `json:"drive_text"`
	Explanation string  `json:"ai_explanation"`
	Score       float64 `json:"score"`
}

// EmbeddingItem is one vector to store for a catalog vehicle.
type EmbeddingItem struct {
	VehicleID string    `json:"vehicle_id"`
	Embedding []float32 `json:"embedding"`
}
