package service

import (
	"context"
)

// Embedder turns text into a vector comparable with the catalog index.
type Embedder interface {
	Embed(ctx context.Context, text string) Outcome[[]float32]
}

// SlotExtractor reads free-form leftovers the rule tables did not capture.
type SlotExtractor interface {
	ExtractSlots(ctx context.Context, text string) Outcome[*AISlotResponse]
}

// Generator writes the natural-language parts of a reply.
type Generator interface {
	// Question phrases a short question asking for slot.
	Question(ctx context.Context, req QuestionRequest) Outcome[string]
	// Explain writes why one recommended vehicle fits the request.
	Explain(ctx context.Context, vehicle VehicleContext, userQuery string) Outcome[string]
	// Detail answers a question about one vehicle.
	Detail(ctx context.Context, vehicle VehicleContext, userText string) Outcome[string]
	// Compare contrasts all vehicles of the last recommendation.
	Compare(ctx context.Context, vehicles []VehicleContext, userText string) Outcome[string]
	// Followup answers any other question grounded in the last recommendation.
	Followup(ctx context.Context, vehicles []VehicleContext, userText string) Outcome[string]
}

// QuestionRequest is the context handed to Question.
type QuestionRequest struct {
	Slot         string
	BaseQuestion string
	LastQuestion string
	Known        map[string]string
}

// VehicleContext is the flattened vehicle text the generator may cite.
type VehicleContext struct {
	Name        string
	Series      string
	Year        string
	Price       string
	Engine      string
	Horsepower  string
	Fuel        string
	Gears       string
	Drivetrain  string
	Description string
}

// AISlotResponse represents the slots parsed from free text by the model
type AISlotResponse struct {
	PriceMin     *float64 `json:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty"`
	Make         string   `json:"make,omitempty"`
	Series       string   `json:"series,omitempty"`
	UsageText    string   `json:"usage_text,omitempty"`
	Transmission string   `json:"transmission,omitempty"`
	Fuel         string   `json:"fuel,omitempty"`
	Drivetrain   string   `json:"drivetrain,omitempty"`
	Body         string   `json:"body,omitempty"`
}

// AIClient is everything the dialogue needs from a model provider.
type AIClient interface {
	Embedder
	SlotExtractor
	Generator
	IsEnabled() bool
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
