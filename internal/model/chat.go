package model

// Response modes returned by the conversational API.
const (
	ModeAsk       = "ask"
	ModeRecommend = "recommend"
	ModeFollowup  = "followup"
	ModeIntro     = "intro"
)

// ChatRequest carries one user turn.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Reset     bool   `json:"reset,omitempty"`
}

// ChatResponse is the reply to one user turn.
type ChatResponse struct {
	SessionID string           `json:"session_id,omitempty"`
	Mode      string           `json:"mode"`
	Reply     string           `json:"reply"`
	Next      string           `json:"next,omitempty"`
	Results   []VehicleSummary `json:"results,omitempty"`
	Took      int64            `json:"took_ms"`
}

// ResetRequest clears a conversation.
type ResetRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// FeedbackRequest represents a user action on a recommended vehicle
type FeedbackRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	VehicleID string `json:"vehicle_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, contact, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TurnLog is one processed turn, recorded for analytics.
type TurnLog struct {
	SessionID      string
	UserText       string
	Mode           string
	Stage          Stage
	CandidateIDs   []string
	ResponseTimeMs int
}
