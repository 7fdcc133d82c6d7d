package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotReply struct {
	Make     string   `json:"make"`
	PriceMax *float64 `json:"price_max"`
	Fuel     string   `json:"fuel"`
}

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slotReply
	}{
		{
			name:  "plain object",
			input: `{"make": "toyota", "fuel": "diesel"}`,
			want:  slotReply{Make: "toyota", Fuel: "diesel"},
		},
		{
			name:  "code fence",
			input: "```json\n{\"make\": \"honda\"}\n```",
			want:  slotReply{Make: "honda"},
		},
		{
			name:  "prose around object",
			input: `ได้เลยครับ {"make": "nissan", "fuel": ""} หวังว่าจะช่วยได้`,
			want:  slotReply{Make: "nissan"},
		},
		{
			name:  "trailing comma",
			input: `{"make": "mazda", "fuel": "petrol",}`,
			want:  slotReply{Make: "mazda", Fuel: "petrol"},
		},
		{
			name:  "unquoted keys",
			input: `{make: "isuzu", fuel: "diesel"}`,
			want:  slotReply{Make: "isuzu", Fuel: "diesel"},
		},
		{
			name:  "single quotes",
			input: `{'make': 'ford'}`,
			want:  slotReply{Make: "ford"},
		},
		{
			name:  "thinking block before answer",
			input: "<think>{\"make\": \"wrong\"}</think>\n{\"make\": \"mg\"}",
			want:  slotReply{Make: "mg"},
		},
		{
			name:  "braces inside strings",
			input: `note: {"make": "a{b}c"} end`,
			want:  slotReply{Make: "a{b}c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got slotReply
			require.NoError(t, ParseModelJSON(tt.input, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModelJSON_NumberField(t *testing.T) {
	var got slotReply
	require.NoError(t, ParseModelJSON(`{"price_max": 1000000}`, &got))
	require.NotNil(t, got.PriceMax)
	assert.Equal(t, 1000000.0, *got.PriceMax)
}

func TestParseModelJSON_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "no json here", "{unterminated"} {
		var got slotReply
		err := ParseModelJSON(input, &got)
		assert.ErrorIs(t, err, ErrNoJSON, "input %q", input)
	}
}
