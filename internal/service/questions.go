package service

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"carmatch/internal/model"
)

//go:embed questions.yaml
var questionsYAML []byte

const genericQuestion = "ขอรายละเอียดเพิ่มเติมหน่อยครับ?"

// QuestionBank holds the canned question variants per slot.
type QuestionBank map[model.Slot][]string

// LoadQuestionBank parses the embedded variant table.
func LoadQuestionBank() (QuestionBank, error) {
	return ParseQuestionBank(questionsYAML)
}

// ParseQuestionBank parses a YAML mapping of slot name to variants.
func ParseQuestionBank(data []byte) (QuestionBank, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse question variants: %w", err)
	}
	bank := make(QuestionBank, len(raw))
	for slot, variants := range raw {
		if len(variants) == 0 {
			return nil, fmt.Errorf("slot %q has no question variants", slot)
		}
		bank[model.Slot(slot)] = variants
	}
	return bank, nil
}

// Fallback picks variant turn mod len for slot, moving one step further
// when that equals the last question asked.
func (b QuestionBank) Fallback(slot model.Slot, turn int, last string) string {
	variants := b[slot]
	if len(variants) == 0 {
		return genericQuestion
	}
	if turn < 0 {
		turn = -turn
	}
	q := variants[turn%len(variants)]
	if q == last && len(variants) > 1 {
		q = variants[(turn+1)%len(variants)]
	}
	return q
}
