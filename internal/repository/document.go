package repository

import (
	"encoding/json"
	"fmt"

	"topic-catalog/internal/domain"
)

// Document holds the JSON-encoded nested blocks of a topic as stored by the drivers.
type Document struct {
	Why      string
	Examples string
	Best     string
}

// EncodeDocument serialises the nested blocks of draft.
func EncodeDocument(draft domain.TopicDraft) (Document, error) {
	examples := draft.Examples
	if examples == nil {
		examples = []domain.Example{}
	}

	why, err := json.Marshal(draft.Why)
	if err != nil {
		return Document{}, fmt.Errorf("encode why: %w", err)
	}
	ex, err := json.Marshal(examples)
	if err != nil {
		return Document{}, fmt.Errorf("encode examples: %w", err)
	}
	best, err := json.Marshal(draft.Best)
	if err != nil {
		return Document{}, fmt.Errorf("encode best: %w", err)
	}
	return Document{Why: string(why), Examples: string(ex), Best: string(best)}, nil
}

// Decode fills the nested blocks of draft from the stored document.
func (d Document) Decode(draft *domain.TopicDraft) error {
	if err := json.Unmarshal([]byte(d.Why), &draft.Why); err != nil {
		return fmt.Errorf("decode why: %w", err)
	}
	if err := json.Unmarshal([]byte(d.Examples), &draft.Examples); err != nil {
		return fmt.Errorf("decode examples: %w", err)
	}
	if err := json.Unmarshal([]byte(d.Best), &draft.Best); err != nil {
		return fmt.Errorf("decode best: %w", err)
	}
	return nil
}
