// Package survey models poll questions and answers and converts answers
// to and from the plain-text transcript stored in a single response cell.
package survey

import (
	"fmt"
	"strings"
)

type QuestionType string

const (
	QuestionText    QuestionType = "text"
	QuestionOptions QuestionType = "options"
)

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Multiple bool         `json:"multiple,omitempty"`
	Options  []Option     `json:"options,omitempty"`
}

// Answer is one voter's reply to one question. Choice answers carry
// option ids; text answers carry Text.
type Answer struct {
	QuestionID string       `json:"questionId"`
	Type       QuestionType `json:"type,omitempty"`
	OptionIDs  []string     `json:"optionIds,omitempty"`
	Text       string       `json:"text,omitempty"`
}

// Empty reports whether the answer carries nothing.
func (a Answer) Empty() bool {
	return len(a.OptionIDs) == 0 && strings.TrimSpace(a.Text) == ""
}

// NormalizeQuestions trims text, assigns q<n>/o<n> ids where missing and
// rejects questions without text or choice questions without options.
func NormalizeQuestions(questions []Question) ([]Question, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("at least one question is required")
	}
	out := make([]Question, 0, len(questions))
	seenQ := map[string]bool{}
	for i, q := range questions {
		q.Text = flatten(q.Text)
		if q.Text == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if seenQ[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seenQ[q.ID] = true

		switch q.Type {
		case "", QuestionText:
			q.Type = QuestionText
			q.Multiple = false
			q.Options = nil
		case QuestionOptions:
			opts, err := normalizeOptions(q)
			if err != nil {
				return nil, err
			}
			q.Options = opts
		default:
			return nil, fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
		}
		out = append(out, q)
	}
	return out, nil
}

func normalizeOptions(q Question) ([]Option, error) {
	opts := make([]Option, 0, len(q.Options))
	seen := map[string]bool{}
	for j, o := range q.Options {
		o.Text = flatten(o.Text)
		if o.Text == "" {
			continue
		}
		o.ID = strings.TrimSpace(o.ID)
		if o.ID == "" {
			o.ID = fmt.Sprintf("o%d", j+1)
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("question %s: duplicate option id %q", q.ID, o.ID)
		}
		seen[o.ID] = true
		opts = append(opts, o)
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("question %s: choice questions need options", q.ID)
	}
	return opts, nil
}

// flatten turns line breaks into spaces and trims the result so a value
// fits on one transcript line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
