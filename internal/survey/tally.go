package survey

type OptionTally struct {
	OptionID string `json:"optionId"`
	Text     string `json:"text"`
	Count    int    `json:"count"`
}

// QuestionTally counts the responses that answered a question. Options is
// set only for choice questions; free-text answers are counted, not
// aggregated.
type QuestionTally struct {
	QuestionID string        `json:"questionId"`
	Text       string        `json:"text"`
	Type       QuestionType  `json:"type"`
	Answered   int           `json:"answered"`
	Options    []OptionTally `json:"options,omitempty"`
}

// Tally aggregates decoded responses per question. Responses were decoded
// by matching stored labels against the current option text, so renaming
// an option stops older responses from counting towards it.
func Tally(questions []Question, responses []Decoded) []QuestionTally {
	out := make([]QuestionTally, len(questions))
	position := make(map[string]int, len(questions))
	for i, q := range questions {
		position[q.ID] = i
		out[i] = QuestionTally{QuestionID: q.ID, Text: q.Text, Type: q.Type}
		if q.Type == QuestionOptions {
			out[i].Options = make([]OptionTally, len(q.Options))
			for j, o := range q.Options {
				out[i].Options[j] = OptionTally{OptionID: o.ID, Text: o.Text}
			}
		}
	}

	for _, r := range responses {
		for _, a := range r.Answers {
			i, ok := position[a.QuestionID]
			if !ok || a.Empty() {
				continue
			}
			t := &out[i]
			t.Answered++
			if t.Type != QuestionOptions {
				continue
			}
			for _, id := range a.OptionIDs {
				for j := range t.Options {
					if t.Options[j].OptionID == id {
						t.Options[j].Count++
					}
				}
			}
		}
	}
	return out
}
