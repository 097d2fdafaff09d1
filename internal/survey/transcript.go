package survey

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
)

// Transcript grammar, one block per question in definition order:
//
//	<n>. <question text>
//	Resposta: <answer or ->
//
// blocks separated by a blank line and followed by
//
//	Tempo de resposta (s): <integer>
//
// Choice answers list option labels joined with ", ".
const (
	answerPrefix   = "Resposta:"
	durationPrefix = "Tempo de resposta (s):"
	noAnswer       = "-"
)

var (
	questionLine = regexp.MustCompile(`^(\d+)\.\s`)
	labelSplit   = regexp.MustCompile(`[,;]`)
)

// Decoded is the result of reading a stored response.
type Decoded struct {
	Answers    []Answer `json:"answers"`
	DurationMs int64    `json:"durationMs"`
}

// Encode renders answers against questions. Answers for unknown questions
// and option ids that the question does not offer are dropped.
func Encode(questions []Question, answers []Answer, durationMs int64) string {
	byQuestion := make(map[string]Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n%s %s\n\n", i+1, flatten(q.Text), answerPrefix, answerText(q, byQuestion[q.ID]))
	}
	fmt.Fprintf(&b, "%s %d", durationPrefix, seconds(durationMs))
	return b.String()
}

func answerText(q Question, a Answer) string {
	if q.Type != QuestionOptions {
		if text := flatten(a.Text); text != "" {
			return text
		}
		return noAnswer
	}

	labels := make([]string, 0, len(a.OptionIDs))
	for _, id := range a.OptionIDs {
		for _, o := range q.Options {
			if o.ID == id {
				labels = append(labels, flatten(o.Text))
				break
			}
		}
	}
	if len(labels) == 0 {
		return noAnswer
	}
	return strings.Join(labels, ", ")
}

func seconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return int64(math.Round(float64(ms) / 1000))
}

// Decode parses a transcript. Blocks numbered outside the question list,
// empty answers and labels that match no current option are skipped.
func Decode(questions []Question, transcript string) Decoded {
	raw := map[int]string{}
	var order []int
	var durationMs int64
	current := 0

	for _, line := range strings.Split(strings.ReplaceAll(transcript, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, durationPrefix):
			if secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, durationPrefix)), 10, 64); err == nil && secs > 0 {
				durationMs = secs * 1000
			}
			current = 0
		case current > 0 && strings.HasPrefix(line, answerPrefix):
			if _, dup := raw[current]; !dup {
				order = append(order, current)
			}
			raw[current] = strings.TrimSpace(strings.TrimPrefix(line, answerPrefix))
			current = 0
		default:
			if m := questionLine.FindStringSubmatch(line); m != nil {
				current, _ = strconv.Atoi(m[1])
			}
		}
	}

	out := Decoded{DurationMs: durationMs}
	for _, n := range order {
		if n < 1 || n > len(questions) {
			continue
		}
		value := raw[n]
		if value == "" || value == noAnswer {
			continue
		}
		q := questions[n-1]
		var a Answer
		if q.Type == QuestionOptions {
			a = Answer{QuestionID: q.ID, Type: QuestionOptions, OptionIDs: matchLabels(q, splitLabels(q, value))}
		} else {
			a = Answer{QuestionID: q.ID, Type: QuestionText, Text: value}
		}
		if !a.Empty() {
			out.Answers = append(out.Answers, a)
		}
	}
	return out
}

// splitLabels cuts an encoded answer at the label separators. A label may
// itself contain a separator, so at each segment the longest run of
// segments that names an option is kept together.
func splitLabels(q Question, value string) []string {
	parts := labelSplit.Split(value, -1)
	var labels []string
	for i := 0; i < len(parts); {
		j := len(parts)
		for ; j > i+1; j-- {
			if optionFor(q, strings.Join(parts[i:j], ",")) != "" {
				break
			}
		}
		labels = append(labels, strings.Join(parts[i:j], ","))
		i = j
	}
	return labels
}

// optionFor returns the id of the option whose text normalizes to the
// same key as label, or "".
func optionFor(q Question, label string) string {
	want := headers.NormalizeKey(label)
	if want == "" {
		return ""
	}
	for _, o := range q.Options {
		if headers.NormalizeKey(o.Text) == want {
			return o.ID
		}
	}
	return ""
}

// matchLabels maps labels to option ids by normalized text, in label order,
// without duplicates. Labels that match nothing are dropped.
func matchLabels(q Question, labels []string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, label := range labels {
		if id := optionFor(q, label); id != "" && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// payloadAnswer is the structured shape older responses were stored in.
type payloadAnswer struct {
	QuestionID string   `json:"questionId"`
	OptionIDs  []string `json:"optionIds"`
	Labels     []string `json:"labels"`
	Value      string   `json:"value"`
	Text       string   `json:"text"`
}

type payload struct {
	Answers    []payloadAnswer `json:"answers"`
	DurationMs int64           `json:"durationMs"`
}

// DecodeCell reads a stored response cell: the transcript grammar first,
// then the structured JSON payload when the transcript yields nothing.
func DecodeCell(questions []Question, cell string) Decoded {
	decoded := Decode(questions, cell)
	if len(decoded.Answers) > 0 {
		return decoded
	}
	if fromPayload, ok := decodePayload(questions, cell); ok {
		return fromPayload
	}
	return decoded
}

func decodePayload(questions []Question, cell string) (Decoded, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Decoded{}, false
	}

	var p payload
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return Decoded{}, false
		}
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &p.Answers); err != nil {
			return Decoded{}, false
		}
	default:
		return Decoded{}, false
	}

	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := Decoded{}
	if p.DurationMs > 0 {
		out.DurationMs = p.DurationMs
	}
	for _, pa := range p.Answers {
		q, ok := byID[pa.QuestionID]
		if !ok {
			continue
		}
		var a Answer
		if q.Type == QuestionOptions {
			labels := append([]string(nil), pa.Labels...)
			if pa.Value != "" {
				labels = append(labels, splitLabels(q, pa.Value)...)
			}
			for _, id := range pa.OptionIDs {
				for _, o := range q.Options {
					if o.ID == id {
						labels = append(labels, o.Text)
					}
				}
			}
			a = Answer{QuestionID: q.ID, Type: QuestionOptions, OptionIDs: matchLabels(q, labels)}
		} else {
			text := flatten(pa.Text)
			if text == "" {
				text = flatten(pa.Value)
			}
			a = Answer{QuestionID: q.ID, Type: QuestionText, Text: text}
		}
		if !a.Empty() {
			out.Answers = append(out.Answers, a)
		}
	}
	return out, len(out.Answers) > 0
}
