package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: "q1", Text: "Aprova o relatório?", Type: QuestionOptions, Options: []Option{
			{ID: "o1", Text: "Sim"},
			{ID: "o2", Text: "Não"},
			{ID: "o3", Text: "Abstenção"},
		}},
		{ID: "q2", Text: "Temas de interesse", Type: QuestionOptions, Multiple: true, Options: []Option{
			{ID: "o1", Text: "Investimentos"},
			{ID: "o2", Text: "Compensação previdenciária"},
			{ID: "o3", Text: "Governança"},
		}},
		{ID: "q3", Text: "Comentários", Type: QuestionText},
	}
}

func TestEncodeLayout(t *testing.T) {
	out := Encode(sampleQuestions(), []Answer{
		{QuestionID: "q1", Type: QuestionOptions, OptionIDs: []string{"o1"}},
		{QuestionID: "q2", Type: QuestionOptions, OptionIDs: []string{"o3", "o1", "zz"}},
		{QuestionID: "q3", Type: QuestionText, Text: "Muito bom.\nParabéns"},
	}, 41600)

	want := "1. Aprova o relatório?\nResposta: Sim\n\n" +
		"2. Temas de interesse\nResposta: Governança, Investimentos\n\n" +
		"3. Comentários\nResposta: Muito bom. Parabéns\n\n" +
		"Tempo de resposta (s): 42"
	assert.Equal(t, want, out)
}

func TestEncodeMarksUnansweredWithDash(t *testing.T) {
	out := Encode(sampleQuestions(), nil, -5)
	assert.Contains(t, out, "1. Aprova o relatório?\nResposta: -\n")
	assert.Contains(t, out, "3. Comentários\nResposta: -\n")
	assert.Contains(t, out, "Tempo de resposta (s): 0")
}

func TestRoundTripSingleChoice(t *testing.T) {
	questions := sampleQuestions()
	encoded := Encode(questions, []Answer{{QuestionID: "q1", Type: QuestionOptions, OptionIDs: []string{"o1"}}}, 0)

	decoded := Decode(questions, encoded)
	require.Len(t, decoded.Answers, 1)
	assert.Equal(t, "q1", decoded.Answers[0].QuestionID)
	assert.Equal(t, []string{"o1"}, decoded.Answers[0].OptionIDs)
}

func TestRoundTripPreservesSelectedSets(t *testing.T) {
	questions := sampleQuestions()
	answers := []Answer{
		{QuestionID: "q1", Type: QuestionOptions, OptionIDs: []string{"o2"}},
		{QuestionID: "q2", Type: QuestionOptions, OptionIDs: []string{"o2", "o3"}},
		{QuestionID: "q3", Type: QuestionText, Text: "Sem comentários"},
	}
	decoded := Decode(questions, Encode(questions, answers, 12000))

	assert.Equal(t, int64(12000), decoded.DurationMs)
	require.Len(t, decoded.Answers, 3)
	assert.ElementsMatch(t, []string{"o2", "o3"}, decoded.Answers[1].OptionIDs)
	assert.Equal(t, "Sem comentários", decoded.Answers[2].Text)

	assert.Equal(t, Encode(questions, answers, 12000), Encode(questions, decoded.Answers, decoded.DurationMs))
}

func TestDecodeAcceptsLooseLabels(t *testing.T) {
	transcript := "1. Aprova o relatório?\r\nResposta: nao\r\n\r\n" +
		"2. Temas\r\nResposta: governanca; INVESTIMENTOS ; Outro\r\n\r\n" +
		"3. Comentários\r\nResposta: -\r\n\r\n" +
		"9. Pergunta que não existe\r\nResposta: Sim\r\n\r\n" +
		"Tempo de resposta (s): 7"

	decoded := Decode(sampleQuestions(), transcript)
	require.Len(t, decoded.Answers, 2)
	assert.Equal(t, []string{"o2"}, decoded.Answers[0].OptionIDs)
	assert.Equal(t, []string{"o3", "o1"}, decoded.Answers[1].OptionIDs)
	assert.Equal(t, int64(7000), decoded.DurationMs)
}

func TestDecodeDropsUnknownLabels(t *testing.T) {
	decoded := Decode(sampleQuestions(), "1. Aprova?\nResposta: Talvez\n\nTempo de resposta (s): 3")
	assert.Empty(t, decoded.Answers)
	assert.Equal(t, int64(3000), decoded.DurationMs)
}

func TestDecodeCellFallsBackToPayload(t *testing.T) {
	questions := sampleQuestions()

	decoded := DecodeCell(questions, `{"answers":[{"questionId":"q1","value":"Sim"},{"questionId":"q2","optionIds":["o2"],"labels":["Governança"]},{"questionId":"q3","text":"ok"}],"durationMs":5000}`)
	require.Len(t, decoded.Answers, 3)
	assert.Equal(t, []string{"o1"}, decoded.Answers[0].OptionIDs)
	assert.ElementsMatch(t, []string{"o2", "o3"}, decoded.Answers[1].OptionIDs)
	assert.Equal(t, "ok", decoded.Answers[2].Text)
	assert.Equal(t, int64(5000), decoded.DurationMs)

	fromArray := DecodeCell(questions, `[{"questionId":"q1","labels":["abstencao"]}]`)
	require.Len(t, fromArray.Answers, 1)
	assert.Equal(t, []string{"o3"}, fromArray.Answers[0].OptionIDs)

	assert.Empty(t, DecodeCell(questions, "texto livre qualquer").Answers)
	assert.Empty(t, DecodeCell(questions, "{broken").Answers)
}

func TestNormalizeQuestions(t *testing.T) {
	qs, err := NormalizeQuestions([]Question{
		{Text: " Aprova?\n", Type: QuestionOptions, Options: []Option{{Text: "Sim"}, {Text: " "}, {Text: "Não"}}},
		{Text: "Comentários", Options: []Option{{Text: "ignored"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, "Aprova?", qs[0].Text)
	assert.Equal(t, []Option{{ID: "o1", Text: "Sim"}, {ID: "o3", Text: "Não"}}, qs[0].Options)
	assert.Equal(t, QuestionText, qs[1].Type)
	assert.Nil(t, qs[1].Options)

	_, err = NormalizeQuestions(nil)
	assert.Error(t, err)
	_, err = NormalizeQuestions([]Question{{Text: "x", Type: QuestionOptions}})
	assert.Error(t, err)
	_, err = NormalizeQuestions([]Question{{Text: "x", Type: "scale"}})
	assert.Error(t, err)
	_, err = NormalizeQuestions([]Question{{ID: "a", Text: "x"}, {ID: "a", Text: "y"}})
	assert.Error(t, err)
}

func TestTally(t *testing.T) {
	questions := sampleQuestions()
	responses := []Decoded{
		{Answers: []Answer{{QuestionID: "q1", OptionIDs: []string{"o1"}}, {QuestionID: "q2", OptionIDs: []string{"o1", "o3"}}}},
		{Answers: []Answer{{QuestionID: "q1", OptionIDs: []string{"o1"}}, {QuestionID: "q3", Text: "bom"}}},
		{Answers: []Answer{{QuestionID: "q1", OptionIDs: []string{"o2"}}}},
		{},
	}

	tallies := Tally(questions, responses)
	require.Len(t, tallies, 3)
	assert.Equal(t, 3, tallies[0].Answered)
	assert.Equal(t, []int{2, 1, 0}, counts(tallies[0]))
	assert.Equal(t, 1, tallies[1].Answered)
	assert.Equal(t, []int{1, 0, 1}, counts(tallies[1]))
	assert.Equal(t, 1, tallies[2].Answered)
	assert.Nil(t, tallies[2].Options)
}

func TestTallyWithNoResponsesHasZeroCounts(t *testing.T) {
	tallies := Tally(sampleQuestions(), nil)
	for _, qt := range tallies {
		assert.Zero(t, qt.Answered)
		for _, o := range qt.Options {
			assert.Zero(t, o.Count)
		}
	}
	assert.Equal(t, []int{0, 0, 0}, counts(tallies[0]))
}

func TestTallyIgnoresResponsesAfterOptionRename(t *testing.T) {
	questions := sampleQuestions()
	stored := Encode(questions, []Answer{{QuestionID: "q1", OptionIDs: []string{"o1"}}}, 0)

	renamed := sampleQuestions()
	renamed[0].Options[0].Text = "Aprovo"
	tallies := Tally(renamed, []Decoded{Decode(renamed, stored)})
	assert.Equal(t, []int{0, 0, 0}, counts(tallies[0]))
}

func TestLabelsContainingSeparatorsRoundTrip(t *testing.T) {
	questions, err := NormalizeQuestions([]Question{
		{Text: "Aprova as contas?", Type: QuestionOptions, Options: []Option{
			{Text: "Sim, com ressalvas"}, {Text: "Sim"}, {Text: "Não; rejeito"},
		}},
		{Text: "Formatos", Type: QuestionOptions, Multiple: true, Options: []Option{
			{Text: "Palestra"}, {Text: "Oficina, prática"}, {Text: "Painel"},
		}},
	})
	require.NoError(t, err)

	stored := Encode(questions, []Answer{
		{QuestionID: "q1", OptionIDs: []string{"o1"}},
		{QuestionID: "q2", OptionIDs: []string{"o2", "o3"}},
	}, 0)
	assert.Contains(t, stored, "Resposta: Sim, com ressalvas\n")

	decoded := Decode(questions, stored)
	require.Len(t, decoded.Answers, 2)
	assert.Equal(t, []string{"o1"}, decoded.Answers[0].OptionIDs)
	assert.Equal(t, []string{"o2", "o3"}, decoded.Answers[1].OptionIDs)

	assert.Equal(t, []string{"o2", "o3"}, Decode(questions, "1. Aprova as contas?\nResposta: Sim; Não; rejeito").Answers[0].OptionIDs)

	tallies := Tally(questions, []Decoded{decoded})
	assert.Equal(t, []int{1, 0, 0}, counts(tallies[0]))
	assert.Equal(t, []int{0, 1, 1}, counts(tallies[1]))
}

func counts(qt QuestionTally) []int {
	out := make([]int, len(qt.Options))
	for i, o := range qt.Options {
		out[i] = o.Count
	}
	return out
}
