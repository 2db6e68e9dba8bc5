package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"omitempty,oneof=High Medium Low"`
	Score int    `json:"score" validate:"min=0,max=100"`
}

func TestCandidates_Order(t *testing.T) {
	t.Parallel()

	raw := "intro\n```text\n{\"name\":\"generic\"}\n```\nmore\n```JSON\n{\"name\":\"labeled\"}\n```\n"
	got := Candidates(raw)
	require.Len(t, got, 3)
	assert.Equal(t, LabeledFence, got[0].Strategy)
	assert.JSONEq(t, `{"name":"labeled"}`, got[0].Text)
	assert.Equal(t, AnyFence, got[1].Strategy)
	assert.JSONEq(t, `{"name":"generic"}`, got[1].Text)
	assert.Equal(t, WholeText, got[2].Strategy)
}

func TestCandidates_DeduplicatesSameBlock(t *testing.T) {
	t.Parallel()

	got := Candidates("```json\n{\"name\":\"a\"}\n```")
	require.Len(t, got, 1)
	assert.Equal(t, LabeledFence, got[0].Strategy)
}

func TestCandidates_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Candidates("   \n"))
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want record
	}{
		{
			name: "labeled fence wins over generic fence",
			raw:  "```\n{\"name\":\"generic\"}\n```\n```json\n{\"name\":\"labeled\"}\n```",
			want: record{Name: "labeled"},
		},
		{
			name: "generic fence when label missing",
			raw:  "Here you go:\n```\n{\"name\":\"generic\",\"score\":40}\n```",
			want: record{Name: "generic", Score: 40},
		},
		{
			name: "invalid labeled fence falls through to generic",
			raw:  "```js\n{\"name\":\"second\"}\n```\n```json\n{\"name\":\n```",
			want: record{Name: "second"},
		},
		{
			name: "whole text",
			raw:  `  {"name":"bare","level":"Low"}  `,
			want: record{Name: "bare", Level: "Low"},
		},
		{
			name: "whole text with chatter",
			raw:  `Sure! {"name":"chatty"} Hope that helps.`,
			want: record{Name: "chatty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse[record](tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		attempts int
	}{
		{"empty", "", 1},
		{"not json", "I could not find anything.", 1},
		{"missing required field", `{"score":10}`, 1},
		{"out of range", `{"name":"x","score":140}`, 1},
		{"enum violation", "```json\n{\"name\":\"x\",\"level\":\"Extreme\"}\n```", 1},
		{"every strategy fails", "```\n{worse\n```\n```json\n{bad\n```\ntrailing {\"score\":1}", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse[record](tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExtraction))

			var xerr *ExtractionError
			require.ErrorAs(t, err, &xerr)
			assert.Equal(t, tt.raw, xerr.Raw)
			assert.Len(t, xerr.Attempts, tt.attempts)
		})
	}
}

func TestParse_RequiredKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse(`{"name":"x"}`, WithRequiredKeys[record]("name", "score"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score")

	_, err = Parse(`{"name":"x","score":null}`, WithRequiredKeys[record]("score"))
	require.Error(t, err)

	got, err := Parse(`{"name":"x","score":0}`, WithRequiredKeys[record]("name", "score"))
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
}

func TestParse_Normalizer(t *testing.T) {
	t.Parallel()

	norm := WithNormalizer(func(r *record) { r.Level = Title(r.Level) })
	got, err := Parse(`{"name":"x","level":"low"}`, norm)
	require.NoError(t, err)
	assert.Equal(t, "Low", got.Level)
}

func TestParse_NonStruct(t *testing.T) {
	t.Parallel()

	got, err := Parse[map[string]int]("```json\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1}, got)
}

func TestTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "High", Title(" HIGH "))
	assert.Equal(t, "Moderate", Title("moderate"))
	assert.Equal(t, "", Title(""))
}
