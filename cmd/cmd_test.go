package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fundscan/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		Name:       "Acme",
		Domain:     "acme.io",
		Indicators: model.Indicators{Growth: 80, Team: 70, Market: 65, Product: 60},
		Outlook:    model.Outlook{Level: model.LevelStrong, Summary: "Strong", KeyPoints: []string{"growth"}},
		Sections:   []model.SectionStatus{{Task: "traction", Outcome: model.OutcomeSuccess}},
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "json"))

	var got model.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, 80, got.Indicators.Growth)
	assert.Contains(t, buf.String(), "\n  \"name\"")
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "yaml"))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, "acme.io", got["domain"])
	outlook, ok := got["outlook"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, model.LevelStrong, outlook["overall"])
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, sampleReport(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Zero(t, buf.Len())
}

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "0123456789abcdef",
			Request:   model.AnalyzeRequest{CompanyURL: "https://acme.io"},
			Status:    model.RunStatusComplete,
			Report:    sampleReport(),
			CreatedAt: created,
			UpdatedAt: created.Add(42 * time.Second),
		},
		{
			ID:        "fedcba98",
			Request:   model.AnalyzeRequest{CompanyURL: "https://a-very-long-company-domain-name.example.com"},
			Status:    model.RunStatusFailed,
			CreatedAt: created,
			UpdatedAt: created.Add(5 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "OUTLOOK")
	assert.Contains(t, lines[2], "01234567")
	assert.NotContains(t, lines[2], "89abcdef")
	assert.Contains(t, lines[2], "Acme")
	assert.Contains(t, lines[2], "Strong")
	assert.Contains(t, lines[2], "42s")
	assert.Contains(t, lines[3], "...")
	assert.Contains(t, lines[3], "failed")
	assert.Contains(t, lines[3], "5m0s")
}

func TestFormatSearchResults(t *testing.T) {
	var buf bytes.Buffer
	formatSearchResults(&buf, []model.CompanySearchResult{
		{Title: "Acme - Crunchbase Company Profile & Funding", URL: "https://www.crunchbase.com/organization/acme"},
	})
	out := buf.String()
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "https://www.crunchbase.com/organization/acme")
	assert.Contains(t, out, "...")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Now()
	degraded := sampleReport()
	degraded.Outlook.Level = model.LevelModerate
	degraded.Sections = append(degraded.Sections, model.SectionStatus{Task: "team", Outcome: model.OutcomeDegraded})

	runs := []model.Run{
		{Status: model.RunStatusComplete, Report: sampleReport(), CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour + 40*time.Second)},
		{Status: model.RunStatusComplete, Report: degraded, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-2*time.Hour + 20*time.Second)},
		{Status: model.RunStatusFailed, Error: "pipeline: timeout: exceeded 5m0s", CreatedAt: now.Add(-time.Hour)},
		{Status: model.RunStatusFailed, Error: "collect: scrape profile", CreatedAt: now.Add(-time.Hour)},
		{Status: model.RunStatusAnalyzing, CreatedAt: now.Add(-time.Minute)},
		{Status: model.RunStatusComplete, Report: sampleReport(), CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}

	s := computeRunStats(runs, now.Add(-24*time.Hour))
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Degraded)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.TimedOut)
	assert.Equal(t, 1, s.InFlight)
	assert.Equal(t, map[string]int{model.LevelStrong: 1, model.LevelModerate: 1}, s.Outlooks)
	assert.InDelta(t, 30.0, s.AvgDurSecs, 0.01)

	assert.Equal(t, 6, computeRunStats(runs, time.Time{}).Total)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "Timed out:")
	assert.Contains(t, out, "Avg duration:  30.0s")
}

func TestFormatRunsList_MarksDegraded(t *testing.T) {
	r := sampleReport()
	r.Sections = append(r.Sections, model.SectionStatus{Task: "risks", Outcome: model.OutcomeStaticDefault})

	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{ID: "abc", Status: model.RunStatusComplete, Report: r}})
	assert.Contains(t, buf.String(), "Strong*")
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "short", ellipsize("short", 10))
	assert.Equal(t, "abcdefg...", ellipsize("abcdefghijklmnop", 10))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "01234567", truncateID("0123456789"))
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("json"))
	assert.NoError(t, checkFormat("yaml"))
	assert.Error(t, checkFormat("csv"))
}
