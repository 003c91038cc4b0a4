package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphask/internal/synth"
)

func TestTableRows(t *testing.T) {
	records := []map[string]any{
		{"name": "Ann", "age": 31, "tags": []any{"a", "b"}},
		{"name": "Bo", "age": nil},
	}

	headers, rows := TableRows([]string{"name", "age", "tags"}, records)
	assert.Equal(t, []string{"name", "age", "tags"}, headers)
	assert.Equal(t, [][]string{{"Ann", "31", `["a","b"]`}, {"Bo", "", ""}}, rows)

	headers, _ = TableRows(nil, records)
	assert.Equal(t, []string{"age", "name", "tags"}, headers)
}

func TestTextFormatter_PrintResult(t *testing.T) {
	tests := []struct {
		name     string
		result   *synth.FinalResult
		contains []string
		absent   []string
	}{
		{
			name: "rows only",
			result: &synth.FinalResult{
				Columns: []string{"name"},
				Rows:    []map[string]any{{"name": "Ann"}},
			},
			contains: []string{"NAME", "Ann"},
		},
		{
			name:     "empty rows",
			result:   &synth.FinalResult{Rows: []map[string]any{}},
			contains: []string{"(no rows)"},
		},
		{
			name: "explanation with candidate",
			result: &synth.FinalResult{
				Explanation: "Ann knows Bo.",
				Candidate:   &synth.Candidate{Body: "MATCH (a)-[:KNOWS]->(b) RETURN b", Language: "cypher"},
			},
			contains: []string{"Ann knows Bo.", "cypher:", "MATCH (a)-[:KNOWS]->(b) RETURN b"},
			absent:   []string{"(no rows)"},
		},
		{
			name: "truncated",
			result: &synth.FinalResult{
				Columns:   []string{"n"},
				Rows:      []map[string]any{{"n": 1}},
				Truncated: true,
			},
			contains: []string{"(truncated to 1 rows)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, NewTextFormatter(buf).PrintResult(tt.result))
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestJSONFormatter_PrintResult(t *testing.T) {
	buf := &bytes.Buffer{}
	result := &synth.FinalResult{RunID: "r-1", Question: "q", Rows: []map[string]any{{"n": 1}}}
	require.NoError(t, NewFormatter(FormatJSON, buf).PrintResult(result))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "r-1", decoded["run_id"])
	assert.Len(t, decoded["rows"], 1)
}

func TestJSONFormatter_PrintTable(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewJSONFormatter(buf).PrintTable([]string{"component", "state"}, [][]string{{"neo4j"}}))

	var decoded struct {
		Data []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, map[string]string{"component": "neo4j", "state": ""}, decoded.Data[0])
}
