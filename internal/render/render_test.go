package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/planner/scheduler"
	"github.com/kingrea/coursenobi/internal/requirement"
)

func sampleResult() engine.Result {
	return engine.Result{
		RunID:    "run-7",
		Required: []course.ID{"COMPSCI 161"},
		Capacity: 4,
		Schedule: scheduler.Schedule{
			{"I&C SCI 32", "I&C SCI 6B"},
			{"COMPSCI 161"},
		},
		Assignment: map[string]int{"or-10": 1, "or-2": 0},
		Cost:       3,
		Evaluated:  4,
		Warnings:   []apperrors.Warning{apperrors.Warnf(apperrors.KindUnknownCourse, "CSE 43", "course is not in the catalog")},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestResultTextListsQuartersInOrder(t *testing.T) {
	out := ResultText(sampleResult())

	assert.Contains(t, out, "2 quarters")
	assert.Contains(t, out, "I&C SCI 32 · I&C SCI 6B")
	first := strings.Index(out, "I&C SCI 32")
	last := strings.Index(out, "COMPSCI 161")
	assert.True(t, first >= 0 && last > first, "quarters out of order:\n%s", out)
	assert.Contains(t, out, "or-2=0 or-10=1")
	assert.Contains(t, out, "[unknown-course] course is not in the catalog (CSE 43)")
	assert.Contains(t, out, "run run-7")
}

func TestResultTextEmptySchedule(t *testing.T) {
	out := ResultText(engine.Result{Capacity: 2})
	assert.Contains(t, out, "Nothing left to take.")
}

func TestResultJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, sampleResult(), FormatJSON))
	var decoded struct {
		RunID    string     `json:"run_id"`
		Schedule [][]string `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-7", decoded.RunID)
	assert.Equal(t, [][]string{{"I&C SCI 32", "I&C SCI 6B"}, {"COMPSCI 161"}}, decoded.Schedule)

	buf.Reset()
	require.NoError(t, Result(&buf, sampleResult(), FormatYAML))
	var fromYAML struct {
		Schedule [][]string `yaml:"schedule"`
		Cost     int        `yaml:"cost"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, 3, fromYAML.Cost)
	assert.Len(t, fromYAML.Schedule, 2)
}

func TestRequirementShowsListForm(t *testing.T) {
	expr := requirement.And(
		requirement.Or(requirement.Leaf("I&C SCI 46"), requirement.Leaf("CSE 46")),
		requirement.Leaf("MATH 2B"),
	)
	p := NewParsed("(ICS 46 or CSE 46) and MATH 2B", expr)
	assert.Equal(t, []string{"I&C SCI 46", "CSE 46", "MATH 2B"}, p.Courses)

	var buf bytes.Buffer
	require.NoError(t, Requirement(&buf, p, FormatText))
	assert.Contains(t, buf.String(), `["and",[["or",["I&C SCI 46","CSE 46"]],"MATH 2B"]]`)

	buf.Reset()
	require.NoError(t, Requirement(&buf, p, FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, p.Canonical, decoded["canonical"])
}

func TestErrorBody(t *testing.T) {
	coded := apperrors.New(apperrors.KindCapacityExceeded, "PHYSICS 7C, PHYSICS 7LC", "unit too large")
	body := ErrorBody(fmt.Errorf("engine: %w", coded))
	assert.Equal(t, apperrors.KindCapacityExceeded, body.Kind)
	assert.Equal(t, "PHYSICS 7C, PHYSICS 7LC", body.Subject)

	assert.Equal(t, apperrors.Kind("canceled"), ErrorBody(context.Canceled).Kind)
	assert.Equal(t, apperrors.KindInvalidRequest, ErrorBody(fmt.Errorf("bad input")).Kind)

	var buf bytes.Buffer
	require.NoError(t, Error(&buf, coded, FormatJSON))
	var decoded struct {
		Error apperrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *coded, decoded.Error)

	buf.Reset()
	require.NoError(t, Error(&buf, coded, FormatText))
	assert.Contains(t, buf.String(), "capacity-exceeded unit too large")
}
