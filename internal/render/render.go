// Package render formats scheduling results, requirement trees and errors
// for the terminal, as JSON, or as YAML.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/requirement"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml (case-insensitive); empty means text.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("render: unknown format %q (want text, json or yaml)", value)
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	courseJoiner = " · "
)

// Result writes a finished run.
func Result(w io.Writer, res engine.Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	default:
		_, err := io.WriteString(w, ResultText(res))
		return err
	}
}

// ResultText renders the quarter table followed by choices and warnings.
func ResultText(res engine.Result) string {
	var b strings.Builder
	header := fmt.Sprintf("%d quarters · max %d per quarter", len(res.Schedule), res.Capacity)
	b.WriteString(titleStyle.Render("SCHEDULE"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(header))
	b.WriteString("\n")

	if len(res.Schedule) == 0 {
		b.WriteString(mutedStyle.Render("Nothing left to take."))
		b.WriteString("\n")
	} else {
		rows := make([][]string, len(res.Schedule))
		for i, term := range res.Schedule {
			names := make([]string, len(term))
			for j, id := range term {
				names[j] = string(id)
			}
			rows[i] = []string{fmt.Sprintf("%d", i+1), strings.Join(names, courseJoiner)}
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(borderStyle).
			Headers("QUARTER", "COURSES").
			Rows(rows...)
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(res.Assignment) > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("choices: %s · cost %d · %d combinations evaluated",
			assignmentText(res.Assignment), res.Cost, res.Evaluated)))
		b.WriteString("\n")
	}
	for _, w := range res.Warnings {
		b.WriteString(warnStyle.Render("warning " + w.String()))
		b.WriteString("\n")
	}
	if res.RunID != "" {
		b.WriteString(mutedStyle.Render("run " + res.RunID))
		b.WriteString("\n")
	}
	return b.String()
}

func assignmentText(assignment map[string]int) string {
	keys := make([]string, 0, len(assignment))
	for k := range assignment {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, assignment[k])
	}
	return strings.Join(parts, " ")
}

// Parsed is the output of `coursenobi parse`.
type Parsed struct {
	Input     string           `json:"input" yaml:"input"`
	Canonical string           `json:"canonical" yaml:"canonical"`
	Tree      requirement.Expr `json:"tree" yaml:"tree"`
	Courses   []string         `json:"courses" yaml:"courses"`
}

// NewParsed collects the views of a parsed requirement.
func NewParsed(input string, expr requirement.Expr) Parsed {
	p := Parsed{Input: input, Canonical: expr.String(), Tree: expr}
	for _, id := range expr.Courses() {
		p.Courses = append(p.Courses, string(id))
	}
	return p
}

// Requirement writes a parsed requirement.
func Requirement(w io.Writer, p Parsed, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, p)
	case FormatYAML:
		return writeYAML(w, p)
	}
	list, err := p.Tree.MarshalJSON()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n%s %s\n%s %s\n",
		titleStyle.Render(p.Canonical),
		mutedStyle.Render("list form:"), list,
		mutedStyle.Render("courses:"), strings.Join(p.Courses, ", "))
	return err
}

// ErrorBody converts err into the {kind, message, subject} shape used by the
// CLI and the HTTP API.
func ErrorBody(err error) apperrors.Error {
	if coded, ok := apperrors.As(err); ok {
		return *coded
	}
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Error{Kind: "canceled", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Error{Kind: "deadline-exceeded", Message: err.Error()}
	}
	return apperrors.Error{Kind: apperrors.KindInvalidRequest, Message: err.Error()}
}

// Error writes a structured failure.
func Error(w io.Writer, err error, format Format) error {
	body := ErrorBody(err)
	switch format {
	case FormatJSON:
		return writeJSON(w, struct {
			Error apperrors.Error `json:"error"`
		}{body})
	case FormatYAML:
		return writeYAML(w, map[string]apperrors.Error{"error": body})
	}
	line := fmt.Sprintf("%s %s", errorStyle.Render(string(body.Kind)), body.Message)
	if body.Subject != "" {
		line += mutedStyle.Render(" (" + body.Subject + ")")
	}
	_, werr := fmt.Fprintln(w, line)
	return werr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("render: encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("render: encode yaml: %w", err)
	}
	return enc.Close()
}
