package inspector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

// Summary aggregates one batch.
type Summary struct {
	Total  int `json:"total" yaml:"total"`
	Passed int `json:"passed" yaml:"passed"`
	Failed int `json:"failed" yaml:"failed"`
}

// Report is the batch outcome, keyed by template id.
type Report struct {
	Results map[string]*Result
	Summary Summary
}

func NewReport() *Report {
	return &Report{Results: map[string]*Result{}}
}

func (r *Report) add(result *Result) {
	r.Results[result.Template] = result
}

func (r *Report) finalize() {
	r.Summary = Summary{Total: len(r.Results)}
	for _, result := range r.Results {
		if result.Passed {
			r.Summary.Passed++
		} else {
			r.Summary.Failed++
		}
	}
}

// Passed reports whether every template in the batch passed.
func (r *Report) Passed() bool {
	return r.Summary.Failed == 0
}

// resultArtifact is the export shape of one template's outcome.
type resultArtifact struct {
	Passed      bool        `json:"passed" yaml:"passed"`
	Violations  []Violation `json:"violations" yaml:"violations"`
	PassedRules []string    `json:"passed_rules,omitempty" yaml:"passed_rules,omitempty"`
}

// artifact builds the export document: one entry per template id plus a
// summary entry.
func (r *Report) artifact() map[string]any {
	doc := make(map[string]any, len(r.Results)+1)
	for id, result := range r.Results {
		violations := result.Violations
		if violations == nil {
			violations = []Violation{}
		}
		doc[id] = resultArtifact{
			Passed:      result.Passed,
			Violations:  violations,
			PassedRules: result.PassedRules,
		}
	}
	doc["summary"] = r.Summary

	return doc
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.artifact()); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO, fkerrors.ErrCodeInternal,
			"failed to encode report")
	}

	return nil
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	if err := yaml.NewEncoder(w).Encode(r.artifact()); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO, fkerrors.ErrCodeInternal,
			"failed to encode report")
	}

	return nil
}

// WriteText writes a human-readable report.
func (r *Report) WriteText(w io.Writer) error {
	ids := make([]string, 0, len(r.Results))
	for id := range r.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := r.Results[id]
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", status, id); err != nil {
			return err
		}
		for _, v := range result.Violations {
			if _, err := fmt.Fprintf(w, "      %s: %s\n", v.Rule, v.Message); err != nil {
				return err
			}
		}
		for _, rule := range result.PassedRules {
			if _, err := fmt.Fprintf(w, "      ok: %s\n", rule); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d checked, %d passed, %d failed\n",
		r.Summary.Total, r.Summary.Passed, r.Summary.Failed)

	return err
}

// StreamWriter emits one JSON line per completed template, for callers
// that opt into progressive output.
type StreamWriter struct {
	w io.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write emits one result as a single JSON line. Callers serialize access;
// the inspector holds its report lock while streaming.
func (s *StreamWriter) Write(result *Result) error {
	line := struct {
		Template   string      `json:"template"`
		Passed     bool        `json:"passed"`
		Violations []Violation `json:"violations,omitempty"`
	}{
		Template:   result.Template,
		Passed:     result.Passed,
		Violations: result.Violations,
	}

	return json.NewEncoder(s.w).Encode(line)
}
