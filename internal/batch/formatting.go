package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FormatResults renders the batch summary as text, json or csv.
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(r)
	case FormatCSV:
		return formatCSV(r)
	case FormatText, "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported summary format %q", format)
	}
}

func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"input", "output", "method", "reason", "confidence", "width", "height", "error"}}
	for _, f := range r.Files {
		rows = append(rows, []string{
			f.Input,
			f.Output,
			f.Method,
			f.Reason,
			strconv.FormatFloat(f.Confidence, 'f', 2, 64),
			strconv.Itoa(f.Width),
			strconv.Itoa(f.Height),
			f.Error,
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(r *Result) string {
	var b strings.Builder
	for _, f := range r.Files {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}

	s := r.Stats
	fmt.Fprintf(&b, "\nProcessed %d file(s): %d succeeded, %d failed\n", s.Total, s.Succeeded, s.Failed)
	methods := make([]string, 0, len(s.ByMethod))
	for m := range s.ByMethod {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	for _, m := range methods {
		fmt.Fprintf(&b, "  %s: %d\n", m, s.ByMethod[m])
	}
	if s.Succeeded > 0 {
		fmt.Fprintf(&b, "Mean confidence: %.2f\n", s.Confidence)
	}
	fmt.Fprintf(&b, "Duration: %v\n", r.Duration.Round(time.Millisecond))
	return b.String()
}

// String renders one report line for the file.
func (f FileResult) String() string {
	if f.Failed() {
		return fmt.Sprintf("%s: FAILED: %s", f.Input, f.Error)
	}
	method := f.Method
	if f.Reason != "" {
		method += " (" + f.Reason + ")"
	}
	return fmt.Sprintf("%s -> %s  %s  %dx%d  confidence=%.2f",
		f.Input, f.Output, method, f.Width, f.Height, f.Confidence)
}
