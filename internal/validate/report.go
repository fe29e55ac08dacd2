package validate

import (
	"fmt"
	"sort"
	"strings"
)

// Category groups findings by the check that produced them.
type Category string

const (
	CategorySchema     Category = "schema"
	CategoryType       Category = "type"
	CategoryRange      Category = "range"
	CategoryFormat     Category = "format"
	CategoryCrossTotal Category = "cross-total"
	CategoryDuplicate  Category = "duplicate"
)

// passedMessages describe a category that produced no findings.
var passedMessages = map[Category]string{
	CategorySchema:     "all expected columns present with declared types",
	CategoryType:       "every value matches its column type",
	CategoryRange:      "dates and counts within range",
	CategoryFormat:     "every time is HH:MM",
	CategoryCrossTotal: "passenger and crew counts agree with totals",
	CategoryDuplicate:  "no duplicate (date, operator, route) found",
}

// Categories lists every category in check order.
var Categories = []Category{
	CategorySchema, CategoryType, CategoryRange, CategoryFormat, CategoryCrossTotal, CategoryDuplicate,
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one observation about the normalized table. Findings are
// descriptive; nothing acts on them automatically.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Column   string   `json:"column,omitempty"`
	RowIDs   []int64  `json:"row_ids,omitempty"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	var sb strings.Builder
	if f.Severity == SeverityError {
		sb.WriteString("[FAIL] ")
	} else {
		sb.WriteString("[WARN] ")
	}
	switch len(f.RowIDs) {
	case 0:
	case 1:
		fmt.Fprintf(&sb, "row %d: ", f.RowIDs[0])
	default:
		fmt.Fprintf(&sb, "rows %s: ", joinIDs(f.RowIDs))
	}
	sb.WriteString(f.Message)
	return sb.String()
}

// Report collects the findings of one validation run.
type Report struct {
	Table     string
	Rows      int
	MaxListed int
	Findings  []Finding
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Passed is true when there are no error-severity findings.
func (r *Report) Passed() bool {
	return r.Count(SeverityError) == 0
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// ByCategory returns the findings of one category in the order found.
func (r *Report) ByCategory(c Category) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// Counts returns finding counts keyed "category/severity".
func (r *Report) Counts() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Findings {
		out[string(f.Category)+"/"+string(f.Severity)]++
	}
	return out
}

// Summarize renders the report as text. Each category lists at most
// MaxListed findings; zero lists them all.
func (r *Report) Summarize() string {
	const width = 70
	var sb strings.Builder
	rule := strings.Repeat("=", width)

	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "VALIDATION REPORT: %s (%d rows)\n", r.Table, r.Rows)
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "  %-12s %8s %10s\n", "Category", "Errors", "Warnings")
	counts := r.Counts()
	for _, c := range Categories {
		fmt.Fprintf(&sb, "  %-12s %8d %10d\n", c,
			counts[string(c)+"/"+string(SeverityError)], counts[string(c)+"/"+string(SeverityWarning)])
	}

	var passed []Category
	for _, c := range Categories {
		if len(r.ByCategory(c)) == 0 {
			passed = append(passed, c)
		}
	}
	if len(passed) > 0 {
		sb.WriteString("\n  PASSED\n")
		for _, c := range passed {
			fmt.Fprintf(&sb, "    [OK] %s: %s\n", c, passedMessages[c])
		}
	}

	for _, c := range Categories {
		found := r.ByCategory(c)
		if len(found) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n  %s (%d)\n", strings.ToUpper(string(c)), len(found))
		shown := found
		if r.MaxListed > 0 && len(shown) > r.MaxListed {
			shown = shown[:r.MaxListed]
		}
		for _, f := range shown {
			sb.WriteString("    " + f.String() + "\n")
		}
		if hidden := len(found) - len(shown); hidden > 0 {
			fmt.Fprintf(&sb, "    ... and %d more\n", hidden)
		}
	}

	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	sb.WriteString("\n" + strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&sb, "  Result: %s  |  Findings: %d  |  Errors: %d  |  Warnings: %d\n",
		status, len(r.Findings), r.Count(SeverityError), r.Count(SeverityWarning))
	sb.WriteString(rule + "\n")
	return sb.String()
}

func joinIDs(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
