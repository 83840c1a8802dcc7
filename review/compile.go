package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const referencesLabel = "Checklist References"

// CompileComment renders a feedback item into the human-readable comment body
// baked into the reviewed document. Pure formatting, no I/O:
//
//	[CRITICAL - High Risk]
//	<description>
//
//	Suggestion: <suggestion>        (only when non-empty)
//
//	Checklist References: #1 Initial Assessment, #11 Root Cause Analysis
func CompileComment(item FeedbackItem) string {
	risk := item.RiskLevel
	if risk == "" {
		risk = RiskLow
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s - %s Risk]\n", strings.ToUpper(item.Type), risk)
	b.WriteString(item.Description)
	b.WriteString("\n")

	if item.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s\n", item.Suggestion)
	}

	if len(item.HawkeyeRefs) > 0 {
		refs := make([]string, 0, len(item.HawkeyeRefs))
		for _, n := range item.HawkeyeRefs {
			refs = append(refs, fmt.Sprintf("#%d %s", n, ChecklistTopicName(n)))
		}
		fmt.Fprintf(&b, "\n%s: %s", referencesLabel, strings.Join(refs, ", "))
	}

	return b.String()
}

var (
	compiledHeaderRe = regexp.MustCompile(`^\[([A-Z]+) - (\w+) Risk\]$`)
	compiledRefRe    = regexp.MustCompile(`#(\d+)`)
)

// ParseCompiledComment recovers the type label, risk level, and checklist
// reference numbers from a compiled comment body. It inverts CompileComment
// for the structured fields; free text is not recovered.
func ParseCompiledComment(body string) (typeLabel, risk string, refs []int, ok bool) {
	lines := strings.Split(body, "\n")
	if len(lines) == 0 {
		return "", "", nil, false
	}
	m := compiledHeaderRe.FindStringSubmatch(lines[0])
	if m == nil {
		return "", "", nil, false
	}
	typeLabel, risk = m[1], m[2]

	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, referencesLabel+": ") {
			continue
		}
		for _, rm := range compiledRefRe.FindAllStringSubmatch(line, -1) {
			n, err := strconv.Atoi(rm[1])
			if err != nil {
				continue
			}
			refs = append(refs, n)
		}
	}
	return typeLabel, risk, refs, true
}
