// Package review implements the document-review core: section segmentation
// over formatting heuristics, the 20-point investigation checklist tables,
// feedback compiling, and per-session review state and orchestration.
package review

import "strings"

// checklistTopics is the fixed 20-point investigation checklist. Feedback
// items cite topics by their 1-based number.
var checklistTopics = []string{
	1:  "Initial Assessment",
	2:  "Investigation Process",
	3:  "Seller Classification",
	4:  "Enforcement Decision-Making",
	5:  "Additional Verification (High-Risk Cases)",
	6:  "Multiple Appeals Handling",
	7:  "Account Hijacking Prevention",
	8:  "Funds Management",
	9:  "Outreach Process",
	10: "Sentiment Analysis",
	11: "Root Cause Analysis",
	12: "Preventative Actions",
	13: "Documentation and Reporting",
	14: "Cross-Team Collaboration",
	15: "Quality Control",
	16: "Continuous Improvement",
	17: "Communication Standards",
	18: "Performance Metrics",
	19: "Legal and Compliance",
	20: "New Service Launch Considerations",
}

// ChecklistSize is the number of checklist topics.
const ChecklistSize = 20

// ChecklistTopicName resolves a checklist number to its topic name, empty for
// out-of-range numbers.
func ChecklistTopicName(n int) string {
	if n < 1 || n > ChecklistSize {
		return ""
	}
	return checklistTopics[n]
}

// ChecklistTopicNumber resolves an exact topic name to its number, 0 when
// unknown.
func ChecklistTopicNumber(name string) int {
	for n := 1; n <= ChecklistSize; n++ {
		if checklistTopics[n] == name {
			return n
		}
	}
	return 0
}

// referenceKeywords maps checklist numbers to the keywords that suggest them.
// Table order decides result order; at most one hit per topic.
var referenceKeywords = []struct {
	number   int
	keywords []string
}{
	{1, []string{"customer experience", "cx impact", "customer trust", "buyer impact"}},
	{2, []string{"investigation", "sop", "enforcement decision", "abuse pattern"}},
	{3, []string{"seller classification", "good actor", "bad actor", "confused actor"}},
	{4, []string{"enforcement", "violation", "warning", "suspension"}},
	{5, []string{"verification", "supplier", "authenticity", "documentation"}},
	{6, []string{"appeal", "repeat", "retrospective"}},
	{7, []string{"hijacking", "security", "authentication", "secondary user"}},
	{8, []string{"funds", "disbursement", "financial"}},
	{9, []string{"outreach", "communication", "clarification"}},
	{10, []string{"sentiment", "escalation", "health safety", "legal threat"}},
	{11, []string{"root cause", "process gap", "system failure"}},
	{12, []string{"preventative", "solution", "improvement", "mitigation"}},
	{13, []string{"documentation", "reporting", "background"}},
	{14, []string{"cross-team", "collaboration", "engagement"}},
	{15, []string{"quality", "audit", "review", "performance"}},
	{16, []string{"continuous improvement", "training", "update"}},
	{17, []string{"communication standard", "messaging", "clarity"}},
	{18, []string{"metrics", "tracking", "measurement"}},
	{19, []string{"legal", "compliance", "regulation"}},
	{20, []string{"launch", "pilot", "rollback"}},
}

const maxReferences = 3

// LookupReferences maps a feedback category and description to up to three
// checklist numbers by keyword substring match.
func LookupReferences(category, text string) []int {
	textLower := strings.ToLower(text)
	categoryLower := strings.ToLower(category)

	var refs []int
	for _, entry := range referenceKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(textLower, keyword) || strings.Contains(categoryLower, keyword) {
				refs = append(refs, entry.number)
				break
			}
		}
		if len(refs) == maxReferences {
			break
		}
	}
	return refs
}

var highRiskIndicators = []string{
	"counterfeit", "fraud", "manipulation", "multiple violation",
	"immediate action", "legal", "health safety", "bad actor",
}

var mediumRiskIndicators = []string{
	"pattern", "violation", "enforcement", "remediation",
	"correction", "warning",
}

const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// ClassifyRisk assigns a risk level by indicator substring match over the
// item's description and category, High before Medium, defaulting to Low.
func ClassifyRisk(item FeedbackItem) string {
	content := strings.ToLower(item.Description + " " + item.Category)

	for _, indicator := range highRiskIndicators {
		if strings.Contains(content, indicator) {
			return RiskHigh
		}
	}
	for _, indicator := range mediumRiskIndicators {
		if strings.Contains(content, indicator) {
			return RiskMedium
		}
	}
	return RiskLow
}
