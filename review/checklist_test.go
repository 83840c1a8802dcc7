package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecklistTopicRoundTrip(t *testing.T) {
	assert.Equal(t, "Root Cause Analysis", ChecklistTopicName(11))
	assert.Equal(t, 11, ChecklistTopicNumber("Root Cause Analysis"))
	assert.Equal(t, "", ChecklistTopicName(0))
	assert.Equal(t, "", ChecklistTopicName(21))
	assert.Equal(t, 0, ChecklistTopicNumber("Nonexistent Topic"))
}

func TestLookupReferencesMatchesDescription(t *testing.T) {
	refs := LookupReferences("Process", "the investigation skipped root cause analysis")
	assert.Equal(t, []int{2, 11}, refs)
}

func TestLookupReferencesMatchesCategory(t *testing.T) {
	refs := LookupReferences("Seller Classification", "no details given")
	assert.Equal(t, []int{3}, refs)
}

func TestLookupReferencesCapsAtThree(t *testing.T) {
	refs := LookupReferences("", "cx impact from the investigation into a bad actor with enforcement and funds issues")
	assert.Len(t, refs, 3)
	assert.Equal(t, []int{1, 2, 3}, refs)
}

func TestLookupReferencesNoMatch(t *testing.T) {
	assert.Empty(t, LookupReferences("General", "nothing relevant here"))
}

func TestClassifyRiskHighBeforeMedium(t *testing.T) {
	item := FeedbackItem{Description: "a fraud pattern with enforcement gaps"}
	assert.Equal(t, RiskHigh, ClassifyRisk(item))
}

func TestClassifyRiskMedium(t *testing.T) {
	item := FeedbackItem{Description: "a repeated pattern of late responses"}
	assert.Equal(t, RiskMedium, ClassifyRisk(item))
}

func TestClassifyRiskConsidersCategory(t *testing.T) {
	item := FeedbackItem{Description: "needs more detail", Category: "Legal Review"}
	assert.Equal(t, RiskHigh, ClassifyRisk(item))
}

func TestClassifyRiskDefaultsLow(t *testing.T) {
	item := FeedbackItem{Description: "consider adding a summary table"}
	assert.Equal(t, RiskLow, ClassifyRisk(item))
}
