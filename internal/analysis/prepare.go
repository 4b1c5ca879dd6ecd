package analysis

import (
	"strings"

	"github.com/accidentlink/portal/internal/model"
)

// Overrides are the agent-entered edits applied over the merged engine
// results. List-valued fields arrive as newline-delimited text. An
// empty override falls back to the engine output; if that is also
// absent the field ends up with its empty default.
type Overrides struct {
	PhotoNarrative   string   `json:"vlm_photo_analysis"`
	DamageAssessment string   `json:"damage_assessment"`
	ConsistencyScore *float64 `json:"consistency_score"`

	ClaimStatus model.ClaimStatus `json:"claim_status"`
	ClaimAmount *float64          `json:"claim_amount"`
	Notes       string            `json:"notes"`

	ConfidenceScore       *float64 `json:"llm_confidence_score"`
	DiscrepancyNarrative  string   `json:"discrepancy_analysis"`
	ConsistencyAssessment string   `json:"consistency_assessment"`
	KeyDiscrepancies      string   `json:"key_discrepancies"`
	RiskFactors           string   `json:"risk_factors"`
	SupportingEvidence    string   `json:"supporting_evidence"`
}

// PrepareSubmission builds the final claim analysis record from the
// merged draft plus overrides. Pure; submission itself happens in the
// workflow.
func PrepareSubmission(reportID int64, draft Draft, o Overrides) model.ClaimAnalysis {
	record := model.ClaimAnalysis{
		ReportID:    reportID,
		ClaimStatus: o.ClaimStatus,
		ClaimAmount: o.ClaimAmount,
		Notes:       o.Notes,
	}
	if record.ClaimStatus == "" {
		record.ClaimStatus = model.ClaimPending
	}

	if photo := draft.Photo; photo != nil {
		record.PhotoNarrative = photo.Narrative
		record.DamageAssessment = photo.DamageAssessment
		record.ConsistencyScore = photo.ConsistencyScore
	}
	if o.PhotoNarrative != "" {
		record.PhotoNarrative = o.PhotoNarrative
	}
	if o.DamageAssessment != "" {
		record.DamageAssessment = o.DamageAssessment
	}
	if o.ConsistencyScore != nil {
		record.ConsistencyScore = *o.ConsistencyScore
	}

	if disc := draft.Discrepancy; disc != nil {
		record.ConfidenceScore = &disc.ConfidenceScore
		record.DiscrepancyNarrative = disc.Narrative
		record.ConsistencyAssessment = disc.ConsistencyAssessment
		record.Recommendation = disc.Recommendation
		record.KeyDiscrepancies = disc.KeyDiscrepancies
		record.RiskFactors = disc.RiskFactors
		record.SupportingEvidence = disc.SupportingEvidence
		if record.ClaimAmount == nil {
			record.ClaimAmount = disc.EstimatedClaimAmount
		}
	}
	if o.ConfidenceScore != nil {
		record.ConfidenceScore = o.ConfidenceScore
	}
	if o.DiscrepancyNarrative != "" {
		record.DiscrepancyNarrative = o.DiscrepancyNarrative
	}
	if o.ConsistencyAssessment != "" {
		record.ConsistencyAssessment = o.ConsistencyAssessment
	}
	if o.KeyDiscrepancies != "" {
		record.KeyDiscrepancies = SplitLines(o.KeyDiscrepancies)
	}
	if o.RiskFactors != "" {
		record.RiskFactors = SplitLines(o.RiskFactors)
	}
	if o.SupportingEvidence != "" {
		record.SupportingEvidence = SplitLines(o.SupportingEvidence)
	}

	return record
}

// SplitLines turns newline-delimited override text into an ordered
// list, dropping blank lines.
func SplitLines(text string) []string {
	items := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
