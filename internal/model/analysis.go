package model

import "time"

// ClaimStatus is the insurance-side adjudication outcome.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending_investigation"
	ClaimApproved ClaimStatus = "approved"
	ClaimDenied   ClaimStatus = "denied"
)

// Recommendation tags produced by the discrepancy engine.
const (
	RecommendApprove     = "approve"
	RecommendInvestigate = "investigate"
	RecommendDeny        = "deny"
)

// PhotoAnalysisResult is the photo-evidence engine's output contract.
type PhotoAnalysisResult struct {
	Narrative        string  `json:"analysis"`
	DamageAssessment string  `json:"damage_assessment"`
	ConsistencyScore float64 `json:"consistency_score"`
}

// DiscrepancyResult is the statement-discrepancy engine's output
// contract. It exists only when a police statement is attached to the
// report, since the engine compares the citizen's account against it.
type DiscrepancyResult struct {
	ConfidenceScore       float64  `json:"confidence_score"`
	Narrative             string   `json:"discrepancy_analysis"`
	KeyDiscrepancies      []string `json:"key_discrepancies"`
	ConsistencyAssessment string   `json:"consistency_assessment"`
	Recommendation        string   `json:"recommendation"`
	RiskFactors           []string `json:"risk_factors"`
	SupportingEvidence    []string `json:"supporting_evidence"`
	// EstimatedClaimAmount is supplied by some engine deployments; the
	// agent's override always wins over it.
	EstimatedClaimAmount *float64 `json:"estimated_claim_amount,omitempty"`
}

// ClaimAnalysis is the final adjudicated analysis record, combining
// engine output with agent overrides. At most one per report.
type ClaimAnalysis struct {
	ID       int64 `json:"id,omitempty"`
	ReportID int64 `json:"accident_report_id"`

	PhotoNarrative   string  `json:"vlm_photo_analysis"`
	DamageAssessment string  `json:"damage_assessment"`
	ConsistencyScore float64 `json:"consistency_score"`

	ConfidenceScore       *float64 `json:"llm_confidence_score,omitempty"`
	DiscrepancyNarrative  string   `json:"discrepancy_analysis,omitempty"`
	KeyDiscrepancies      []string `json:"key_discrepancies,omitempty"`
	ConsistencyAssessment string   `json:"consistency_assessment,omitempty"`
	RiskFactors           []string `json:"risk_factors,omitempty"`
	SupportingEvidence    []string `json:"supporting_evidence,omitempty"`
	Recommendation        string   `json:"llm_recommendation,omitempty"`

	ClaimStatus ClaimStatus `json:"claim_status"`
	ClaimAmount *float64    `json:"claim_amount,omitempty"`
	Notes       string      `json:"notes,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at,omitempty"`
}
