package model

import "time"

// FaultDetermination is the officer's adjudication outcome.
type FaultDetermination string

const (
	FaultCitizen      FaultDetermination = "citizen_at_fault"
	FaultOtherParty   FaultDetermination = "other_party_at_fault"
	FaultShared       FaultDetermination = "shared_fault"
	FaultNone         FaultDetermination = "no_fault"
	FaultInconclusive FaultDetermination = "insufficient_evidence"
)

// PoliceStatement is the officer-authored adjudication attached to a
// report. Immutable once created; at most one per report.
type PoliceStatement struct {
	ID                 int64              `json:"id"`
	ReportID           int64              `json:"accident_report_id"`
	OfficerID          int64              `json:"officer_id"`
	CaseNumber         string             `json:"case_number"`
	OfficerFindings    string             `json:"officer_findings"`
	FaultDetermination FaultDetermination `json:"fault_determination"`
	RecommendedAction  string             `json:"recommended_action"`
	CreatedAt          time.Time          `json:"created_at"`
}

// StatementDraft is the create-statement payload.
type StatementDraft struct {
	ReportID           int64              `json:"accident_report_id" binding:"required"`
	CaseNumber         string             `json:"case_number" binding:"required"`
	OfficerFindings    string             `json:"officer_findings" binding:"required"`
	FaultDetermination FaultDetermination `json:"fault_determination" binding:"required"`
	RecommendedAction  string             `json:"recommended_action" binding:"required"`
}
