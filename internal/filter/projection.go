// Package filter holds the pure dashboard projections over a fetched
// report collection. Recomputed on every call; no incremental index.
package filter

import "github.com/accidentlink/portal/internal/model"

// Filter keys accepted by the two dashboard views.
const (
	KeyAll         = "all"
	KeyPending     = "pending"
	KeyAnalyzed    = "analyzed"
	KeyUnderReview = "under_review"
	KeyCompleted   = "completed"
)

// ProjectInsurance returns the subsequence of reports matching the
// insurance-view key (all / pending / analyzed), preserving original
// order. Unknown keys pass everything through.
func ProjectInsurance(reports []model.Report, key string) []model.Report {
	switch key {
	case KeyPending:
		return project(reports, func(r *model.Report) bool { return !r.HasAnalysis() })
	case KeyAnalyzed:
		return project(reports, func(r *model.Report) bool { return r.HasAnalysis() })
	default:
		return reports
	}
}

// ProjectPolice returns the subsequence matching the police-view key
// (all / pending / under_review / completed), matched against the
// report status. "pending" means freshly submitted.
func ProjectPolice(reports []model.Report, key string) []model.Report {
	switch key {
	case KeyPending:
		return byStatus(reports, model.StatusSubmitted)
	case KeyUnderReview:
		return byStatus(reports, model.StatusUnderReview)
	case KeyCompleted:
		return byStatus(reports, model.StatusCompleted)
	default:
		return reports
	}
}

// InsuranceCounts are the insurance dashboard's summary figures.
type InsuranceCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
}

func CountInsurance(reports []model.Report) InsuranceCounts {
	counts := InsuranceCounts{Total: len(reports)}
	for i := range reports {
		analysis := reports[i].ClaimAnalysis
		switch {
		case analysis == nil:
			counts.Pending++
		case analysis.ClaimStatus == model.ClaimApproved:
			counts.Approved++
		case analysis.ClaimStatus == model.ClaimDenied:
			counts.Denied++
		}
	}
	return counts
}

// PoliceCounts are the police dashboard's summary figures.
type PoliceCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	UnderReview int `json:"under_review"`
	Completed   int `json:"completed"`
}

func CountPolice(reports []model.Report) PoliceCounts {
	counts := PoliceCounts{Total: len(reports)}
	for i := range reports {
		switch reports[i].Status {
		case model.StatusSubmitted:
			counts.Pending++
		case model.StatusUnderReview:
			counts.UnderReview++
		case model.StatusCompleted:
			counts.Completed++
		}
	}
	return counts
}

func project(reports []model.Report, keep func(*model.Report) bool) []model.Report {
	filtered := make([]model.Report, 0, len(reports))
	for i := range reports {
		if keep(&reports[i]) {
			filtered = append(filtered, reports[i])
		}
	}
	return filtered
}

func byStatus(reports []model.Report, status model.ReportStatus) []model.Report {
	return project(reports, func(r *model.Report) bool { return r.Status == status })
}
