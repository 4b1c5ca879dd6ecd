// Package analysis coordinates the two evidence-analysis passes for a
// report and gates submission of the final claim analysis.
package analysis

import "github.com/accidentlink/portal/internal/model"

// Draft is the editable merged-analysis state: up to one result from
// each engine. Zero value means nothing has been analyzed yet.
type Draft struct {
	Photo       *model.PhotoAnalysisResult `json:"photo,omitempty"`
	Discrepancy *model.DiscrepancyResult   `json:"discrepancy,omitempty"`
}

// Partial carries the outcome of a single engine pass (or both, from
// the combined endpoint).
type Partial struct {
	Photo       *model.PhotoAnalysisResult
	Discrepancy *model.DiscrepancyResult
}

// Merge folds a partial result into the draft. The two engines write
// disjoint field groups, so whichever result arrives second augments
// the draft without discarding the first; merging A then B equals
// merging B then A.
func Merge(existing Draft, update Partial) Draft {
	merged := existing
	if update.Photo != nil {
		merged.Photo = update.Photo
	}
	if update.Discrepancy != nil {
		merged.Discrepancy = update.Discrepancy
	}
	return merged
}
