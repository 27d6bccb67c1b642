// Package results partitions batch outcomes and packages produced animations.
package results

import "speedraw/models"

// Summary splits a batch result into successes and failures, both in
// enqueue order.
type Summary struct {
	Succeeded    []models.ItemOutcome `json:"succeeded"`
	Failed       []models.ItemOutcome `json:"failed"`
	SuccessCount int                  `json:"success_count"`
	TotalCount   int                  `json:"total_count"`
	Cancelled    bool                 `json:"cancelled"`
}

// Summarize partitions result. It is total: an empty result yields zero
// counts and empty, non-nil slices.
func Summarize(result models.BatchResult) Summary {
	s := Summary{
		Succeeded:  []models.ItemOutcome{},
		Failed:     []models.ItemOutcome{},
		TotalCount: len(result.Outcomes),
		Cancelled:  result.Cancelled,
	}
	for _, out := range result.Outcomes {
		if out.Success {
			s.Succeeded = append(s.Succeeded, out)
		} else {
			s.Failed = append(s.Failed, out)
		}
	}
	s.SuccessCount = len(s.Succeeded)
	return s
}

// CollectArtifactRefs returns the artifact of every successful outcome in
// enqueue order.
func CollectArtifactRefs(result models.BatchResult) []models.ArtifactRef {
	refs := []models.ArtifactRef{}
	for _, out := range result.Outcomes {
		if out.Success && out.Artifact != nil {
			refs = append(refs, *out.Artifact)
		}
	}
	return refs
}
