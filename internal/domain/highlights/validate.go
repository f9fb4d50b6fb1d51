package highlights

import "github.com/Vishalytig/shortsbot/internal/types"

// Validate keeps the candidates whose duration falls inside the band, in input
// order, and truncates the result to MaxClips. Overlapping windows are kept.
func Validate(cands []types.Candidate, b Bounds) types.ClipPlan {
	plan := types.ClipPlan{}
	if b.MaxClips <= 0 {
		return plan
	}
	for _, c := range cands {
		if !b.admits(c) {
			continue
		}
		plan = append(plan, c)
		if len(plan) >= b.MaxClips {
			break
		}
	}
	return plan
}
