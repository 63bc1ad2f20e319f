package scoring

// DirectorRollup averages the period scores of the clinicians assigned to
// directorID. An assigned clinician with no entry in scores counts as 0. A
// director with nobody assigned gets 0; use AssignedCount to tell that apart.
func DirectorRollup(directorID string, scores map[string]int, assignments map[string]string) int {
	return RollupDirector(directorID, scores, assignments).Score
}

// AssignedCount returns how many clinicians are assigned to directorID.
func AssignedCount(directorID string, assignments map[string]string) int {
	count := 0
	for _, assigned := range assignments {
		if assigned == directorID {
			count++
		}
	}
	return count
}

// RollupDirector is DirectorRollup plus the counts needed to interpret it.
func RollupDirector(directorID string, scores map[string]int, assignments map[string]string) TeamRollup {
	rollup := TeamRollup{DirectorID: directorID}
	sum := 0
	for clinicianID, assigned := range assignments {
		if assigned != directorID {
			continue
		}
		rollup.Assigned++
		if score, ok := scores[clinicianID]; ok {
			sum += score
			rollup.Reported++
		}
	}
	if rollup.Assigned == 0 {
		return rollup
	}
	rollup.Score = roundRatio(sum, rollup.Assigned)
	return rollup
}
