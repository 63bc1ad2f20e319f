package scoring

// ComputeScore returns the weighted percentage for one subject over one
// period. reviews must already be filtered to that subject and period.
func ComputeScore(reviews []ReviewRecord, kpis []KPI) (int, error) {
	result, err := Evaluate(reviews, kpis)
	if err != nil {
		return 0, err
	}
	return result.Percentage, nil
}

// Evaluate is ComputeScore with the weight totals exposed.
//
// Reviews with no outcome contribute nothing. Reviews for unknown KPIs, and
// for removed KPIs dated on or after the removal, are skipped. When the same
// KPI appears more than once the latest RecordedAt wins, ties going to the
// later record.
func Evaluate(reviews []ReviewRecord, kpis []KPI) (Result, error) {
	byID := indexKPIs(kpis)

	var result Result
	for _, review := range latestPerKPI(reviews) {
		if !review.Reviewed() {
			continue
		}
		kpi, ok := byID[review.KPIID]
		if !ok || !kpi.Honors(review) {
			result.Skipped++
			continue
		}
		if kpi.Weight <= 0 {
			if kpi.Active {
				return Result{}, &MalformedKPIError{KPIID: kpi.ID, Weight: kpi.Weight}
			}
			result.Skipped++
			continue
		}
		result.TotalWeight += kpi.Weight
		if *review.Met {
			result.EarnedWeight += kpi.Weight
		}
		result.Counted++
	}

	if result.TotalWeight == 0 {
		return result, nil
	}
	result.Percentage = roundRatio(result.EarnedWeight*100, result.TotalWeight)
	return result, nil
}

func indexKPIs(kpis []KPI) map[string]KPI {
	out := make(map[string]KPI, len(kpis))
	for _, kpi := range kpis {
		out[kpi.ID] = kpi
	}
	return out
}

// Honors applies the removal policy: a removed KPI still counts for reviews
// dated before it was removed.
func (k KPI) Honors(review ReviewRecord) bool {
	if k.Active {
		return true
	}
	if k.RemovedAt.IsZero() {
		return false
	}
	return review.PeriodTimestamp.Before(k.RemovedAt)
}

func latestPerKPI(reviews []ReviewRecord) []ReviewRecord {
	if len(reviews) < 2 {
		return reviews
	}
	type key struct{ subject, kpi string }
	pos := make(map[key]int, len(reviews))
	out := make([]ReviewRecord, 0, len(reviews))
	for _, review := range reviews {
		k := key{review.SubjectID, review.KPIID}
		if i, ok := pos[k]; ok {
			if !review.RecordedAt.Before(out[i].RecordedAt) {
				out[i] = review
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, review)
	}
	return out
}

// roundRatio divides num by den rounding half up. Both must be non-negative
// and den positive.
func roundRatio(num, den int) int {
	return (2*num + den) / (2 * den)
}
