package scoring

// Collapse keeps one authoritative record per (subject, KPI, period). The
// record with the latest RecordedAt wins; equal timestamps go to the record
// that appears later. Output preserves the position of each triple's first
// occurrence.
func Collapse(records []ReviewRecord, bucketer Bucketer, granularity Granularity) []ReviewRecord {
	type key struct {
		subject string
		kpi     string
		period  PeriodKey
	}
	pos := make(map[key]int, len(records))
	out := make([]ReviewRecord, 0, len(records))
	for _, record := range records {
		k := key{record.SubjectID, record.KPIID, bucketer.Bucket(granularity, record.PeriodTimestamp)}
		if i, ok := pos[k]; ok {
			if !record.RecordedAt.Before(out[i].RecordedAt) {
				out[i] = record
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, record)
	}
	return out
}

// GroupByPeriod buckets records per subject and period. Records are not
// collapsed; pass them through Collapse first when duplicates are possible.
func GroupByPeriod(records []ReviewRecord, bucketer Bucketer, granularity Granularity) map[string]map[PeriodKey][]ReviewRecord {
	out := make(map[string]map[PeriodKey][]ReviewRecord)
	for _, record := range records {
		periods, ok := out[record.SubjectID]
		if !ok {
			periods = make(map[PeriodKey][]ReviewRecord)
			out[record.SubjectID] = periods
		}
		key := bucketer.Bucket(granularity, record.PeriodTimestamp)
		periods[key] = append(periods[key], record)
	}
	return out
}
