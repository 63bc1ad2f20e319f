package scoring

// trendDeadBand is the smallest period-over-period change reported as a trend.
const trendDeadBand = 2

// ComputeTrend compares the last two scores of a chronological series.
func ComputeTrend(scores []int) Trend {
	if len(scores) < 2 {
		return Trend{Direction: DirectionStable}
	}
	delta := scores[len(scores)-1] - scores[len(scores)-2]
	magnitude := delta
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude < trendDeadBand {
		return Trend{Direction: DirectionStable}
	}
	if delta > 0 {
		return Trend{Direction: DirectionUp, MagnitudeDelta: magnitude}
	}
	return Trend{Direction: DirectionDown, MagnitudeDelta: magnitude}
}
