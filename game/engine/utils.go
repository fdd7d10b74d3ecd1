package engine

// WaitTimes returns how long each pending emergency has been queued at clock, in dispatch order
func WaitTimes(pending []Emergency, clock float64) []float64 {
	out := make([]float64, len(pending))
	for i, e := range pending {
		out[i] = clock - e.CreatedAt
	}
	return out
}

// OldestWait returns the longest queue wait at clock, or 0 when nothing is pending
func OldestWait(pending []Emergency, clock float64) float64 {
	longest := 0.0
	for _, w := range WaitTimes(pending, clock) {
		if w > longest {
			longest = w
		}
	}
	return longest
}

// CountByPriority tallies pending emergencies per priority level
func CountByPriority(pending []Emergency) map[int]int {
	counts := make(map[int]int)
	for _, e := range pending {
		counts[e.Priority]++
	}
	return counts
}

// Utilization returns the fraction of the fleet that is not idle
func Utilization(counts StatusCounts) float64 {
	total := counts.Total()
	if total == 0 {
		return 0
	}
	return float64(total-counts.Idle) / float64(total)
}

// ActiveLocations returns the location ids currently served by TO_SCENE or ON_SCENE vehicles
func ActiveLocations(fleet []VehicleSnapshot) map[int]bool {
	active := make(map[int]bool)
	for _, v := range fleet {
		if (v.Status == StatusToScene || v.Status == StatusOnScene) && v.HasAssignment() {
			active[v.AssignedLocationID] = true
		}
	}
	return active
}
