package state

// validTransitions contains the permitted job lifecycle transitions.
// Recurring jobs loop firing -> scheduled; one-shot jobs end at completed.
var validTransitions = map[JobState][]JobState{
	JobScheduled: {
		JobFiring,
		JobCancelled,
	},
	JobFiring: {
		JobScheduled,
		JobCompleted,
		JobCancelled,
	},
}

// IsTransitionAllowed reports whether moving from one job state to another is valid.
func IsTransitionAllowed(from, to JobState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}

	return false
}
