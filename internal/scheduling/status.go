package scheduling

// Summary buckets appointment counts the way the dashboards consume them:
// everything still ahead of the patient is "upcoming", terminal states get
// their own buckets.
type Summary struct {
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

var allStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCancelled,
	StatusRescheduled,
	StatusCompleted,
}

func ValidStatus(s AppointmentStatus) bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Category maps a status to its summary bucket.
func Category(s AppointmentStatus) string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "upcoming"
	}
}

// terminal statuses admit no further transitions.
func terminal(s AppointmentStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition is the single place status-change legality is decided.
// The policy is deliberately loose for now: any move between live statuses is
// allowed, terminal records stay terminal. Tightening the policy later only
// touches this function.
func CanTransition(from, to AppointmentStatus) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return false
	}
	return !terminal(from)
}

// SummarizeCounts folds per-status counts into summary buckets.
func SummarizeCounts(counts map[AppointmentStatus]int) Summary {
	var s Summary
	for status, n := range counts {
		switch Category(status) {
		case "completed":
			s.Completed += n
		case "cancelled":
			s.Cancelled += n
		default:
			s.Upcoming += n
		}
		s.Total += n
	}
	return s
}
