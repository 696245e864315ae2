package model

type RepairStatus string

const (
	StatusPendingDiagnosis RepairStatus = "pending_diagnosis"
	StatusAwaitingRepairer RepairStatus = "awaiting_repairer"
	StatusDiagnosed        RepairStatus = "diagnosed"
	StatusAccepted         RepairStatus = "accepted"
	StatusInProgress       RepairStatus = "in_progress"
	StatusCompleted        RepairStatus = "completed"
	StatusVerified         RepairStatus = "verified"
	StatusAwaitingPayment  RepairStatus = "awaiting_payment"
	StatusPaid             RepairStatus = "paid"
	StatusCancelled        RepairStatus = "cancelled"
)

// AllowedTransitions is the request state flow. Who may trigger each edge is
// decided by the service layer; this map only says which pairs are valid.
var AllowedTransitions = map[RepairStatus][]RepairStatus{
	// Fresh submission without a chosen repairer.
	StatusPendingDiagnosis: {StatusDiagnosed, StatusCancelled},
	// Submitted with a preselected repairer.
	StatusAwaitingRepairer: {StatusDiagnosed, StatusAccepted, StatusCompleted, StatusCancelled},
	StatusDiagnosed:        {StatusAccepted, StatusCompleted, StatusCancelled},
	StatusAccepted:         {StatusInProgress, StatusCancelled},
	StatusInProgress:       {StatusCompleted, StatusCancelled},
	// completed -> verified only through a passing verification.
	StatusCompleted: {StatusVerified, StatusCancelled},
	StatusVerified:  {StatusAwaitingPayment, StatusCancelled},
	// Self-loop: a second checkout session for the same request.
	StatusAwaitingPayment: {StatusAwaitingPayment, StatusPaid, StatusCancelled},
}

var allowedTransitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(transitions map[RepairStatus][]RepairStatus) map[RepairStatus]map[RepairStatus]struct{} {
	set := make(map[RepairStatus]map[RepairStatus]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[RepairStatus]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

// CanTransition checks if a request may move from one status to another.
func CanTransition(from, to RepairStatus) bool {
	next, ok := allowedTransitionSet[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func (s RepairStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

func (s RepairStatus) Valid() bool {
	if s.Terminal() {
		return true
	}
	_, ok := AllowedTransitions[s]
	return ok
}

// OpenPoolStatuses are the statuses in which a request can still be picked up
// by a repairer.
var OpenPoolStatuses = []RepairStatus{StatusPendingDiagnosis, StatusAwaitingRepairer, StatusDiagnosed}
