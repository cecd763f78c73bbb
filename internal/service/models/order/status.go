package order

// Status represents the fulfillment lifecycle state of an order.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusProcessing   Status = "PROCESSING"
	StatusPDFGenerated Status = "PDF_GENERATED"
	StatusPDFStored    Status = "PDF_STORED"
	StatusEmailSent    Status = "EMAIL_SENT"
	StatusFailed       Status = "FAILED"
)

// stage orders the forward path. FAILED and unknown values have no stage.
var stage = map[Status]int{
	StatusPending:      0,
	StatusProcessing:   1,
	StatusPDFGenerated: 2,
	StatusPDFStored:    3,
	StatusEmailSent:    4,
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusEmailSent || s == StatusFailed
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := stage[s]

	return ok
}

// CanTransitionTo reports whether s -> next is a legal transition.
// The forward path advances exactly one stage at a time; FAILED is
// reachable from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}

	if next == StatusFailed {
		return true
	}

	from, ok := stage[s]
	if !ok {
		return false
	}
	to, ok := stage[next]
	if !ok {
		return false
	}

	return to == from+1
}

// CoarseStatus is the user-facing projection of Status.
type CoarseStatus string

const (
	CoarsePending    CoarseStatus = "Pending"
	CoarseProcessing CoarseStatus = "Processing"
	CoarseSuccess    CoarseStatus = "Success"
	CoarseFailed     CoarseStatus = "Failed"
)

// Coarse maps the internal status onto the four values shown to users.
func (s Status) Coarse() CoarseStatus {
	switch s {
	case StatusPending:
		return CoarsePending
	case StatusProcessing, StatusPDFGenerated, StatusPDFStored:
		return CoarseProcessing
	case StatusEmailSent:
		return CoarseSuccess
	default:
		return CoarseFailed
	}
}
