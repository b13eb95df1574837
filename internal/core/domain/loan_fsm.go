package domain

// LoanOperation is a command that may move a loan application between states
type LoanOperation string

const (
	OpStartReview      LoanOperation = "start_review"
	OpApprove          LoanOperation = "approve"
	OpReject           LoanOperation = "reject"
	OpIssue            LoanOperation = "issue"
	OpMarkCollected    LoanOperation = "mark_collected"
	OpRequestExtension LoanOperation = "request_extension"
	OpApproveExtension LoanOperation = "approve_extension"
	OpRejectExtension  LoanOperation = "reject_extension"
	OpReturn           LoanOperation = "return"
	OpComplete         LoanOperation = "complete"
	OpCancel           LoanOperation = "cancel"
)

// LoanTransitions is the complete loan state graph: from -> operation -> to.
// Anything not listed here is an invalid transition.
var LoanTransitions = map[LoanStatus]map[LoanOperation]LoanStatus{
	LoanSubmitted: {
		OpStartReview: LoanUnderReview,
		OpApprove:     LoanApproved,
		OpReject:      LoanRejected,
		OpCancel:      LoanCancelled,
	},
	LoanUnderReview: {
		OpApprove: LoanApproved,
		OpReject:  LoanRejected,
		OpCancel:  LoanCancelled,
	},
	LoanApproved: {
		OpIssue:  LoanIssued,
		OpCancel: LoanCancelled,
	},
	LoanIssued: {
		OpMarkCollected: LoanInUse,
	},
	LoanInUse: {
		OpRequestExtension: LoanInUse,
		OpApproveExtension: LoanInUse,
		OpRejectExtension:  LoanInUse,
		OpReturn:           LoanReturned,
	},
	LoanReturned: {
		OpComplete: LoanCompleted,
	},
}

// NextLoanStatus returns the state reached by applying op in from
func NextLoanStatus(from LoanStatus, op LoanOperation) (LoanStatus, error) {
	if to, ok := LoanTransitions[from][op]; ok {
		return to, nil
	}
	return "", NewTransitionError("loan application", string(from), string(op))
}

// IsTerminal reports whether no operation leaves s
func (s LoanStatus) IsTerminal() bool {
	return len(LoanTransitions[s]) == 0
}
