package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextLoanStatus_AllowedEdges(t *testing.T) {
	cases := []struct {
		from LoanStatus
		op   LoanOperation
		to   LoanStatus
	}{
		{LoanSubmitted, OpStartReview, LoanUnderReview},
		{LoanSubmitted, OpApprove, LoanApproved},
		{LoanUnderReview, OpApprove, LoanApproved},
		{LoanSubmitted, OpReject, LoanRejected},
		{LoanUnderReview, OpReject, LoanRejected},
		{LoanApproved, OpIssue, LoanIssued},
		{LoanIssued, OpMarkCollected, LoanInUse},
		{LoanInUse, OpRequestExtension, LoanInUse},
		{LoanInUse, OpApproveExtension, LoanInUse},
		{LoanInUse, OpReturn, LoanReturned},
		{LoanReturned, OpComplete, LoanCompleted},
		{LoanSubmitted, OpCancel, LoanCancelled},
		{LoanUnderReview, OpCancel, LoanCancelled},
		{LoanApproved, OpCancel, LoanCancelled},
	}

	for _, tc := range cases {
		got, err := NextLoanStatus(tc.from, tc.op)
		require.NoError(t, err, "%s -%s->", tc.from, tc.op)
		assert.Equal(t, tc.to, got)
	}
}

func TestNextLoanStatus_Rejected(t *testing.T) {
	cases := []struct {
		from LoanStatus
		op   LoanOperation
	}{
		{LoanSubmitted, OpIssue},
		{LoanRejected, OpApprove},
		{LoanApproved, OpApprove},
		{LoanIssued, OpCancel},
		{LoanInUse, OpCancel},
		{LoanApproved, OpReject},
		{LoanCompleted, OpReturn},
		{LoanCancelled, OpApprove},
		{LoanSubmitted, OpReturn},
	}

	for _, tc := range cases {
		_, err := NextLoanStatus(tc.from, tc.op)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))

		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, string(tc.from), te.From)
		assert.Equal(t, string(tc.op), te.Op)
	}
}

func TestLoanStatus_Terminal(t *testing.T) {
	assert.True(t, LoanRejected.IsTerminal())
	assert.True(t, LoanCompleted.IsTerminal())
	assert.True(t, LoanCancelled.IsTerminal())
	assert.False(t, LoanInUse.IsTerminal())
}

func TestNextTicketStatus(t *testing.T) {
	to, err := NextTicketStatus(TicketOpen, OpAssign)
	require.NoError(t, err)
	assert.Equal(t, TicketAssigned, to)

	to, err = NextTicketStatus(TicketAssigned, OpAssign)
	require.NoError(t, err)
	assert.Equal(t, TicketAssigned, to)

	to, err = NextTicketStatus(TicketInProgress, OpResolve)
	require.NoError(t, err)
	assert.Equal(t, TicketResolved, to)

	// quick fixes may be resolved straight from assigned
	to, err = NextTicketStatus(TicketAssigned, OpResolve)
	require.NoError(t, err)
	assert.Equal(t, TicketResolved, to)

	_, err = NextTicketStatus(TicketOpen, OpResolve)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NextTicketStatus(TicketClosed, OpCancelTkt)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NextTicketStatus(TicketResolved, OpExtendSLA)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIsOverdue(t *testing.T) {
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsOverdue(LoanInUse, end, end.Add(time.Second)))
	assert.False(t, IsOverdue(LoanInUse, end, end))
	assert.False(t, IsOverdue(LoanCompleted, end, end.Add(48*time.Hour)))
	assert.False(t, IsOverdue(LoanIssued, end, end.Add(48*time.Hour)))
}

func TestIsBreached(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	later := due.Add(time.Minute)

	assert.True(t, IsBreached(TicketOpen, due, later))
	assert.True(t, IsBreached(TicketInProgress, due, later))
	assert.False(t, IsBreached(TicketResolved, due, later))
	assert.False(t, IsBreached(TicketClosed, due, later))
	assert.False(t, IsBreached(TicketAssigned, due, due.Add(-time.Minute)))
}

func TestGuestOwner_Validate(t *testing.T) {
	ok := GuestOwner{Name: "Siti", Email: "siti@example.gov", Phone: "0123", Division: "ICT"}
	assert.NoError(t, ok.Validate())

	missing := ok
	missing.Division = " "
	err := missing.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "applicant_division", ve.Field)

	bad := ok
	bad.Email = "not-an-email"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestAssetCondition(t *testing.T) {
	assert.True(t, ConditionDamaged.RequiresMaintenance())
	assert.True(t, ConditionPoor.RequiresMaintenance())
	assert.False(t, ConditionGood.RequiresMaintenance())
	assert.False(t, AssetCondition("broken").Valid())
}
