package lifecycle

import (
	"testing"

	"campus-canteen/internal/xpkg/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from   models.Status
		want   models.Status
		wantOK bool
	}{
		{models.StatusPending, models.StatusPreparing, true},
		{models.StatusPreparing, models.StatusReady, true},
		{models.StatusReady, models.StatusCompleted, true},
		{models.StatusCompleted, "", false},
		{models.StatusCancelled, "", false},
		{models.Status("delivered"), "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, ok := Next(tt.from)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusPending, models.StatusPreparing, true},
		{models.StatusPreparing, models.StatusReady, true},
		{models.StatusReady, models.StatusCompleted, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusReady, models.StatusCancelled, true},
		// mark-paid jump
		{models.StatusPending, models.StatusCompleted, true},
		{models.StatusPreparing, models.StatusCompleted, true},

		{models.StatusPending, models.StatusReady, false},
		{models.StatusReady, models.StatusPending, false},
		{models.StatusPreparing, models.StatusPending, false},
		{models.StatusPending, models.StatusPending, false},
		{models.StatusCompleted, models.StatusPending, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusCancelled, models.StatusCompleted, false},
		{models.Status("bogus"), models.StatusReady, false},
		{models.StatusPending, models.Status("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestValidateReason(t *testing.T) {
	require.NoError(t, Validate(models.StatusPending, models.StatusPreparing))
	assert.ErrorIs(t, Validate(models.StatusCompleted, models.StatusPending), ErrTerminalState)
	assert.ErrorIs(t, Validate(models.StatusCancelled, models.StatusCancelled), ErrTerminalState)
	assert.ErrorIs(t, Validate(models.StatusReady, models.StatusPreparing), ErrInvalidTransition)
}

func TestCanMarkPaid(t *testing.T) {
	assert.True(t, CanMarkPaid(models.StatusPending))
	assert.True(t, CanMarkPaid(models.StatusPreparing))
	assert.True(t, CanMarkPaid(models.StatusReady))
	assert.False(t, CanMarkPaid(models.StatusCompleted))
	assert.False(t, CanMarkPaid(models.StatusCancelled))
}

func TestOverrideBypassesValidation(t *testing.T) {
	// the default path refuses to reopen a completed order
	assert.False(t, IsValidTransition(models.StatusCompleted, models.StatusPending))

	// an admin override can still do it, and is flagged as a deviation
	o := Override{From: models.StatusCompleted, To: models.StatusPending}
	assert.True(t, o.Deviates())

	assert.False(t, Override{From: models.StatusPending, To: models.StatusPreparing}.Deviates())
}

func genStatus() gopter.Gen {
	return gen.OneConstOf(
		models.StatusPending,
		models.StatusPreparing,
		models.StatusReady,
		models.StatusCompleted,
		models.StatusCancelled,
	)
}

func TestLifecycleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("next is deterministic and absent exactly for terminal states", prop.ForAll(
		func(s models.Status) bool {
			n1, ok1 := Next(s)
			n2, ok2 := Next(s)
			if n1 != n2 || ok1 != ok2 {
				return false
			}
			return ok1 != IsTerminal(s)
		},
		genStatus(),
	))

	properties.Property("no transition leaves a terminal state", prop.ForAll(
		func(from, to models.Status) bool {
			if !IsTerminal(from) {
				return true
			}
			return !IsValidTransition(from, to)
		},
		genStatus(), genStatus(),
	))

	properties.Property("next is always a valid transition", prop.ForAll(
		func(s models.Status) bool {
			n, ok := Next(s)
			if !ok {
				return true
			}
			return IsValidTransition(s, n)
		},
		genStatus(),
	))

	properties.Property("terminal orders offer no action", prop.ForAll(
		func(s models.Status) bool {
			if !IsTerminal(s) {
				return Presentation(s).Action != ""
			}
			return Presentation(s).Action == "" && !CanMarkPaid(s) && !CanCancel(s)
		},
		genStatus(),
	))

	properties.TestingRun(t)
}
