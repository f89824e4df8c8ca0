package lifecycle

import (
	"testing"

	"campus-canteen/internal/xpkg/models"

	"github.com/stretchr/testify/assert"
)

func states(steps []Step) []StepState {
	out := make([]StepState, len(steps))
	for i, s := range steps {
		out[i] = s.State
	}
	return out
}

func TestPresentationTable(t *testing.T) {
	assert.Equal(t, "Start Cooking", Presentation(models.StatusPending).Action)
	assert.Equal(t, "Mark Ready", Presentation(models.StatusPreparing).Action)
	assert.Equal(t, "Mark Delivered", Presentation(models.StatusReady).Action)
	assert.Equal(t, "Ready to Serve", Presentation(models.StatusReady).Column)
	assert.Empty(t, Presentation(models.StatusCancelled).Column)

	unknown := Presentation(models.Status("lost"))
	assert.Equal(t, "lost", unknown.Label)
	assert.Empty(t, unknown.Action)
}

func TestProgress(t *testing.T) {
	tests := []struct {
		status models.Status
		want   []StepState
	}{
		{models.StatusPending, []StepState{StepCurrent, StepUpcoming, StepUpcoming, StepUpcoming}},
		{models.StatusPreparing, []StepState{StepDone, StepCurrent, StepUpcoming, StepUpcoming}},
		{models.StatusReady, []StepState{StepDone, StepDone, StepCurrent, StepUpcoming}},
		{models.StatusCompleted, []StepState{StepDone, StepDone, StepDone, StepDone}},
		{models.StatusCancelled, []StepState{StepUpcoming, StepUpcoming, StepUpcoming, StepUpcoming}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, states(Progress(tt.status)))
		})
	}
}

func TestStepsAreCopies(t *testing.T) {
	s := Steps()
	s[0].Label = "changed"
	assert.Equal(t, "Order Placed", Steps()[0].Label)
}
