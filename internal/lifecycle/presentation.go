package lifecycle

import "campus-canteen/internal/xpkg/models"

// View is how a status is rendered on every surface.
type View struct {
	Status models.Status `json:"status"`
	Label  string        `json:"label"`
	Tag    string        `json:"tag"`
	Color  string        `json:"color"`
	// Action is the kitchen button that moves the order forward, empty when
	// no action is offered.
	Action string `json:"action,omitempty"`
	Column string `json:"column,omitempty"`
}

var views = map[models.Status]View{
	models.StatusPending: {
		Status: models.StatusPending,
		Label:  "Pending",
		Tag:    "warning",
		Color:  "yellow",
		Action: "Start Cooking",
		Column: "Pending",
	},
	models.StatusPreparing: {
		Status: models.StatusPreparing,
		Label:  "Preparing",
		Tag:    "info",
		Color:  "blue",
		Action: "Mark Ready",
		Column: "Preparing",
	},
	models.StatusReady: {
		Status: models.StatusReady,
		Label:  "Ready",
		Tag:    "success",
		Color:  "green",
		Action: "Mark Delivered",
		Column: "Ready to Serve",
	},
	models.StatusCompleted: {
		Status: models.StatusCompleted,
		Label:  "Completed",
		Tag:    "neutral",
		Color:  "gray",
		Column: "Completed",
	},
	models.StatusCancelled: {
		Status: models.StatusCancelled,
		Label:  "Cancelled",
		Tag:    "danger",
		Color:  "red",
	},
}

// Presentation returns the view for s. Unknown statuses render as a neutral
// badge with the raw value and no action.
func Presentation(s models.Status) View {
	if v, ok := views[s]; ok {
		return v
	}
	return View{Status: s, Label: string(s), Tag: "neutral", Color: "gray"}
}

// PaymentPresentation renders a payment status badge.
func PaymentPresentation(p models.PaymentStatus) View {
	if p == models.PaymentPaid {
		return View{Label: "Paid", Tag: "success", Color: "green"}
	}
	return View{Label: "Pending", Tag: "warning", Color: "yellow"}
}

type StepState string

const (
	StepDone     StepState = "done"
	StepCurrent  StepState = "current"
	StepUpcoming StepState = "upcoming"
)

type Step struct {
	Status models.Status `json:"status"`
	Label  string        `json:"label"`
	State  StepState     `json:"state"`
}

var steps = []Step{
	{Status: models.StatusPending, Label: "Order Placed"},
	{Status: models.StatusPreparing, Label: "Preparing"},
	{Status: models.StatusReady, Label: "Ready"},
	{Status: models.StatusCompleted, Label: "Completed"},
}

// Steps returns the customer progress steps in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Progress marks each customer step as done, current or upcoming for s.
// A completed order has every step done; a cancelled or unknown one has none.
func Progress(s models.Status) []Step {
	out := Steps()
	cur, ok := rank[s]
	if !ok {
		for i := range out {
			out[i].State = StepUpcoming
		}
		return out
	}
	for i := range out {
		switch {
		case i < cur, s == models.StatusCompleted:
			out[i].State = StepDone
		case i == cur:
			out[i].State = StepCurrent
		default:
			out[i].State = StepUpcoming
		}
	}
	return out
}
