// Package types holds the event and result types shared between the
// orchestrator and its consumers (the CLI today, anything subscribing to a
// batch tomorrow).
package types

// MessageType classifies a progress message for rendering.
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageSuccess MessageType = "success"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// ProgressMessage is the human-readable part of a progress event.
type ProgressMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// ProgressEvent describes one step of a bulk workflow. Consumers receive
// events in order on the batch's event channel.
type ProgressEvent struct {
	// Current is the 1-based index of the item this event concerns. Zero
	// for batch-level events (group resolution, cooldown pauses).
	Current int `json:"current"`

	// Total is the batch size.
	Total int `json:"total"`

	// Successful and Failed are running tallies at the time of the event.
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// ProfileID is set once the item has an identifier.
	ProfileID string `json:"profileId,omitempty"`

	Message ProgressMessage `json:"message"`
}

// ItemState is the lifecycle state of one batch item.
type ItemState string

const (
	ItemPending      ItemState = "pending"
	ItemCreating     ItemState = "creating"
	ItemCreated      ItemState = "created"
	ItemFailed       ItemState = "failed"
	ItemCooldownWait ItemState = "cooldown-wait"
)

// ItemResult is the final outcome of one batch item. A batch returns one
// result per requested item, in request order, regardless of individual
// failures.
type ItemResult struct {
	Index     int       `json:"index"`
	ProfileID string    `json:"profileId,omitempty"`
	State     ItemState `json:"state"`
	Err       error     `json:"-"`
	ErrText   string    `json:"error,omitempty"`
}

// NewSuccessResult builds the result for a created item.
func NewSuccessResult(index int, profileID string) ItemResult {
	return ItemResult{Index: index, ProfileID: profileID, State: ItemCreated}
}

// NewFailureResult builds the result for a failed item.
func NewFailureResult(index int, err error) ItemResult {
	r := ItemResult{Index: index, State: ItemFailed, Err: err}
	if err != nil {
		r.ErrText = err.Error()
	}
	return r
}
