package run

import (
	"net/http"

	"autopost/internal/publish"
)

// Class buckets an invocation outcome for the response contract.
type Class string

const (
	// ClassPublished: at least one platform accepted the post.
	ClassPublished Class = "published"
	// ClassSkipped: a deliberate skip (outside window, probability gate,
	// nothing eligible, no usable message). Not an error.
	ClassSkipped Class = "skipped"
	// ClassPublishFailed: every enabled platform failed. The invocation
	// itself completed, so this still answers 200 with the failure detail.
	ClassPublishFailed Class = "publish_failed"
	// ClassInput: malformed trigger (missing/unknown window name).
	ClassInput Class = "input_error"
	// ClassCommitFailed: the post is live but the last-posted marker was not
	// written. Known inconsistency window; operators reconcile manually.
	ClassCommitFailed Class = "commit_failed"
	// ClassInternal: anything unexpected.
	ClassInternal Class = "internal_error"
)

// Outcome is the structured result of one invocation.
type Outcome struct {
	Class    Class
	Reason   string
	Window   string
	ItemURL  string
	Message  string
	Outcomes publish.OutcomeSet
	Err      error
}

// HTTPStatus maps the outcome onto the trigger response contract.
func (o Outcome) HTTPStatus() int {
	switch o.Class {
	case ClassPublished, ClassSkipped, ClassPublishFailed:
		return http.StatusOK
	case ClassInput:
		return http.StatusBadRequest
	case ClassCommitFailed, ClassInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
