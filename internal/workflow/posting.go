package workflow

import "fmt"

// PostingStatus is the auto-post axis layered onto the workflow status.
// It advances independently: none -> auto_posting -> {posted, auto_post_failed}.
type PostingStatus string

const (
	PostingNone       PostingStatus = "none"
	PostingInProgress PostingStatus = "auto_posting"
	PostingPosted     PostingStatus = "posted"
	PostingFailed     PostingStatus = "auto_post_failed"
)

var postingTransitions = map[PostingStatus][]PostingStatus{
	PostingNone:       {PostingInProgress},
	PostingInProgress: {PostingPosted, PostingFailed},
	PostingFailed:     {PostingInProgress},
}

// CanTransition reports whether the posting axis permits moving from p to
// the target status. Posted is terminal; a posted document is never
// re-entered into the posting flow.
func (p PostingStatus) CanTransition(to PostingStatus) bool {
	for _, next := range postingTransitions[p] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition for an illegal posting move, nil otherwise.
func (p PostingStatus) Validate(to PostingStatus) error {
	if !p.CanTransition(to) {
		return fmt.Errorf("%w: posting %s -> %s", ErrInvalidTransition, p, to)
	}
	return nil
}

func (p PostingStatus) String() string {
	return string(p)
}
