package polls

import "errors"

var (
	// ErrNotFound covers both a missing poll and a malformed identifier so
	// error responses leak no existence information.
	ErrNotFound = errors.New("poll not found")

	// ErrDuplicateVote means the authenticated user already voted on this
	// poll.
	ErrDuplicateVote = errors.New("you have already voted on this poll")

	// ErrAuthRequired means the poll only accepts authenticated votes.
	ErrAuthRequired = errors.New("this poll requires you to be signed in to vote")

	// ErrOptionOutOfRange means the submitted index does not reference a
	// current option, e.g. the client voted from a stale page.
	ErrOptionOutOfRange = errors.New("selected option no longer exists")
)
