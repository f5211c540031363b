package feed

import "errors"

// silent no-op
var (
	ErrNothingToSend = errors.New("feed: nothing to send")
	ErrUnknownSender = errors.New("feed: unknown sender")
	ErrNotAttached   = errors.New("feed: no conversation attached")
	ErrMediaTooLarge = errors.New("feed: media too large")
)

// backend failures, wrapped together with the cause
var (
	ErrSubscription = errors.New("feed: subscription failed")
	ErrFetch        = errors.New("feed: fetch older page failed")
	ErrUpload       = errors.New("feed: media upload failed")
	ErrCommit       = errors.New("feed: commit message failed")
	ErrThumbnail    = errors.New("feed: thumbnail failed")
)
