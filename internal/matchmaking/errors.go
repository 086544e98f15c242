package matchmaking

import "errors"

var (
	ErrDuplicateRequest = errors.New("player is already in matchmaking queue")
	ErrNotQueued        = errors.New("player is not in matchmaking queue")
	ErrQueueClosed      = errors.New("matchmaking queue is closed")
	ErrCommitFailure    = errors.New("failed to commit match group")
	ErrInvalidGroup     = errors.New("invalid match group")
)
