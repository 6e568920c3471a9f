package app

import "sync"

// QueueStatus is the outcome of a matchmaking request.
type QueueStatus string

const (
	QueueQueued        QueueStatus = "queued"
	QueueAlreadyQueued QueueStatus = "already_queued"
	QueueMatched       QueueStatus = "matched"
)

// QueueResult reports what TryEnqueueOrMatch did. Opponent is set only when matched.
type QueueResult struct {
	Status   QueueStatus
	Opponent string
}

// Queue holds at most one waiting player.
type Queue struct {
	mu      sync.Mutex
	waiting string
}

func NewQueue() *Queue {
	return &Queue{}
}

// TryEnqueueOrMatch parks playerID in the empty slot, or consumes the waiting player.
// The previously waiting player is expected to move first.
func (q *Queue) TryEnqueueOrMatch(playerID string) QueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.waiting {
	case "":
		q.waiting = playerID
		return QueueResult{Status: QueueQueued}
	case playerID:
		return QueueResult{Status: QueueAlreadyQueued}
	default:
		opponent := q.waiting
		q.waiting = ""
		return QueueResult{Status: QueueMatched, Opponent: opponent}
	}
}

// Leave clears the slot only when it holds playerID.
func (q *Queue) Leave(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting == "" || q.waiting != playerID {
		return false
	}
	q.waiting = ""
	return true
}

// Waiting returns the queued player, if any.
func (q *Queue) Waiting() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}
