// Package outbox hands committed notify effects from the lifecycle engine to
// the notification dispatcher.
package outbox

import (
	"github.com/bwmarrin/snowflake"
)

const defaultQueueSize = 1024

// Queue is the in-process handoff between the engine and the relay. Sends
// never block; rows that do not fit stay PENDING for the relay sweep.
type Queue struct {
	ch chan snowflake.ID
}

func NewQueue() *Queue {
	return &Queue{ch: make(chan snowflake.ID, defaultQueueSize)}
}

// Offer enqueues ids and returns how many were dropped.
func (q *Queue) Offer(ids ...snowflake.ID) int {
	dropped := 0
	for _, id := range ids {
		select {
		case q.ch <- id:
		default:
			dropped++
		}
	}
	return dropped
}

// C is the receive side consumed by the relay.
func (q *Queue) C() <-chan snowflake.ID {
	return q.ch
}

// Len reports how many ids are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}
