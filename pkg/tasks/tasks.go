// Package tasks defines the events that are sent to Kafka.
package tasks

import "time"

// CacheGroupSavedEvent is published after a cache group save has been committed.
type CacheGroupSavedEvent struct {
	GroupID   uint      `json:"group_id"`
	Action    string    `json:"action"`
	Question  string    `json:"question"`
	Regions   []string  `json:"regions"`
	Notified  int       `json:"notified"`
	Failed    int       `json:"failed"`
	ActorMail string    `json:"actor_email,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}
