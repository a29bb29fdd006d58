package types

import "time"

// Todo represents a single to-do item in a user's list.
type Todo struct {
	// ID is unique within the owning user's list, not globally.
	ID int64 `json:"id"`

	// Text is the task description. Never empty after trimming.
	Text string `json:"text"`

	// Completed reports whether the task is done.
	Completed bool `json:"completed"`

	// CreatedAt is the timestamp when the task was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}
