package id

import "github.com/google/uuid"

// New returns a random identifier for a batch run.
func New() string {
	return uuid.NewString()
}
