package uid

import "github.com/google/uuid"

// UUID implements StringID with time-ordered v7 identifiers, used for
// request correlation IDs.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a v7 UUID string, falling back to v4 when the clock
// source fails.
func (u *UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
