package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusCheck echoes a client liveness probe. It is logged, never stored.
type StatusCheck struct {
	ID         uuid.UUID `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusCheckCreate is the body of a status check request.
type StatusCheckCreate struct {
	ClientName string `json:"client_name"`
}
