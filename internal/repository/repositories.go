package repository

import (
	"github.com/deppfellow/instrument-relay/internal/server"
)

// Repositories is a container for all repository instances.
//
// Services receive the whole container so new repositories can be added
// without changing the wiring in main.
type Repositories struct {
	Sequences *SequenceRepository
}

// NewRepositories constructs the repository container on top of the
// server's PostgreSQL pool.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Sequences: NewSequenceRepository(s.DB.Pool),
	}
}
