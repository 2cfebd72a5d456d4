package service

import (
	"github.com/deppfellow/instrument-relay/internal/lib/job"
	"github.com/deppfellow/instrument-relay/internal/repository"
	"github.com/deppfellow/instrument-relay/internal/server"
)

type Services struct {
	Auth      *AuthService
	Reconcile *ReconcileService
	Job       *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService := NewAuthService(s)
	reconcileService := NewReconcileService(s, repos)

	return &Services{
		Job:       s.Job,
		Auth:      authService,
		Reconcile: reconcileService,
	}, nil
}
