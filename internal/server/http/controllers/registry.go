package controllers

import (
	"github.com/cocuh/toyosatomimi/internal/services/broker"
	"github.com/go-chi/chi/v5"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	jobs    *JobsController
}

// NewControllerRegistry creates a new controller registry backed by svc.
func NewControllerRegistry(svc *broker.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(svc),
		jobs:    NewJobsController(svc),
	}
}

// RegisterAllRoutes registers all controller routes on r.
func (r *ControllerRegistry) RegisterAllRoutes(router chi.Router) {
	r.general.RegisterRoutes(router)
	r.jobs.RegisterRoutes(router)
}
