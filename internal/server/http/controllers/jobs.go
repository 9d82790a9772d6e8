package controllers

import (
	"net/http"

	"github.com/cocuh/toyosatomimi/internal/services/broker"
	"github.com/go-chi/chi/v5"
)

// JobsController serves read-only views of the queue, the completion log and
// the in-flight table. Every view accepts ?filter=<CEL>&limit=<n>.
type JobsController struct {
	svc *broker.Service
}

// NewJobsController creates a new jobs controller.
func NewJobsController(svc *broker.Service) *JobsController {
	return &JobsController{svc: svc}
}

// RegisterRoutes registers the view endpoints.
func (c *JobsController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/queue", c.handleQueue)
	r.Get("/v1/completed", c.handleCompleted)
	r.Get("/v1/inflight", c.handleInFlight)
}

func (c *JobsController) handleQueue(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := c.svc.ListQueue(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, JobList{Jobs: jobs, Count: len(jobs)})
}

func (c *JobsController) handleCompleted(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := c.svc.ListCompleted(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, JobList{Jobs: jobs, Count: len(jobs)})
}

func (c *JobsController) handleInFlight(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, err := c.svc.ListInFlight(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]DeliveryItem, 0, len(ds))
	for _, d := range ds {
		items = append(items, DeliveryItem{ID: d.ID, Job: d.Job, DeliveredAtMs: d.DeliveredAt.UnixMilli()})
	}
	writeJSON(w, DeliveryList{Deliveries: items, Count: len(items)})
}
