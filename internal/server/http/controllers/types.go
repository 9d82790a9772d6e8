package controllers

import toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"

// Response bodies shared by the admin endpoints and the CLI that reads them.

// HealthResponse is the body of /v1/healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// JobList is the body of /v1/queue and /v1/completed.
type JobList struct {
	Jobs  []toyov1.Job `json:"jobs"`
	Count int          `json:"count"`
}

// DeliveryItem is one outstanding delivery.
type DeliveryItem struct {
	ID            string     `json:"id"`
	Job           toyov1.Job `json:"job"`
	DeliveredAtMs int64      `json:"delivered_at_ms"`
}

// DeliveryList is the body of /v1/inflight.
type DeliveryList struct {
	Deliveries []DeliveryItem `json:"deliveries"`
	Count      int            `json:"count"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
