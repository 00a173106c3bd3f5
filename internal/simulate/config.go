// Package simulate drives a running sync service over HTTP with synthetic
// users and checks the reports it produces.
package simulate

import (
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Users   int           // Number of synthetic users
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // Seed of the input generator
	Replay  bool          // Resend every batch and expect a duplicate ack
	Verbose bool          // Log every user report
}

// UserBatch is one user's synthetic day.
type UserBatch struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Inputs    []model.Input `json:"inputs"`
}

// batchAck decodes both a processed batch and a duplicate acknowledgement.
type batchAck struct {
	model.BatchResult
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds simulation statistics.
type Stats struct {
	UsersGenerated   int
	InputsGenerated  int
	BatchesSubmitted int
	BatchesAccepted  int
	BatchesDuplicate int
	BatchesFailed    int
	InputsFailed     int
	ReportsRetrieved int
	ReportsInvalid   int
	InsightsSeen     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
