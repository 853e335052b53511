package domain

import (
	"net/http"
	"time"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

const UploadSuccessMessage = "Image uploaded successfully!"

type ResultBody struct {
	Message string `json:"message"`
}

// RunResult is the outcome of one job run. On success ArtifactKey is set; on
// failure ErrorKind and Error are set.
type RunResult struct {
	RunID       string     `json:"runId"`
	Status      RunStatus  `json:"status"`
	StatusCode  int        `json:"statusCode"`
	Body        ResultBody `json:"body"`
	Bucket      string     `json:"bucket,omitempty"`
	ArtifactKey string     `json:"artifactKey,omitempty"`
	Character   string     `json:"character,omitempty"`
	Quote       string     `json:"quote,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	ImageBytes  int        `json:"imageBytes,omitempty"`
	ErrorKind   ErrorKind  `json:"errorKind,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt time.Time  `json:"completedAt"`
}

func (r *RunResult) Succeed(bucket, key string, size int, at time.Time) {
	r.Status = RunSucceeded
	r.StatusCode = http.StatusOK
	r.Body = ResultBody{Message: UploadSuccessMessage}
	r.Bucket = bucket
	r.ArtifactKey = key
	r.ImageBytes = size
	r.CompletedAt = at
}

func (r *RunResult) Fail(err error, at time.Time) {
	r.Status = RunFailed
	r.StatusCode = http.StatusInternalServerError
	r.ErrorKind = KindOf(err)
	r.Error = err.Error()
	r.Body = ResultBody{Message: r.Error}
	r.CompletedAt = at
}

func (r RunResult) Succeeded() bool { return r.Status == RunSucceeded }
