package cron

import (
	"context"
	"time"
)

// Job is a periodic task run by the cron service.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduled is implemented by jobs that want their own cadence.
type Scheduled interface {
	Interval() time.Duration
}

// Registry tracks registered cron jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job; a second job with the same name replaces the first.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	for i, existing := range r.jobs {
		if existing.Name() == job.Name() {
			r.jobs[i] = job
			return
		}
	}
	r.jobs = append(r.jobs, job)
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
