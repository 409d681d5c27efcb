package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/thejonthinator/frysen/internal/updates"
	"github.com/thejonthinator/frysen/pkg/logger"
)

// UpdateCheckJobName is the registry name of the release poll.
const UpdateCheckJobName = "update-check"

type updateChecker interface {
	CheckForUpdates(ctx context.Context) (updates.Result, error)
}

// UpdateCheckJobParams configures the release poll.
type UpdateCheckJobParams struct {
	Logger   *logger.Logger
	Checker  updateChecker
	Interval time.Duration
}

// NewUpdateCheckJob polls the release feed through the engine so listeners
// see the result.
func NewUpdateCheckJob(params UpdateCheckJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("update checker required")
	}
	return &updateCheckJob{
		logg:     params.Logger,
		checker:  params.Checker,
		interval: params.Interval,
	}, nil
}

type updateCheckJob struct {
	logg     *logger.Logger
	checker  updateChecker
	interval time.Duration
}

func (j *updateCheckJob) Name() string { return UpdateCheckJobName }

func (j *updateCheckJob) Interval() time.Duration { return j.interval }

func (j *updateCheckJob) Run(ctx context.Context) error {
	result, err := j.checker.CheckForUpdates(ctx)
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}
	switch result.Status {
	case updates.StatusUpdateAvailable, updates.StatusCritical:
		version := ""
		if result.Update != nil {
			version = result.Update.Version
		}
		ctx = j.logg.WithFields(ctx, map[string]any{
			"status":          string(result.Status),
			"current_version": result.CurrentVersion,
			"latest_version":  version,
		})
		j.logg.Info(ctx, "newer release available")
	}
	return nil
}
