package updates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
)

// Status is the outcome of a version check.
type Status string

const (
	StatusChecking        Status = "checking"
	StatusUpToDate        Status = "up_to_date"
	StatusUpdateAvailable Status = "update_available"
	StatusCritical        Status = "critical_update"
	StatusError           Status = "error"
)

const (
	defaultThrottle    = time.Hour
	defaultHTTPTimeout = 10 * time.Second
	maxBodyBytes       = 1 << 20
)

// Release describes a newer published version.
type Release struct {
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Notes       string    `json:"notes"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Result is what a check reports.
type Result struct {
	Status         Status    `json:"status"`
	CurrentVersion string    `json:"currentVersion"`
	Update         *Release  `json:"update,omitempty"`
	CheckedAt      time.Time `json:"checkedAt"`
	Error          string    `json:"error,omitempty"`
}

// Params configures a Checker.
type Params struct {
	FeedURL        string
	CurrentVersion string
	Throttle       time.Duration
	HTTPClient     *http.Client
	Logger         *logger.Logger
	Now            func() time.Time
}

// Checker polls a GitHub-style "latest release" endpoint.
type Checker struct {
	feedURL  string
	current  string
	throttle time.Duration
	client   *http.Client
	logg     *logger.Logger
	now      func() time.Time

	mu   sync.Mutex
	last *Result
}

type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

func NewChecker(params Params) (*Checker, error) {
	if strings.TrimSpace(params.FeedURL) == "" {
		return nil, errors.New("feed url required")
	}
	current := canonical(params.CurrentVersion)
	if !semver.IsValid(current) {
		return nil, fmt.Errorf("current version %q is not semver", params.CurrentVersion)
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	throttle := params.Throttle
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Checker{
		feedURL:  params.FeedURL,
		current:  current,
		throttle: throttle,
		client:   client,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CurrentVersion returns the running version without the "v" prefix.
func (c *Checker) CurrentVersion() string {
	return strings.TrimPrefix(c.current, "v")
}

// Check asks the feed for the latest release. Successful results are reused
// for the throttle window.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.last != nil && now.Sub(c.last.CheckedAt) < c.throttle {
		return *c.last, nil
	}

	result, err := c.fetch(ctx)
	result.CurrentVersion = c.CurrentVersion()
	result.CheckedAt = now
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		c.logg.Warn(ctx, "update check failed: "+err.Error())
		return result, err
	}
	c.last = &result
	return result, nil
}

func (c *Checker) fetch(ctx context.Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build update request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "frysen/"+c.CurrentVersion())

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch latest release")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		// no published releases, or rate limited
		return Result{Status: StatusUpToDate}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, pkgerrors.Newf(pkgerrors.CodeDependency, "release feed returned %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&release); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode latest release")
	}
	return c.evaluate(release)
}

func (c *Checker) evaluate(release githubRelease) (Result, error) {
	if release.Draft || release.Prerelease {
		return Result{Status: StatusUpToDate}, nil
	}
	latest := canonical(release.TagName)
	if !semver.IsValid(latest) {
		return Result{}, pkgerrors.Newf(pkgerrors.CodeDependency, "release tag %q is not semver", release.TagName)
	}
	if semver.Compare(latest, c.current) <= 0 {
		return Result{Status: StatusUpToDate}, nil
	}

	status := StatusUpdateAvailable
	if semver.MajorMinor(latest) != semver.MajorMinor(c.current) {
		status = StatusCritical
	}
	return Result{
		Status: status,
		Update: &Release{
			Version:     strings.TrimPrefix(latest, "v"),
			Name:        release.Name,
			Notes:       release.Body,
			URL:         release.HTMLURL,
			PublishedAt: release.PublishedAt,
		},
	}, nil
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.Canonical(version)
}
