package updates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thejonthinator/frysen/pkg/logger"
)

func feed(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newChecker(t *testing.T, url, current string, now func() time.Time) *Checker {
	t.Helper()
	c, err := NewChecker(Params{FeedURL: url, CurrentVersion: current, Logger: logger.Nop(), Now: now})
	require.NoError(t, err)
	return c
}

func TestCheckStatuses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		current string
		want    Status
		wantErr bool
	}{
		{name: "patch release", status: 200, body: `{"tag_name":"v1.0.3","name":"Frysen 1.0.3","html_url":"https://example.test/r"}`, current: "1.0.2", want: StatusUpdateAvailable},
		{name: "minor release", status: 200, body: `{"tag_name":"1.1.0"}`, current: "1.0.2", want: StatusCritical},
		{name: "major release", status: 200, body: `{"tag_name":"v2.0.0"}`, current: "1.0.2", want: StatusCritical},
		{name: "same version", status: 200, body: `{"tag_name":"v1.0.2"}`, current: "1.0.2", want: StatusUpToDate},
		{name: "older release", status: 200, body: `{"tag_name":"v0.9.0"}`, current: "1.0.2", want: StatusUpToDate},
		{name: "prerelease", status: 200, body: `{"tag_name":"v3.0.0","prerelease":true}`, current: "1.0.2", want: StatusUpToDate},
		{name: "draft", status: 200, body: `{"tag_name":"v3.0.0","draft":true}`, current: "1.0.2", want: StatusUpToDate},
		{name: "no releases", status: 404, body: `{}`, current: "1.0.2", want: StatusUpToDate},
		{name: "rate limited", status: 403, body: `{}`, current: "1.0.2", want: StatusUpToDate},
		{name: "server error", status: 500, body: `oops`, current: "1.0.2", want: StatusError, wantErr: true},
		{name: "bad tag", status: 200, body: `{"tag_name":"latest"}`, current: "1.0.2", want: StatusError, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := feed(t, tc.status, tc.body)
			c := newChecker(t, srv.URL, tc.current, nil)
			got, err := c.Check(context.Background())
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, got.Status)
			require.Equal(t, "1.0.2", got.CurrentVersion)
		})
	}
}

func TestCheckReportsRelease(t *testing.T) {
	srv, _ := feed(t, 200, `{"tag_name":"v1.0.3","name":"Frysen 1.0.3","body":"fixar","html_url":"https://example.test/r","published_at":"2024-05-01T10:00:00Z"}`)
	c := newChecker(t, srv.URL, "v1.0.2", nil)

	got, err := c.Check(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got.Update)
	require.Equal(t, "1.0.3", got.Update.Version)
	require.Equal(t, "fixar", got.Update.Notes)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), got.Update.PublishedAt)
}

func TestCheckThrottles(t *testing.T) {
	srv, hits := feed(t, 200, `{"tag_name":"v1.0.3"}`)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := newChecker(t, srv.URL, "1.0.2", clock)

	_, err := c.Check(context.Background())
	require.NoError(t, err)
	_, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	now = now.Add(61 * time.Minute)
	_, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestNewCheckerValidates(t *testing.T) {
	_, err := NewChecker(Params{CurrentVersion: "1.0.0", Logger: logger.Nop()})
	require.Error(t, err)
	_, err = NewChecker(Params{FeedURL: "http://x", CurrentVersion: "one", Logger: logger.Nop()})
	require.Error(t, err)
	_, err = NewChecker(Params{FeedURL: "http://x", CurrentVersion: "1.0.0"})
	require.Error(t, err)
}
