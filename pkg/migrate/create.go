package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
)

const versionLayout = "20060102150405"

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9]+`)

var migrationTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.Name}}: changes to frysen_families / frysen_data go here
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo {{.Name}}
-- +goose StatementEnd
`))

// now is swapped in tests.
var now = time.Now

// CreateSQLMigration writes an empty goose migration named
// <dir>/<version>_<name>.sql and returns its path. The name is reduced to
// lower-case snake case; a version already taken moves to the next second.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migration dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migration dir: %w", err)
	}

	var body bytes.Buffer
	if err := migrationTemplate.Execute(&body, struct{ Name string }{slug}); err != nil {
		return "", fmt.Errorf("render migration: %w", err)
	}

	stamp := now().UTC()
	for {
		version := stamp.Format(versionLayout)
		taken, err := filepath.Glob(filepath.Join(dir, version+"_*.sql"))
		if err != nil {
			return "", fmt.Errorf("scan migration dir: %w", err)
		}
		if len(taken) == 0 {
			target := filepath.Join(dir, version+"_"+slug+".sql")
			if err := os.WriteFile(target, body.Bytes(), 0o644); err != nil {
				return "", fmt.Errorf("write migration: %w", err)
			}
			return target, nil
		}
		stamp = stamp.Add(time.Second)
	}
}
