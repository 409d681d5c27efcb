package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migration dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks that every .sql file under dir in fsys is named
// <version>_<name>.sql with a unique version, and declares its Up section
// before its Down section.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations %q: %w", dir, err)
	}

	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("migration %q: expected <YYYYMMDDHHMMSS>_<snake_name>.sql", name)
		}
		if other, dup := versions[match[1]]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", other, name, match[1])
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %q: %w", name, err)
		}
		up := bytes.Index(body, []byte("-- +goose Up"))
		down := bytes.Index(body, []byte("-- +goose Down"))
		switch {
		case up < 0:
			return fmt.Errorf("migration %q has no Up section", name)
		case down < 0:
			return fmt.Errorf("migration %q has no Down section", name)
		case down < up:
			return fmt.Errorf("migration %q declares Down before Up", name)
		}
	}
	return nil
}
