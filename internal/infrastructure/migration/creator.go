package migration

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// versionWidth matches the zero padded prefix of files under migrations/
const versionWidth = 6

var (
	headerTmpl = template.Must(template.New("header").Parse(
		`-- {{.File.Name}}{{if .Rollback}} (rollback){{end}}
-- Created: {{.File.Timestamp}}
{{- if and .File.Description (not .Rollback)}}
-- {{.File.Description}}
{{- end}}

`))

	invalidNameChars = regexp.MustCompile(`[^a-z0-9 _-]+`)
	nameSeparators   = regexp.MustCompile(`[ _-]+`)
)

// MigrationFile describes a newly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes the next numbered up/down pair into dir. Existing
// files are never overwritten.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	next, err := NextVersion(os.DirFS(dir))
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	base := filepath.Join(dir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeHeader(mf.UpPath, mf, false); err != nil {
		return nil, err
	}
	if err := writeHeader(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeHeader(path string, mf *MigrationFile, rollback bool) error {
	var buf bytes.Buffer
	if err := headerTmpl.Execute(&buf, struct {
		File     *MigrationFile
		Rollback bool
	}{mf, rollback}); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// NextVersion returns one past the highest version found in fsys
func NextVersion(fsys fs.FS) (uint64, error) {
	names, err := ListMigrationsFS(fsys)
	if err != nil {
		return 0, err
	}
	var highest uint64
	for _, n := range names {
		if v, ok := parseVersion(n); ok {
			highest = max(highest, v)
		}
	}
	return highest + 1, nil
}

func parseVersion(baseName string) (uint64, bool) {
	prefix, _, found := strings.Cut(baseName, "_")
	if !found {
		return 0, false
	}
	v, err := strconv.ParseUint(prefix, 10, 64)
	return v, err == nil
}

// sanitizeName lower-cases name, drops anything but letters, digits and
// separators, and joins words with single underscores
func sanitizeName(name string) string {
	s := invalidNameChars.ReplaceAllString(strings.ToLower(name), "")
	s = nameSeparators.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ListMigrations lists the migrations in dir; a missing dir has none
func ListMigrations(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}
	return ListMigrationsFS(os.DirFS(dir))
}

// ListMigrationsFS returns the base names of the *.up.sql files at the root
// of fsys in version order
func ListMigrationsFS(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(ups))
	for _, up := range ups {
		if base := strings.TrimSuffix(up, ".up.sql"); base != "" {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
