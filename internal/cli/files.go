package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/okian/matchreport/internal/domain/model"
)

// ErrNoFiles is returned when no pattern matches a report file.
var ErrNoFiles = errors.New("no report files matched")

// reportFile is one decoded report and where it came from.
type reportFile struct {
	Path   string
	Report model.Report
}

// matchFiles expands patterns relative to root. Patterns may use ** and
// may be absolute.
func matchFiles(root string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(p))
		dir := filepath.FromSlash(base)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}

		matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("evaluate pattern %s: %w", p, err)
		}
		for _, m := range matches {
			full := filepath.Join(dir, filepath.FromSlash(m))
			if !isReportFile(full) || seen[full] {
				continue
			}
			seen[full] = true
			out = append(out, full)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, " "))
	}
	sort.Strings(out)
	return out, nil
}

func isReportFile(name string) bool {
	switch strings.ToLower(path.Ext(filepath.ToSlash(name))) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// loadReports decodes every file.
func loadReports(files []string) ([]reportFile, error) {
	out := make([]reportFile, 0, len(files))
	for _, f := range files {
		r, err := loadReport(f)
		if err != nil {
			return nil, err
		}
		out = append(out, reportFile{Path: f, Report: r})
	}
	return out, nil
}

// loadReport decodes a JSON or YAML report file.
func loadReport(name string) (model.Report, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return model.Report{}, fmt.Errorf("read %s: %w", name, err)
	}

	var r model.Report
	if strings.EqualFold(filepath.Ext(name), ".json") {
		err = json.Unmarshal(data, &r)
	} else {
		err = yaml.Unmarshal(data, &r)
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if r.ID == "" {
		r.ID = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return r, nil
}

