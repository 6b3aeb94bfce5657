// Package directory resolves claimed employers to HR verification lines.
package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verihire/verihire-backend/internal/domain/errors"
)

// Static is an in-memory employer directory loaded at startup. Company
// names are matched case-insensitively on their trimmed form.
type Static struct {
	lines map[string]string
}

func NewStatic(lines map[string]string) *Static {
	normalized := make(map[string]string, len(lines))
	for company, line := range lines {
		normalized[normalize(company)] = line
	}
	return &Static{lines: normalized}
}

// LoadFile reads a YAML mapping of company name to HR phone line.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hr directory: %w", err)
	}
	var lines map[string]string
	if err := yaml.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("parsing hr directory: %w", err)
	}
	return NewStatic(lines), nil
}

// LookupHRLine returns the verification line for a company, or a not-found
// error the worker records as a failed sub-check.
func (d *Static) LookupHRLine(ctx context.Context, company string) (string, error) {
	if line, ok := d.lines[normalize(company)]; ok {
		return line, nil
	}
	return "", errors.NewNotFoundError(fmt.Sprintf("hr line for %q", company))
}

func normalize(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}
