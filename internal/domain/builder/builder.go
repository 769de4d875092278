package builder

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrUnknownBuilder = errors.New("unknown builder")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// Builder is one named lane of work. The policy fields name entries in the policy
// registry; empty means the default for that decision point.
type Builder struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description"`
	NextBuild     string `json:"next_build,omitempty" yaml:"next_build"`
	NextWorker    string `json:"next_worker,omitempty" yaml:"next_worker"`
	CanStartBuild string `json:"can_start_build,omitempty" yaml:"can_start_build"`
}

func (b Builder) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("builder name is required")
	}
	if !namePattern.MatchString(b.Name) {
		return fmt.Errorf("builder name %q contains invalid characters", b.Name)
	}
	return nil
}

// ValidateAll checks every builder and rejects duplicate names.
func ValidateAll(builders []Builder) error {
	seen := make(map[string]bool, len(builders))
	for _, b := range builders {
		if err := b.Validate(); err != nil {
			return err
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate builder %q", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}
