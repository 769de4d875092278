package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
)

// BuildersFile is the on-disk shape of the builder definitions:
//
//	builders:
//	  - name: linux
//	    next_worker: least_loaded
//	  - name: gpu
//	    can_start_build: tags
type BuildersFile struct {
	Builders []domainbuilder.Builder `yaml:"builders"`
}

// LoadBuilders reads and validates the builder definitions at path. Environment
// variables in the file are expanded.
func LoadBuilders(path string) ([]domainbuilder.Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read builders file: %w", err)
	}
	return ParseBuilders(data)
}

func ParseBuilders(data []byte) ([]domainbuilder.Builder, error) {
	var f BuildersFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse builders file: %w", err)
	}
	if err := domainbuilder.ValidateAll(f.Builders); err != nil {
		return nil, fmt.Errorf("invalid builders file: %w", err)
	}
	return f.Builders, nil
}
