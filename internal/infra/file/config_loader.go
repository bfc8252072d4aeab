package file

import (
	"context"
	"fmt"
	"os"
)

// ConfigLoader reads the raw question-config document from a local JSON file.
type ConfigLoader struct {
	path string
}

func NewConfigLoader(path string) *ConfigLoader {
	return &ConfigLoader{path: path}
}

func (l *ConfigLoader) LoadConfig(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read question config %s: %w", l.path, err)
	}
	return data, nil
}
