package memory

import "context"

// StaticConfigLoader serves a fixed raw question-config document (useful for
// tests/demos).
type StaticConfigLoader struct {
	raw []byte
}

func NewStaticConfigLoader(raw []byte) *StaticConfigLoader {
	return &StaticConfigLoader{raw: raw}
}

func (l *StaticConfigLoader) LoadConfig(_ context.Context) ([]byte, error) {
	return l.raw, nil
}
