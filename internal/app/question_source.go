package app

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"contest-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ConfigLoader fetches the raw question-config document from wherever it
// lives (local file, Postgres, a cache in front of either).
type ConfigLoader interface {
	LoadConfig(ctx context.Context) ([]byte, error)
}

// QuestionSource owns the in-memory question config. The config is replaced
// by atomic pointer swap so in-flight grading always sees one consistent
// snapshot, never a mix of old and new rules.
type QuestionSource struct {
	loader  ConfigLoader
	sf      singleflight.Group
	current atomic.Pointer[domain.QuestionConfig]
}

func NewQuestionSource(loader ConfigLoader) *QuestionSource {
	return &QuestionSource{loader: loader}
}

// Load performs the initial fetch and fails fast: an unreachable origin or a
// structurally invalid document is a startup error, since serving with a
// broken grading schema is worse than not serving.
func (s *QuestionSource) Load(ctx context.Context) error {
	cfg, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.current.Store(&cfg)
	return nil
}

// cacheInvalidator is implemented by loaders that sit behind a cache and can
// drop the cached document before a re-fetch.
type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Reload re-fetches and atomically replaces the config. On failure the prior
// config stays in place and the error is reported; concurrent reloads are
// collapsed into a single fetch.
func (s *QuestionSource) Reload(ctx context.Context) error {
	_, err, _ := s.sf.Do("reload", func() (interface{}, error) {
		if inv, ok := s.loader.(cacheInvalidator); ok {
			if err := inv.Invalidate(ctx); err != nil {
				log.Printf("question config cache invalidate failed: %v", err)
			}
		}
		cfg, err := s.fetch(ctx)
		if err != nil {
			log.Printf("question config reload failed, keeping prior config: %v", err)
			return nil, err
		}
		s.current.Store(&cfg)
		return nil, nil
	})
	return err
}

// Current returns the config snapshot in effect, or ErrConfigUnavailable if
// no load has succeeded yet.
func (s *QuestionSource) Current() (domain.QuestionConfig, error) {
	cfg := s.current.Load()
	if cfg == nil {
		return nil, domain.ErrConfigUnavailable
	}
	return *cfg, nil
}

func (s *QuestionSource) fetch(ctx context.Context) (domain.QuestionConfig, error) {
	raw, err := s.loader.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question config: %w", err)
	}
	cfg, err := domain.ParseQuestionConfig(raw)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
