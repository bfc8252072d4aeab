package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RuleKind discriminates the two grading-rule variants.
type RuleKind int

const (
	// RuleExact awards points when the case-folded answer equals the canonical answer.
	RuleExact RuleKind = iota
	// RuleKeyword awards points when any case-folded keyword is a substring of the answer.
	RuleKeyword
)

// Rule is a single grading rule for one free-text or multiple-choice answer.
type Rule struct {
	Kind     RuleKind
	Answer   string   // canonical answer, RuleExact only
	Keywords []string // match terms, RuleKeyword only
	Points   int
}

// QuestionRule is the resolved rule for one top-level question: either a
// scalar rule or a group of independently graded parts. The variant is fixed
// at config-load time so grading never has to sniff shapes.
type QuestionRule struct {
	Rule  *Rule
	Parts map[string]Rule
}

// QuestionConfig maps question identifiers to resolved grading rules.
type QuestionConfig map[string]QuestionRule

// rawRule mirrors the on-disk rule shape: {"ans": "...", "score": N} or
// {"keywords": [...], "score": N}.
type rawRule struct {
	Ans      *string  `json:"ans"`
	Keywords []string `json:"keywords"`
	Score    int      `json:"score"`
}

// ParseQuestionConfig validates and resolves a raw JSON question config into
// tagged rule variants. A question value holding "ans" or "keywords" is a
// scalar rule; any other object is treated as a group whose values must all
// be rules themselves. Anything else fails validation.
func ParseQuestionConfig(data []byte) (QuestionConfig, error) {
	var questions map[string]json.RawMessage
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := make(QuestionConfig, len(questions))
	for id, raw := range questions {
		rule, err := parseQuestionRule(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: question %q: %v", ErrInvalidConfig, id, err)
		}
		cfg[id] = rule
	}
	return cfg, nil
}

func parseQuestionRule(data []byte) (QuestionRule, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return QuestionRule{}, fmt.Errorf("not an object: %v", err)
	}

	_, hasAns := fields["ans"]
	_, hasKeywords := fields["keywords"]
	if hasAns || hasKeywords {
		rule, err := parseRule(data)
		if err != nil {
			return QuestionRule{}, err
		}
		return QuestionRule{Rule: &rule}, nil
	}

	if len(fields) == 0 {
		return QuestionRule{}, fmt.Errorf("empty rule group")
	}
	parts := make(map[string]Rule, len(fields))
	for partID, rawPart := range fields {
		rule, err := parseRule(rawPart)
		if err != nil {
			return QuestionRule{}, fmt.Errorf("part %q: %v", partID, err)
		}
		parts[partID] = rule
	}
	return QuestionRule{Parts: parts}, nil
}

func parseRule(data []byte) (Rule, error) {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return Rule{}, fmt.Errorf("unrecognizable rule shape: %v", err)
	}
	if raw.Score < 0 {
		return Rule{}, fmt.Errorf("negative score %d", raw.Score)
	}
	switch {
	case raw.Ans != nil:
		return Rule{Kind: RuleExact, Answer: *raw.Ans, Points: raw.Score}, nil
	case len(raw.Keywords) > 0:
		return Rule{Kind: RuleKeyword, Keywords: raw.Keywords, Points: raw.Score}, nil
	default:
		return Rule{}, fmt.Errorf("rule needs an answer or a non-empty keyword list")
	}
}

// Summaries returns the client-facing question list, sorted by identifier,
// with point values but no answer material.
func (c QuestionConfig) Summaries() []QuestionSummary {
	summaries := make([]QuestionSummary, 0, len(c))
	for id, q := range c {
		summary := QuestionSummary{ID: id}
		if q.Rule != nil {
			summary.Points = q.Rule.Points
		} else {
			for partID, rule := range q.Parts {
				summary.Parts = append(summary.Parts, PartSummary{ID: partID, Points: rule.Points})
				summary.Points += rule.Points
			}
			sort.Slice(summary.Parts, func(i, j int) bool {
				return summary.Parts[i].ID < summary.Parts[j].ID
			})
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}
