package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MinTeamNameLen is the minimum accepted length of a raw team name, counted
// before any trimming.
const MinTeamNameLen = 3

// TeamIdentity is the canonical key for a team: the display name trimmed and
// case-folded. All uniqueness checks operate on this value, never on the raw
// display name.
type TeamIdentity string

// NormalizeTeamName derives the canonical identity from a user-supplied
// display name. Names shorter than MinTeamNameLen or blank after trimming are
// rejected.
func NormalizeTeamName(raw string) (TeamIdentity, error) {
	if len(raw) < MinTeamNameLen {
		return "", ErrInvalidTeamName
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidTeamName
	}
	return TeamIdentity(strings.ToLower(trimmed)), nil
}

// SubmissionRecord is the durable result of a team's single attempt. The raw
// answer set is persisted verbatim alongside the computed score.
type SubmissionRecord struct {
	TeamIdentity TeamIdentity    `json:"teamName"`
	Answers      json.RawMessage `json:"answers"`
	Score        int             `json:"score"`
	SubmittedAt  time.Time       `json:"submittedAt"`
}

// AnswerValue is one submitted answer: either a single string or a keyed
// group of sub-answers for a bundled question. Values of any other shape
// unmarshal to the zero value and score nothing.
type AnswerValue struct {
	Text  string
	Parts map[string]string
}

// AnswerSet maps question identifiers to submitted answers.
type AnswerSet map[string]AnswerValue

// UnmarshalJSON accepts a JSON string or a string-keyed object of strings.
// Sub-values that are not strings are dropped rather than failing the whole
// answer; a top-level value of any other shape degrades to the zero value.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	*v = AnswerValue{}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		v.Text = text
		return nil
	}

	var group map[string]json.RawMessage
	if err := json.Unmarshal(data, &group); err != nil {
		return nil
	}
	parts := make(map[string]string, len(group))
	for id, raw := range group {
		var part string
		if err := json.Unmarshal(raw, &part); err == nil {
			parts[id] = part
		}
	}
	v.Parts = parts
	return nil
}

// IsGroup reports whether the answer is a keyed group of sub-answers.
func (v AnswerValue) IsGroup() bool {
	return v.Parts != nil
}

// ActiveTeam is a snapshot entry describing one live contest session.
type ActiveTeam struct {
	TeamIdentity TeamIdentity `json:"teamName"`
	ConnectionID string       `json:"connectionId"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// PartSummary describes one gradable part of a bundled question.
type PartSummary struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
}

// QuestionSummary is the client-facing view of a question: identifiers and
// point values only, never canonical answers or keywords.
type QuestionSummary struct {
	ID     string        `json:"id"`
	Points int           `json:"points"`
	Parts  []PartSummary `json:"parts,omitempty"`
}
