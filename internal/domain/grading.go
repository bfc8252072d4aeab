package domain

import "strings"

// Grade scores an answer set against a question config. Unknown question and
// part identifiers contribute nothing, as do answers whose shape does not
// match the configured rule. The function is pure and the result does not
// depend on iteration order.
func Grade(answers AnswerSet, cfg QuestionConfig) int {
	total := 0
	for id, value := range answers {
		question, ok := cfg[id]
		if !ok {
			continue
		}
		switch {
		case value.IsGroup():
			for partID, partAnswer := range value.Parts {
				if rule, ok := question.Parts[partID]; ok {
					total += scoreRule(rule, partAnswer)
				}
			}
		case question.Rule != nil:
			total += scoreRule(*question.Rule, value.Text)
		}
	}
	return total
}

// scoreRule awards the rule's full point value or nothing. Comparison is an
// ASCII case fold on both sides.
func scoreRule(rule Rule, answer string) int {
	folded := strings.ToLower(answer)
	switch rule.Kind {
	case RuleExact:
		if folded == strings.ToLower(rule.Answer) {
			return rule.Points
		}
	case RuleKeyword:
		for _, keyword := range rule.Keywords {
			if keyword != "" && strings.Contains(folded, strings.ToLower(keyword)) {
				return rule.Points
			}
		}
	}
	return 0
}
