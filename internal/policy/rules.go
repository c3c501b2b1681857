package policy

import (
	"regexp"
	"strings"
)

// EvaluateRules checks text against a rule set. This is pure domain logic:
// no I/O, no side effects, deterministic for a given rule set.
//
// Blocked phrases and watch phrases use case-insensitive substring
// containment. Blocked regex entries are compiled case-insensitively; an
// entry that fails to compile is downgraded to an invalid_rule_regex
// warning, never a failure.
func EvaluateRules(text string, rules Rules) RuleFlags {
	flags := RuleFlags{HardBlocks: []string{}, Warnings: []string{}}
	lower := strings.ToLower(text)

	for _, phrase := range rules.BlockedPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			flags.HardBlocks = append(flags.HardBlocks, "blocked_phrase:"+phrase)
		}
	}

	for _, phrase := range rules.WatchPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			flags.Warnings = append(flags.Warnings, "watch_phrase:"+phrase)
		}
	}

	for _, expr := range rules.BlockedRegex {
		if expr == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			flags.Warnings = append(flags.Warnings, "invalid_rule_regex:"+expr)
			continue
		}
		if re.MatchString(text) {
			flags.HardBlocks = append(flags.HardBlocks, "blocked_regex:"+expr)
		}
	}

	return flags
}
