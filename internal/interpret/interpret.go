// Package interpret turns free-text model output into game actions and
// reflections. Every function here is total: malformed input resolves to a
// default rather than an error.
package interpret

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// NoReflection is returned by ParseReflection for empty responses.
const NoReflection = "no reflection provided"

var (
	actionTag     = regexp.MustCompile(`(?is)<action>(.*?)</action>`)
	reflectionTag = regexp.MustCompile(`(?is)<reflection>(.*?)</reflection>`)
)

// Match records which step of the cascade resolved an action.
type Match int

const (
	// MatchExact means the tagged text equalled a vocabulary entry.
	MatchExact Match = iota
	// MatchFuzzy means the tagged text and an entry contained one another.
	MatchFuzzy
	// MatchMention means an entry appeared somewhere in the full text.
	MatchMention
	// MatchDefault means nothing matched and the first entry was used.
	MatchDefault
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	case MatchMention:
		return "mention"
	case MatchDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Action resolves text to a member of vocabulary and reports how.
//
// The cascade is: tagged exact match, tagged fuzzy match, first vocabulary
// entry mentioned anywhere in the text, then the first vocabulary entry. An
// empty vocabulary yields "".
func Action(text string, vocabulary []string) (string, Match) {
	if len(vocabulary) == 0 {
		return "", MatchDefault
	}
	if strings.TrimSpace(text) == "" {
		return vocabulary[0], MatchDefault
	}

	if m := actionTag.FindStringSubmatch(text); m != nil {
		// An empty tag is contained in every entry and so resolves
		// fuzzily to the first one.
		chosen := strings.ToLower(strings.TrimSpace(m[1]))
		for _, v := range vocabulary {
			if strings.ToLower(v) == chosen {
				return v, MatchExact
			}
		}
		for _, v := range vocabulary {
			lv := strings.ToLower(v)
			if strings.Contains(chosen, lv) || strings.Contains(lv, chosen) {
				return v, MatchFuzzy
			}
		}
	}

	lower := strings.ToLower(text)
	for _, v := range vocabulary {
		if strings.Contains(lower, strings.ToLower(v)) {
			return v, MatchMention
		}
	}
	return vocabulary[0], MatchDefault
}

// ParseAction resolves text to a member of vocabulary.
func ParseAction(text string, vocabulary []string) string {
	action, _ := Action(text, vocabulary)
	return action
}

// ParseReflection returns NoReflection for empty text, the tagged reflection
// when there is a tag, and the whole trimmed text otherwise. Whitespace-only
// text therefore yields "".
func ParseReflection(text string) string {
	if text == "" {
		return NoReflection
	}
	if m := reflectionTag.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Interpreter wraps the parse functions with observability warnings.
type Interpreter struct {
	logger *log.Logger
}

// New creates an interpreter that logs parse fallbacks to logger.
func New(logger *log.Logger) *Interpreter {
	return &Interpreter{logger: logger.WithPrefix("interpret")}
}

// Action resolves text like the package-level Action and warns when the
// result came from anything looser than an exact tagged match.
func (in *Interpreter) Action(agent, text string, vocabulary []string) (string, Match) {
	action, match := Action(text, vocabulary)
	switch match {
	case MatchExact:
		in.logger.Debug("Parsed action", "agent", agent, "action", action)
	case MatchDefault:
		if strings.TrimSpace(text) == "" {
			in.logger.Warn("Empty response, using default action", "agent", agent, "action", action)
		} else {
			in.logger.Warn("No action found in response, using default action", "agent", agent, "action", action, "vocabulary", vocabulary)
		}
	default:
		in.logger.Warn("Action resolved loosely", "agent", agent, "action", action, "match", match)
	}
	return action, match
}

// Reflection parses a reflection and warns when the response was empty.
func (in *Interpreter) Reflection(agent, text string) string {
	reflection := ParseReflection(text)
	if strings.TrimSpace(text) == "" {
		in.logger.Warn("Empty reflection response", "agent", agent)
	}
	return reflection
}
