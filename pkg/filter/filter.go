// Package filter decides which authors the bot is allowed to answer.
package filter

import "strings"

// DefaultBotSuffix marks accounts that follow the "...bot" naming convention.
const DefaultBotSuffix = "bot"

// DefaultBlocked are known bot accounts that do not follow the suffix rule.
var DefaultBlocked = []string{"petrosianBot", "anarchychess-ai"}

// Filter holds the account name of the bot and its block list.
type Filter struct {
	self    string
	blocked map[string]struct{}
	suffix  string
}

// New creates a filter. An empty suffix falls back to DefaultBotSuffix.
func New(self string, blocked []string, suffix string) *Filter {
	if suffix == "" {
		suffix = DefaultBotSuffix
	}
	set := make(map[string]struct{}, len(blocked))
	for _, name := range blocked {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &Filter{self: self, blocked: set, suffix: suffix}
}

// Self returns the bot's own account name.
func (f *Filter) Self() string {
	return f.self
}

// Eligible reports whether author may receive a reply.
func (f *Filter) Eligible(author string) bool {
	return Eligible(author, f.self, f.blocked, f.suffix)
}

// Eligible is the pure form of Filter.Eligible.
//
// Reddit usernames are case-insensitive, so the self check and the suffix
// check ignore case. Block list entries match exactly.
func Eligible(author, self string, blocked map[string]struct{}, suffix string) bool {
	if author == "" || author == "[deleted]" || author == "[removed]" {
		return false
	}
	if self != "" && strings.EqualFold(author, self) {
		return false
	}
	if suffix != "" && strings.HasSuffix(strings.ToLower(author), strings.ToLower(suffix)) {
		return false
	}
	if _, ok := blocked[author]; ok {
		return false
	}
	return true
}
