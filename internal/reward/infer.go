// Package reward infers the reward category a redemption code grants from
// the text surrounding it.
package reward

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// Rule maps a reward category to the phrases that indicate it. Rules are
// evaluated in list order and the first category with any matching phrase
// wins, so "golden key" must be listed before any bare "key" phrase.
type Rule struct {
	Category string
	Phrases  []string
}

// DefaultRules returns the built-in category priority list.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "golden key", Phrases: []string{
			"golden key", "golden keys", "5 golden keys", "3 golden keys",
			"gold key", "gold keys", "5 keys", "3 keys",
		}},
		{Category: "diamond key", Phrases: []string{"diamond key", "diamond keys"}},
		{Category: "vault card", Phrases: []string{"vault card", "vaultcard"}},
		{Category: "cosmetic", Phrases: []string{
			"cosmetic", "skin", "weapon skin", "head", "appearance", "outfit", "customization",
		}},
		{Category: "weapon", Phrases: []string{"weapon", "gun", "legendary weapon", "rare weapon"}},
		{Category: "eridium", Phrases: []string{"eridium"}},
		{Category: "xp", Phrases: []string{"xp", "experience"}},
		{Category: "event", Phrases: []string{"event", "limited time", "expires"}},
	}
}

// ParseRules parses config entries of the form "category=phrase;phrase".
// Entry order defines match priority.
func ParseRules(entries []string) ([]Rule, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	rules := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		category, rest, ok := strings.Cut(entry, "=")
		category = strings.TrimSpace(category)
		if !ok || category == "" {
			return nil, fmt.Errorf("invalid reward keyword entry %q, want category=phrase;phrase", entry)
		}
		var phrases []string
		for _, p := range strings.Split(rest, ";") {
			if p = strings.TrimSpace(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		if len(phrases) == 0 {
			return nil, fmt.Errorf("reward keyword entry %q has no phrases", entry)
		}
		rules = append(rules, Rule{Category: category, Phrases: phrases})
	}
	return rules, nil
}

const (
	cacheExpiry = time.Hour
	cacheSweep  = 10 * time.Minute
)

// Engine performs deterministic keyword-based reward inference. Results are
// memoized per context string in a process-local expiring cache; the cache
// can be discarded at any time without correctness impact.
type Engine struct {
	rules []Rule
	cache *gocache.Cache
}

// NewEngine builds an engine from the given priority-ordered rules, falling
// back to DefaultRules when none are provided. Matching is case-insensitive.
func NewEngine(rules []Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	lowered := make([]Rule, len(rules))
	for i, r := range rules {
		phrases := make([]string, len(r.Phrases))
		for j, p := range r.Phrases {
			phrases[j] = strings.ToLower(p)
		}
		lowered[i] = Rule{Category: r.Category, Phrases: phrases}
	}
	return &Engine{
		rules: lowered,
		cache: gocache.New(cacheExpiry, cacheSweep),
	}
}

// Infer returns the first category in priority order whose phrases occur in
// the context text, or model.RewardUnknown when nothing matches. It never
// fails on unrecognized text.
func (e *Engine) Infer(context string) string {
	if context == "" {
		return model.RewardUnknown
	}
	if cached, ok := e.cache.Get(context); ok {
		return cached.(string)
	}
	result := e.scan(context)
	e.cache.Set(context, result, gocache.DefaultExpiration)
	return result
}

func (e *Engine) scan(context string) string {
	lower := strings.ToLower(context)
	for _, rule := range e.rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lower, phrase) {
				return rule.Category
			}
		}
	}
	return model.RewardUnknown
}
