package models

import (
	"encoding/json"
	"strings"
)

// NormalizeAction canonicalizes an action name for condition-map lookups:
// separators are stripped and the remainder is lower-cased, so that
// "create-blog", "createBlog" and "CREATE_BLOG" compare equal.
func NormalizeAction(action string) string {
	replacer := strings.NewReplacer("-", "", "_", "")
	return strings.ToLower(replacer.Replace(action))
}

// RuleKind identifies the condition rule variant.
type RuleKind int

const (
	// RuleFirstTime awards the badge in full on the first occurrence of the
	// action. Only valid on special badges.
	RuleFirstTime RuleKind = iota + 1
	// RuleAccumulation adds PointsPerAction to the badge progress on every
	// qualifying action, optionally capped at ActionCap occurrences. Only
	// valid on points badges.
	RuleAccumulation
)

// Rule is a parsed condition-map entry. The raw catalog stores rules as
// loose JSON objects; they are parsed once at load time and malformed
// entries are dropped so evaluation never branches on ad hoc field names.
type Rule struct {
	Kind            RuleKind
	PointsPerAction int
	ActionCap       int // 0 means uncapped
}

// rawRule covers every spelling found in the catalog. Older entries use
// points/count instead of pointsPerAction/actionCap.
type rawRule struct {
	FirstTime       bool     `json:"firstTime"`
	PointsPerAction *float64 `json:"pointsPerAction"`
	Points          *float64 `json:"points"`
	Point           *float64 `json:"point"`
	ActionCap       *float64 `json:"actionCap"`
	Count           *float64 `json:"count"`
}

func (r *rawRule) pointsPerAction() int {
	for _, v := range []*float64{r.PointsPerAction, r.Points, r.Point} {
		if v != nil {
			return int(*v)
		}
	}
	return 0
}

func (r *rawRule) actionCap() int {
	for _, v := range []*float64{r.ActionCap, r.Count} {
		if v != nil {
			return int(*v)
		}
	}
	return 0
}

// ParseConditionMap parses a badge's raw condition map into rules keyed by
// normalized action name. Entries that do not yield a valid rule for the
// badge kind are skipped; an unparseable document yields an empty map. A
// badge with an empty rule map simply matches no action.
func ParseConditionMap(kind BadgeKind, condition json.RawMessage) map[string]Rule {
	rules := make(map[string]Rule)
	if len(condition) == 0 {
		return rules
	}

	var raw map[string]rawRule
	if err := json.Unmarshal(condition, &raw); err != nil {
		return rules
	}

	for action, entry := range raw {
		key := NormalizeAction(action)
		if key == "" {
			continue
		}

		switch kind {
		case BadgeKindSpecial:
			if entry.FirstTime {
				rules[key] = Rule{Kind: RuleFirstTime}
			}
		case BadgeKindPoints:
			points := entry.pointsPerAction()
			if points <= 0 {
				continue
			}
			limit := entry.actionCap()
			if limit < 0 {
				limit = 0
			}
			rules[key] = Rule{Kind: RuleAccumulation, PointsPerAction: points, ActionCap: limit}
		}
	}

	return rules
}
