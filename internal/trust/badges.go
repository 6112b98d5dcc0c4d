package trust

import "time"

// BadgeType identifies a badge.
type BadgeType string

const (
	BadgeQuickResponder BadgeType = "quick_responder"
	BadgeTopRated       BadgeType = "top_rated"
	BadgeHelpful        BadgeType = "helpful"
	BadgeTrustedSeller  BadgeType = "trusted_seller"
	BadgeAlwaysActive   BadgeType = "always_active"
	BadgeVerified       BadgeType = "verified"
)

// Badge is a recognition earned in the current metrics snapshot.
type Badge struct {
	Type     BadgeType `json:"type"`
	Label    string    `json:"label"`
	Icon     string    `json:"icon"`
	Color    string    `json:"color"`
	Criteria string    `json:"criteria"`
	EarnedAt time.Time `json:"earned_at"`
}

// BadgeRule is one badge and the predicate that awards it.
type BadgeRule struct {
	Type     BadgeType
	Label    string
	Icon     string
	Color    string
	Criteria string
	Earned   func(Stats) bool
}

// BadgeRules is the closed set of badges, in display order.
var BadgeRules = []BadgeRule{
	{
		Type:     BadgeQuickResponder,
		Label:    "Quick Responder",
		Icon:     "zap",
		Color:    "yellow",
		Criteria: "Average reply under 30 minutes, over 80% response rate, at least 5 reviews",
		Earned: func(s Stats) bool {
			return s.RespondedCount > 0 && s.AverageResponseMinutes < 30 && s.ResponseRate > 80 && s.FeedbackCount >= 5
		},
	},
	{
		Type:     BadgeTopRated,
		Label:    "Top Rated",
		Icon:     "star",
		Color:    "gold",
		Criteria: "Trust score above 80 with at least 10 reviews",
		Earned: func(s Stats) bool {
			return s.TrustScore > 80 && s.FeedbackCount >= 10
		},
	},
	{
		Type:     BadgeHelpful,
		Label:    "Super Helpful",
		Icon:     "thumbs-up",
		Color:    "green",
		Criteria: "At least 90% of students found the vendor helpful, at least 5 reviews",
		Earned: func(s Stats) bool {
			return s.HelpfulRate >= 90 && s.FeedbackCount >= 5
		},
	},
	{
		Type:     BadgeTrustedSeller,
		Label:    "Trusted Seller",
		Icon:     "shopping-bag",
		Color:    "blue",
		Criteria: "At least 60% of contacts led to a purchase, at least 10 reviews",
		Earned: func(s Stats) bool {
			return s.PurchaseRate >= 60 && s.FeedbackCount >= 10
		},
	},
	{
		Type:     BadgeAlwaysActive,
		Label:    "Always Active",
		Icon:     "activity",
		Color:    "purple",
		Criteria: "Active within the last 2 hours with at least 90% response rate, at least 5 reviews",
		Earned: func(s Stats) bool {
			return s.ActivityScore >= 80 && s.ResponseRate >= 90 && s.FeedbackCount >= 5
		},
	},
	{
		Type:     BadgeVerified,
		Label:    "Verified",
		Icon:     "shield-check",
		Color:    "teal",
		Criteria: "Identity verified by the marketplace",
		Earned: func(s Stats) bool {
			return s.IsVerified
		},
	},
}

// EvaluateBadges returns every badge whose rule holds for s, stamped with at.
func EvaluateBadges(s Stats, at time.Time) []Badge {
	out := make([]Badge, 0, len(BadgeRules))
	for _, r := range BadgeRules {
		if !r.Earned(s) {
			continue
		}
		out = append(out, Badge{
			Type:     r.Type,
			Label:    r.Label,
			Icon:     r.Icon,
			Color:    r.Color,
			Criteria: r.Criteria,
			EarnedAt: at,
		})
	}
	return out
}
