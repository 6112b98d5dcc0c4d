package trust

import (
	"math"
	"time"
)

// Scoring weights. These are policy, not configuration.
const (
	speedWeight    = 0.4
	rateWeight     = 0.4
	activityWeight = 0.2

	responsivenessWeight = 0.4
	helpfulWeight        = 0.3
	purchaseWeight       = 0.3

	// fullConfidenceFeedback is the feedback count at which the confidence
	// factor saturates at 1.
	fullConfidenceFeedback = 10

	autoProTrustScore    = 90
	autoProFeedbackCount = 10
)

var bucketMinutes = map[ResponseBucket]float64{
	BucketUnder30Min: 15,
	Bucket30MinTo2H:  75,
	Bucket2HTo6H:     240,
	Bucket6HTo24H:    900,
	BucketNoResponse: 2160,
}

// Valid reports whether b is a known bucket.
func (b ResponseBucket) Valid() bool {
	_, ok := bucketMinutes[b]
	return ok
}

// Minutes returns the representative response time for b.
func (b ResponseBucket) Minutes() (float64, bool) {
	m, ok := bucketMinutes[b]
	return m, ok
}

type step struct {
	below float64
	score float64
}

// minutes since last active
var activitySteps = []step{
	{30, 100},
	{2 * 60, 80},
	{24 * 60, 60},
	{3 * 24 * 60, 40},
}

// average response minutes
var speedSteps = []step{
	{30, 100},
	{2 * 60, 80},
	{6 * 60, 60},
	{24 * 60, 40},
}

const staircaseFloor = 20

func staircase(steps []step, v float64) float64 {
	for _, s := range steps {
		if v < s.below {
			return s.score
		}
	}
	return staircaseFloor
}

// ActivityScore buckets the time since the vendor was last active.
// A vendor that has never been active scores 0.
func ActivityScore(lastActive *time.Time, now time.Time) float64 {
	if lastActive == nil || lastActive.IsZero() {
		return 0
	}
	mins := now.Sub(*lastActive).Minutes()
	if mins < 0 {
		mins = 0
	}
	return staircase(activitySteps, mins)
}

// SpeedScore buckets an average response time. With no responders there is
// nothing to average and the score is 0.
func SpeedScore(avgMinutes float64, responders int) float64 {
	if responders == 0 {
		return 0
	}
	return staircase(speedSteps, avgMinutes)
}

// ConfidenceFactor ramps linearly to 1 at fullConfidenceFeedback.
func ConfidenceFactor(feedbackCount int) float64 {
	return math.Min(float64(feedbackCount)/fullConfidenceFeedback, 1)
}

// Stats is the full-precision statistics snapshot badge and promotion rules
// are evaluated against. Rounding happens only in Metrics.
type Stats struct {
	TotalContacts          int
	FeedbackCount          int
	RespondedCount         int
	AverageResponseMinutes float64
	ResponseRate           float64
	HelpfulRate            float64
	PurchaseRate           float64
	ActivityScore          float64
	ResponsivenessScore    float64
	ConfidenceFactor       float64
	TrustScore             float64
	IsVerified             bool
}

// ComputeStats derives the statistics for a vendor from its full contact set.
//
// Only contacts with feedback submitted count towards the rates. Within those,
// each rate uses its own denominator: a feedback missing a field gives no
// signal for that field. no_response feedback counts against the response rate
// but is left out of the response-time average.
func ComputeStats(contacts []Contact, vendor Vendor, now time.Time) Stats {
	var st Stats
	var bucketed, helpfulKnown, buyKnown, helpful, bought int
	var minutesSum float64

	st.TotalContacts = len(contacts)
	st.IsVerified = vendor.IsVerified

	for _, c := range contacts {
		if !c.FeedbackSubmitted || c.Feedback == nil {
			continue
		}
		st.FeedbackCount++
		fb := c.Feedback

		if mins, ok := fb.ResponseTime.Minutes(); ok {
			bucketed++
			if fb.ResponseTime != BucketNoResponse {
				st.RespondedCount++
				minutesSum += mins
			}
		}
		if fb.WasHelpful != nil {
			helpfulKnown++
			if *fb.WasHelpful {
				helpful++
			}
		}
		if fb.PurchaseMade != nil {
			buyKnown++
			if *fb.PurchaseMade {
				bought++
			}
		}
	}

	if st.RespondedCount > 0 {
		st.AverageResponseMinutes = minutesSum / float64(st.RespondedCount)
	}
	st.ResponseRate = percent(st.RespondedCount, bucketed)
	st.HelpfulRate = percent(helpful, helpfulKnown)
	st.PurchaseRate = percent(bought, buyKnown)
	st.ActivityScore = ActivityScore(vendor.LastActive, now)

	speed := SpeedScore(st.AverageResponseMinutes, st.RespondedCount)
	st.ResponsivenessScore = speed*speedWeight + st.ResponseRate*rateWeight + st.ActivityScore*activityWeight

	st.ConfidenceFactor = ConfidenceFactor(st.FeedbackCount)
	base := st.ResponsivenessScore*responsivenessWeight + st.HelpfulRate*helpfulWeight + st.PurchaseRate*purchaseWeight
	st.TrustScore = base * st.ConfidenceFactor

	return st
}

// Calculate builds the metrics record for a vendor. It returns false when the
// vendor has no feedback yet, in which case nothing should be written.
func Calculate(vendor Vendor, contacts []Contact, now time.Time) (VendorMetrics, bool) {
	st := ComputeStats(contacts, vendor, now)
	if st.FeedbackCount == 0 {
		return VendorMetrics{}, false
	}
	return st.Metrics(vendor.ID, now), true
}

// Metrics rounds s into the stored record. Badges are evaluated on the
// unrounded values so a rate just under a threshold never earns it.
func (s Stats) Metrics(vendorID string, now time.Time) VendorMetrics {
	return VendorMetrics{
		VendorID:               vendorID,
		TotalContacts:          s.TotalContacts,
		FeedbackCount:          s.FeedbackCount,
		RespondedCount:         s.RespondedCount,
		AverageResponseMinutes: round1(s.AverageResponseMinutes),
		ResponseRate:           round1(s.ResponseRate),
		HelpfulRate:            round1(s.HelpfulRate),
		PurchaseRate:           round1(s.PurchaseRate),
		ActivityScore:          s.ActivityScore,
		ResponsivenessScore:    round1(s.ResponsivenessScore),
		ConfidenceFactor:       math.Round(s.ConfidenceFactor*100) / 100,
		TrustScore:             round1(s.TrustScore),
		Badges:                 EvaluateBadges(s, now),
		LastCalculated:         now,
	}
}

// PromotedLevel returns the verification level a vendor should hold after a
// recompute. Auto-promotion only ever raises a level to pro; a level an
// administrator set at or above pro is left alone.
func PromotedLevel(current VerificationLevel, s Stats) VerificationLevel {
	if s.TrustScore >= autoProTrustScore && s.FeedbackCount >= autoProFeedbackCount && current.Rank() < LevelPro.Rank() {
		return LevelPro
	}
	return current
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	// Multiply first so whole percentages come out exact.
	return float64(n) * 100 / float64(d)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
