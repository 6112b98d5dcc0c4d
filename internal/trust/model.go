package trust

import "time"

// ContactMethod is how a student reached out to a vendor.
type ContactMethod string

const (
	MethodWhatsApp ContactMethod = "whatsapp"
	MethodCall     ContactMethod = "call"
	MethodOther    ContactMethod = "other"
)

// Valid reports whether m is a known contact method.
func (m ContactMethod) Valid() bool {
	switch m {
	case MethodWhatsApp, MethodCall, MethodOther:
		return true
	}
	return false
}

// ResponseBucket is the student's answer to "how fast did the vendor reply",
// ordered from fastest to no reply at all.
type ResponseBucket string

const (
	BucketUnder30Min ResponseBucket = "under_30min"
	Bucket30MinTo2H  ResponseBucket = "30min_to_2h"
	Bucket2HTo6H     ResponseBucket = "2h_to_6h"
	Bucket6HTo24H    ResponseBucket = "6h_to_24h"
	BucketNoResponse ResponseBucket = "no_response"
)

// Contact is one student reaching out to one vendor.
type Contact struct {
	ID                string        `json:"id"`
	VendorID          string        `json:"vendor_id"`
	StudentID         string        `json:"student_id"`
	ContactedAt       time.Time     `json:"contacted_at"`
	Method            ContactMethod `json:"method"`
	ProductID         *string       `json:"product_id,omitempty"`
	FeedbackSubmitted bool          `json:"feedback_submitted"`
	Feedback          *Feedback     `json:"feedback,omitempty"`
}

// Feedback is the survey answer attached to a contact. Fields are pointers so
// that legacy rows with missing answers read as "no signal" rather than false.
type Feedback struct {
	ResponseTime ResponseBucket `json:"response_time,omitempty"`
	WasHelpful   *bool          `json:"was_helpful,omitempty"`
	PurchaseMade *bool          `json:"purchase_made,omitempty"`
	Note         string         `json:"note,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

// FeedbackInput is what a student submits.
type FeedbackInput struct {
	ResponseTime ResponseBucket `json:"response_time"`
	WasHelpful   *bool          `json:"was_helpful"`
	PurchaseMade *bool          `json:"purchase_made"`
	Note         string         `json:"note"`
}

// VerificationLevel is a vendor's verification tier.
type VerificationLevel string

const (
	LevelNone     VerificationLevel = "none"
	LevelBasic    VerificationLevel = "basic"
	LevelVerified VerificationLevel = "verified"
	LevelPro      VerificationLevel = "pro"
	LevelPremium  VerificationLevel = "premium"
)

var levelRank = map[VerificationLevel]int{
	LevelNone:     0,
	LevelBasic:    1,
	LevelVerified: 2,
	LevelPro:      3,
	LevelPremium:  4,
}

// Rank orders levels; unknown and empty levels rank as none.
func (l VerificationLevel) Rank() int {
	return levelRank[l]
}

// Valid reports whether l is a known level.
func (l VerificationLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Vendor is the slice of the vendor profile this package reads and writes.
type Vendor struct {
	ID                string            `json:"id"`
	LastActive        *time.Time        `json:"last_active,omitempty"`
	IsActiveNow       bool              `json:"is_active_now"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	IsVerified        bool              `json:"is_verified"`
	Summary           *VendorSummary    `json:"summary,omitempty"`
}

// VendorSummary is the denormalized copy of the metrics kept on the vendor
// profile for list and search views. It is derived from VendorMetrics and
// never read back as a source.
type VendorSummary struct {
	TrustScore          float64           `json:"trust_score"`
	ResponsivenessScore float64           `json:"responsiveness_score"`
	FeedbackCount       int               `json:"feedback_count"`
	Badges              []BadgeType       `json:"badges"`
	VerificationLevel   VerificationLevel `json:"verification_level"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// VendorMetrics is the full derived record for one vendor.
type VendorMetrics struct {
	VendorID               string    `json:"vendor_id"`
	TotalContacts          int       `json:"total_contacts"`
	FeedbackCount          int       `json:"feedback_count"`
	RespondedCount         int       `json:"responded_count"`
	AverageResponseMinutes float64   `json:"average_response_minutes"`
	ResponseRate           float64   `json:"response_rate"`
	HelpfulRate            float64   `json:"helpful_rate"`
	PurchaseRate           float64   `json:"purchase_rate"`
	ActivityScore          float64   `json:"activity_score"`
	ResponsivenessScore    float64   `json:"responsiveness_score"`
	ConfidenceFactor       float64   `json:"confidence_factor"`
	TrustScore             float64   `json:"trust_score"`
	Badges                 []Badge   `json:"badges"`
	LastCalculated         time.Time `json:"last_calculated"`
}

// Summary derives the profile copy of m.
func (m VendorMetrics) Summary(level VerificationLevel) VendorSummary {
	types := make([]BadgeType, 0, len(m.Badges))
	for _, b := range m.Badges {
		types = append(types, b.Type)
	}
	return VendorSummary{
		TrustScore:          m.TrustScore,
		ResponsivenessScore: m.ResponsivenessScore,
		FeedbackCount:       m.FeedbackCount,
		Badges:              types,
		VerificationLevel:   level,
		UpdatedAt:           m.LastCalculated,
	}
}
