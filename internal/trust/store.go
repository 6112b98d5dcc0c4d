package trust

import (
	"context"
	"time"
)

// Store is the persistence the engine needs. Implementations must return
// ErrNotFound (possibly wrapped) for missing contacts and vendors.
type Store interface {
	InsertContact(ctx context.Context, c Contact) (Contact, error)
	GetContact(ctx context.Context, id string) (Contact, error)
	ListContactsByVendor(ctx context.Context, vendorID string) ([]Contact, error)
	// ListOpenContactsByStudent returns the student's contacts without feedback.
	ListOpenContactsByStudent(ctx context.Context, studentID string) ([]Contact, error)
	AttachFeedback(ctx context.Context, contactID string, fb Feedback) error

	GetVendor(ctx context.Context, vendorID string) (Vendor, error)
	// TouchVendorActivity upserts: a vendor is created the first time it is seen.
	TouchVendorActivity(ctx context.Context, vendorID string, at time.Time) error
	ListActiveVendors(ctx context.Context) ([]Vendor, error)
	// MarkVendorInactive flips is-active-now off only if the vendor is still
	// active and was last active before cutoff. It reports whether it did.
	MarkVendorInactive(ctx context.Context, vendorID string, cutoff time.Time) (bool, error)
	SetVerificationLevel(ctx context.Context, vendorID string, level VerificationLevel) error

	// SaveMetrics replaces the metrics record and the profile summary together.
	SaveMetrics(ctx context.Context, m VendorMetrics, summary VendorSummary) error
	// GetMetrics returns nil when the vendor has no metrics record.
	GetMetrics(ctx context.Context, vendorID string) (*VendorMetrics, error)
}

// MetricsCache fronts GetMetrics reads. Errors are reported but never fatal.
// Writers invalidate and readers refill, so an entry can only be as stale as a
// read that raced a recompute, and never older than the cache TTL.
type MetricsCache interface {
	Get(ctx context.Context, vendorID string) (*VendorMetrics, error)
	Put(ctx context.Context, m VendorMetrics) error
	Delete(ctx context.Context, vendorID string) error
}
