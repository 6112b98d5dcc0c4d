package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"marketplace/internal/logger"
	"marketplace/internal/metrics"
)

const (
	defaultFeedbackDwell       = 2 * time.Hour
	DefaultInactivityThreshold = 15 * time.Minute
	maxNoteLength              = 1000
)

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Cache   MetricsCache
	Logger  *logger.Logger
	Metrics *metrics.Collector
	Now     func() time.Time
	// FeedbackDwell is how long after a contact feedback may be solicited.
	FeedbackDwell time.Duration
}

// Service coordinates the contact ledger, feedback, activity and scoring.
type Service struct {
	store         Store
	cache         MetricsCache
	log           *logger.Logger
	metrics       *metrics.Collector
	now           func() time.Time
	feedbackDwell time.Duration
}

// NewService creates a service backed by a store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:         store,
		cache:         opts.Cache,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		now:           opts.Now,
		feedbackDwell: opts.FeedbackDwell,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector(prometheus.NewRegistry())
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.feedbackDwell <= 0 {
		s.feedbackDwell = defaultFeedbackDwell
	}
	return s
}

// LogContact records a student reaching out to a vendor. It never triggers scoring.
func (s *Service) LogContact(ctx context.Context, vendorID, studentID string, method ContactMethod, productID string) (Contact, error) {
	vendorID = strings.TrimSpace(vendorID)
	studentID = strings.TrimSpace(studentID)
	if vendorID == "" || studentID == "" {
		return Contact{}, fmt.Errorf("vendor and student required: %w", ErrValidation)
	}
	if method == "" {
		method = MethodWhatsApp
	}
	if !method.Valid() {
		return Contact{}, fmt.Errorf("unknown contact method %q: %w", method, ErrValidation)
	}

	c := Contact{
		VendorID:    vendorID,
		StudentID:   studentID,
		ContactedAt: s.now().UTC(),
		Method:      method,
	}
	if p := strings.TrimSpace(productID); p != "" {
		c.ProductID = &p
	}
	c, err := s.store.InsertContact(ctx, c)
	if err != nil {
		return Contact{}, err
	}
	s.metrics.ContactsLogged.WithLabelValues(string(method)).Inc()
	return c, nil
}

// GetContact returns a contact by id.
func (s *Service) GetContact(ctx context.Context, contactID string) (Contact, error) {
	return s.store.GetContact(ctx, contactID)
}

// ListContactsForVendor returns every contact logged against a vendor.
func (s *Service) ListContactsForVendor(ctx context.Context, vendorID string) ([]Contact, error) {
	return s.store.ListContactsByVendor(ctx, vendorID)
}

// GetPendingFeedbackFor returns the student's contacts that still lack
// feedback and are old enough for a real interaction to have happened.
func (s *Service) GetPendingFeedbackFor(ctx context.Context, studentID string) ([]Contact, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, fmt.Errorf("student required: %w", ErrValidation)
	}
	open, err := s.store.ListOpenContactsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	pending := make([]Contact, 0, len(open))
	for _, c := range open {
		if c.FeedbackSubmitted {
			continue
		}
		if now.Sub(c.ContactedAt) >= s.feedbackDwell {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// SubmitResult is the outcome of a feedback submission. Metrics is nil and
// Warning set when the follow-up recompute failed; the feedback is stored
// either way.
type SubmitResult struct {
	Contact Contact        `json:"contact"`
	Metrics *VendorMetrics `json:"metrics,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// SubmitFeedback attaches a survey answer to a contact and recomputes the
// owning vendor's metrics.
func (s *Service) SubmitFeedback(ctx context.Context, contactID string, in FeedbackInput) (SubmitResult, error) {
	if err := validateFeedback(in); err != nil {
		return SubmitResult{}, err
	}
	c, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return SubmitResult{}, err
	}

	fb := Feedback{
		ResponseTime: in.ResponseTime,
		WasHelpful:   in.WasHelpful,
		PurchaseMade: in.PurchaseMade,
		Note:         strings.TrimSpace(in.Note),
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.store.AttachFeedback(ctx, c.ID, fb); err != nil {
		return SubmitResult{}, err
	}
	s.metrics.FeedbackSubmitted.Inc()
	c.FeedbackSubmitted = true
	c.Feedback = &fb

	res := SubmitResult{Contact: c}
	m, err := s.RecomputeMetrics(ctx, c.VendorID)
	if err != nil {
		s.log.Warn("metrics recompute after feedback failed", "vendor_id", c.VendorID, "contact_id", c.ID, "error", err)
		res.Warning = "feedback saved; vendor score will update later"
		return res, nil
	}
	res.Metrics = m
	return res, nil
}

func validateFeedback(in FeedbackInput) error {
	var missing []string
	if in.ResponseTime == "" {
		missing = append(missing, "response_time")
	}
	if in.WasHelpful == nil {
		missing = append(missing, "was_helpful")
	}
	if in.PurchaseMade == nil {
		missing = append(missing, "purchase_made")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrValidation)
	}
	if !in.ResponseTime.Valid() {
		return fmt.Errorf("unknown response time %q: %w", in.ResponseTime, ErrValidation)
	}
	if len(in.Note) > maxNoteLength {
		return fmt.Errorf("note longer than %d characters: %w", maxNoteLength, ErrValidation)
	}
	return nil
}

// RecordActivity marks the vendor active now.
func (s *Service) RecordActivity(ctx context.Context, vendorID string) error {
	if strings.TrimSpace(vendorID) == "" {
		return fmt.Errorf("vendor required: %w", ErrValidation)
	}
	return s.store.TouchVendorActivity(ctx, vendorID, s.now().UTC())
}

// SweepInactive clears the active-now flag on vendors idle for longer than
// threshold and returns how many were updated. A failure on one vendor does
// not stop the scan; failures are joined into the returned error.
func (s *Service) SweepInactive(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = DefaultInactivityThreshold
	}
	cutoff := s.now().UTC().Add(-threshold)

	active, err := s.store.ListActiveVendors(ctx)
	if err != nil {
		return 0, err
	}

	var (
		updated int
		errs    []error
	)
	for _, v := range active {
		if v.LastActive != nil && !v.LastActive.Before(cutoff) {
			continue
		}
		ok, err := s.store.MarkVendorInactive(ctx, v.ID, cutoff)
		if err != nil {
			s.metrics.SweepFailures.Inc()
			s.log.Warn("sweep: mark inactive failed", "vendor_id", v.ID, "error", err)
			errs = append(errs, fmt.Errorf("vendor %s: %w", v.ID, err))
			continue
		}
		if ok {
			updated++
		}
	}
	s.metrics.SweepDeactivated.Add(float64(updated))
	if updated > 0 || len(errs) > 0 {
		s.log.Info("inactivity sweep finished", "scanned", len(active), "deactivated", updated, "failed", len(errs))
	}
	return updated, errors.Join(errs...)
}

// RecomputeMetrics rebuilds a vendor's metrics from its full contact set and
// replaces the stored record. It returns nil metrics, and writes nothing,
// when the vendor has no feedback yet.
func (s *Service) RecomputeMetrics(ctx context.Context, vendorID string) (*VendorMetrics, error) {
	timer := prometheus.NewTimer(s.metrics.RecomputeDuration)
	defer timer.ObserveDuration()

	m, err := s.recompute(ctx, vendorID)
	if err != nil {
		s.metrics.RecomputeFailures.Inc()
		s.log.Error("metrics recompute failed", "vendor_id", vendorID, "error", err)
		return nil, err
	}
	return m, nil
}

func (s *Service) recompute(ctx context.Context, vendorID string) (*VendorMetrics, error) {
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.ListContactsByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	now := s.now().UTC()
	st := ComputeStats(contacts, vendor, now)
	if st.FeedbackCount == 0 {
		s.metrics.RecomputeSkipped.Inc()
		return nil, nil
	}
	m := st.Metrics(vendor.ID, now)

	level := PromotedLevel(vendor.VerificationLevel, st)
	if err := s.store.SaveMetrics(ctx, m, m.Summary(level)); err != nil {
		return nil, fmt.Errorf("save metrics: %w", err)
	}
	s.metrics.TrustScore.Observe(m.TrustScore)
	if level != vendor.VerificationLevel {
		s.log.Info("vendor auto-promoted", "vendor_id", vendorID, "from", vendor.VerificationLevel, "to", level)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, vendorID); err != nil {
			s.log.Warn("metrics cache invalidate failed", "vendor_id", vendorID, "error", err)
		}
	}
	return &m, nil
}

// GetVendorMetrics returns the stored metrics, or nil for a vendor that has
// none yet.
func (s *Service) GetVendorMetrics(ctx context.Context, vendorID string) (*VendorMetrics, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, vendorID)
		if err != nil {
			s.log.Warn("metrics cache get failed", "vendor_id", vendorID, "error", err)
		} else if m != nil {
			return m, nil
		}
	}
	m, err := s.store.GetMetrics(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if m != nil && s.cache != nil {
		if err := s.cache.Put(ctx, *m); err != nil {
			s.log.Warn("metrics cache put failed", "vendor_id", vendorID, "error", err)
		}
	}
	return m, nil
}

// SetVerificationLevel applies an administrator-assigned verification level.
func (s *Service) SetVerificationLevel(ctx context.Context, vendorID string, level VerificationLevel) error {
	if !level.Valid() {
		return fmt.Errorf("unknown verification level %q: %w", level, ErrValidation)
	}
	return s.store.SetVerificationLevel(ctx, vendorID, level)
}
