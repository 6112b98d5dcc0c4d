package trust

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed Store for dev and tests.
type MemoryStore struct {
	mu       sync.Mutex
	contacts map[string]Contact
	vendors  map[string]Vendor
	metrics  map[string]VendorMetrics
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]Contact),
		vendors:  make(map[string]Vendor),
		metrics:  make(map[string]VendorMetrics),
	}
}

// PutVendor creates or replaces a vendor profile.
func (s *MemoryStore) PutVendor(v Vendor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.VerificationLevel == "" {
		v.VerificationLevel = LevelNone
	}
	s.vendors[v.ID] = cloneVendor(v)
}

// InsertContact appends a contact.
func (s *MemoryStore) InsertContact(_ context.Context, c Contact) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ContactedAt.IsZero() {
		c.ContactedAt = time.Now().UTC()
	}
	c.FeedbackSubmitted = false
	c.Feedback = nil
	s.contacts[c.ID] = c
	return c, nil
}

// GetContact returns a single contact by id.
func (s *MemoryStore) GetContact(_ context.Context, id string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return Contact{}, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return cloneContact(c), nil
}

// ListContactsByVendor returns every contact for a vendor, oldest first.
func (s *MemoryStore) ListContactsByVendor(_ context.Context, vendorID string) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Contact
	for _, c := range s.contacts {
		if c.VendorID == vendorID {
			res = append(res, cloneContact(c))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ContactedAt.Before(res[j].ContactedAt) })
	return res, nil
}

// ListOpenContactsByStudent returns a student's contacts awaiting feedback, newest first.
func (s *MemoryStore) ListOpenContactsByStudent(_ context.Context, studentID string) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Contact
	for _, c := range s.contacts {
		if c.StudentID == studentID && !c.FeedbackSubmitted {
			res = append(res, cloneContact(c))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ContactedAt.After(res[j].ContactedAt) })
	return res, nil
}

// AttachFeedback writes the survey answer onto a contact.
func (s *MemoryStore) AttachFeedback(_ context.Context, contactID string, fb Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}
	c.FeedbackSubmitted = true
	c.Feedback = cloneFeedback(&fb)
	s.contacts[contactID] = c
	return nil
}

// GetVendor returns a vendor profile.
func (s *MemoryStore) GetVendor(_ context.Context, vendorID string) (Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return Vendor{}, fmt.Errorf("vendor %s: %w", vendorID, ErrNotFound)
	}
	return cloneVendor(v), nil
}

// TouchVendorActivity marks a vendor active at the given time, creating the
// vendor on first sight.
func (s *MemoryStore) TouchVendorActivity(_ context.Context, vendorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		v = Vendor{ID: vendorID, VerificationLevel: LevelNone}
	}
	v.LastActive = &at
	v.IsActiveNow = true
	s.vendors[vendorID] = v
	return nil
}

// ListActiveVendors returns vendors currently flagged active.
func (s *MemoryStore) ListActiveVendors(_ context.Context) ([]Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Vendor
	for _, v := range s.vendors {
		if v.IsActiveNow {
			res = append(res, cloneVendor(v))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// MarkVendorInactive clears IsActiveNow if the vendor is still stale.
func (s *MemoryStore) MarkVendorInactive(_ context.Context, vendorID string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return false, fmt.Errorf("vendor %s: %w", vendorID, ErrNotFound)
	}
	if !v.IsActiveNow || (v.LastActive != nil && !v.LastActive.Before(cutoff)) {
		return false, nil
	}
	v.IsActiveNow = false
	s.vendors[vendorID] = v
	return true, nil
}

// SetVerificationLevel records an administrator-assigned level.
func (s *MemoryStore) SetVerificationLevel(_ context.Context, vendorID string, level VerificationLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return fmt.Errorf("vendor %s: %w", vendorID, ErrNotFound)
	}
	v.VerificationLevel = level
	s.vendors[vendorID] = v
	return nil
}

// SaveMetrics replaces the metrics record and the vendor summary together.
func (s *MemoryStore) SaveMetrics(_ context.Context, m VendorMetrics, summary VendorSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[m.VendorID]
	if !ok {
		return fmt.Errorf("vendor %s: %w", m.VendorID, ErrNotFound)
	}
	if summary.VerificationLevel == LevelPro && v.VerificationLevel.Rank() < LevelPro.Rank() {
		v.VerificationLevel = LevelPro
	}
	summary.VerificationLevel = v.VerificationLevel
	summary.Badges = append([]BadgeType(nil), summary.Badges...)
	v.Summary = &summary
	s.vendors[m.VendorID] = v
	m.Badges = append([]Badge(nil), m.Badges...)
	s.metrics[m.VendorID] = m
	return nil
}

// GetMetrics returns the metrics record, or nil if none exists.
func (s *MemoryStore) GetMetrics(_ context.Context, vendorID string) (*VendorMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[vendorID]
	if !ok {
		return nil, nil
	}
	m.Badges = append([]Badge(nil), m.Badges...)
	return &m, nil
}

func cloneContact(c Contact) Contact {
	if c.ProductID != nil {
		p := *c.ProductID
		c.ProductID = &p
	}
	c.Feedback = cloneFeedback(c.Feedback)
	return c
}

func cloneFeedback(fb *Feedback) *Feedback {
	if fb == nil {
		return nil
	}
	out := *fb
	if fb.WasHelpful != nil {
		b := *fb.WasHelpful
		out.WasHelpful = &b
	}
	if fb.PurchaseMade != nil {
		b := *fb.PurchaseMade
		out.PurchaseMade = &b
	}
	return &out
}

func cloneVendor(v Vendor) Vendor {
	if v.LastActive != nil {
		t := *v.LastActive
		v.LastActive = &t
	}
	if v.Summary != nil {
		s := *v.Summary
		s.Badges = append([]BadgeType(nil), s.Badges...)
		v.Summary = &s
	}
	return v
}
