package trust

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists contacts, vendor activity and metrics in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const contactColumns = `id, vendor_id, student_id, contacted_at, method, product_id,
	feedback_submitted, response_time, was_helpful, purchase_made, feedback_note, feedback_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var (
		c            Contact
		productID    sql.NullString
		responseTime sql.NullString
		wasHelpful   sql.NullBool
		purchaseMade sql.NullBool
		note         sql.NullString
		feedbackAt   sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.VendorID, &c.StudentID, &c.ContactedAt, &c.Method, &productID,
		&c.FeedbackSubmitted, &responseTime, &wasHelpful, &purchaseMade, &note, &feedbackAt); err != nil {
		return Contact{}, err
	}
	if productID.Valid {
		c.ProductID = &productID.String
	}
	if c.FeedbackSubmitted {
		fb := &Feedback{
			ResponseTime: ResponseBucket(responseTime.String),
			Note:         note.String,
			SubmittedAt:  feedbackAt.Time,
		}
		if wasHelpful.Valid {
			fb.WasHelpful = &wasHelpful.Bool
		}
		if purchaseMade.Valid {
			fb.PurchaseMade = &purchaseMade.Bool
		}
		c.Feedback = fb
	}
	return c, nil
}

func (r *Repository) queryContacts(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// InsertContact appends a contact.
func (r *Repository) InsertContact(ctx context.Context, c Contact) (Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ContactedAt.IsZero() {
		c.ContactedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, vendor_id, student_id, contacted_at, method, product_id, feedback_submitted)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)
	`, c.ID, c.VendorID, c.StudentID, c.ContactedAt, string(c.Method), c.ProductID)
	if err != nil {
		return Contact{}, err
	}
	c.FeedbackSubmitted = false
	c.Feedback = nil
	return c, nil
}

// GetContact returns a single contact by id.
func (r *Repository) GetContact(ctx context.Context, id string) (Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, fmt.Errorf("contact %s: %w", id, ErrNotFound)
		}
		return Contact{}, err
	}
	return c, nil
}

// ListContactsByVendor returns every contact for a vendor.
func (r *Repository) ListContactsByVendor(ctx context.Context, vendorID string) ([]Contact, error) {
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE vendor_id = $1
		ORDER BY contacted_at
	`, vendorID)
}

// ListOpenContactsByStudent returns a student's contacts still awaiting feedback.
func (r *Repository) ListOpenContactsByStudent(ctx context.Context, studentID string) ([]Contact, error) {
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE student_id = $1 AND feedback_submitted = FALSE
		ORDER BY contacted_at DESC
	`, studentID)
}

// AttachFeedback writes the survey answer onto a contact.
func (r *Repository) AttachFeedback(ctx context.Context, contactID string, fb Feedback) error {
	var note any
	if fb.Note != "" {
		note = fb.Note
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET feedback_submitted = TRUE, response_time = $2, was_helpful = $3, purchase_made = $4,
			feedback_note = $5, feedback_at = $6
		WHERE id = $1
	`, contactID, string(fb.ResponseTime), fb.WasHelpful, fb.PurchaseMade, note, fb.SubmittedAt)
	if err != nil {
		return err
	}
	return requireRow(res, "contact", contactID)
}

// GetVendor returns the vendor fields this package uses.
func (r *Repository) GetVendor(ctx context.Context, vendorID string) (Vendor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, last_active, is_active_now, verification_level, is_verified
		FROM vendors WHERE id = $1
	`, vendorID)
	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vendor{}, fmt.Errorf("vendor %s: %w", vendorID, ErrNotFound)
		}
		return Vendor{}, err
	}
	return v, nil
}

func scanVendor(row rowScanner) (Vendor, error) {
	var (
		v          Vendor
		lastActive sql.NullTime
		level      string
	)
	if err := row.Scan(&v.ID, &lastActive, &v.IsActiveNow, &level, &v.IsVerified); err != nil {
		return Vendor{}, err
	}
	if lastActive.Valid {
		t := lastActive.Time
		v.LastActive = &t
	}
	v.VerificationLevel = VerificationLevel(level)
	return v, nil
}

// TouchVendorActivity marks a vendor active at the given time, creating the
// vendor row on first sight.
func (r *Repository) TouchVendorActivity(ctx context.Context, vendorID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendors (id, last_active, is_active_now)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			last_active = EXCLUDED.last_active,
			is_active_now = TRUE,
			updated_at = NOW()
	`, vendorID, at)
	return err
}

// ListActiveVendors returns vendors currently flagged active.
func (r *Repository) ListActiveVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, last_active, is_active_now, verification_level, is_verified
		FROM vendors WHERE is_active_now = TRUE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// MarkVendorInactive clears is_active_now if the vendor is still stale.
func (r *Repository) MarkVendorInactive(ctx context.Context, vendorID string, cutoff time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vendors SET is_active_now = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active_now = TRUE AND (last_active IS NULL OR last_active < $2)
	`, vendorID, cutoff)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetVerificationLevel records an administrator-assigned level.
func (r *Repository) SetVerificationLevel(ctx context.Context, vendorID string, level VerificationLevel) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vendors SET verification_level = $2, updated_at = NOW() WHERE id = $1
	`, vendorID, string(level))
	if err != nil {
		return err
	}
	return requireRow(res, "vendor", vendorID)
}

// SaveMetrics replaces the metrics row and the vendor summary in one transaction.
// The level in summary is only applied as a promotion to pro; the update never
// lowers a level set concurrently by an administrator.
func (r *Repository) SaveMetrics(ctx context.Context, m VendorMetrics, summary VendorSummary) error {
	badges, err := json.Marshal(m.Badges)
	if err != nil {
		return err
	}
	badgeTypes, err := json.Marshal(summary.Badges)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE vendors
		SET trust_score = $2, responsiveness_score = $3, feedback_count = $4, badges = $5,
			verification_level = CASE
				WHEN $6 = 'pro' AND verification_level IN ('', 'none', 'basic', 'verified') THEN 'pro'
				ELSE verification_level
			END,
			metrics_updated_at = $7, updated_at = NOW()
		WHERE id = $1
	`, m.VendorID, summary.TrustScore, summary.ResponsivenessScore, summary.FeedbackCount,
		string(badgeTypes), string(summary.VerificationLevel), summary.UpdatedAt)
	if err != nil {
		return err
	}
	if err := requireRow(res, "vendor", m.VendorID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vendor_metrics (vendor_id, total_contacts, feedback_count, responded_count,
			average_response_minutes, response_rate, helpful_rate, purchase_rate, activity_score,
			responsiveness_score, confidence_factor, trust_score, badges, last_calculated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (vendor_id) DO UPDATE SET
			total_contacts = EXCLUDED.total_contacts,
			feedback_count = EXCLUDED.feedback_count,
			responded_count = EXCLUDED.responded_count,
			average_response_minutes = EXCLUDED.average_response_minutes,
			response_rate = EXCLUDED.response_rate,
			helpful_rate = EXCLUDED.helpful_rate,
			purchase_rate = EXCLUDED.purchase_rate,
			activity_score = EXCLUDED.activity_score,
			responsiveness_score = EXCLUDED.responsiveness_score,
			confidence_factor = EXCLUDED.confidence_factor,
			trust_score = EXCLUDED.trust_score,
			badges = EXCLUDED.badges,
			last_calculated = EXCLUDED.last_calculated
	`, m.VendorID, m.TotalContacts, m.FeedbackCount, m.RespondedCount, m.AverageResponseMinutes,
		m.ResponseRate, m.HelpfulRate, m.PurchaseRate, m.ActivityScore, m.ResponsivenessScore,
		m.ConfidenceFactor, m.TrustScore, string(badges), m.LastCalculated)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetMetrics returns the metrics row, or nil if none exists.
func (r *Repository) GetMetrics(ctx context.Context, vendorID string) (*VendorMetrics, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT vendor_id, total_contacts, feedback_count, responded_count, average_response_minutes,
			response_rate, helpful_rate, purchase_rate, activity_score, responsiveness_score,
			confidence_factor, trust_score, badges, last_calculated
		FROM vendor_metrics WHERE vendor_id = $1
	`, vendorID)
	var (
		m      VendorMetrics
		badges []byte
	)
	if err := row.Scan(&m.VendorID, &m.TotalContacts, &m.FeedbackCount, &m.RespondedCount,
		&m.AverageResponseMinutes, &m.ResponseRate, &m.HelpfulRate, &m.PurchaseRate, &m.ActivityScore,
		&m.ResponsivenessScore, &m.ConfidenceFactor, &m.TrustScore, &badges, &m.LastCalculated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &m.Badges); err != nil {
			return nil, fmt.Errorf("decode badges for %s: %w", vendorID, err)
		}
	}
	return &m, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
