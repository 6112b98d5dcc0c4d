package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS vendors (
	id                   TEXT PRIMARY KEY,
	last_active          TIMESTAMPTZ,
	is_active_now        BOOLEAN NOT NULL DEFAULT FALSE,
	verification_level   TEXT NOT NULL DEFAULT 'none',
	is_verified          BOOLEAN NOT NULL DEFAULT FALSE,
	trust_score          DOUBLE PRECISION,
	responsiveness_score DOUBLE PRECISION,
	feedback_count       INTEGER NOT NULL DEFAULT 0,
	badges               JSONB NOT NULL DEFAULT '[]',
	metrics_updated_at   TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vendors_active ON vendors(is_active_now) WHERE is_active_now;

CREATE TABLE IF NOT EXISTS contacts (
	id                 TEXT PRIMARY KEY,
	vendor_id          TEXT NOT NULL,
	student_id         TEXT NOT NULL,
	contacted_at       TIMESTAMPTZ NOT NULL,
	method             TEXT NOT NULL DEFAULT 'whatsapp',
	product_id         TEXT,
	feedback_submitted BOOLEAN NOT NULL DEFAULT FALSE,
	response_time      TEXT,
	was_helpful        BOOLEAN,
	purchase_made      BOOLEAN,
	feedback_note      TEXT,
	feedback_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contacts_vendor ON contacts(vendor_id);
CREATE INDEX IF NOT EXISTS idx_contacts_student_open ON contacts(student_id) WHERE NOT feedback_submitted;

CREATE TABLE IF NOT EXISTS vendor_metrics (
	vendor_id                TEXT PRIMARY KEY REFERENCES vendors(id),
	total_contacts           INTEGER NOT NULL,
	feedback_count           INTEGER NOT NULL,
	responded_count          INTEGER NOT NULL,
	average_response_minutes DOUBLE PRECISION NOT NULL,
	response_rate            DOUBLE PRECISION NOT NULL,
	helpful_rate             DOUBLE PRECISION NOT NULL,
	purchase_rate            DOUBLE PRECISION NOT NULL,
	activity_score           DOUBLE PRECISION NOT NULL,
	responsiveness_score     DOUBLE PRECISION NOT NULL,
	confidence_factor        DOUBLE PRECISION NOT NULL,
	trust_score              DOUBLE PRECISION NOT NULL,
	badges                   JSONB NOT NULL DEFAULT '[]',
	last_calculated          TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables the scoring engine owns or reads.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
