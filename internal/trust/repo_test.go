package trust

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/store"
)

// Needs a live Postgres; set TEST_DATABASE_URL to run.
func newTestRepo(t *testing.T) (*Repository, func(level VerificationLevel) string) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	addVendor := func(level VerificationLevel) string {
		id := "test-" + uuid.NewString()
		_, err := db.Client.ExecContext(ctx, `INSERT INTO vendors (id, verification_level) VALUES ($1, $2)`, id, string(level))
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = db.Client.ExecContext(context.Background(), `DELETE FROM vendor_metrics WHERE vendor_id = $1`, id)
			_, _ = db.Client.ExecContext(context.Background(), `DELETE FROM contacts WHERE vendor_id = $1`, id)
			_, _ = db.Client.ExecContext(context.Background(), `DELETE FROM vendors WHERE id = $1`, id)
		})
		return id
	}
	return NewRepository(db.Client), addVendor
}

func TestRepository_ContactLifecycle(t *testing.T) {
	repo, addVendor := newTestRepo(t)
	ctx := context.Background()
	vendorID := addVendor(LevelNone)

	c, err := repo.InsertContact(ctx, Contact{VendorID: vendorID, StudentID: "s1", ContactedAt: testNow, Method: MethodCall})
	require.NoError(t, err)

	open, err := repo.ListOpenContactsByStudent(ctx, "s1")
	require.NoError(t, err)
	ids := make([]string, 0, len(open))
	for _, o := range open {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, c.ID)

	helpful := true
	require.NoError(t, repo.AttachFeedback(ctx, c.ID, Feedback{ResponseTime: BucketUnder30Min, WasHelpful: &helpful, SubmittedAt: testNow}))

	got, err := repo.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, got.FeedbackSubmitted)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, BucketUnder30Min, got.Feedback.ResponseTime)
	require.NotNil(t, got.Feedback.WasHelpful)
	assert.True(t, *got.Feedback.WasHelpful)
	assert.Nil(t, got.Feedback.PurchaseMade, "unanswered field stays empty")

	_, err = repo.GetContact(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_SaveMetricsNeverDemotes(t *testing.T) {
	repo, addVendor := newTestRepo(t)
	ctx := context.Background()
	basic := addVendor(LevelBasic)
	premium := addVendor(LevelPremium)

	for _, id := range []string{basic, premium} {
		m := VendorMetrics{VendorID: id, FeedbackCount: 12, TrustScore: 95, LastCalculated: testNow,
			Badges: []Badge{{Type: BadgeTopRated, Label: "Top Rated", EarnedAt: testNow}}}
		require.NoError(t, repo.SaveMetrics(ctx, m, m.Summary(LevelPro)))
	}

	v, err := repo.GetVendor(ctx, basic)
	require.NoError(t, err)
	assert.Equal(t, LevelPro, v.VerificationLevel)

	v, err = repo.GetVendor(ctx, premium)
	require.NoError(t, err)
	assert.Equal(t, LevelPremium, v.VerificationLevel)

	m, err := repo.GetMetrics(ctx, basic)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 95.0, m.TrustScore)
	require.Len(t, m.Badges, 1)
	assert.Equal(t, BadgeTopRated, m.Badges[0].Type)
}

func TestRepository_MarkVendorInactiveRechecksCutoff(t *testing.T) {
	repo, addVendor := newTestRepo(t)
	ctx := context.Background()
	id := addVendor(LevelNone)

	require.NoError(t, repo.TouchVendorActivity(ctx, id, testNow))

	ok, err := repo.MarkVendorInactive(ctx, id, testNow.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "activity after the cutoff keeps the vendor active")

	ok, err = repo.MarkVendorInactive(ctx, id, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}
