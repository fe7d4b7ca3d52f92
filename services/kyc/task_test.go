package kyc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"internpay/pkg/capability"
	"internpay/pkg/kycverify"
	"internpay/services/testutil"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type verifyFixture struct {
	db       *gorm.DB
	task     *Task
	provider *kycverify.FakeProvider
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()

	db := testutil.NewTestDB(t, &Document{}, &EmployerTrust{})
	provider := kycverify.NewFakeProvider()

	return &verifyFixture{
		db:       db,
		provider: provider,
		task:     NewTask(TaskParams{DB: db, Provider: provider}),
	}
}

func (f *verifyFixture) seedDocument(t *testing.T, id, employerID string) *Document {
	t.Helper()

	doc := &Document{
		ID:         id,
		EmployerID: employerID,
		DocType:    "business_license",
		FileURL:    "https://files.example.com/" + id + ".pdf",
		Status:     DocumentPending,
	}
	require.NoError(t, f.db.Create(doc).Error)
	return doc
}

func (f *verifyFixture) run(t *testing.T, doc *Document) error {
	t.Helper()

	task, err := NewVerifyTask(VerifyPayload{DocumentID: doc.ID, EmployerID: doc.EmployerID})
	require.NoError(t, err)
	return f.task.HandleVerifyDocumentTask(context.Background(), task)
}

func (f *verifyFixture) reloadDocument(t *testing.T, id string) *Document {
	t.Helper()

	var doc Document
	require.NoError(t, f.db.First(&doc, "id = ?", id).Error)
	return &doc
}

func (f *verifyFixture) trustScore(t *testing.T, employerID string) int {
	t.Helper()

	var trust EmployerTrust
	err := f.db.First(&trust, "employer_id = ?", employerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return trust.Score
}

func TestHandleVerifyDocumentTask_Approves(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-1", "emp-1")

	require.NoError(t, f.run(t, doc))

	got := f.reloadDocument(t, doc.ID)
	require.Equal(t, DocumentApproved, got.Status)
	require.NotNil(t, got.ReviewedAt)
	require.Equal(t, TrustDelta, f.trustScore(t, "emp-1"))
}

func TestHandleVerifyDocumentTask_TrustAccumulatesAndCaps(t *testing.T) {
	f := newVerifyFixture(t)

	// Four approvals would credit 120; the score stops at the ceiling.
	for i := 0; i < 4; i++ {
		doc := f.seedDocument(t, fmt.Sprintf("doc-%d", i), "emp-1")
		require.NoError(t, f.run(t, doc))
	}

	require.Equal(t, TrustCeiling, f.trustScore(t, "emp-1"))
}

func TestHandleVerifyDocumentTask_RejectsInvalidDocument(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-invalid-1", "emp-1")

	require.NoError(t, f.run(t, doc))

	got := f.reloadDocument(t, doc.ID)
	require.Equal(t, DocumentRejected, got.Status)
	require.Equal(t, "document unreadable", got.Reason)
	// A rejection never credits trust.
	require.Equal(t, 0, f.trustScore(t, "emp-1"))
}

func TestHandleVerifyDocumentTask_RedeliveryIsIdempotent(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-1", "emp-1")

	require.NoError(t, f.run(t, doc))
	require.NoError(t, f.run(t, doc))

	// One provider call, one trust credit.
	require.Len(t, f.provider.Calls(), 1)
	require.Equal(t, TrustDelta, f.trustScore(t, "emp-1"))
}

func TestHandleVerifyDocumentTask_ProviderRefusal(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-1", "emp-1")
	f.provider.Err = capability.Rejected("unsupported document type", nil)

	err := f.run(t, doc)
	require.ErrorIs(t, err, asynq.SkipRetry)

	got := f.reloadDocument(t, doc.ID)
	require.Equal(t, DocumentRejected, got.Status)
}

func TestHandleVerifyDocumentTask_ExhaustedRetriesReject(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-1", "emp-1")
	f.provider.Err = capability.Transient("provider timeout", errors.New("context deadline exceeded"))

	// Without queue metadata the handler sees the final attempt.
	err := f.run(t, doc)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))

	got := f.reloadDocument(t, doc.ID)
	require.Equal(t, DocumentRejected, got.Status)
	require.Equal(t, "verification unavailable, retries exhausted", got.Reason)
}

func TestHandleVerifyDocumentTask_ResumesUnderReview(t *testing.T) {
	f := newVerifyFixture(t)
	doc := f.seedDocument(t, "doc-1", "emp-1")

	// A crashed earlier attempt left the document UNDER_REVIEW.
	require.NoError(t, f.db.Model(&Document{}).
		Where("id = ?", doc.ID).
		Update("status", DocumentUnderReview).Error)

	require.NoError(t, f.run(t, doc))
	require.Equal(t, DocumentApproved, f.reloadDocument(t, doc.ID).Status)
}

func TestHandleVerifyDocumentTask_UnknownDocumentSkipsRetry(t *testing.T) {
	f := newVerifyFixture(t)

	task, err := NewVerifyTask(VerifyPayload{DocumentID: "missing", EmployerID: "emp-1"})
	require.NoError(t, err)

	err = f.task.HandleVerifyDocumentTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
