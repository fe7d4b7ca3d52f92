package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"internpay/pkg/capability"
	"internpay/pkg/kycverify"
	"internpay/pkg/repository"
	"internpay/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Task struct {
	db       *gorm.DB
	provider kycverify.Provider
	notifier *notification.Service

	documents repository.Repository[Document]
}

type TaskParams struct {
	fx.In
	DB       *gorm.DB
	Provider kycverify.Provider
	Notifier *notification.Service `optional:"true"`
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:        p.DB,
		provider:  p.Provider,
		notifier:  p.Notifier,
		documents: repository.ProvideStore[Document](p.DB),
	}
}

// HandleVerifyDocumentTask drives one document through verification. A
// redelivered job finds the document already terminal and acks without
// calling the provider again.
func (t *Task) HandleVerifyDocumentTask(ctx context.Context, a *asynq.Task) error {
	var payload VerifyPayload
	if err := json.Unmarshal(a.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", a.Type()),
		zap.String("document_id", payload.DocumentID),
		zap.String("employer_id", payload.EmployerID),
	)

	doc, err := t.documents.FindOne(ctx, &Document{ID: payload.DocumentID})
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("kyc document %s not found: %w", payload.DocumentID, asynq.SkipRetry)
	}

	if doc.Status.Terminal() {
		zapLog.Info("document already decided, acking redelivery", zap.String("status", string(doc.Status)))
		return nil
	}

	// PENDING -> UNDER_REVIEW; an UNDER_REVIEW document is a crashed earlier
	// attempt resuming, which is fine.
	if doc.Status == DocumentPending {
		res := t.db.WithContext(ctx).
			Model(&Document{}).
			Where("id = ? AND status = ?", doc.ID, DocumentPending).
			Updates(map[string]any{"status": DocumentUnderReview})
		if res.Error != nil {
			return res.Error
		}
	}

	verification, err := t.provider.Verify(ctx, doc.ID, doc.FileURL)
	if err != nil {
		if capability.IsRejected(err) {
			zapLog.Error("provider refused verification", zap.Error(err))
			t.decide(ctx, doc, false, 0, "provider refused verification")
			return fmt.Errorf("verification refused: %v: %w", err, asynq.SkipRetry)
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			zapLog.Error("verification exhausted retries", zap.Error(err))
			t.decide(ctx, doc, false, 0, "verification unavailable, retries exhausted")
		}
		return err
	}

	if !verification.IsValid {
		t.decide(ctx, doc, false, verification.Confidence, verification.Reason)
		zapLog.Info("kyc document rejected", zap.String("reason", verification.Reason))
		return nil
	}

	if err := t.approve(ctx, doc, verification.Confidence); err != nil {
		return err
	}

	zapLog.Info("kyc document approved", zap.Float64("confidence", verification.Confidence))
	return nil
}

// approve marks the document APPROVED and credits the employer's trust score
// in the same transaction. The credit is capped at TrustCeiling.
func (t *Task) approve(ctx context.Context, doc *Document, confidence float64) error {
	now := time.Now()

	if err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Document{}).
			Where("id = ? AND status = ?", doc.ID, DocumentUnderReview).
			Updates(map[string]any{
				"status":      DocumentApproved,
				"confidence":  confidence,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another delivery already decided it.
			return nil
		}

		var trust EmployerTrust
		err := tx.Where(&EmployerTrust{EmployerID: doc.EmployerID}).First(&trust).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			trust = EmployerTrust{EmployerID: doc.EmployerID, Score: TrustDelta}
			return tx.Create(&trust).Error
		case err != nil:
			return err
		default:
			next := trust.Score + TrustDelta
			if next > TrustCeiling {
				next = TrustCeiling
			}
			return tx.Model(&EmployerTrust{}).
				Where("employer_id = ?", doc.EmployerID).
				Updates(map[string]any{"score": next, "updated_at": now}).Error
		}
	}); err != nil {
		return err
	}

	if t.notifier != nil {
		t.notifier.Push(ctx, notification.PushInput{
			UserID:  doc.EmployerID,
			Type:    "kyc_approved",
			Title:   "Verification approved",
			Message: "Your " + doc.DocType + " document has been verified.",
		})
	}

	return nil
}

func (t *Task) decide(ctx context.Context, doc *Document, approved bool, confidence float64, reason string) {
	status := DocumentRejected
	if approved {
		status = DocumentApproved
	}

	res := t.db.WithContext(ctx).
		Model(&Document{}).
		Where("id = ? AND status IN ?", doc.ID, []DocumentStatus{DocumentPending, DocumentUnderReview}).
		Updates(map[string]any{
			"status":      status,
			"confidence":  confidence,
			"reason":      reason,
			"reviewed_at": time.Now(),
		})
	if res.Error != nil {
		zap.L().Error("failed to record kyc decision",
			zap.String("document_id", doc.ID),
			zap.Error(res.Error),
		)
		return
	}

	if res.RowsAffected > 0 && t.notifier != nil {
		t.notifier.Push(ctx, notification.PushInput{
			UserID:  doc.EmployerID,
			Type:    "kyc_rejected",
			Title:   "Verification rejected",
			Message: reason,
		})
	}
}
