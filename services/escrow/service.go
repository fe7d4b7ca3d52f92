package escrow

import (
	"context"
	"encoding/json"
	"time"

	"internpay/pkg/db/option"
	"internpay/pkg/errutil"
	"internpay/pkg/payment"
	"internpay/pkg/repository"
	"internpay/pkg/task"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service owns every producer-side mutation of the milestone ledger. Workers
// mutate the same pair only through the conditional updates in task.go.
type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	asynq   task.Enqueuer
	gateway payment.Gateway

	milestones repository.Repository[Milestone]
	escrows    repository.Repository[EscrowTransaction]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Asynq   task.Enqueuer
	Gateway payment.Gateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		asynq:      p.Asynq,
		gateway:    p.Gateway,
		milestones: repository.ProvideStore[Milestone](p.DB),
		escrows:    repository.ProvideStore[EscrowTransaction](p.DB),
	}
}

type CreateMilestoneInput struct {
	ApplicationID string `json:"application_id" binding:"required"`
	StudentID     string `json:"student_id" binding:"required"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Amount        int64  `json:"amount" binding:"required"`
}

// CreateMilestone creates the milestone together with its PENDING escrow
// record. The pair is 1:1 for the milestone's whole life.
func (s *Service) CreateMilestone(ctx context.Context, in CreateMilestoneInput) (*Milestone, error) {
	if in.Amount <= 0 {
		return nil, errutil.ValidationFailed("amount must be positive",
			errutil.WithDetails(errutil.Detail{Field: "amount", Message: "must be > 0"}))
	}

	milestone := &Milestone{
		ID:            s.node.Generate().String(),
		ApplicationID: in.ApplicationID,
		StudentID:     in.StudentID,
		Title:         in.Title,
		Description:   in.Description,
		Amount:        in.Amount,
		Status:        MilestoneNotStarted,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.milestones.WithTrx(tx).Create(ctx, milestone); err != nil {
			return err
		}
		return s.escrows.WithTrx(tx).Create(ctx, &EscrowTransaction{
			ID:          s.node.Generate().String(),
			MilestoneID: milestone.ID,
			Amount:      milestone.Amount,
			Status:      EscrowPending,
			InitiatedAt: time.Now(),
		})
	}); err != nil {
		zap.L().With(s.traceFields(ctx)...).Error("failed to create milestone", zap.Error(err))
		return nil, err
	}

	return milestone, nil
}

func (s *Service) GetMilestones(ctx context.Context, applicationID string) ([]*Milestone, error) {
	return s.milestones.Find(ctx, &Milestone{ApplicationID: applicationID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at"}),
	)
}

func (s *Service) GetMilestone(ctx context.Context, id string) (*Milestone, error) {
	milestone, err := s.milestones.FindOne(ctx, &Milestone{ID: id})
	if err != nil {
		return nil, err
	}
	if milestone == nil {
		return nil, errutil.NotFound("milestone not found")
	}
	return milestone, nil
}

func (s *Service) GetEscrowTransaction(ctx context.Context, milestoneID string) (*EscrowTransaction, error) {
	escrow, err := s.escrows.FindOne(ctx, &EscrowTransaction{MilestoneID: milestoneID})
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, errutil.NotFound("escrow transaction not found")
	}
	return escrow, nil
}

// UpdateMilestoneStatus advances the work-progress side of the state machine.
// Payment transitions (APPROVED, PAID) have their own gated paths.
func (s *Service) UpdateMilestoneStatus(ctx context.Context, id string, next MilestoneStatus) (*Milestone, error) {
	if !next.Valid() {
		return nil, errutil.ValidationFailed("unknown milestone status")
	}
	if next == MilestoneApproved || next == MilestonePaid {
		return nil, errutil.BadRequest("payment transitions are not allowed through status update")
	}

	milestone, err := s.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}

	if !milestone.Status.CanTransitionTo(next) {
		return nil, errutil.Conflict("invalid milestone transition",
			errutil.WithDetails(errutil.Detail{Field: "status", Message: string(milestone.Status) + " -> " + string(next)}))
	}

	// Conditional write so two racing updates cannot both advance the row.
	res := s.db.WithContext(ctx).
		Model(&Milestone{}).
		Where("id = ? AND status = ?", id, milestone.Status).
		Updates(map[string]any{"status": next, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.Conflict("milestone status changed concurrently")
	}

	milestone.Status = next
	return milestone, nil
}

// FundMilestone captures the milestone amount into escrow. The capture call
// is the one synchronous external call in the request path; it is assumed
// idempotent at the gateway and retried at most once inline.
func (s *Service) FundMilestone(ctx context.Context, id string, amount int64, data payment.PaymentData) (*EscrowTransaction, error) {
	zapLog := zap.L().With(s.traceFields(ctx)...).With(zap.String("milestone_id", id))

	milestone, err := s.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}

	if amount != milestone.Amount {
		return nil, errutil.BadRequest("amount does not match milestone amount",
			errutil.WithDetails(errutil.Detail{Field: "amount", Message: "expected milestone amount"}))
	}

	escrow, err := s.escrows.FindOne(ctx, &EscrowTransaction{MilestoneID: id})
	if err != nil {
		return nil, err
	}

	if escrow != nil {
		if escrow.Status == EscrowFundsHeld {
			return nil, errutil.Conflict("milestone already funded")
		}
		if escrow.Status != EscrowPending {
			return nil, errutil.Conflict("escrow transaction is not pending")
		}
	}

	charge, err := s.capture(ctx, amount, data)
	if err != nil {
		zapLog.Error("gateway capture failed", zap.Error(err))
		return nil, errutil.BadGateway("payment gateway capture failed", errutil.WithErr(err))
	}

	raw, _ := json.Marshal(charge)
	now := time.Now()

	if escrow == nil {
		escrow = &EscrowTransaction{
			ID:          s.node.Generate().String(),
			MilestoneID: id,
		}
	}
	escrow.Amount = amount
	escrow.Status = EscrowFundsHeld
	escrow.TransactionID = charge.TransactionID
	escrow.GatewayResponse = datatypes.JSON(raw)
	escrow.InitiatedAt = now

	if err := s.db.WithContext(ctx).Save(escrow).Error; err != nil {
		zapLog.Error("failed to persist escrow transaction", zap.Error(err))
		return nil, err
	}

	zapLog.Info("milestone funded",
		zap.Int64("amount", amount),
		zap.String("transaction_id", charge.TransactionID),
	)

	return escrow, nil
}

func (s *Service) capture(ctx context.Context, amount int64, data payment.PaymentData) (*payment.Charge, error) {
	charge, err := s.gateway.Capture(ctx, amount, data)
	if err == nil {
		return charge, nil
	}
	// One inline retry: the caller is waiting on an HTTP response, so there
	// is no queue between us and the gateway here.
	return s.gateway.Capture(ctx, amount, data)
}

// ApproveMilestone gates on SUBMITTED + FUNDS_HELD synchronously, then hands
// the money movement to the payout queue. It returns before the payout runs.
func (s *Service) ApproveMilestone(ctx context.Context, id string) (*Milestone, error) {
	zapLog := zap.L().With(s.traceFields(ctx)...).With(zap.String("milestone_id", id))

	milestone, err := s.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}

	if milestone.Status != MilestoneSubmitted {
		return nil, errutil.Conflict("milestone is not submitted")
	}

	escrow, err := s.escrows.FindOne(ctx, &EscrowTransaction{MilestoneID: id})
	if err != nil {
		return nil, err
	}
	if escrow == nil || escrow.Status != EscrowFundsHeld {
		return nil, errutil.UnprocessableEntity("escrow is not funded")
	}

	// Atomic check-and-transition: of two concurrent approvals only one can
	// flip SUBMITTED -> APPROVED, so only one payout job is ever enqueued.
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&Milestone{}).
		Where("id = ? AND status = ?", id, MilestoneSubmitted).
		Updates(map[string]any{"status": MilestoneApproved, "approved_at": now, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.Conflict("milestone is not submitted")
	}

	payoutTask, err := NewPayoutTask(PayoutPayload{
		MilestoneID:   milestone.ID,
		TransactionID: escrow.TransactionID,
		StudentID:     milestone.StudentID,
		Amount:        escrow.Amount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.enqueue(payoutTask); err != nil {
		// The approval stands; the payout has to be re-driven by an operator.
		zapLog.Error("failed to enqueue payout after approval", zap.Error(err))
		return nil, errutil.BadGateway("payout queue unavailable", errutil.WithErr(err))
	}

	milestone.Status = MilestoneApproved
	milestone.ApprovedAt = &now

	zapLog.Info("milestone approved, payout enqueued",
		zap.String("transaction_id", escrow.TransactionID),
		zap.Int64("amount", escrow.Amount),
	)

	return milestone, nil
}

// enqueue retries a failed enqueue with its own short backoff, separate from
// job-level retry, before surfacing queue unavailability to the caller.
func (s *Service) enqueue(t *asynq.Task) error {
	var err error
	delay := 100 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		if _, err = s.asynq.Enqueue(t); err == nil {
			return nil
		}
	}
	return err
}

func (s *Service) traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}
