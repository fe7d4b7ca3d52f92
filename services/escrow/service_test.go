package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"internpay/pkg/errutil"
	"internpay/pkg/payment"
	"internpay/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type()}, nil
}

func newTestService(t *testing.T) (*Service, *fakeEnqueuer, *payment.FakeGateway) {
	t.Helper()

	db := testutil.NewTestDB(t, &Milestone{}, &EscrowTransaction{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enqueuer := &fakeEnqueuer{}
	gateway := payment.NewFakeGateway()

	svc := NewService(ServiceParams{
		DB:      db,
		Node:    node,
		Asynq:   enqueuer,
		Gateway: gateway,
	})
	return svc, enqueuer, gateway
}

func createMilestone(t *testing.T, svc *Service, amount int64) *Milestone {
	t.Helper()

	milestone, err := svc.CreateMilestone(context.Background(), CreateMilestoneInput{
		ApplicationID: "app-1",
		StudentID:     "student-1",
		Title:         "Build landing page",
		Amount:        amount,
	})
	require.NoError(t, err)
	return milestone
}

func submitMilestone(t *testing.T, svc *Service, id string) {
	t.Helper()

	ctx := context.Background()
	_, err := svc.UpdateMilestoneStatus(ctx, id, MilestoneInProgress)
	require.NoError(t, err)
	_, err = svc.UpdateMilestoneStatus(ctx, id, MilestoneSubmitted)
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, code, be.Code)
}

func TestCreateMilestone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	require.Equal(t, MilestoneNotStarted, milestone.Status)
	require.NotEmpty(t, milestone.ID)

	// The PENDING escrow record is created in the same transaction.
	escrow, err := svc.GetEscrowTransaction(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, EscrowPending, escrow.Status)
	require.Equal(t, int64(50000), escrow.Amount)
}

func TestCreateMilestone_InvalidAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateMilestone(context.Background(), CreateMilestoneInput{
		ApplicationID: "app-1",
		StudentID:     "student-1",
		Title:         "Free work",
		Amount:        0,
	})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestUpdateMilestoneStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 1000)

	updated, err := svc.UpdateMilestoneStatus(ctx, milestone.ID, MilestoneInProgress)
	require.NoError(t, err)
	require.Equal(t, MilestoneInProgress, updated.Status)

	// Skipping states is not allowed.
	_, err = svc.UpdateMilestoneStatus(ctx, milestone.ID, MilestoneInProgress)
	requireCode(t, err, errutil.StatusConflict)

	// Payment transitions have their own gated paths.
	_, err = svc.UpdateMilestoneStatus(ctx, milestone.ID, MilestoneApproved)
	requireCode(t, err, errutil.StatusBadRequest)
	_, err = svc.UpdateMilestoneStatus(ctx, milestone.ID, MilestonePaid)
	requireCode(t, err, errutil.StatusBadRequest)

	_, err = svc.UpdateMilestoneStatus(ctx, milestone.ID, "SHIPPED")
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestFundMilestone(t *testing.T) {
	svc, _, gateway := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)

	escrow, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)
	require.Equal(t, EscrowFundsHeld, escrow.Status)
	require.NotEmpty(t, escrow.TransactionID)
	require.Equal(t, []int64{50000}, gateway.CaptureCalls())
}

func TestFundMilestone_AmountMismatch(t *testing.T) {
	svc, _, gateway := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)

	// Off by one cent is still a mismatch.
	_, err := svc.FundMilestone(ctx, milestone.ID, 49999, payment.PaymentData{Method: "card", Token: "tok_visa"})
	requireCode(t, err, errutil.StatusBadRequest)
	require.Empty(t, gateway.CaptureCalls())

	escrow, err := svc.GetEscrowTransaction(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, EscrowPending, escrow.Status)
}

func TestFundMilestone_AlreadyFunded(t *testing.T) {
	svc, _, gateway := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)

	_, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)

	_, err = svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	requireCode(t, err, errutil.StatusConflict)

	// No second capture was attempted.
	require.Len(t, gateway.CaptureCalls(), 1)
}

func TestFundMilestone_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.FundMilestone(context.Background(), "missing", 100, payment.PaymentData{})
	requireCode(t, err, errutil.StatusNotFound)
}

func TestFundMilestone_GatewayUnavailable(t *testing.T) {
	svc, _, gateway := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	gateway.CaptureErr = errors.New("connection refused")

	_, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	requireCode(t, err, errutil.StatusBadGateway)

	escrow, err := svc.GetEscrowTransaction(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, EscrowPending, escrow.Status)
}

func TestApproveMilestone(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	escrow, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)
	submitMilestone(t, svc, milestone.ID)

	approved, err := svc.ApproveMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, MilestoneApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	require.Len(t, enqueuer.tasks, 1)
	require.Equal(t, TaskEscrowPayout, enqueuer.tasks[0].Type())

	var payload PayoutPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	require.Equal(t, milestone.ID, payload.MilestoneID)
	require.Equal(t, escrow.TransactionID, payload.TransactionID)
	require.Equal(t, "student-1", payload.StudentID)
	require.Equal(t, int64(50000), payload.Amount)
}

func TestApproveMilestone_NotSubmitted(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	_, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)

	_, err = svc.ApproveMilestone(ctx, milestone.ID)
	requireCode(t, err, errutil.StatusConflict)
	require.Empty(t, enqueuer.tasks)
}

func TestApproveMilestone_NotFunded(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	submitMilestone(t, svc, milestone.ID)

	_, err := svc.ApproveMilestone(ctx, milestone.ID)
	requireCode(t, err, errutil.StatusUnprocessableEntity)
	require.Empty(t, enqueuer.tasks)

	// The rejection left the milestone untouched.
	got, err := svc.GetMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, MilestoneSubmitted, got.Status)
}

func TestApproveMilestone_SecondApprovalConflicts(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	_, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)
	submitMilestone(t, svc, milestone.ID)

	_, err = svc.ApproveMilestone(ctx, milestone.ID)
	require.NoError(t, err)

	_, err = svc.ApproveMilestone(ctx, milestone.ID)
	requireCode(t, err, errutil.StatusConflict)

	// Exactly one payout job for the whole milestone lifetime.
	require.Len(t, enqueuer.tasks, 1)
}

func TestApproveMilestone_QueueUnavailable(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)
	ctx := context.Background()

	milestone := createMilestone(t, svc, 50000)
	_, err := svc.FundMilestone(ctx, milestone.ID, 50000, payment.PaymentData{Method: "card", Token: "tok_visa"})
	require.NoError(t, err)
	submitMilestone(t, svc, milestone.ID)

	enqueuer.err = errors.New("redis: connection pool timeout")

	_, err = svc.ApproveMilestone(ctx, milestone.ID)
	requireCode(t, err, errutil.StatusBadGateway)

	// The approval itself stands; only the payout needs re-driving.
	got, err := svc.GetMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	require.Equal(t, MilestoneApproved, got.Status)
}

func TestGetMilestones(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createMilestone(t, svc, 1000)
	createMilestone(t, svc, 2000)

	milestones, err := svc.GetMilestones(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, milestones, 2)

	milestones, err = svc.GetMilestones(ctx, "app-other")
	require.NoError(t, err)
	require.Empty(t, milestones)
}
