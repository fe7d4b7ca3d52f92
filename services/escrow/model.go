package escrow

import (
	"time"

	"gorm.io/datatypes"
)

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "NOT_STARTED"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneSubmitted  MilestoneStatus = "SUBMITTED"
	MilestoneApproved   MilestoneStatus = "APPROVED"
	MilestoneRejected   MilestoneStatus = "REJECTED"
	MilestonePaid       MilestoneStatus = "PAID"
)

// milestoneTransitions is the forward-only state machine. The only backward
// looking branch is SUBMITTED -> REJECTED.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneNotStarted: {MilestoneInProgress},
	MilestoneInProgress: {MilestoneSubmitted},
	MilestoneSubmitted:  {MilestoneApproved, MilestoneRejected},
	MilestoneApproved:   {MilestonePaid},
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	for _, allowed := range milestoneTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneSubmitted,
		MilestoneApproved, MilestoneRejected, MilestonePaid:
		return true
	}
	return false
}

type EscrowStatus string

const (
	EscrowPending   EscrowStatus = "PENDING"
	EscrowFundsHeld EscrowStatus = "FUNDS_HELD"
	EscrowReleased  EscrowStatus = "RELEASED"
	EscrowRefunded  EscrowStatus = "REFUNDED"
	EscrowDisputed  EscrowStatus = "DISPUTED"
)

// Terminal reports whether the escrow record is immutable.
func (s EscrowStatus) Terminal() bool {
	return s == EscrowReleased || s == EscrowRefunded
}

// Milestone is a payable unit of contracted work tied to one application.
// Amount is in the smallest currency unit and is immutable once funded.
type Milestone struct {
	ID            string          `gorm:"column:id;primaryKey;type:char(26)" json:"id"`
	ApplicationID string          `gorm:"column:application_id;index;not null" json:"application_id"`
	StudentID     string          `gorm:"column:student_id;index;not null" json:"student_id"`
	Title         string          `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description   string          `gorm:"column:description;type:text" json:"description,omitempty"`
	Amount        int64           `gorm:"column:amount;not null" json:"amount"`
	Status        MilestoneStatus `gorm:"column:status;type:varchar(20);default:'NOT_STARTED'" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	ApprovedAt    *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	PaidAt        *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
}

func (Milestone) TableName() string {
	return "milestones"
}

// EscrowTransaction is the funds-holding record backing one milestone.
// Financial records are transition-only: rows are never deleted.
type EscrowTransaction struct {
	ID              string         `gorm:"column:id;primaryKey;type:char(26)" json:"id"`
	MilestoneID     string         `gorm:"column:milestone_id;uniqueIndex;not null" json:"milestone_id"`
	Amount          int64          `gorm:"column:amount;not null" json:"amount"`
	Status          EscrowStatus   `gorm:"column:status;type:varchar(20);default:'PENDING'" json:"status"`
	TransactionID   string         `gorm:"column:transaction_id;type:varchar(64)" json:"transaction_id,omitempty"`
	GatewayResponse datatypes.JSON `gorm:"column:gateway_response" json:"-"`
	InitiatedAt     time.Time      `gorm:"column:initiated_at" json:"initiated_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}
