package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Limits of a tier. Zero means unlimited.
type Limits struct {
	MaxPatients         int `json:"max_patients"`
	MaxInvoicesPerMonth int `json:"max_invoices_per_month"`
}

func LimitsFor(tier Tier) Limits {
	switch tier {
	case TierPro:
		return Limits{}
	default:
		return Limits{MaxPatients: 25, MaxInvoicesPerMonth: 10}
	}
}

// Subscription records the tier chosen by a professional. A missing row means free.
type Subscription struct {
	UserID    snowflake.ID `gorm:"primaryKey;column:user_id" json:"user_id"`
	Tier      Tier         `gorm:"not null;size:16" json:"tier"`
	ChangedAt time.Time    `gorm:"not null" json:"changed_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "plan_subscriptions" }

type Usage struct {
	Patients          int64 `json:"patients"`
	InvoicesThisMonth int64 `json:"invoices_this_month"`
}

type Plan struct {
	Tier      Tier       `json:"tier"`
	Limits    Limits     `json:"limits"`
	Usage     Usage      `json:"usage"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}
