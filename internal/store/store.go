package store

import (
	"context"
	"time"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// DealFilter specifies criteria for listing deals.
type DealFilter struct {
	Status  model.DealStatus `json:"status,omitempty"`
	OwnerID string           `json:"owner_id,omitempty"`
	Client  string           `json:"client,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the deal desk. Getters
// return (nil, nil) when the record does not exist. Deals are never
// deleted, only status-transitioned.
type Store interface {
	// Deals
	CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error)
	GetDeal(ctx context.Context, dealID string) (*model.Deal, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error)
	UpdateDeal(ctx context.Context, deal model.Deal) error
	UpdateDealStatus(ctx context.Context, dealID string, status model.DealStatus) error

	// Tiers
	ReplaceTiers(ctx context.Context, dealID string, tiers []model.DealTier) ([]model.DealTier, error)
	ListTiers(ctx context.Context, dealID string) ([]model.DealTier, error)

	// Approval requirements
	CreateRequirements(ctx context.Context, reqs []model.ApprovalRequirement) ([]model.ApprovalRequirement, error)
	ListRequirements(ctx context.Context, dealID string) ([]model.ApprovalRequirement, error)
	GetRequirement(ctx context.Context, reqID string) (*model.ApprovalRequirement, error)
	UpdateRequirementStatus(ctx context.Context, reqID string, status model.ApprovalStatus, reviewer, notes string) error
	ListPendingRequirements(ctx context.Context, olderThan time.Time) ([]model.ApprovalRequirement, error)

	// Comments and history
	AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error)
	ListComments(ctx context.Context, dealID string) ([]model.Comment, error)
	AppendActivity(ctx context.Context, event model.ActivityEvent) (*model.ActivityEvent, error)
	ListActivity(ctx context.Context, dealID string) ([]model.ActivityEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
