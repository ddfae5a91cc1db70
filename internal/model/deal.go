package model

import (
	"time"
)

// DealStatus represents where a deal sits in the approval workflow.
type DealStatus string

const (
	DealStatusDraft             DealStatus = "draft"
	DealStatusScoping           DealStatus = "scoping"
	DealStatusSubmitted         DealStatus = "submitted"
	DealStatusUnderReview       DealStatus = "under_review"
	DealStatusNegotiating       DealStatus = "negotiating"
	DealStatusApproved          DealStatus = "approved"
	DealStatusLegalReview       DealStatus = "legal_review"
	DealStatusContractDrafting  DealStatus = "contract_drafting"
	DealStatusClientReview      DealStatus = "client_review"
	DealStatusSigned            DealStatus = "signed"
	DealStatusLost              DealStatus = "lost"
	DealStatusRevisionRequested DealStatus = "revision_requested"
)

// AllDealStatuses lists every valid status in workflow order.
var AllDealStatuses = []DealStatus{
	DealStatusDraft,
	DealStatusScoping,
	DealStatusSubmitted,
	DealStatusUnderReview,
	DealStatusNegotiating,
	DealStatusApproved,
	DealStatusLegalReview,
	DealStatusContractDrafting,
	DealStatusClientReview,
	DealStatusSigned,
	DealStatusLost,
	DealStatusRevisionRequested,
}

// Valid reports whether s is a known deal status.
func (s DealStatus) Valid() bool {
	for _, v := range AllDealStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s DealStatus) Terminal() bool {
	return s == DealStatusSigned || s == DealStatusLost
}

// DealType classifies the commercial intent of a deal.
type DealType string

const (
	DealTypeGrow    DealType = "grow"
	DealTypeProtect DealType = "protect"
	DealTypeCustom  DealType = "custom"
)

// Valid reports whether t is a known deal type.
func (t DealType) Valid() bool {
	switch t {
	case DealTypeGrow, DealTypeProtect, DealTypeCustom:
		return true
	}
	return false
}

// SalesChannel identifies how the deal reaches the client.
type SalesChannel string

const (
	ChannelClientDirect      SalesChannel = "client_direct"
	ChannelPartner           SalesChannel = "partner"
	ChannelIndependentAgency SalesChannel = "independent_agency"
	ChannelHoldingCompany    SalesChannel = "holding_company"
)

// Valid reports whether c is a known sales channel.
func (c SalesChannel) Valid() bool {
	switch c {
	case ChannelClientDirect, ChannelPartner, ChannelIndependentAgency, ChannelHoldingCompany:
		return true
	}
	return false
}

// AnalyticsTier is the analytics package attached to a deal.
type AnalyticsTier string

const (
	AnalyticsTierBronze   AnalyticsTier = "bronze"
	AnalyticsTierSilver   AnalyticsTier = "silver"
	AnalyticsTierGold     AnalyticsTier = "gold"
	AnalyticsTierPlatinum AnalyticsTier = "platinum"
)

// analyticsTierRank orders tiers from lowest to highest.
var analyticsTierRank = map[AnalyticsTier]int{
	AnalyticsTierBronze:   1,
	AnalyticsTierSilver:   2,
	AnalyticsTierGold:     3,
	AnalyticsTierPlatinum: 4,
}

// AtLeast reports whether tier t is at or above the given tier.
// Unknown tiers rank below everything.
func (t AnalyticsTier) AtLeast(min AnalyticsTier) bool {
	return analyticsTierRank[t] >= analyticsTierRank[min] && analyticsTierRank[t] > 0
}

// Deal is a sales opportunity moving through the approval workflow.
// Deals are never deleted; they only transition between statuses.
type Deal struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	ClientName          string       `json:"client_name"`
	OwnerID             string       `json:"owner_id"`
	DealType            DealType     `json:"deal_type"`
	SalesChannel        SalesChannel `json:"sales_channel"`
	Status              DealStatus   `json:"status"`
	AnnualRevenue       float64      `json:"annual_revenue"`
	ContractTermMonths  int          `json:"contract_term_months"`
	DiscountPercent     float64      `json:"discount_percent"`
	HasNonStandardTerms bool         `json:"has_non_standard_terms"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// IncentiveCategory groups the financial incentives that can be attached
// to a deal tier. Categories drive which departments must review.
type IncentiveCategory string

const (
	IncentiveFinancial  IncentiveCategory = "financial"
	IncentiveCreative   IncentiveCategory = "creative"
	IncentiveProduct    IncentiveCategory = "product"
	IncentiveAnalytics  IncentiveCategory = "analytics"
	IncentiveMarketing  IncentiveCategory = "marketing"
	IncentiveTechnology IncentiveCategory = "technology"
)

// Valid reports whether c is a known incentive category.
func (c IncentiveCategory) Valid() bool {
	switch c {
	case IncentiveFinancial, IncentiveCreative, IncentiveProduct,
		IncentiveAnalytics, IncentiveMarketing, IncentiveTechnology:
		return true
	}
	return false
}

// Incentive is the financial incentive attached to a single deal tier.
type Incentive struct {
	Category    IncentiveCategory `json:"category"`
	SubCategory string            `json:"sub_category"`
	Option      string            `json:"option"`
	Value       float64           `json:"value"`
}

// DealTier is one revenue/margin bracket of a tiered deal. Every deal has
// at least one tier; tier numbers are contiguous starting at 1.
type DealTier struct {
	ID            string    `json:"id"`
	DealID        string    `json:"deal_id"`
	TierNumber    int       `json:"tier_number"`
	AnnualRevenue float64   `json:"annual_revenue"`
	GrossMargin   float64   `json:"gross_margin"` // decimal fraction, 0..1
	Incentive     Incentive `json:"incentive"`
	CreatedAt     time.Time `json:"created_at"`
}

// IncentiveCategories returns the distinct categories across tiers,
// preserving first-seen order.
func IncentiveCategories(tiers []DealTier) []IncentiveCategory {
	seen := make(map[IncentiveCategory]bool, len(tiers))
	var out []IncentiveCategory
	for _, t := range tiers {
		c := t.Incentive.Category
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
