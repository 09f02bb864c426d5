package funding

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"assetfund/core/types"
)

const (
	EventTypeAssetRegistered  = "funding.asset.registered"
	EventTypeAssetDelivered   = "funding.asset.delivered"
	EventTypeAssetOnboarded   = "funding.asset.onboarded"
	EventTypeAssetCompleted   = "funding.asset.completed"
	EventTypeAssetCancelled   = "funding.asset.cancelled"
	EventTypeInvestCreated    = "funding.invest.created"
	EventTypeInvestTaken      = "funding.invest.taken"
	EventTypeRepayReceived    = "funding.repay.received"
	EventTypeRepayWithdrawn   = "funding.repay.withdrawn"
	EventTypeYieldClaimed     = "funding.yield.claimed"
	EventTypeDepositClaimed   = "funding.deposit.claimed"
	EventTypeAssetTypeCreated = "funding.assettype.created"
	EventTypeTokenSetCreated  = "funding.tokenset.created"
	EventTypeRateCurveCreated = "funding.ratecurve.created"
)

func newAssetEvent(eventType string, a *Asset) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.ID, 10)
		attrs["owner"] = a.Owner.Hex()
		attrs["assetTypeId"] = strconv.FormatUint(a.AssetTypeID, 10)
		attrs["status"] = a.Status.String()
		attrs["token"] = a.PaymentToken
		attrs["totalQuotaSold"] = strconv.FormatUint(a.TotalQuotaSold, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewAssetRegisteredEvent reports a freshly registered asset and its locked
// deposit.
func NewAssetRegisteredEvent(a *Asset) *types.Event {
	evt := newAssetEvent(EventTypeAssetRegistered, a)
	if a != nil {
		evt.Attributes["deposit"] = formatAmount(a.DepositAmount)
	}
	return evt
}

// NewAssetDeliveredEvent reports delivery confirmation with its proof ref.
func NewAssetDeliveredEvent(a *Asset) *types.Event {
	evt := newAssetEvent(EventTypeAssetDelivered, a)
	if a != nil {
		evt.Attributes["proofRef"] = a.DeliveryProofRef.Hex()
	}
	return evt
}

// NewAssetOnboardedEvent reports the start of the repayment schedule.
func NewAssetOnboardedEvent(a *Asset, st *RepaymentStatus) *types.Event {
	evt := newAssetEvent(EventTypeAssetOnboarded, a)
	if st != nil {
		evt.Attributes["firstDue"] = strconv.FormatInt(st.NextDueTime, 10)
	}
	return evt
}

// NewAssetCompletedEvent reports full repayment of the schedule.
func NewAssetCompletedEvent(a *Asset) *types.Event {
	return newAssetEvent(EventTypeAssetCompleted, a)
}

// NewAssetCancelledEvent reports cancellation of an un-invested asset.
func NewAssetCancelledEvent(a *Asset) *types.Event {
	return newAssetEvent(EventTypeAssetCancelled, a)
}

// NewInvestCreatedEvent reports a quota purchase.
func NewInvestCreatedEvent(a *Asset, inv *Investment, amount *big.Int) *types.Event {
	evt := newAssetEvent(EventTypeInvestCreated, a)
	if inv != nil {
		evt.Attributes["slot"] = strconv.FormatUint(uint64(inv.Slot), 10)
		evt.Attributes["investor"] = inv.Investor.Hex()
		evt.Attributes["quota"] = strconv.FormatUint(inv.Quota, 10)
	}
	evt.Attributes["amount"] = formatAmount(amount)
	return evt
}

// NewInvestTakenEvent reports the one-time release of raised capital to the
// asset owner.
func NewInvestTakenEvent(a *Asset, recipient common.Address, amount *big.Int) *types.Event {
	evt := newAssetEvent(EventTypeInvestTaken, a)
	evt.Attributes["recipient"] = recipient.Hex()
	evt.Attributes["amount"] = formatAmount(amount)
	return evt
}

// NewRepayReceivedEvent reports an inbound repayment and the resulting ledger
// position.
func NewRepayReceivedEvent(a *Asset, payer common.Address, amount *big.Int, st *RepaymentStatus) *types.Event {
	evt := newAssetEvent(EventTypeRepayReceived, a)
	evt.Attributes["payer"] = payer.Hex()
	evt.Attributes["amount"] = formatAmount(amount)
	if st != nil {
		evt.Attributes["overdueDebt"] = formatAmount(st.OverdueDebt)
		evt.Attributes["amountDue"] = formatAmount(st.AmountDue)
		evt.Attributes["monthDueIndex"] = strconv.FormatUint(uint64(st.MonthDueIndex), 10)
	}
	return evt
}

// NewRepayWithdrawnEvent reports an operator withdrawal of mature repayments.
func NewRepayWithdrawnEvent(a *Asset, recipient common.Address, amount *big.Int) *types.Event {
	evt := newAssetEvent(EventTypeRepayWithdrawn, a)
	evt.Attributes["recipient"] = recipient.Hex()
	evt.Attributes["amount"] = formatAmount(amount)
	return evt
}

// NewYieldClaimedEvent reports an investor yield payout.
func NewYieldClaimedEvent(a *Asset, inv *Investment, amount *big.Int, months uint32) *types.Event {
	evt := newAssetEvent(EventTypeYieldClaimed, a)
	if inv != nil {
		evt.Attributes["slot"] = strconv.FormatUint(uint64(inv.Slot), 10)
		evt.Attributes["investor"] = inv.Investor.Hex()
	}
	evt.Attributes["amount"] = formatAmount(amount)
	evt.Attributes["months"] = strconv.FormatUint(uint64(months), 10)
	return evt
}

// NewDepositClaimedEvent reports the return of the owner's collateral.
func NewDepositClaimedEvent(a *Asset, amount *big.Int) *types.Event {
	evt := newAssetEvent(EventTypeDepositClaimed, a)
	evt.Attributes["amount"] = formatAmount(amount)
	return evt
}

// NewAssetTypeCreatedEvent reports a published financing template.
func NewAssetTypeCreatedEvent(t *AssetType) *types.Event {
	attrs := make(map[string]string)
	if t != nil {
		attrs["assetTypeId"] = strconv.FormatUint(t.ID, 10)
		attrs["tenureMonths"] = strconv.FormatUint(uint64(t.TenureMonths), 10)
		attrs["investQuotaTotal"] = strconv.FormatUint(t.InvestQuotaTotal, 10)
		attrs["valuePerQuota"] = formatAmount(t.ValuePerQuota)
		attrs["monthlyRepayment"] = formatAmount(t.MonthlyRepayment)
	}
	return &types.Event{Type: EventTypeAssetTypeCreated, Attributes: attrs}
}

// NewTokenSetCreatedEvent reports a published payment token whitelist.
func NewTokenSetCreatedEvent(s *TokenSet) *types.Event {
	attrs := make(map[string]string)
	if s != nil {
		attrs["tokenSetId"] = strconv.FormatUint(s.ID, 10)
		attrs["tokens"] = strconv.Itoa(len(s.Tokens))
	}
	return &types.Event{Type: EventTypeTokenSetCreated, Attributes: attrs}
}

// NewRateCurveCreatedEvent reports a registered accrual curve.
func NewRateCurveCreatedEvent(c *RateCurve) *types.Event {
	attrs := make(map[string]string)
	if c != nil {
		attrs["curveId"] = strconv.FormatUint(c.ID, 10)
		attrs["ratePerSecond"] = formatAmount(c.RatePerSecond)
	}
	return &types.Event{Type: EventTypeRateCurveCreated, Attributes: attrs}
}
