package funding

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetStatus tracks the lifecycle of a financed asset.
type AssetStatus uint8

const (
	AssetPendingDeposit AssetStatus = iota
	AssetDelivered
	AssetSubscribing
	AssetOnboarded
	AssetCompleted
	AssetCancelled
)

// Valid reports whether the status value is within the supported range.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetPendingDeposit, AssetDelivered, AssetSubscribing, AssetOnboarded, AssetCompleted, AssetCancelled:
		return true
	default:
		return false
	}
}

func (s AssetStatus) String() string {
	switch s {
	case AssetPendingDeposit:
		return "pending_deposit"
	case AssetDelivered:
		return "delivered"
	case AssetSubscribing:
		return "subscribing"
	case AssetOnboarded:
		return "onboarded"
	case AssetCompleted:
		return "completed"
	case AssetCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// InvestmentStatus tracks the lifecycle of a single investor stake.
type InvestmentStatus uint8

const (
	InvestmentActive InvestmentStatus = iota
	InvestmentCompleted
	InvestmentExited
)

func (s InvestmentStatus) String() string {
	switch s {
	case InvestmentActive:
		return "active"
	case InvestmentCompleted:
		return "completed"
	case InvestmentExited:
		return "exited"
	default:
		return "unknown"
	}
}

// AssetType is the immutable financing template an asset is opened against.
// Every monetary field is denominated in the smallest unit of the payment
// token chosen at registration time.
type AssetType struct {
	ID                   uint64   `json:"id"`
	TenureMonths         uint32   `json:"tenureMonths"`
	InvestQuotaTotal     uint64   `json:"investQuotaTotal"`
	ValuePerQuota        *big.Int `json:"valuePerQuota"`
	MonthlyRepayment     *big.Int `json:"monthlyRepayment"`
	YieldPerQuotaMonthly *big.Int `json:"yieldPerQuotaMonthly"`
	RequiredDeposit      *big.Int `json:"requiredDeposit"`
	PaymentTokenSetID    uint64   `json:"paymentTokenSetId"`
	MaxOverdueDays       uint32   `json:"maxOverdueDays"`
	MinExitNoticeDays    uint32   `json:"minExitNoticeDays"`
	InterestRateID       uint64   `json:"interestRateId"`
	ReserveTopQuota      uint64   `json:"reserveTopQuota"`
	SlashTopCount        uint32   `json:"slashTopCount"`
	// Share split of operator proceeds, in basis points. The three fields
	// must sum to exactly 10_000 at creation time.
	OperatorShareBps uint32 `json:"operatorShareBps"`
	PlatformShareBps uint32 `json:"platformShareBps"`
	InvestorShareBps uint32 `json:"investorShareBps"`
}

// Clone returns a deep copy of the asset type.
func (t *AssetType) Clone() *AssetType {
	if t == nil {
		return nil
	}
	clone := *t
	clone.ValuePerQuota = cloneBigInt(t.ValuePerQuota)
	clone.MonthlyRepayment = cloneBigInt(t.MonthlyRepayment)
	clone.YieldPerQuotaMonthly = cloneBigInt(t.YieldPerQuotaMonthly)
	clone.RequiredDeposit = cloneBigInt(t.RequiredDeposit)
	return &clone
}

// TokenSet whitelists the payment token symbols an asset type accepts.
type TokenSet struct {
	ID     uint64   `json:"id"`
	Tokens []string `json:"tokens"`
}

// Contains reports whether the set whitelists the given token symbol.
func (s *TokenSet) Contains(token string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the token set.
func (s *TokenSet) Clone() *TokenSet {
	if s == nil {
		return nil
	}
	return &TokenSet{ID: s.ID, Tokens: append([]string(nil), s.Tokens...)}
}

// RateCurve maps an identifier to a ray-scaled per-second compounding factor.
// The factor must be strictly greater than one ray.
type RateCurve struct {
	ID            uint64   `json:"id"`
	RatePerSecond *big.Int `json:"ratePerSecond"`
}

// Clone returns a deep copy of the rate curve.
func (c *RateCurve) Clone() *RateCurve {
	if c == nil {
		return nil
	}
	return &RateCurve{ID: c.ID, RatePerSecond: cloneBigInt(c.RatePerSecond)}
}

// Asset is one real-world item opened for fractional financing.
type Asset struct {
	ID               uint64         `json:"id"`
	Owner            common.Address `json:"owner"`
	Status           AssetStatus    `json:"status"`
	AssetTypeID      uint64         `json:"assetTypeId"`
	PaymentToken     string         `json:"paymentToken"`
	InvestmentCount  uint32         `json:"investmentCount"`
	TotalQuotaSold   uint64         `json:"totalQuotaSold"`
	DepositAmount    *big.Int       `json:"depositAmount"`
	DeliveryProofRef common.Hash    `json:"deliveryProofRef"`
	CreatedAt        int64          `json:"createdAt"`
	OnboardTime      int64          `json:"onboardTime"`
	CumulativeRepaid *big.Int       `json:"cumulativeRepaid"`
	YieldPoolFunded  *big.Int       `json:"yieldPoolFunded"`
	YieldPoolClaimed *big.Int       `json:"yieldPoolClaimed"`
}

// Clone returns a deep copy of the asset record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	clone.DepositAmount = cloneBigInt(a.DepositAmount)
	clone.CumulativeRepaid = cloneBigInt(a.CumulativeRepaid)
	clone.YieldPoolFunded = cloneBigInt(a.YieldPoolFunded)
	clone.YieldPoolClaimed = cloneBigInt(a.YieldPoolClaimed)
	return &clone
}

// Investment is one investor's quota block in one asset, keyed by
// (asset id, sequential slot).
type Investment struct {
	AssetID            uint64           `json:"assetId"`
	Slot               uint32           `json:"slot"`
	Investor           common.Address   `json:"investor"`
	Timestamp          int64            `json:"timestamp"`
	Status             InvestmentStatus `json:"status"`
	Quota              uint64           `json:"quota"`
	MonthsYieldClaimed uint32           `json:"monthsYieldClaimed"`
}

// Clone returns a copy of the investment record.
func (i *Investment) Clone() *Investment {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// RepaymentStatus is the amortization ledger kept per onboarded asset.
// OverdueDebt and DebtStartTime are set and cleared together.
type RepaymentStatus struct {
	AssetID               uint64   `json:"assetId"`
	MonthDueIndex         uint32   `json:"monthDueIndex"`
	NextDueTime           int64    `json:"nextDueTime"`
	AmountDue             *big.Int `json:"amountDue"`
	OverdueDebt           *big.Int `json:"overdueDebt"`
	DebtStartTime         int64    `json:"debtStartTime"`
	PrepayCredit          *big.Int `json:"prepayCredit"`
	SchedulePaid          *big.Int `json:"schedulePaid"`
	WithdrawnByOperator   *big.Int `json:"withdrawnByOperator"`
	QuotaSettledAtOnboard uint64   `json:"quotaSettledAtOnboard"`
	InvestTaken           bool     `json:"investTaken"`
	MonthsFunded          uint32   `json:"monthsFunded"`
}

// Clone returns a deep copy of the repayment ledger.
func (r *RepaymentStatus) Clone() *RepaymentStatus {
	if r == nil {
		return nil
	}
	clone := *r
	clone.AmountDue = cloneBigInt(r.AmountDue)
	clone.OverdueDebt = cloneBigInt(r.OverdueDebt)
	clone.PrepayCredit = cloneBigInt(r.PrepayCredit)
	clone.SchedulePaid = cloneBigInt(r.SchedulePaid)
	clone.WithdrawnByOperator = cloneBigInt(r.WithdrawnByOperator)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureRepayment(r *RepaymentStatus) *RepaymentStatus {
	if r == nil {
		return nil
	}
	if r.AmountDue == nil {
		r.AmountDue = big.NewInt(0)
	}
	if r.OverdueDebt == nil {
		r.OverdueDebt = big.NewInt(0)
	}
	if r.PrepayCredit == nil {
		r.PrepayCredit = big.NewInt(0)
	}
	if r.SchedulePaid == nil {
		r.SchedulePaid = big.NewInt(0)
	}
	if r.WithdrawnByOperator == nil {
		r.WithdrawnByOperator = big.NewInt(0)
	}
	return r
}

func ensureAsset(a *Asset) *Asset {
	if a == nil {
		return nil
	}
	if a.DepositAmount == nil {
		a.DepositAmount = big.NewInt(0)
	}
	if a.CumulativeRepaid == nil {
		a.CumulativeRepaid = big.NewInt(0)
	}
	if a.YieldPoolFunded == nil {
		a.YieldPoolFunded = big.NewInt(0)
	}
	if a.YieldPoolClaimed == nil {
		a.YieldPoolClaimed = big.NewInt(0)
	}
	return a
}
