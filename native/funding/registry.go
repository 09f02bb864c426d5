package funding

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"assetfund/native/interest"
)

// shareTotalBps is the platform constant the per-type share split must sum
// to.
const shareTotalBps = 10_000

// AddAssetType publishes an immutable financing template. Administrator
// only. Every semantically required field must be non-zero and the share
// split must sum to exactly the platform total; the template is rejected
// otherwise and nothing is stored.
func (e *Engine) AddAssetType(caller common.Address, params AssetType) (*AssetType, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := e.validateAssetType(&params); err != nil {
		return nil, err
	}
	id, err := e.state.NextAssetTypeID()
	if err != nil {
		return nil, err
	}
	assetType := params.Clone()
	assetType.ID = id
	if err := e.state.AssetTypePut(assetType); err != nil {
		return nil, err
	}
	e.emit(NewAssetTypeCreatedEvent(assetType))
	return assetType.Clone(), nil
}

func (e *Engine) validateAssetType(t *AssetType) error {
	if t == nil {
		return ErrInvalidParams
	}
	if t.TenureMonths == 0 || t.InvestQuotaTotal == 0 {
		return ErrInvalidParams
	}
	if t.ValuePerQuota == nil || t.ValuePerQuota.Sign() <= 0 {
		return ErrInvalidParams
	}
	if t.MonthlyRepayment == nil || t.MonthlyRepayment.Sign() <= 0 {
		return ErrInvalidParams
	}
	if t.YieldPerQuotaMonthly == nil || t.YieldPerQuotaMonthly.Sign() < 0 {
		return ErrInvalidParams
	}
	if t.RequiredDeposit == nil || t.RequiredDeposit.Sign() <= 0 {
		return ErrInvalidParams
	}
	if t.ReserveTopQuota >= t.InvestQuotaTotal {
		return ErrInvalidParams
	}
	if uint64(t.SlashTopCount) > t.ReserveTopQuota {
		return ErrInvalidParams
	}
	if t.OperatorShareBps+t.PlatformShareBps+t.InvestorShareBps != shareTotalBps {
		return ErrInvalidParams
	}
	if _, ok := e.state.TokenSetGet(t.PaymentTokenSetID); !ok {
		return ErrTokenSetNotFound
	}
	if _, ok := e.state.RateCurveGet(t.InterestRateID); !ok {
		return ErrCurveNotFound
	}
	return nil
}

// AddTokenSet whitelists a set of payment token symbols. Administrator only.
func (e *Engine) AddTokenSet(caller common.Address, tokens []string) (*TokenSet, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token))
		if symbol == "" {
			return nil, ErrInvalidParams
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		cleaned = append(cleaned, symbol)
	}
	if len(cleaned) == 0 {
		return nil, ErrInvalidParams
	}
	id, err := e.state.NextTokenSetID()
	if err != nil {
		return nil, err
	}
	set := &TokenSet{ID: id, Tokens: cleaned}
	if err := e.state.TokenSetPut(set); err != nil {
		return nil, err
	}
	e.emit(NewTokenSetCreatedEvent(set))
	return set.Clone(), nil
}

// AddRateCurve registers a ray-scaled per-second compounding factor used for
// overdue debt accrual. Administrator only; the factor must exceed one ray.
func (e *Engine) AddRateCurve(caller common.Address, ratePerSecond *big.Int) (*RateCurve, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if ratePerSecond == nil || ratePerSecond.Cmp(interest.Ray) <= 0 {
		return nil, ErrInvalidParams
	}
	id, err := e.state.NextRateCurveID()
	if err != nil {
		return nil, err
	}
	curve := &RateCurve{ID: id, RatePerSecond: new(big.Int).Set(ratePerSecond)}
	if err := e.state.RateCurvePut(curve); err != nil {
		return nil, err
	}
	e.emit(NewRateCurveCreatedEvent(curve))
	return curve.Clone(), nil
}
