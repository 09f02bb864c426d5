package funding

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "assetfund/native/common"
	"assetfund/native/interest"
)

// settleFundedMonths folds freshly matured-and-paid periods into the asset's
// yield pool. A month funds yieldPerQuota × totalQuotaSold of investor
// obligation.
func settleFundedMonths(asset *Asset, assetType *AssetType, st *RepaymentStatus) {
	funded := fundedMonths(st, assetType)
	if funded <= st.MonthsFunded {
		return
	}
	delta := uint64(funded - st.MonthsFunded)
	poolAdd := new(big.Int).Mul(assetType.YieldPerQuotaMonthly, new(big.Int).SetUint64(asset.TotalQuotaSold))
	poolAdd.Mul(poolAdd, new(big.Int).SetUint64(delta))
	asset.YieldPoolFunded = new(big.Int).Add(asset.YieldPoolFunded, poolAdd)
	st.MonthsFunded = funded
}

// maybeComplete transitions the asset to Completed once every period has
// closed with its obligation met and no debt remains outstanding.
func (e *Engine) maybeComplete(asset *Asset, assetType *AssetType, st *RepaymentStatus) {
	if asset.Status != AssetOnboarded {
		return
	}
	if st.MonthDueIndex <= assetType.TenureMonths {
		return
	}
	if st.MonthsFunded != assetType.TenureMonths {
		return
	}
	if st.OverdueDebt.Sign() != 0 || st.AmountDue.Sign() != 0 {
		return
	}
	asset.Status = AssetCompleted
	e.emit(NewAssetCompletedEvent(asset))
}

func (e *Engine) loadSchedule(assetID uint64) (*Asset, *AssetType, *RepaymentStatus, error) {
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return nil, nil, nil, err
	}
	assetType, err := e.loadAssetType(asset.AssetTypeID)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := e.loadRepayment(assetID)
	if err != nil {
		return nil, nil, nil, err
	}
	return asset, assetType, st, nil
}

// RepayMonthly applies a repayment on behalf of the asset owner. Any caller
// may supply the funds. The payment settles, in order: compounded overdue
// debt, the current period's due amount, and finally prepay credit consumed
// by future rollovers. Partial debt payments restart the compounding clock
// at now, so interest capitalised up to that point becomes principal.
func (e *Engine) RepayMonthly(payer common.Address, assetID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	asset, assetType, st, err := e.loadSchedule(assetID)
	if err != nil {
		return err
	}
	if asset.Status != AssetOnboarded {
		return ErrWrongStatus
	}
	curve, ok := e.state.RateCurveGet(assetType.InterestRateID)
	if !ok {
		return ErrCurveNotFound
	}
	now := e.now()
	advanceSchedule(st, assetType, asset.OnboardTime, now)

	if err := e.transferToken(payer, e.moduleAddress, asset.PaymentToken, amount); err != nil {
		return err
	}

	remaining := new(big.Int).Set(amount)
	if st.OverdueDebt.Sign() > 0 {
		elapsed := uint64(0)
		if now > st.DebtStartTime {
			elapsed = uint64(now - st.DebtStartTime)
		}
		factor := interest.Compound(curve.RatePerSecond, elapsed)
		grown := interest.ApplyFactor(factor, st.OverdueDebt)
		if remaining.Cmp(grown) >= 0 {
			remaining.Sub(remaining, grown)
			st.SchedulePaid = new(big.Int).Add(st.SchedulePaid, st.OverdueDebt)
			st.OverdueDebt = big.NewInt(0)
			st.DebtStartTime = 0
		} else {
			newDebt := new(big.Int).Sub(grown, remaining)
			reduced := new(big.Int).Sub(st.OverdueDebt, newDebt)
			if reduced.Sign() > 0 {
				st.SchedulePaid = new(big.Int).Add(st.SchedulePaid, reduced)
			}
			st.OverdueDebt = newDebt
			st.DebtStartTime = now
			remaining = big.NewInt(0)
		}
	}
	if remaining.Sign() > 0 && st.AmountDue.Sign() > 0 {
		applied := new(big.Int).Set(remaining)
		if applied.Cmp(st.AmountDue) > 0 {
			applied = new(big.Int).Set(st.AmountDue)
		}
		st.AmountDue = new(big.Int).Sub(st.AmountDue, applied)
		st.SchedulePaid = new(big.Int).Add(st.SchedulePaid, applied)
		remaining.Sub(remaining, applied)
	}
	if remaining.Sign() > 0 {
		st.PrepayCredit = new(big.Int).Add(st.PrepayCredit, remaining)
	}

	asset.CumulativeRepaid = new(big.Int).Add(asset.CumulativeRepaid, amount)
	settleFundedMonths(asset, assetType, st)
	e.maybeComplete(asset, assetType, st)

	if err := e.state.RepaymentPut(st); err != nil {
		return err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(NewRepayReceivedEvent(asset, payer, amount, st))
	return nil
}

// TakeInvest releases the raised capital, net of the reserved top quota, to
// the asset owner. Manager only; one shot per asset. Proceeds attributable to
// the reserved quota stay locked in the module vault.
func (e *Engine) TakeInvest(caller common.Address, assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireManager(caller); err != nil {
		return nil, err
	}
	asset, assetType, st, err := e.loadSchedule(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != AssetOnboarded {
		return nil, ErrWrongStatus
	}
	if st.InvestTaken {
		return nil, ErrInvestTaken
	}
	if asset.TotalQuotaSold <= assetType.ReserveTopQuota {
		return nil, ErrInvalidAmount
	}
	advanceSchedule(st, assetType, asset.OnboardTime, e.now())
	settleFundedMonths(asset, assetType, st)
	e.maybeComplete(asset, assetType, st)
	settledQuota := asset.TotalQuotaSold - assetType.ReserveTopQuota
	amount := new(big.Int).Mul(new(big.Int).SetUint64(settledQuota), assetType.ValuePerQuota)
	if err := e.transferToken(e.moduleAddress, asset.Owner, asset.PaymentToken, amount); err != nil {
		return nil, err
	}
	st.QuotaSettledAtOnboard = settledQuota
	st.InvestTaken = true
	if err := e.state.RepaymentPut(st); err != nil {
		return nil, err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewInvestTakenEvent(asset, asset.Owner, amount))
	return amount, nil
}

// TakeRepayment withdraws mature repayments to the operator treasury.
// Manager only. The takable amount covers fully funded months less the
// protected yield buffer: one month of aggregate investor yield beyond
// every month already matured for yield purposes is always withheld.
func (e *Engine) TakeRepayment(caller common.Address, assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireManager(caller); err != nil {
		return nil, err
	}
	asset, assetType, st, err := e.loadSchedule(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != AssetOnboarded && asset.Status != AssetCompleted {
		return nil, ErrWrongStatus
	}
	if asset.Status == AssetOnboarded {
		advanceSchedule(st, assetType, asset.OnboardTime, e.now())
		settleFundedMonths(asset, assetType, st)
		e.maybeComplete(asset, assetType, st)
	}
	takable := e.takableAmount(asset, assetType, st)
	if takable.Sign() <= 0 {
		return nil, ErrNoMatureRepayment
	}
	if err := e.transferToken(e.moduleAddress, e.treasury, asset.PaymentToken, takable); err != nil {
		return nil, err
	}
	st.WithdrawnByOperator = new(big.Int).Add(st.WithdrawnByOperator, takable)
	if err := e.state.RepaymentPut(st); err != nil {
		return nil, err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewRepayWithdrawnEvent(asset, e.treasury, takable))
	return takable, nil
}

// takableAmount bounds operator withdrawals by funded months and the yield
// reserve buffer. After completion the buffer shrinks to the yield still
// unclaimed by investors.
func (e *Engine) takableAmount(asset *Asset, assetType *AssetType, st *RepaymentStatus) *big.Int {
	aggregateYield := new(big.Int).Mul(assetType.YieldPerQuotaMonthly, new(big.Int).SetUint64(asset.TotalQuotaSold))
	if asset.Status == AssetCompleted {
		unclaimed := new(big.Int).Mul(aggregateYield, new(big.Int).SetUint64(uint64(assetType.TenureMonths)))
		unclaimed.Sub(unclaimed, asset.YieldPoolClaimed)
		if unclaimed.Sign() < 0 {
			unclaimed = big.NewInt(0)
		}
		takable := new(big.Int).Set(asset.CumulativeRepaid)
		takable.Sub(takable, st.WithdrawnByOperator)
		takable.Sub(takable, unclaimed)
		return takable
	}
	if st.MonthsFunded == 0 {
		return big.NewInt(0)
	}
	reserve := new(big.Int).Mul(aggregateYield, new(big.Int).SetUint64(uint64(st.MonthsFunded)+1))
	takable := new(big.Int).Mul(assetType.MonthlyRepayment, new(big.Int).SetUint64(uint64(st.MonthsFunded)))
	takable.Sub(takable, st.WithdrawnByOperator)
	takable.Sub(takable, reserve)
	return takable
}
