package funding

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "assetfund/native/common"
)

// TakeYield releases matured monthly yield to the recorded investor. A month
// matures once its full repayment obligation has actually been settled, not
// merely accrued as due. When the final tenure month is claimed the
// investment completes.
func (e *Engine) TakeYield(caller common.Address, assetID uint64, slot uint32) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	asset, assetType, st, err := e.loadSchedule(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != AssetOnboarded && asset.Status != AssetCompleted {
		return nil, ErrWrongStatus
	}
	inv, ok := e.state.InvestmentGet(assetID, slot)
	if !ok || inv == nil {
		return nil, ErrInvestNotFound
	}
	if inv.Investor != caller {
		return nil, ErrUnauthorized
	}
	if inv.Status != InvestmentActive {
		return nil, ErrWrongStatus
	}
	if asset.Status == AssetOnboarded {
		advanceSchedule(st, assetType, asset.OnboardTime, e.now())
		settleFundedMonths(asset, assetType, st)
		e.maybeComplete(asset, assetType, st)
	}
	if st.MonthsFunded <= inv.MonthsYieldClaimed {
		return nil, ErrNotMature
	}
	releasable := st.MonthsFunded - inv.MonthsYieldClaimed
	payout := new(big.Int).Mul(assetType.YieldPerQuotaMonthly, new(big.Int).SetUint64(inv.Quota))
	payout.Mul(payout, new(big.Int).SetUint64(uint64(releasable)))
	if err := e.transferToken(e.moduleAddress, inv.Investor, asset.PaymentToken, payout); err != nil {
		return nil, err
	}
	inv.MonthsYieldClaimed += releasable
	if inv.MonthsYieldClaimed >= assetType.TenureMonths {
		inv.Status = InvestmentCompleted
	}
	asset.YieldPoolClaimed = new(big.Int).Add(asset.YieldPoolClaimed, payout)
	if err := e.state.InvestmentPut(inv); err != nil {
		return nil, err
	}
	if err := e.state.RepaymentPut(st); err != nil {
		return nil, err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewYieldClaimedEvent(asset, inv, payout, releasable))
	return payout, nil
}
