package funding

import (
	"errors"
	"math/big"
	"testing"
)

func TestTakeYieldReleasesMaturedMonth(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)
	onboard := clock.Now()

	fund(t, engine, ownerAddr, testToken, 150_000_000)
	if err := engine.RepayMonthly(ownerAddr, asset.ID, big.NewInt(150_000_000)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	clock.Set(dueTimeFor(onboard, 1) + 3600)

	payout, err := engine.TakeYield(investorA, asset.ID, 0)
	if err != nil {
		t.Fatalf("take yield: %v", err)
	}
	// 150 quota at 80_000 monthly yield, one matured month.
	if payout.Cmp(big.NewInt(12_000_000)) != 0 {
		t.Fatalf("payout = %s, want 12000000", payout)
	}
	if got := balance(t, engine, investorA, testToken); got.Cmp(payout) != 0 {
		t.Fatalf("investor balance = %s, want %s", got, payout)
	}
	if _, err := engine.TakeYield(investorA, asset.ID, 0); !errors.Is(err, ErrNotMature) {
		t.Fatalf("second claim err = %v, want ErrNotMature", err)
	}
}

func TestTakeYieldBeforeAnyFundedMonth(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)
	if _, err := engine.TakeYield(investorA, asset.ID, 0); !errors.Is(err, ErrNotMature) {
		t.Fatalf("err = %v, want ErrNotMature", err)
	}
}

func TestTakeYieldWrongInvestor(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)
	onboard := clock.Now()

	fund(t, engine, ownerAddr, testToken, 150_000_000)
	if err := engine.RepayMonthly(ownerAddr, asset.ID, big.NewInt(150_000_000)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	clock.Set(dueTimeFor(onboard, 1) + 3600)

	if _, err := engine.TakeYield(investorB, asset.ID, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if _, err := engine.TakeYield(investorA, asset.ID, 9); !errors.Is(err, ErrInvestNotFound) {
		t.Fatalf("unknown slot err = %v, want ErrInvestNotFound", err)
	}
}

func TestTakeYieldBatchesMissedClaims(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)
	onboard := clock.Now()

	// Pay three months on schedule without the investor claiming.
	fund(t, engine, ownerAddr, testToken, 450_000_000)
	for month := uint32(1); month <= 3; month++ {
		if err := engine.RepayMonthly(ownerAddr, asset.ID, big.NewInt(150_000_000)); err != nil {
			t.Fatalf("repay month %d: %v", month, err)
		}
		clock.Set(dueTimeFor(onboard, month) + 3600)
	}

	payout, err := engine.TakeYield(investorB, asset.ID, 1)
	if err != nil {
		t.Fatalf("take yield: %v", err)
	}
	// 350 quota, 80_000 per month, three matured months in one claim.
	if payout.Cmp(big.NewInt(84_000_000)) != 0 {
		t.Fatalf("payout = %s, want 84000000", payout)
	}
	inv, err := engine.InvestmentBySlot(asset.ID, 1)
	if err != nil {
		t.Fatalf("get investment: %v", err)
	}
	if inv.MonthsYieldClaimed != 3 {
		t.Fatalf("months claimed = %d, want 3", inv.MonthsYieldClaimed)
	}
	if inv.Status != InvestmentActive {
		t.Fatalf("status = %s, want active before tenure end", inv.Status)
	}
}
