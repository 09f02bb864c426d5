package funding

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"assetfund/core/events"
	"assetfund/core/types"
	nativecommon "assetfund/native/common"
	"assetfund/native/interest"
)

type investSlotKey struct {
	assetID uint64
	slot    uint32
}

// mockState is an in-memory engineState. Gets return clones so the engine
// must persist every mutation explicitly, mirroring the JSON storage layer.
type mockState struct {
	assetTypes  map[uint64]*AssetType
	tokenSets   map[uint64]*TokenSet
	rateCurves  map[uint64]*RateCurve
	assets      map[uint64]*Asset
	investments map[investSlotKey]*Investment
	repayments  map[uint64]*RepaymentStatus
	accounts    map[common.Address]*types.Account
	seq         map[string]uint64
}

func newMockState() *mockState {
	return &mockState{
		assetTypes:  make(map[uint64]*AssetType),
		tokenSets:   make(map[uint64]*TokenSet),
		rateCurves:  make(map[uint64]*RateCurve),
		assets:      make(map[uint64]*Asset),
		investments: make(map[investSlotKey]*Investment),
		repayments:  make(map[uint64]*RepaymentStatus),
		accounts:    make(map[common.Address]*types.Account),
		seq:         make(map[string]uint64),
	}
}

func (m *mockState) next(name string) (uint64, error) {
	m.seq[name]++
	return m.seq[name], nil
}

func (m *mockState) AssetTypeGet(id uint64) (*AssetType, bool) {
	t, ok := m.assetTypes[id]
	return t.Clone(), ok
}

func (m *mockState) AssetTypePut(t *AssetType) error {
	m.assetTypes[t.ID] = t.Clone()
	return nil
}

func (m *mockState) NextAssetTypeID() (uint64, error) { return m.next("assettype") }

func (m *mockState) TokenSetGet(id uint64) (*TokenSet, bool) {
	s, ok := m.tokenSets[id]
	return s.Clone(), ok
}

func (m *mockState) TokenSetPut(s *TokenSet) error {
	m.tokenSets[s.ID] = s.Clone()
	return nil
}

func (m *mockState) NextTokenSetID() (uint64, error) { return m.next("tokenset") }

func (m *mockState) RateCurveGet(id uint64) (*RateCurve, bool) {
	c, ok := m.rateCurves[id]
	return c.Clone(), ok
}

func (m *mockState) RateCurvePut(c *RateCurve) error {
	m.rateCurves[c.ID] = c.Clone()
	return nil
}

func (m *mockState) NextRateCurveID() (uint64, error) { return m.next("ratecurve") }

func (m *mockState) AssetGet(id uint64) (*Asset, bool) {
	a, ok := m.assets[id]
	return a.Clone(), ok
}

func (m *mockState) AssetPut(a *Asset) error {
	m.assets[a.ID] = a.Clone()
	return nil
}

func (m *mockState) NextAssetID() (uint64, error) { return m.next("asset") }

func (m *mockState) InvestmentGet(assetID uint64, slot uint32) (*Investment, bool) {
	inv, ok := m.investments[investSlotKey{assetID, slot}]
	return inv.Clone(), ok
}

func (m *mockState) InvestmentPut(inv *Investment) error {
	m.investments[investSlotKey{inv.AssetID, inv.Slot}] = inv.Clone()
	return nil
}

func (m *mockState) RepaymentGet(assetID uint64) (*RepaymentStatus, bool) {
	st, ok := m.repayments[assetID]
	return st.Clone(), ok
}

func (m *mockState) RepaymentPut(st *RepaymentStatus) error {
	m.repayments[st.AssetID] = st.Clone()
	return nil
}

func (m *mockState) GetAccount(addr common.Address) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return types.NewAccount(), nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr common.Address, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

var (
	adminAddr      = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	managerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000A2")
	moduleVault    = common.HexToAddress("0x00000000000000000000000000000000000000F1")
	collateralAddr = common.HexToAddress("0x00000000000000000000000000000000000000F2")
	treasuryAddr   = common.HexToAddress("0x00000000000000000000000000000000000000F3")
	ownerAddr      = common.HexToAddress("0x0000000000000000000000000000000000000101")
	investorA      = common.HexToAddress("0x0000000000000000000000000000000000000201")
	investorB      = common.HexToAddress("0x0000000000000000000000000000000000000202")
	investorC      = common.HexToAddress("0x0000000000000000000000000000000000000203")
)

const testToken = "USDQ"

type testClock struct {
	now int64
}

func (c *testClock) Now() int64      { return c.now }
func (c *testClock) Set(ts int64)    { c.now = ts }
func (c *testClock) Advance(d int64) { c.now += d }

// newTestEngine wires an engine, mock state and recorder with the reference
// template already registered: 12 month tenure, 800 quota at 1_000_000 each,
// 150_000_000 monthly repayment, 80_000 monthly yield per quota and a top
// reserve of 20 quota.
func newTestEngine(t *testing.T) (*Engine, *mockState, *events.Recorder, *testClock) {
	t.Helper()
	state := newMockState()
	recorder := &events.Recorder{}
	clock := &testClock{now: time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC).Unix()}

	engine := NewEngine(moduleVault, collateralAddr, treasuryAddr, testToken)
	engine.SetState(state)
	engine.SetRoles(adminAddr, managerAddr)
	engine.SetEmitter(recorder)
	engine.SetNowFunc(clock.Now)

	if _, err := engine.AddTokenSet(adminAddr, []string{testToken, "USDT"}); err != nil {
		t.Fatalf("add token set: %v", err)
	}
	rate := new(big.Int).Add(new(big.Int).Set(interest.Ray), big.NewInt(1_000_000_000))
	if _, err := engine.AddRateCurve(adminAddr, rate); err != nil {
		t.Fatalf("add rate curve: %v", err)
	}
	if _, err := engine.AddAssetType(adminAddr, testAssetTypeParams()); err != nil {
		t.Fatalf("add asset type: %v", err)
	}
	return engine, state, recorder, clock
}

func testAssetTypeParams() AssetType {
	return AssetType{
		TenureMonths:         12,
		InvestQuotaTotal:     800,
		ValuePerQuota:        big.NewInt(1_000_000),
		MonthlyRepayment:     big.NewInt(150_000_000),
		YieldPerQuotaMonthly: big.NewInt(80_000),
		RequiredDeposit:      big.NewInt(1_500_000),
		PaymentTokenSetID:    1,
		MaxOverdueDays:       30,
		MinExitNoticeDays:    15,
		InterestRateID:       1,
		ReserveTopQuota:      20,
		SlashTopCount:        5,
		OperatorShareBps:     7_000,
		PlatformShareBps:     1_000,
		InvestorShareBps:     2_000,
	}
}

func fund(t *testing.T, engine *Engine, addr common.Address, token string, amount int64) {
	t.Helper()
	if err := engine.CreditAccount(adminAddr, addr, token, big.NewInt(amount)); err != nil {
		t.Fatalf("credit %s: %v", addr.Hex(), err)
	}
}

func balance(t *testing.T, engine *Engine, addr common.Address, token string) *big.Int {
	t.Helper()
	bal, err := engine.BalanceOf(addr, token)
	if err != nil {
		t.Fatalf("balance of %s: %v", addr.Hex(), err)
	}
	return bal
}

// registerDelivered opens an asset and records delivery, leaving it open for
// investment.
func registerDelivered(t *testing.T, engine *Engine) *Asset {
	t.Helper()
	fund(t, engine, ownerAddr, testToken, 10_000_000)
	asset, err := engine.RegisterAsset(ownerAddr, 1, testToken)
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	proof := common.HexToHash("0xdeadbeef00000000000000000000000000000000000000000000000000000001")
	if err := engine.DeliverAsset(managerAddr, asset.ID, proof); err != nil {
		t.Fatalf("deliver asset: %v", err)
	}
	return asset
}

// onboardWithInvestors registers, delivers and onboards an asset with the
// three reference investors holding 150, 350 and 100 quota.
func onboardWithInvestors(t *testing.T, engine *Engine) *Asset {
	t.Helper()
	asset := registerDelivered(t, engine)
	for _, stake := range []struct {
		investor common.Address
		quota    uint64
	}{
		{investorA, 150},
		{investorB, 350},
		{investorC, 100},
	} {
		fund(t, engine, stake.investor, testToken, int64(stake.quota)*1_000_000)
		if _, err := engine.Invest(stake.investor, asset.ID, stake.quota); err != nil {
			t.Fatalf("invest %d quota: %v", stake.quota, err)
		}
	}
	if err := engine.OnboardAsset(managerAddr, asset.ID); err != nil {
		t.Fatalf("onboard: %v", err)
	}
	return asset
}

func TestRegisterAssetLocksDeposit(t *testing.T) {
	engine, _, recorder, _ := newTestEngine(t)
	fund(t, engine, ownerAddr, testToken, 10_000_000)

	asset, err := engine.RegisterAsset(ownerAddr, 1, testToken)
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if asset.Status != AssetPendingDeposit {
		t.Fatalf("status = %s, want pending_deposit", asset.Status)
	}
	if got := balance(t, engine, ownerAddr, testToken); got.Cmp(big.NewInt(8_500_000)) != 0 {
		t.Fatalf("owner balance = %s, want 8500000", got)
	}
	if got := balance(t, engine, collateralAddr, testToken); got.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Fatalf("collateral vault = %s, want 1500000", got)
	}
	last := recorder.Events[len(recorder.Events)-1]
	if last.EventType() != "funding.asset.registered" {
		t.Fatalf("last event = %s", last.EventType())
	}
}

func TestRegisterAssetRejectsUnlistedToken(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	fund(t, engine, ownerAddr, testToken, 10_000_000)
	if _, err := engine.RegisterAsset(ownerAddr, 1, "DOGE"); !errors.Is(err, ErrTokenNotListed) {
		t.Fatalf("err = %v, want ErrTokenNotListed", err)
	}
}

func TestRegisterAssetInsufficientDeposit(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	fund(t, engine, ownerAddr, testToken, 1_000)
	if _, err := engine.RegisterAsset(ownerAddr, 1, testToken); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestDeliverAssetRequiresManagerAndProof(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	fund(t, engine, ownerAddr, testToken, 10_000_000)
	asset, err := engine.RegisterAsset(ownerAddr, 1, testToken)
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	proof := common.HexToHash("0x01")
	if err := engine.DeliverAsset(ownerAddr, asset.ID, proof); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("owner delivery err = %v, want ErrUnauthorized", err)
	}
	if err := engine.DeliverAsset(managerAddr, asset.ID, common.Hash{}); !errors.Is(err, ErrEmptyProof) {
		t.Fatalf("empty proof err = %v, want ErrEmptyProof", err)
	}
	if err := engine.DeliverAsset(managerAddr, asset.ID, proof); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := engine.DeliverAsset(managerAddr, asset.ID, proof); !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("second delivery err = %v, want ErrWrongStatus", err)
	}
}

func TestInvestCapacityIsAllOrNothing(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := registerDelivered(t, engine)

	fund(t, engine, investorA, testToken, 800_000_000)
	if _, err := engine.Invest(investorA, asset.ID, 750); err != nil {
		t.Fatalf("invest 750: %v", err)
	}
	// 50 quota remain; a 51-quota request must fail whole.
	if _, err := engine.Invest(investorA, asset.ID, 51); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	got, err := engine.AssetByID(asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.TotalQuotaSold != 750 {
		t.Fatalf("quota sold = %d, want 750 after rejected overshoot", got.TotalQuotaSold)
	}
	if _, err := engine.Invest(investorA, asset.ID, 50); err != nil {
		t.Fatalf("invest remaining 50: %v", err)
	}
}

func TestInvestMovesFundsAndAssignsSlots(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := registerDelivered(t, engine)

	fund(t, engine, investorA, testToken, 200_000_000)
	inv1, err := engine.Invest(investorA, asset.ID, 150)
	if err != nil {
		t.Fatalf("first invest: %v", err)
	}
	inv2, err := engine.Invest(investorA, asset.ID, 10)
	if err != nil {
		t.Fatalf("second invest: %v", err)
	}
	if inv1.Slot != 0 || inv2.Slot != 1 {
		t.Fatalf("slots = %d,%d, want 0,1", inv1.Slot, inv2.Slot)
	}
	if got := balance(t, engine, moduleVault, testToken); got.Cmp(big.NewInt(160_000_000)) != 0 {
		t.Fatalf("module vault = %s, want 160000000", got)
	}
	got, err := engine.AssetByID(asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.Status != AssetSubscribing {
		t.Fatalf("status = %s, want subscribing", got.Status)
	}
}

func TestOnboardRequiresInvestment(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := registerDelivered(t, engine)
	if err := engine.OnboardAsset(managerAddr, asset.ID); !errors.Is(err, ErrNoInvestment) {
		t.Fatalf("err = %v, want ErrNoInvestment", err)
	}
}

func TestOnboardSeedsSchedule(t *testing.T) {
	engine, state, _, clock := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)

	st, ok := state.RepaymentGet(asset.ID)
	if !ok {
		t.Fatalf("repayment ledger missing")
	}
	if st.MonthDueIndex != 1 {
		t.Fatalf("month index = %d, want 1", st.MonthDueIndex)
	}
	if st.AmountDue.Cmp(big.NewInt(150_000_000)) != 0 {
		t.Fatalf("amount due = %s, want 150000000", st.AmountDue)
	}
	want := dueTimeFor(clock.Now(), 1)
	if st.NextDueTime != want {
		t.Fatalf("next due = %d, want %d", st.NextDueTime, want)
	}
}

func TestCancelAssetRefundsDeposit(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	fund(t, engine, ownerAddr, testToken, 10_000_000)
	asset, err := engine.RegisterAsset(ownerAddr, 1, testToken)
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if err := engine.CancelAsset(investorA, asset.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger cancel err = %v, want ErrUnauthorized", err)
	}
	if err := engine.CancelAsset(ownerAddr, asset.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := balance(t, engine, ownerAddr, testToken); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("owner balance = %s, want full refund", got)
	}
	got, err := engine.AssetByID(asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.Status != AssetCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}

func TestPausedModuleRejectsMutations(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := onboardWithInvestors(t, engine)
	fund(t, engine, ownerAddr, testToken, 300_000_000)

	engine.SetPauses(nativecommon.NewPauseSet([]string{moduleName}))
	if err := engine.RepayMonthly(ownerAddr, asset.ID, big.NewInt(150_000_000)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("repay err = %v, want ErrModulePaused", err)
	}
	if _, err := engine.RegisterAsset(ownerAddr, 1, testToken); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("register err = %v, want ErrModulePaused", err)
	}
	if _, err := engine.TakeYield(investorA, asset.ID, 0); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("yield err = %v, want ErrModulePaused", err)
	}

	engine.SetPauses(nil)
	if err := engine.RepayMonthly(ownerAddr, asset.ID, big.NewInt(150_000_000)); err != nil {
		t.Fatalf("repay after unpause: %v", err)
	}
}

func TestCancelAssetBlockedByInvestment(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	asset := registerDelivered(t, engine)
	fund(t, engine, investorA, testToken, 1_000_000)
	if _, err := engine.Invest(investorA, asset.ID, 1); err != nil {
		t.Fatalf("invest: %v", err)
	}
	if err := engine.CancelAsset(ownerAddr, asset.ID); !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("err = %v, want ErrWrongStatus", err)
	}
}
