package funding

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"assetfund/core/events"
	"assetfund/core/types"
	nativecommon "assetfund/native/common"
)

const moduleName = "funding"

type engineState interface {
	AssetTypeGet(id uint64) (*AssetType, bool)
	AssetTypePut(*AssetType) error
	NextAssetTypeID() (uint64, error)
	TokenSetGet(id uint64) (*TokenSet, bool)
	TokenSetPut(*TokenSet) error
	NextTokenSetID() (uint64, error)
	RateCurveGet(id uint64) (*RateCurve, bool)
	RateCurvePut(*RateCurve) error
	NextRateCurveID() (uint64, error)
	AssetGet(id uint64) (*Asset, bool)
	AssetPut(*Asset) error
	NextAssetID() (uint64, error)
	InvestmentGet(assetID uint64, slot uint32) (*Investment, bool)
	InvestmentPut(*Investment) error
	RepaymentGet(assetID uint64) (*RepaymentStatus, bool)
	RepaymentPut(*RepaymentStatus) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, acc *types.Account) error
}

type fundingEvent struct {
	evt *types.Event
}

func (e fundingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e fundingEvent) Event() *types.Event { return e.evt }

// Engine orchestrates the financed-asset ledger: template registry, asset
// lifecycle, investment ledger, amortization schedule and yield release. All
// mutating operations settle the due-period rollover for their target asset
// before applying the requested effect.
type Engine struct {
	state             engineState
	emitter           events.Emitter
	nowFn             func() int64
	admin             common.Address
	manager           common.Address
	moduleAddress     common.Address
	collateralAddress common.Address
	treasury          common.Address
	collateralToken   string
	pauses            nativecommon.PauseView
}

// NewEngine constructs a funding engine bound to its vault and treasury
// addresses. The module vault custodies invested capital and repayments; the
// collateral vault custodies owner deposits.
func NewEngine(moduleAddr, collateralAddr, treasury common.Address, collateralToken string) *Engine {
	return &Engine{
		emitter:           events.NoopEmitter{},
		nowFn:             func() int64 { return time.Now().Unix() },
		moduleAddress:     moduleAddr,
		collateralAddress: collateralAddr,
		treasury:          treasury,
		collateralToken:   collateralToken,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRoles configures the administrator and manager addresses gating
// privileged operations.
func (e *Engine) SetRoles(admin, manager common.Address) {
	if e == nil {
		return
	}
	e.admin = admin
	e.manager = manager
}

// SetPauses wires the administrative pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(fundingEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) requireAdmin(caller common.Address) error {
	if caller != e.admin {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireManager(caller common.Address) error {
	if caller != e.manager {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	return acc, nil
}

// transferToken moves funds between two accounts in the given token. The
// debit and credit are applied together; an insufficient source balance
// aborts before any write. A put failure from the backing store can leave
// the transfer persisted ahead of the caller's follow-up records; the
// key-value store reports put failures only when the store itself is
// unusable, so callers surface the error without compensation.
func (e *Engine) transferToken(from, to common.Address, token string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	if fromAcc.BalanceOf(token).Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.SetBalance(token, new(big.Int).Sub(fromAcc.BalanceOf(token), amt))
	toAcc.SetBalance(token, new(big.Int).Add(toAcc.BalanceOf(token), amt))
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) loadAsset(id uint64) (*Asset, error) {
	asset, ok := e.state.AssetGet(id)
	if !ok || asset == nil {
		return nil, ErrAssetNotFound
	}
	return ensureAsset(asset), nil
}

func (e *Engine) loadAssetType(id uint64) (*AssetType, error) {
	assetType, ok := e.state.AssetTypeGet(id)
	if !ok || assetType == nil {
		return nil, ErrTypeNotFound
	}
	return assetType, nil
}

func (e *Engine) loadRepayment(assetID uint64) (*RepaymentStatus, error) {
	st, ok := e.state.RepaymentGet(assetID)
	if !ok || st == nil {
		return nil, ErrScheduleNotFound
	}
	return ensureRepayment(st), nil
}

// CreditAccount mirrors an external custody deposit into the ledger's
// balance table. Administrator only; the ledger itself never mints.
func (e *Engine) CreditAccount(caller, addr common.Address, token string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.SetBalance(token, new(big.Int).Add(acc.BalanceOf(token), amount))
	return e.state.PutAccount(addr, acc)
}

// BalanceOf reports the ledger balance an address holds in a token.
func (e *Engine) BalanceOf(addr common.Address, token string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceOf(token)), nil
}

// RegisterAsset locks the template's required deposit from the owner and
// opens a new asset in PendingDeposit. The payment token chosen by the owner
// must appear in the template's whitelist; every later investment, repayment
// and yield payout settles in that token.
func (e *Engine) RegisterAsset(owner common.Address, assetTypeID uint64, paymentToken string) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	assetType, err := e.loadAssetType(assetTypeID)
	if err != nil {
		return nil, err
	}
	tokenSet, ok := e.state.TokenSetGet(assetType.PaymentTokenSetID)
	if !ok {
		return nil, ErrTokenSetNotFound
	}
	if !tokenSet.Contains(paymentToken) {
		return nil, ErrTokenNotListed
	}
	if err := e.transferToken(owner, e.collateralAddress, e.collateralToken, assetType.RequiredDeposit); err != nil {
		return nil, err
	}
	id, err := e.state.NextAssetID()
	if err != nil {
		return nil, err
	}
	asset := ensureAsset(&Asset{
		ID:            id,
		Owner:         owner,
		Status:        AssetPendingDeposit,
		AssetTypeID:   assetTypeID,
		PaymentToken:  paymentToken,
		DepositAmount: cloneBigInt(assetType.RequiredDeposit),
		CreatedAt:     e.now(),
	})
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewAssetRegisteredEvent(asset))
	return asset.Clone(), nil
}

// DeliverAsset records the off-chain delivery proof and moves the asset to
// Delivered, opening the investment window.
func (e *Engine) DeliverAsset(caller common.Address, assetID uint64, proofRef common.Hash) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireManager(caller); err != nil {
		return err
	}
	if proofRef == (common.Hash{}) {
		return ErrEmptyProof
	}
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return err
	}
	if asset.Status != AssetPendingDeposit {
		return ErrWrongStatus
	}
	asset.DeliveryProofRef = proofRef
	asset.Status = AssetDelivered
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(NewAssetDeliveredEvent(asset))
	return nil
}

// Invest purchases a quota block in a delivered asset. The request either
// fully succeeds or fails; quota exceeding the remaining capacity is
// rejected outright.
func (e *Engine) Invest(payer common.Address, assetID uint64, quota uint64) (*Investment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if quota == 0 {
		return nil, ErrInvalidAmount
	}
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != AssetDelivered && asset.Status != AssetSubscribing {
		return nil, ErrWrongStatus
	}
	assetType, err := e.loadAssetType(asset.AssetTypeID)
	if err != nil {
		return nil, err
	}
	if asset.TotalQuotaSold+quota > assetType.InvestQuotaTotal {
		return nil, ErrQuotaExceeded
	}
	amount := new(big.Int).Mul(new(big.Int).SetUint64(quota), assetType.ValuePerQuota)
	if err := e.transferToken(payer, e.moduleAddress, asset.PaymentToken, amount); err != nil {
		return nil, err
	}
	inv := &Investment{
		AssetID:   assetID,
		Slot:      asset.InvestmentCount,
		Investor:  payer,
		Timestamp: e.now(),
		Status:    InvestmentActive,
		Quota:     quota,
	}
	asset.InvestmentCount++
	asset.TotalQuotaSold += quota
	if asset.Status == AssetDelivered {
		asset.Status = AssetSubscribing
	}
	if err := e.state.InvestmentPut(inv); err != nil {
		return nil, err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewInvestCreatedEvent(asset, inv, amount))
	return inv.Clone(), nil
}

// OnboardAsset fixes the due-date anchor and seeds the repayment ledger. At
// least one investment must exist.
func (e *Engine) OnboardAsset(caller common.Address, assetID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireManager(caller); err != nil {
		return err
	}
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return err
	}
	if asset.Status != AssetDelivered && asset.Status != AssetSubscribing {
		return ErrWrongStatus
	}
	if asset.InvestmentCount == 0 {
		return ErrNoInvestment
	}
	assetType, err := e.loadAssetType(asset.AssetTypeID)
	if err != nil {
		return err
	}
	asset.OnboardTime = e.now()
	asset.Status = AssetOnboarded
	st := newRepaymentStatus(assetID, assetType, asset.OnboardTime)
	if err := e.state.RepaymentPut(st); err != nil {
		return err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(NewAssetOnboardedEvent(asset, st))
	return nil
}

// CancelAsset withdraws an asset that never attracted investment, refunding
// the owner's deposit. Permitted to the owner or the manager.
func (e *Engine) CancelAsset(caller common.Address, assetID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return err
	}
	if caller != asset.Owner && caller != e.manager {
		return ErrUnauthorized
	}
	// The first investment flips the asset to Subscribing, so these two
	// statuses imply a zero investment count.
	if asset.Status != AssetPendingDeposit && asset.Status != AssetDelivered {
		return ErrWrongStatus
	}
	if err := e.transferToken(e.collateralAddress, asset.Owner, e.collateralToken, asset.DepositAmount); err != nil {
		return err
	}
	asset.DepositAmount = big.NewInt(0)
	asset.Status = AssetCancelled
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(NewAssetCancelledEvent(asset))
	return nil
}

// ClaimDeposit returns the performance collateral to the owner once the
// asset has completed its full schedule. The deposit can be claimed exactly
// once.
func (e *Engine) ClaimDeposit(caller common.Address, assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	asset, err := e.loadAsset(assetID)
	if err != nil {
		return nil, err
	}
	if caller != asset.Owner {
		return nil, ErrUnauthorized
	}
	if asset.Status != AssetCompleted {
		return nil, ErrWrongStatus
	}
	if asset.DepositAmount.Sign() == 0 {
		return nil, ErrDepositClaimed
	}
	amount := cloneBigInt(asset.DepositAmount)
	if err := e.transferToken(e.collateralAddress, asset.Owner, e.collateralToken, amount); err != nil {
		return nil, err
	}
	asset.DepositAmount = big.NewInt(0)
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewDepositClaimedEvent(asset, amount))
	return amount, nil
}
