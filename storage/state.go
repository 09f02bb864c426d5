package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"assetfund/core/types"
	"assetfund/native/funding"
)

const (
	prefixAssetType  = "funding/assettype/"
	prefixTokenSet   = "funding/tokenset/"
	prefixRateCurve  = "funding/ratecurve/"
	prefixAsset      = "funding/asset/"
	prefixInvestment = "funding/invest/"
	prefixRepayment  = "funding/repay/"
	prefixAccount    = "funding/account/"
	prefixSequence   = "funding/seq/"
)

// State is the persistence adapter backing the funding engine. Records are
// stored as JSON under typed key prefixes; identifier sequences are stored as
// decimal counters and handed out starting from one.
type State struct {
	db Database
}

// NewState wraps a Database into a funding engine state.
func NewState(db Database) *State {
	return &State{db: db}
}

func (s *State) getJSON(key string, out interface{}) (bool, error) {
	raw, err := s.db.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) putJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), raw)
}

func (s *State) nextSequence(name string) (uint64, error) {
	key := prefixSequence + name
	next := uint64(1)
	raw, err := s.db.Get([]byte(key))
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return 0, err
	default:
		parsed, perr := strconv.ParseUint(string(raw), 10, 64)
		if perr != nil {
			return 0, perr
		}
		next = parsed + 1
	}
	if err := s.db.Put([]byte(key), []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

func idKey(prefix string, id uint64) string {
	return fmt.Sprintf("%s%016x", prefix, id)
}

func investKey(assetID uint64, slot uint32) string {
	return fmt.Sprintf("%s%016x/%08x", prefixInvestment, assetID, slot)
}

// AssetTypeGet loads an asset type by id.
func (s *State) AssetTypeGet(id uint64) (*funding.AssetType, bool) {
	value := new(funding.AssetType)
	ok, err := s.getJSON(idKey(prefixAssetType, id), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// AssetTypePut stores an asset type.
func (s *State) AssetTypePut(t *funding.AssetType) error {
	if t == nil {
		return errors.New("storage: nil asset type")
	}
	return s.putJSON(idKey(prefixAssetType, t.ID), t)
}

// NextAssetTypeID hands out the next asset type identifier.
func (s *State) NextAssetTypeID() (uint64, error) {
	return s.nextSequence("assettype")
}

// TokenSetGet loads a token whitelist by id.
func (s *State) TokenSetGet(id uint64) (*funding.TokenSet, bool) {
	value := new(funding.TokenSet)
	ok, err := s.getJSON(idKey(prefixTokenSet, id), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// TokenSetPut stores a token whitelist.
func (s *State) TokenSetPut(set *funding.TokenSet) error {
	if set == nil {
		return errors.New("storage: nil token set")
	}
	return s.putJSON(idKey(prefixTokenSet, set.ID), set)
}

// NextTokenSetID hands out the next token set identifier.
func (s *State) NextTokenSetID() (uint64, error) {
	return s.nextSequence("tokenset")
}

// RateCurveGet loads an accrual curve by id.
func (s *State) RateCurveGet(id uint64) (*funding.RateCurve, bool) {
	value := new(funding.RateCurve)
	ok, err := s.getJSON(idKey(prefixRateCurve, id), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// RateCurvePut stores an accrual curve.
func (s *State) RateCurvePut(curve *funding.RateCurve) error {
	if curve == nil {
		return errors.New("storage: nil rate curve")
	}
	return s.putJSON(idKey(prefixRateCurve, curve.ID), curve)
}

// NextRateCurveID hands out the next curve identifier.
func (s *State) NextRateCurveID() (uint64, error) {
	return s.nextSequence("ratecurve")
}

// AssetGet loads an asset by id.
func (s *State) AssetGet(id uint64) (*funding.Asset, bool) {
	value := new(funding.Asset)
	ok, err := s.getJSON(idKey(prefixAsset, id), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// AssetPut stores an asset.
func (s *State) AssetPut(asset *funding.Asset) error {
	if asset == nil {
		return errors.New("storage: nil asset")
	}
	return s.putJSON(idKey(prefixAsset, asset.ID), asset)
}

// NextAssetID hands out the next asset identifier.
func (s *State) NextAssetID() (uint64, error) {
	return s.nextSequence("asset")
}

// InvestmentGet loads the investment at (asset, slot).
func (s *State) InvestmentGet(assetID uint64, slot uint32) (*funding.Investment, bool) {
	value := new(funding.Investment)
	ok, err := s.getJSON(investKey(assetID, slot), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// InvestmentPut stores an investment record.
func (s *State) InvestmentPut(inv *funding.Investment) error {
	if inv == nil {
		return errors.New("storage: nil investment")
	}
	return s.putJSON(investKey(inv.AssetID, inv.Slot), inv)
}

// RepaymentGet loads the amortization ledger for an asset.
func (s *State) RepaymentGet(assetID uint64) (*funding.RepaymentStatus, bool) {
	value := new(funding.RepaymentStatus)
	ok, err := s.getJSON(idKey(prefixRepayment, assetID), value)
	if err != nil || !ok {
		return nil, false
	}
	return value, true
}

// RepaymentPut stores the amortization ledger for an asset.
func (s *State) RepaymentPut(st *funding.RepaymentStatus) error {
	if st == nil {
		return errors.New("storage: nil repayment status")
	}
	return s.putJSON(idKey(prefixRepayment, st.AssetID), st)
}

// GetAccount loads a token balance account, returning a fresh empty account
// for unseen addresses.
func (s *State) GetAccount(addr common.Address) (*types.Account, error) {
	value := types.NewAccount()
	ok, err := s.getJSON(prefixAccount+addr.Hex(), value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	return value, nil
}

// PutAccount stores a token balance account.
func (s *State) PutAccount(addr common.Address, acc *types.Account) error {
	if acc == nil {
		acc = types.NewAccount()
	}
	return s.putJSON(prefixAccount+addr.Hex(), acc)
}
