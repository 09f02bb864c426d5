package funding

// AssetByID returns a copy of the stored asset record.
func (e *Engine) AssetByID(id uint64) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, err := e.loadAsset(id)
	if err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// AssetTypeByID returns a copy of the stored financing template.
func (e *Engine) AssetTypeByID(id uint64) (*AssetType, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	assetType, err := e.loadAssetType(id)
	if err != nil {
		return nil, err
	}
	return assetType.Clone(), nil
}

// InvestmentBySlot returns a copy of the investment at (asset, slot).
func (e *Engine) InvestmentBySlot(assetID uint64, slot uint32) (*Investment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	inv, ok := e.state.InvestmentGet(assetID, slot)
	if !ok || inv == nil {
		return nil, ErrInvestNotFound
	}
	return inv.Clone(), nil
}

// RepaymentByAsset returns the amortization ledger caught up to now. The
// stored ledger is not mutated; callers observe the position a mutating call
// issued at the same instant would settle against.
func (e *Engine) RepaymentByAsset(assetID uint64) (*RepaymentStatus, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, assetType, st, err := e.loadSchedule(assetID)
	if err != nil {
		return nil, err
	}
	view := st.Clone()
	if asset.Status == AssetOnboarded {
		advanceSchedule(view, assetType, asset.OnboardTime, e.now())
	}
	return view, nil
}
