package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"assetfund/native/funding"
	"assetfund/observability/metrics"
)

type tokenSetRequest struct {
	Caller string   `json:"caller"`
	Tokens []string `json:"tokens"`
}

func (s *Server) handleAddTokenSet(w http.ResponseWriter, r *http.Request) {
	const op = "funding_addTokenSet"
	var req tokenSetRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	set, err := s.engine.AddTokenSet(caller, req.Tokens)
	s.mu.Unlock()
	s.respond(w, op, err, set)
}

type rateCurveRequest struct {
	Caller        string `json:"caller"`
	RatePerSecond string `json:"ratePerSecond"`
}

func (s *Server) handleAddRateCurve(w http.ResponseWriter, r *http.Request) {
	const op = "funding_addRateCurve"
	var req rateCurveRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	rate, err := parseAmount(req.RatePerSecond)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	curve, err := s.engine.AddRateCurve(caller, rate)
	s.mu.Unlock()
	s.respond(w, op, err, curve)
}

type assetTypeRequest struct {
	Caller               string `json:"caller"`
	TenureMonths         uint32 `json:"tenureMonths"`
	InvestQuotaTotal     uint64 `json:"investQuotaTotal"`
	ValuePerQuota        string `json:"valuePerQuota"`
	MonthlyRepayment     string `json:"monthlyRepayment"`
	YieldPerQuotaMonthly string `json:"yieldPerQuotaMonthly"`
	RequiredDeposit      string `json:"requiredDeposit"`
	PaymentTokenSetID    uint64 `json:"paymentTokenSetId"`
	MaxOverdueDays       uint32 `json:"maxOverdueDays"`
	MinExitNoticeDays    uint32 `json:"minExitNoticeDays"`
	InterestRateID       uint64 `json:"interestRateId"`
	ReserveTopQuota      uint64 `json:"reserveTopQuota"`
	SlashTopCount        uint32 `json:"slashTopCount"`
	OperatorShareBps     uint32 `json:"operatorShareBps"`
	PlatformShareBps     uint32 `json:"platformShareBps"`
	InvestorShareBps     uint32 `json:"investorShareBps"`
}

func (s *Server) handleAddAssetType(w http.ResponseWriter, r *http.Request) {
	const op = "funding_addAssetType"
	var req assetTypeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	params := funding.AssetType{
		TenureMonths:      req.TenureMonths,
		InvestQuotaTotal:  req.InvestQuotaTotal,
		PaymentTokenSetID: req.PaymentTokenSetID,
		MaxOverdueDays:    req.MaxOverdueDays,
		MinExitNoticeDays: req.MinExitNoticeDays,
		InterestRateID:    req.InterestRateID,
		ReserveTopQuota:   req.ReserveTopQuota,
		SlashTopCount:     req.SlashTopCount,
		OperatorShareBps:  req.OperatorShareBps,
		PlatformShareBps:  req.PlatformShareBps,
		InvestorShareBps:  req.InvestorShareBps,
	}
	if params.ValuePerQuota, err = parseAmount(req.ValuePerQuota); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	if params.MonthlyRepayment, err = parseAmount(req.MonthlyRepayment); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	if params.YieldPerQuotaMonthly, err = parseAmount(req.YieldPerQuotaMonthly); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	if params.RequiredDeposit, err = parseAmount(req.RequiredDeposit); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	created, err := s.engine.AddAssetType(caller, params)
	s.mu.Unlock()
	s.respond(w, op, err, created)
}

func (s *Server) handleGetAssetType(w http.ResponseWriter, r *http.Request) {
	const op = "funding_getAssetType"
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	assetType, err := s.engine.AssetTypeByID(id)
	s.respond(w, op, err, assetType)
}

type creditRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleCreditAccount(w http.ResponseWriter, r *http.Request) {
	const op = "funding_creditAccount"
	var req creditRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	addr, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	err = s.engine.CreditAccount(caller, addr, req.Token, amount)
	s.mu.Unlock()
	s.respond(w, op, err, map[string]string{"status": "credited"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "funding_balance"
	addr, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	token := r.URL.Query().Get("token")
	balance, err := s.engine.BalanceOf(addr, token)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.respond(w, op, nil, map[string]string{"balance": balance.String()})
}

type registerAssetRequest struct {
	Owner        string `json:"owner"`
	AssetTypeID  uint64 `json:"assetTypeId"`
	PaymentToken string `json:"paymentToken"`
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	const op = "funding_registerAsset"
	var req registerAssetRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	asset, err := s.engine.RegisterAsset(owner, req.AssetTypeID, req.PaymentToken)
	s.mu.Unlock()
	s.respond(w, op, err, asset)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	const op = "funding_getAsset"
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	asset, err := s.engine.AssetByID(id)
	s.respond(w, op, err, asset)
}

func (s *Server) handleGetRepayment(w http.ResponseWriter, r *http.Request) {
	const op = "funding_getRepayment"
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	st, err := s.engine.RepaymentByAsset(id)
	s.respond(w, op, err, st)
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	const op = "funding_getInvestment"
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	slot, err := parseSlot(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	inv, err := s.engine.InvestmentBySlot(id, slot)
	s.respond(w, op, err, inv)
}

type deliverRequest struct {
	Caller   string `json:"caller"`
	ProofRef string `json:"proofRef"`
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	const op = "funding_deliverAsset"
	var req deliverRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	err = s.engine.DeliverAsset(caller, id, common.HexToHash(req.ProofRef))
	s.mu.Unlock()
	s.respond(w, op, err, map[string]string{"status": "delivered"})
}

type investRequest struct {
	Payer string `json:"payer"`
	Quota uint64 `json:"quota"`
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	const op = "funding_invest"
	var req investRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	inv, err := s.engine.Invest(payer, id, req.Quota)
	s.mu.Unlock()
	s.respond(w, op, err, inv)
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) callerAndID(r *http.Request) (common.Address, uint64, error) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		return common.Address{}, 0, err
	}
	id, err := parseID(r, "id")
	if err != nil {
		return common.Address{}, 0, err
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		return common.Address{}, 0, err
	}
	return caller, id, nil
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	const op = "funding_onboardAsset"
	caller, id, err := s.callerAndID(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	err = s.engine.OnboardAsset(caller, id)
	s.mu.Unlock()
	s.respond(w, op, err, map[string]string{"status": "onboarded"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	const op = "funding_cancelAsset"
	caller, id, err := s.callerAndID(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	err = s.engine.CancelAsset(caller, id)
	s.mu.Unlock()
	s.respond(w, op, err, map[string]string{"status": "cancelled"})
}

type repayRequest struct {
	Payer  string `json:"payer"`
	Amount string `json:"amount"`
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	const op = "funding_repayMonthly"
	var req repayRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	err = s.engine.RepayMonthly(payer, id, amount)
	s.mu.Unlock()
	if err == nil {
		metrics.Funding().RecordRepayment()
	}
	s.respond(w, op, err, map[string]string{"status": "accepted"})
}

func (s *Server) handleTakeInvest(w http.ResponseWriter, r *http.Request) {
	const op = "funding_takeInvest"
	caller, id, err := s.callerAndID(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	amount, err := s.engine.TakeInvest(caller, id)
	s.mu.Unlock()
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.respond(w, op, nil, map[string]string{"amount": amount.String()})
}

func (s *Server) handleTakeRepayment(w http.ResponseWriter, r *http.Request) {
	const op = "funding_takeRepayment"
	caller, id, err := s.callerAndID(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	amount, err := s.engine.TakeRepayment(caller, id)
	s.mu.Unlock()
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.respond(w, op, nil, map[string]string{"amount": amount.String()})
}

func (s *Server) handleTakeYield(w http.ResponseWriter, r *http.Request) {
	const op = "funding_takeYield"
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		s.respond(w, op, err, nil)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	slot, err := parseSlot(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	payout, err := s.engine.TakeYield(caller, id, slot)
	s.mu.Unlock()
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	metrics.Funding().RecordYieldClaim()
	s.respond(w, op, nil, map[string]string{"amount": payout.String()})
}

func (s *Server) handleClaimDeposit(w http.ResponseWriter, r *http.Request) {
	const op = "funding_claimDeposit"
	caller, id, err := s.callerAndID(r)
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.mu.Lock()
	amount, err := s.engine.ClaimDeposit(caller, id)
	s.mu.Unlock()
	if err != nil {
		s.respond(w, op, err, nil)
		return
	}
	s.respond(w, op, nil, map[string]string{"amount": amount.String()})
}
