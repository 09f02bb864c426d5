package funding

import (
	"math/big"
	"time"
)

// startOfDay truncates a unix timestamp to 00:00:00 UTC of the same day.
func startOfDay(ts int64) int64 {
	t := time.Unix(ts, 0).UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.Unix()
}

// endOfDay returns 23:59:59 UTC of the day containing the timestamp.
func endOfDay(ts int64) int64 {
	return startOfDay(ts) + 24*60*60 - 1
}

// addCalendarMonths advances a unix timestamp by whole calendar months,
// clamping the day-of-month at the target month's end. Unlike time.AddDate
// this never rolls over into the following month (Jan 31 + 1 month is
// Feb 28/29, not Mar 2/3).
func addCalendarMonths(ts int64, months uint32) int64 {
	t := time.Unix(ts, 0).UTC()
	year := t.Year()
	month := int(t.Month()) - 1 + int(months)
	year += month / 12
	month = month % 12
	day := t.Day()
	if last := lastDayOfMonth(year, time.Month(month+1)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month+1), day, t.Hour(), t.Minute(), t.Second(), 0, time.UTC).Unix()
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the next month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dueTimeFor computes the due timestamp closing the given month index,
// anchored at the start of the onboarding day.
func dueTimeFor(onboardTime int64, monthIndex uint32) int64 {
	anchor := startOfDay(onboardTime)
	return endOfDay(addCalendarMonths(anchor, monthIndex))
}

// newRepaymentStatus seeds the amortization ledger at onboarding time. The
// first due period closes one calendar month after the onboarding day.
func newRepaymentStatus(assetID uint64, assetType *AssetType, onboardTime int64) *RepaymentStatus {
	return &RepaymentStatus{
		AssetID:             assetID,
		MonthDueIndex:       1,
		NextDueTime:         dueTimeFor(onboardTime, 1),
		AmountDue:           cloneBigInt(assetType.MonthlyRepayment),
		OverdueDebt:         big.NewInt(0),
		PrepayCredit:        big.NewInt(0),
		SchedulePaid:        big.NewInt(0),
		WithdrawnByOperator: big.NewInt(0),
	}
}

// advanceSchedule catches the ledger up with wall-clock time. Every due
// boundary crossed since the last mutation closes one period: leftover dues
// become overdue debt anchored at the first missed boundary, and the next
// period opens with the monthly amount net of any prepay credit. The loop
// stops once every tenure period has been closed. advanceSchedule is a pure
// function of the stored ledger and now; it performs no I/O.
func advanceSchedule(st *RepaymentStatus, assetType *AssetType, anchor int64, now int64) {
	if st == nil || assetType == nil {
		return
	}
	ensureRepayment(st)
	for now > st.NextDueTime && st.MonthDueIndex <= assetType.TenureMonths {
		if st.AmountDue.Sign() > 0 {
			if st.OverdueDebt.Sign() == 0 {
				st.DebtStartTime = st.NextDueTime
			}
			st.OverdueDebt = new(big.Int).Add(st.OverdueDebt, st.AmountDue)
			st.AmountDue = big.NewInt(0)
		}
		st.MonthDueIndex++
		if st.MonthDueIndex > assetType.TenureMonths {
			st.AmountDue = big.NewInt(0)
			break
		}
		due := cloneBigInt(assetType.MonthlyRepayment)
		if st.PrepayCredit.Sign() > 0 {
			consumed := new(big.Int).Set(st.PrepayCredit)
			if consumed.Cmp(due) > 0 {
				consumed = new(big.Int).Set(due)
			}
			due.Sub(due, consumed)
			st.PrepayCredit = new(big.Int).Sub(st.PrepayCredit, consumed)
			st.SchedulePaid = new(big.Int).Add(st.SchedulePaid, consumed)
		}
		st.AmountDue = due
		st.NextDueTime = dueTimeFor(anchor, st.MonthDueIndex)
	}
}

// fundedMonths counts the periods whose full monthly obligation has been
// repaid. A period only counts once it has matured, so prepaying ahead never
// releases yield early.
func fundedMonths(st *RepaymentStatus, assetType *AssetType) uint32 {
	if st == nil || assetType == nil || assetType.MonthlyRepayment == nil || assetType.MonthlyRepayment.Sign() == 0 {
		return 0
	}
	ensureRepayment(st)
	paid := new(big.Int).Quo(st.SchedulePaid, assetType.MonthlyRepayment)
	matured := uint64(0)
	if st.MonthDueIndex > 1 {
		matured = uint64(st.MonthDueIndex - 1)
	}
	if matured > uint64(assetType.TenureMonths) {
		matured = uint64(assetType.TenureMonths)
	}
	if paid.IsUint64() && paid.Uint64() < matured {
		matured = paid.Uint64()
	}
	return uint32(matured)
}
