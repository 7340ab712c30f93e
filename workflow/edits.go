package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	LedgerKindDeposit  = "deposit"
	LedgerKindMerchant = "merchant"
	LedgerKindAgent    = "agent"
	LedgerKindVariance = "variance"
)

// clearSentinel nulls a field out. Kept for payload compatibility with
// the spreadsheet clients, which cannot send a typed null.
const clearSentinel = "CLEAR"

type EditKind int

const (
	EditUnchanged EditKind = iota
	EditClear
	EditSetNumber
	EditSetText
)

// EditValue is one decoded cell edit. Numeric and text payloads are
// separated at decode time so the appliers never re-guess types.
type EditValue struct {
	Kind   EditKind
	Number decimal.Decimal
	Text   string
}

// RowEdit carries the sparse field edits for one ledger row.
type RowEdit struct {
	RowId  int                        `json:"row_id" binding:"required"`
	Fields map[string]json.RawMessage `json:"fields" binding:"required"`
}

// textEditFields lists the editable fields that hold text. Everything
// else editable is numeric. Field names are unique across ledger kinds
// so one set covers all four.
var textEditFields = map[string]struct{}{
	"settlement_rule":         {},
	"fpx_settlement_rule":     {},
	"ewallet_settlement_rule": {},
	"fee_type":                {},
	"fpx_fee_type":            {},
	"ewallet_fee_type":        {},
	"remarks":                 {},
}

// DecodeEditValue turns one raw JSON cell value into an EditValue.
// "CLEAR" and null clear the field. Numeric fields accept JSON numbers
// and the messy spreadsheet strings ParseFlexibleDecimal handles
// (thousands separators, a leading quote-escape). Anything else is an
// error; the caller logs and discards it without applying.
func DecodeEditValue(raw json.RawMessage, field string) (EditValue, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return EditValue{Kind: EditClear}, nil
	}

	_, isText := textEditFields[field]

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == clearSentinel {
			return EditValue{Kind: EditClear}, nil
		}
		if isText {
			return EditValue{Kind: EditSetText, Text: strings.TrimSpace(s)}, nil
		}
		n, err := utils.ParseFlexibleDecimal(s)
		if err != nil {
			return EditValue{}, fmt.Errorf("field %s: %w", field, err)
		}
		return EditValue{Kind: EditSetNumber, Number: n}, nil
	}

	if isText {
		return EditValue{}, fmt.Errorf("field %s: expected a string, got %s", field, trimmed)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return EditValue{}, fmt.Errorf("field %s: cannot decode %s", field, trimmed)
	}
	n, err := decimal.NewFromString(num.String())
	if err != nil {
		return EditValue{}, fmt.Errorf("field %s: %w", field, err)
	}
	return EditValue{Kind: EditSetNumber, Number: n}, nil
}

func assignDecimal(field **decimal.Decimal, v EditValue) error {
	switch v.Kind {
	case EditClear:
		*field = nil
	case EditSetNumber:
		n := v.Number
		*field = &n
	default:
		return errors.New("expected a number")
	}
	return nil
}

func assignRemarks(field **string, v EditValue) error {
	switch v.Kind {
	case EditClear:
		*field = nil
	case EditSetText:
		s := v.Text
		*field = &s
	default:
		return errors.New("expected text")
	}
	return nil
}

// assignRule stores a settlement rule uppercased, rejecting anything
// that does not parse as T+<N>.
func assignRule(field **string, v EditValue) error {
	switch v.Kind {
	case EditClear:
		*field = nil
	case EditSetText:
		rule := strings.ToUpper(v.Text)
		if _, err := ParseSettlementRule(rule); err != nil {
			return err
		}
		*field = &rule
	default:
		return errors.New("expected a settlement rule string")
	}
	return nil
}

// assignFeeType stores a fee type lowercased. Legacy aliases stay as
// entered; CanonicalFeeType folds them at computation time.
func assignFeeType(field **string, v EditValue) error {
	switch v.Kind {
	case EditClear:
		*field = nil
	case EditSetText:
		ft := strings.ToLower(v.Text)
		if !models.IsValidFeeType(ft) {
			return fmt.Errorf("unknown fee type %q", v.Text)
		}
		*field = &ft
	default:
		return errors.New("expected a fee type string")
	}
	return nil
}

func applyDepositEdit(row *models.Deposit, field string, v EditValue) error {
	switch field {
	case "fpx_settlement_rule":
		return assignRule(&row.FpxSettlementRule, v)
	case "ewallet_settlement_rule":
		return assignRule(&row.EwalletSettlementRule, v)
	case "fpx_fee_type":
		return assignFeeType(&row.FpxFeeType, v)
	case "ewallet_fee_type":
		return assignFeeType(&row.EwalletFeeType, v)
	case "fpx_fee_rate":
		return assignDecimal(&row.FpxFeeRate, v)
	case "ewallet_fee_rate":
		return assignDecimal(&row.EwalletFeeRate, v)
	case "remarks":
		return assignRemarks(&row.Remarks, v)
	}
	return fmt.Errorf("field %s is not editable", field)
}

func applyMerchantEdit(row *models.MerchantLedger, field string, v EditValue) error {
	switch field {
	case "settlement_fund":
		return assignDecimal(&row.SettlementFund, v)
	case "settlement_charges":
		return assignDecimal(&row.SettlementCharges, v)
	case "withdrawal_amount":
		return assignDecimal(&row.WithdrawalAmount, v)
	case "withdrawal_rate":
		return assignDecimal(&row.WithdrawalRate, v)
	case "withdrawal_charges":
		return assignDecimal(&row.WithdrawalCharges, v)
	case "topup_payout_pool":
		return assignDecimal(&row.TopupPayoutPool, v)
	case "remarks":
		return assignRemarks(&row.Remarks, v)
	}
	return fmt.Errorf("field %s is not editable", field)
}

func applyAgentEdit(row *models.AgentLedger, field string, v EditValue) error {
	switch field {
	case "commission_rate_fpx":
		return assignDecimal(&row.CommissionRateFpx, v)
	case "commission_rate_ewallet":
		return assignDecimal(&row.CommissionRateEwallet, v)
	case "withdrawal_amount":
		return assignDecimal(&row.WithdrawalAmount, v)
	case "remarks":
		return assignRemarks(&row.Remarks, v)
	}
	return fmt.Errorf("field %s is not editable", field)
}

func applyVarianceEdit(row *models.KiraPGLedger, field string, v EditValue) error {
	switch field {
	case "settlement_rule":
		return assignRule(&row.SettlementRule, v)
	case "fee_type":
		return assignFeeType(&row.FeeType, v)
	case "fee_rate":
		return assignDecimal(&row.FeeRate, v)
	case "remarks":
		return assignRemarks(&row.Remarks, v)
	}
	return fmt.Errorf("field %s is not editable", field)
}

// editTargets accumulates what a batch of edits touched so the
// recompute pass afterwards covers exactly the affected scope.
type editTargets struct {
	entities map[string]struct{} // merchant or agent labels
	months   map[string]struct{} // "YYYY-MM" keys
}

func newEditTargets() *editTargets {
	return &editTargets{
		entities: make(map[string]struct{}),
		months:   make(map[string]struct{}),
	}
}

func (t *editTargets) record(entity string, date models.DateOnly) {
	if entity != "" {
		t.entities[entity] = struct{}{}
	}
	t.months[date.Time().Format("2006-01")] = struct{}{}
}

// ApplyManualEdits applies sparse row edits to one ledger kind and then
// re-runs the affected recomputation for every touched entity from its
// first date. Row-local recomputation would be wrong: every later day's
// balance depends on the edited day.
//
// Undecodable values and unknown fields are logged and discarded, never
// applied. Returns how many rows changed.
func ApplyManualEdits(ctx context.Context, kind string, edits []RowEdit) (int, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	targets := newEditTargets()

	switch kind {
	case LedgerKindDeposit, LedgerKindMerchant, LedgerKindAgent, LedgerKindVariance:
	default:
		return 0, fmt.Errorf("unknown ledger kind %q", kind)
	}

	updated := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, edit := range edits {
			changed, err := applyRowEdit(tx, kind, edit, targets)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					config.LogWarn(logger, "workflow", "ApplyManualEdits", kind,
						fmt.Sprintf("row %d not found, skipping", edit.RowId))
					continue
				}
				return err
			}
			if changed {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := recomputeEdited(ctx, kind, targets); err != nil {
		return updated, err
	}
	return updated, nil
}

func applyRowEdit(tx *gorm.DB, kind string, edit RowEdit, targets *editTargets) (bool, error) {
	logger := config.GetLogger()
	changed := 0

	applyFields := func(apply func(field string, v EditValue) error) {
		for field, raw := range edit.Fields {
			v, err := DecodeEditValue(raw, field)
			if err != nil {
				config.LogError(logger, "workflow", "applyRowEdit", kind, edit,
					utils.NewParseError("", edit.RowId, err.Error()))
				continue
			}
			if v.Kind == EditUnchanged {
				continue
			}
			if err := apply(field, v); err != nil {
				config.LogError(logger, "workflow", "applyRowEdit", kind, edit,
					utils.NewParseError("", edit.RowId, err.Error()))
				continue
			}
			changed++
		}
	}

	switch kind {
	case LedgerKindDeposit:
		var row models.Deposit
		if err := tx.First(&row, edit.RowId).Error; err != nil {
			return false, err
		}
		applyFields(func(field string, v EditValue) error { return applyDepositEdit(&row, field, v) })
		if changed == 0 {
			return false, nil
		}
		targets.record(row.Merchant, row.TransactionDate)
		return true, tx.Save(&row).Error

	case LedgerKindMerchant:
		var row models.MerchantLedger
		if err := tx.First(&row, edit.RowId).Error; err != nil {
			return false, err
		}
		applyFields(func(field string, v EditValue) error { return applyMerchantEdit(&row, field, v) })
		if changed == 0 {
			return false, nil
		}
		targets.record(row.Merchant, row.TransactionDate)
		return true, tx.Save(&row).Error

	case LedgerKindAgent:
		var row models.AgentLedger
		if err := tx.First(&row, edit.RowId).Error; err != nil {
			return false, err
		}
		applyFields(func(field string, v EditValue) error { return applyAgentEdit(&row, field, v) })
		if changed == 0 {
			return false, nil
		}
		targets.record(row.Agent, row.TransactionDate)
		return true, tx.Save(&row).Error

	case LedgerKindVariance:
		var row models.KiraPGLedger
		if err := tx.First(&row, edit.RowId).Error; err != nil {
			return false, err
		}
		applyFields(func(field string, v EditValue) error { return applyVarianceEdit(&row, field, v) })
		if changed == 0 {
			return false, nil
		}
		targets.record("", row.TransactionDate)
		return true, tx.Save(&row).Error
	}
	return false, fmt.Errorf("unknown ledger kind %q", kind)
}

// recomputeEdited runs the recompute matching the edited kind.
//
// Deposit edits rebuild the edited month plus the following month when
// it exists (availability from late-month days lands in the next
// month), then re-cascade the merchant and, when one exists, the agent.
// Merchant and agent edits re-cascade their own entity. Variance edits
// rebuild the touched months; deposit-side edits never reach here.
func recomputeEdited(ctx context.Context, kind string, targets *editTargets) error {
	db := config.GetDB()

	switch kind {
	case LedgerKindDeposit:
		for merchant := range targets.entities {
			for monthKey := range targets.months {
				year, month, err := parseMonthKey(monthKey)
				if err != nil {
					return err
				}
				if err := BuildDepositMonth(ctx, merchant, year, month); err != nil {
					return err
				}
				nextYear, nextMonth := nextMonthOf(year, month)
				built, err := monthHasDeposits(ctx, db, merchant, nextYear, nextMonth)
				if err != nil {
					return err
				}
				if built {
					if err := BuildDepositMonth(ctx, merchant, nextYear, nextMonth); err != nil {
						return err
					}
				}
			}
			if err := BuildMerchantLedger(ctx, merchant); err != nil {
				return err
			}
			hasAgent, err := agentLedgerExists(ctx, db, merchant)
			if err != nil {
				return err
			}
			if hasAgent {
				if err := BuildAgentLedger(ctx, merchant); err != nil {
					return err
				}
			}
		}

	case LedgerKindMerchant:
		for merchant := range targets.entities {
			if err := BuildMerchantLedger(ctx, merchant); err != nil {
				return err
			}
		}

	case LedgerKindAgent:
		for agent := range targets.entities {
			if err := BuildAgentLedger(ctx, agent); err != nil {
				return err
			}
		}

	case LedgerKindVariance:
		for monthKey := range targets.months {
			year, month, err := parseMonthKey(monthKey)
			if err != nil {
				return err
			}
			if err := BuildVarianceMonth(ctx, year, month); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseMonthKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("bad month key %q: %w", key, err)
	}
	return t.Year(), t.Month(), nil
}

func nextMonthOf(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return t.Year(), t.Month()
}

func monthHasDeposits(ctx context.Context, db *gorm.DB, merchant string, year int, month time.Month) (bool, error) {
	first, last := utils.MonthRange(year, month)
	var count int64
	err := db.WithContext(ctx).Model(&models.Deposit{}).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Count(&count).Error
	return count > 0, err
}

func agentLedgerExists(ctx context.Context, db *gorm.DB, agent string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.AgentLedger{}).
		Where("agent = ?", agent).
		Count(&count).Error
	return count > 0, err
}
