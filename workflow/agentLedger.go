package workflow

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// agentEngine wires the cascade for the agent commission ledger: one
// balance fed by scaled availability and drained by withdrawals.
func agentEngine() CascadeEngine[models.AgentLedger] {
	return CascadeEngine[models.AgentLedger]{
		Series: []SeriesSpec[models.AgentLedger]{
			{
				Activity: func(r *models.AgentLedger, prev decimal.Decimal) bool {
					return r.WithdrawalAmount != nil || r.AvailableTotal.IsPositive() || !prev.IsZero()
				},
				Next: func(r *models.AgentLedger, prev decimal.Decimal) decimal.Decimal {
					return prev.
						Add(r.AvailableTotal).
						Sub(utils.DecimalOrZero(r.WithdrawalAmount))
				},
				Set: func(r *models.AgentLedger, v *decimal.Decimal) { r.Balance = v },
			},
		},
	}
}

// commissionShare scales a deposit availability figure by a percent
// rate. Rates are percent, not permille: 7.5 means 7.5%.
func commissionShare(available decimal.Decimal, rate *decimal.Decimal) decimal.Decimal {
	if rate == nil {
		return decimal.Zero
	}
	return utils.RoundTo2(available.Mul(*rate).Div(oneHundred))
}

// BuildAgentLedger re-derives one agent's full ledger history. The
// agent label matches the merchant whose deposits pay the commission.
func BuildAgentLedger(ctx context.Context, agent string) error {
	db := config.GetDB()

	deposits, err := loadAllDeposits(ctx, db, agent)
	if err != nil {
		return utils.NewExternalIOError("load deposit rows", err)
	}

	var rows []models.AgentLedger
	if err := db.WithContext(ctx).
		Where("agent = ?", agent).
		Order("transaction_date").
		Find(&rows).Error; err != nil {
		return utils.NewExternalIOError("load agent ledger rows", err)
	}

	rows = ensureAgentRows(agent, rows, deposits)

	byDate := make(map[string]*models.Deposit, len(deposits))
	for i := range deposits {
		byDate[deposits[i].TransactionDate.String()] = &deposits[i]
	}

	refs := make([]*models.AgentLedger, len(rows))
	for i := range rows {
		r := &rows[i]
		refs[i] = r
		if dep, ok := byDate[r.TransactionDate.String()]; ok {
			r.AvailableFpx = commissionShare(dep.AvailableFpx, r.CommissionRateFpx)
			r.AvailableEwallet = commissionShare(dep.AvailableEwallet, r.CommissionRateEwallet)
		} else {
			r.AvailableFpx = decimal.Zero
			r.AvailableEwallet = decimal.Zero
		}
		r.AvailableTotal = utils.RoundTo2(r.AvailableFpx.Add(r.AvailableEwallet))
	}

	agentEngine().Run(refs)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireEntityLock(tx, agent); err != nil {
			return err
		}
		defer ReleaseEntityLock(tx, agent)

		for _, r := range refs {
			if r.Id == 0 {
				if err := tx.Create(r).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Save(r).Error; err != nil {
					return err
				}
			}
		}
		runId, _ := utils.GetRunIdFromContext(ctx)
		return models.PublishReconEvent(ctx, tx, agent, models.EventTypeLedgerRecomputed, runId, map[string]interface{}{
			"ledger": "agent",
		})
	})
	if err != nil {
		return utils.NewComputationError(agent, "agent ledger cascade", err)
	}
	return nil
}

func ensureAgentRows(agent string, rows []models.AgentLedger, deposits []models.Deposit) []models.AgentLedger {
	have := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		have[r.TransactionDate.String()] = struct{}{}
	}
	for _, dep := range deposits {
		if _, ok := have[dep.TransactionDate.String()]; ok {
			continue
		}
		rows = append(rows, models.AgentLedger{
			Agent:           agent,
			TransactionDate: dep.TransactionDate,
		})
		have[dep.TransactionDate.String()] = struct{}{}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TransactionDate.Before(rows[j].TransactionDate)
	})
	return rows
}

// GetAgentLedgerMonth returns one month, recomputing the cascade first.
func GetAgentLedgerMonth(ctx context.Context, agent string, year int, month time.Month) ([]models.AgentLedger, error) {
	if err := BuildAgentLedger(ctx, agent); err != nil {
		return nil, err
	}

	db := config.GetDB()
	first, last := utils.MonthRange(year, month)
	var rows []models.AgentLedger
	if err := db.WithContext(ctx).
		Where("agent = ? AND transaction_date BETWEEN ? AND ?", agent, first, last).
		Order("transaction_date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
