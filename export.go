package main

import (
	"fmt"
	"net/http"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// exportLedgerHandler streams one ledger month as an .xlsx workbook.
// :ledger is deposit, merchant-ledger, agent-ledger or variance; for
// variance :entity is the gateway account label ("all" exports every
// account). Reading builds the month first if it is absent, same as the
// JSON endpoints.
func exportLedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ledger := c.Param("ledger")
		entity := c.Param("entity")
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var headers []string
		var rows [][]interface{}

		ctx := c.Request.Context()
		switch ledger {
		case "deposit":
			data, derr := workflow.GetDepositMonth(ctx, entity, year, month)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": derr.Error()})
				return
			}
			headers, rows = depositSheet(data)
		case "merchant-ledger":
			data, derr := workflow.GetMerchantLedgerMonth(ctx, entity, year, month)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": derr.Error()})
				return
			}
			headers, rows = merchantLedgerSheet(data)
		case "agent-ledger":
			data, derr := workflow.GetAgentLedgerMonth(ctx, entity, year, month)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": derr.Error()})
				return
			}
			headers, rows = agentLedgerSheet(data)
		case "variance":
			account := entity
			if account == "all" {
				account = ""
			}
			data, derr := workflow.GetVarianceMonth(ctx, year, month, account)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": derr.Error()})
				return
			}
			headers, rows = varianceSheet(data)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown ledger %q", ledger)})
			return
		}

		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(sheet, cell, h)
		}
		for r, row := range rows {
			for i, v := range row {
				cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
				_ = f.SetCellValue(sheet, cell, v)
			}
		}

		filename := fmt.Sprintf("%s_%s_%04d-%02d.xlsx", ledger, entity, year, month)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}

func depositSheet(data []models.Deposit) ([]string, [][]interface{}) {
	headers := []string{
		"Date", "Merchant",
		"FPX Amount", "FPX Volume", "FPX Settlement Rule", "FPX Settlement Date",
		"FPX Fee Type", "FPX Fee Rate", "FPX Fee Amount", "FPX Gross",
		"eWallet Amount", "eWallet Volume", "eWallet Settlement Rule", "eWallet Settlement Date",
		"eWallet Fee Type", "eWallet Fee Rate", "eWallet Fee Amount", "eWallet Gross",
		"Total Amount", "Total Fees",
		"Available FPX", "Available eWallet", "Available Total", "Remarks",
	}
	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		rows = append(rows, []interface{}{
			d.TransactionDate.String(), d.Merchant,
			money(d.FpxAmount), d.FpxVolume, strCell(d.FpxSettlementRule), dateCell(d.FpxSettlementDate),
			strCell(d.FpxFeeType), rateCell(d.FpxFeeRate), moneyCell(d.FpxFeeAmount), moneyCell(d.FpxGross),
			money(d.EwalletAmount), d.EwalletVolume, strCell(d.EwalletSettlementRule), dateCell(d.EwalletSettlementDate),
			strCell(d.EwalletFeeType), rateCell(d.EwalletFeeRate), moneyCell(d.EwalletFeeAmount), moneyCell(d.EwalletGross),
			money(d.TotalAmount), money(d.TotalFees),
			money(d.AvailableFpx), money(d.AvailableEwallet), money(d.AvailableTotal), strCell(d.Remarks),
		})
	}
	return headers, rows
}

func merchantLedgerSheet(data []models.MerchantLedger) ([]string, [][]interface{}) {
	headers := []string{
		"Date", "Merchant",
		"Settlement Fund", "Settlement Charges",
		"Withdrawal Amount", "Withdrawal Rate", "Withdrawal Charges", "Topup Payout Pool",
		"Available FPX", "Available eWallet", "Available Total",
		"Payout Pool Balance", "Available Balance", "Total Balance", "Remarks",
	}
	rows := make([][]interface{}, 0, len(data))
	for _, m := range data {
		rows = append(rows, []interface{}{
			m.TransactionDate.String(), m.Merchant,
			moneyCell(m.SettlementFund), moneyCell(m.SettlementCharges),
			moneyCell(m.WithdrawalAmount), rateCell(m.WithdrawalRate), moneyCell(m.WithdrawalCharges), moneyCell(m.TopupPayoutPool),
			money(m.AvailableFpx), money(m.AvailableEwallet), money(m.AvailableTotal),
			moneyCell(m.PayoutPoolBalance), moneyCell(m.AvailableBalance), moneyCell(m.TotalBalance), strCell(m.Remarks),
		})
	}
	return headers, rows
}

func agentLedgerSheet(data []models.AgentLedger) ([]string, [][]interface{}) {
	headers := []string{
		"Date", "Agent",
		"Commission Rate FPX", "Commission Rate eWallet", "Withdrawal Amount",
		"Available FPX", "Available eWallet", "Available Total", "Balance", "Remarks",
	}
	rows := make([][]interface{}, 0, len(data))
	for _, a := range data {
		rows = append(rows, []interface{}{
			a.TransactionDate.String(), a.Agent,
			rateCell(a.CommissionRateFpx), rateCell(a.CommissionRateEwallet), moneyCell(a.WithdrawalAmount),
			money(a.AvailableFpx), money(a.AvailableEwallet), money(a.AvailableTotal),
			moneyCell(a.Balance), strCell(a.Remarks),
		})
	}
	return headers, rows
}

func varianceSheet(data []models.KiraPGLedger) ([]string, [][]interface{}) {
	headers := []string{
		"Date", "PG Account", "Channel",
		"Kira Amount", "Kira MDR", "Kira Settlement Amount", "PG Amount", "Volume",
		"Settlement Rule", "Fee Type", "Fee Rate",
		"Settlement Date", "Fees", "Settlement Amount",
		"Daily Variance", "Cumulative Variance", "Remarks",
	}
	rows := make([][]interface{}, 0, len(data))
	for _, v := range data {
		rows = append(rows, []interface{}{
			v.TransactionDate.String(), v.PgAccountLabel, string(v.Channel),
			money(v.KiraAmount), money(v.KiraMdr), money(v.KiraSettlementAmount), money(v.PgAmount), v.Volume,
			strCell(v.SettlementRule), strCell(v.FeeType), rateCell(v.FeeRate),
			dateCell(v.SettlementDate), moneyCell(v.Fees), moneyCell(v.SettlementAmount),
			money(v.DailyVariance), money(v.CumulativeVariance), strCell(v.Remarks),
		})
	}
	return headers, rows
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func moneyCell(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func rateCell(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.String()
}

func strCell(s *string) interface{} {
	if s == nil {
		return ""
	}
	return *s
}

func dateCell(d *models.DateOnly) interface{} {
	if d == nil {
		return ""
	}
	return d.String()
}
