package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
)

// BankParser reads bank statements. Only credit lines are kept: the
// reconciliation checks money that landed, never outgoing transfers.
// The account label and a default channel come from the filename
// ("{Merchant} RHB_..._All-Transactions-{date}.xlsx"); a payment-mode
// column, when present, overrides the filename channel per row.
type BankParser struct{}

func (BankParser) Source() models.TransactionSource { return models.SourceBank }

type bankFileMeta struct {
	accountLabel string
	bank         string
	channel      string
}

func parseBankFilename(filename string) bankFileMeta {
	meta := bankFileMeta{channel: "ewallet"}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	upper := strings.ToUpper(base)

	if at := strings.Index(upper, "RHB"); at >= 0 {
		meta.bank = "RHB"
		meta.accountLabel = strings.Trim(strings.TrimSpace(base[:at]), "_")
	} else if parts := strings.Split(base, "_"); len(parts) > 0 {
		meta.accountLabel = parts[0]
	}

	switch {
	case strings.Contains(upper, "FPX") && (strings.Contains(upper, "B2B") || strings.Contains(upper, "CORP")):
		meta.channel = "FPXC"
	case strings.Contains(upper, "FPX"):
		meta.channel = "FPX"
	case strings.Contains(upper, "TNG"):
		meta.channel = "TNG"
	case strings.Contains(upper, "BOOST"):
		meta.channel = "BOOST"
	case strings.Contains(upper, "SHOPEE"):
		meta.channel = "Shopee"
	}
	return meta
}

func (BankParser) Parse(filename string, data []byte) ([]RowResult[models.BankTransaction], error) {
	grid, err := readGrid(filename, data)
	if err != nil {
		return nil, utils.NewExternalIOError("read "+filename, err)
	}
	meta := parseBankFilename(filepath.Base(filename))

	headerAt := findHeaderRow(grid, func(idx map[string]int) bool {
		_, hasId := findColumn(idx,
			"order id", "orderid", "merchantorderno", "transactionid",
			"order number", "ordernumber", "order_no", "order no")
		return hasId
	})
	if headerAt < 0 {
		return nil, utils.NewParseError(filename, 0, "no recognizable transaction id column")
	}

	idx := columnIndex(grid[headerAt])
	idCol, _ := findColumn(idx,
		"order id", "orderid", "merchantorderno", "transactionid",
		"order number", "ordernumber", "order_no", "order no")
	creditCol, hasCredit := findColumn(idx, "credit", "credit amount", "deposit", "cr amount")
	amountCol, hasAmount := findColumn(idx,
		"amount", "transactionamount", "payment amount", "paymentamount", "amount (rm)", "amount(rm)")
	dateCol, hasDate := findColumn(idx, "payment time", "createddate", "date", "transaction date", "created date")
	modeCol, hasMode := findColumn(idx, "payment mode", "paymentmode", "payment method", "paymentmethod")

	if !hasCredit && !hasAmount {
		return nil, utils.NewParseError(filename, headerAt+1, "no amount or credit column")
	}
	if !hasDate {
		return nil, utils.NewParseError(filename, headerAt+1, "no date column")
	}

	results := make([]RowResult[models.BankTransaction], 0, len(grid)-headerAt-1)
	seen := make(map[string]struct{})
	for i := headerAt + 1; i < len(grid); i++ {
		row := grid[i]
		if rowIsEmpty(row) {
			continue
		}
		rowNum := i + 1

		id := cell(row, idCol)
		if id == "" {
			results = append(results, badRow[models.BankTransaction](
				utils.NewParseError(filename, rowNum, "empty transaction id")))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		amountCell := ""
		if hasCredit {
			amountCell = cell(row, creditCol)
			if amountCell == "" {
				// A blank credit cell is a debit line, not an error.
				continue
			}
		} else {
			amountCell = cell(row, amountCol)
		}
		amount, err := utils.ParseFlexibleDecimal(amountCell)
		if err != nil {
			results = append(results, badRow[models.BankTransaction](
				utils.NewParseError(filename, rowNum, fmt.Sprintf("bad amount: %v", err))))
			continue
		}
		if !amount.IsPositive() {
			continue
		}

		date, err := utils.ParseDateOnly(cell(row, dateCol))
		if err != nil {
			results = append(results, badRow[models.BankTransaction](
				utils.NewParseError(filename, rowNum, err.Error())))
			continue
		}

		description := meta.channel
		if hasMode {
			if mode := cell(row, modeCol); mode != "" {
				description = mode
			}
		}

		seen[id] = struct{}{}
		results = append(results, okRow(models.BankTransaction{
			TransactionId:   id,
			TransactionDate: models.NewDateOnly(date),
			Amount:          amount,
			Bank:            meta.bank,
			Description:     description,
			AccountLabel:    meta.accountLabel,
		}))
	}
	return results, nil
}
