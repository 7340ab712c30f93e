// seed-parameters seeds the default settlement rules and a starter set
// of add-on holidays. Channels clear T+1 on the FPX rails and T+2 on the
// e-wallet rails unless an operator has configured otherwise.
//
// Existing rules are left alone unless -force is given; add-on holidays
// are only seeded into an empty set, so re-running is safe.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-parameters
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
)

// ewallet_generic is the variance-side key for unrecognized payment
// methods; ewallet is the deposit-side bucket key. Both settle T+2.
var defaultSettlementRules = map[string]string{
	"fpx":             "T+1",
	"fpxc":            "T+1",
	"tng":             "T+2",
	"boost":           "T+2",
	"shopee":          "T+2",
	"ewallet":         "T+2",
	"ewallet_generic": "T+2",
}

var sampleAddOnHolidays = []workflow.HolidayInput{
	{Date: "2025-12-24", Description: "Christmas Eve (bank off-day)"},
	{Date: "2025-12-31", Description: "New Year's Eve (bank off-day)"},
}

func main() {
	force := flag.Bool("force", false, "Overwrite settlement rules that already exist")
	skipHolidays := flag.Bool("skip-holidays", false, "Do not seed the sample add-on holidays")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates parameters if missing).
	models.MigrateTable()

	var existing []models.Parameter
	if err := db.WithContext(ctx).
		Where("type = ?", models.ParameterTypeSettlementRule).
		Find(&existing).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list settlement rules: %v\n", err)
		os.Exit(1)
	}
	existingKeys := make(map[string]string, len(existing))
	for _, p := range existing {
		existingKeys[p.Key] = p.Value
	}

	rules := make(map[string]string)
	for key, rule := range defaultSettlementRules {
		if current, ok := existingKeys[key]; ok && !*force {
			fmt.Printf("keeping %s=%s (already configured; use -force to overwrite)\n", key, current)
			continue
		}
		rules[key] = rule
	}

	input := workflow.SaveParametersInput{SettlementRules: rules}

	if !*skipHolidays {
		var addOnCount int64
		if err := db.WithContext(ctx).Model(&models.Parameter{}).
			Where("type = ?", models.ParameterTypeAddOnHoliday).
			Count(&addOnCount).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to count add-on holidays: %v\n", err)
			os.Exit(1)
		}
		if addOnCount > 0 {
			fmt.Printf("keeping %d existing add-on holidays (sample set only seeds an empty list)\n", addOnCount)
		} else {
			input.AddOnHolidays = sampleAddOnHolidays
		}
	}

	if len(input.SettlementRules) == 0 && input.AddOnHolidays == nil {
		fmt.Println("nothing to seed")
		return
	}

	if err := workflow.SaveParameters(ctx, input); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save parameters: %v\n", err)
		os.Exit(1)
	}

	keys := make([]string, 0, len(input.SettlementRules))
	for k := range input.SettlementRules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("seeded settlement rule %s=%s\n", k, input.SettlementRules[k])
	}
	for _, h := range input.AddOnHolidays {
		fmt.Printf("seeded add-on holiday %s (%s)\n", h.Date, h.Description)
	}
	fmt.Println("parameter seed complete")
	fmt.Println("note: running API instances keep cached parameters until the cache expires or the next save through the API")
}
