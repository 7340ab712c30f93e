package models

import (
	"log"

	"bitbucket.org/kiranetwork/recon_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&KiraTransaction{}, &PGTransaction{}, &BankTransaction{},
		&Deposit{}, &MerchantLedger{}, &AgentLedger{}, &KiraPGLedger{},
		&Parameter{}, &Job{},
		&ReconEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
