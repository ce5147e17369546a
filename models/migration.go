package models

import (
	"log"

	"gorm.io/gorm"

	"github.com/tlbgroup/mkitchen-backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	if err := MigrateTablesOn(db); err != nil {
		log.Fatal(err)
	}
}

// MigrateTablesOn runs migrations against an explicit connection. The stock
// collections share two schemas across per-outlet tables, so they migrate via
// Table() rather than the entity list.
func MigrateTablesOn(db *gorm.DB) error {
	err := db.AutoMigrate(
		&PurchaseOrder{}, &PurchaseOrderItem{},
		&SyncRun{}, &SyncError{},
	)
	if err != nil {
		return err
	}

	for _, target := range StockTables() {
		switch target.Kind {
		case StockKindRawMaterial:
			err = db.Table(target.Table).AutoMigrate(&RawMaterialStock{})
		case StockKindFinishedGood:
			err = db.Table(target.Table).AutoMigrate(&FinishedGoodStock{})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
