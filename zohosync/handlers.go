package zohosync

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/models"
	"github.com/tlbgroup/mkitchen-backend/utils"
)

// RegisterRoutes mounts the sync and processing endpoints.
func RegisterRoutes(r gin.IRouter) {
	r.POST("/sync-zoho-bills/purchase-orders", SyncBillsHandler())

	r.POST("/bill-processing/process/:billId", ProcessBillHandler())
	r.POST("/bill-processing/process-multiple", ProcessMultipleHandler())
	r.POST("/bill-processing/process-all-synced", ProcessAllSyncedHandler())
	r.GET("/bill-processing/status/:billId", BillStatusHandler())
	r.GET("/bill-processing/runs", ListRunsHandler())
	r.GET("/bill-processing/runs/:id", GetRunHandler())

	r.GET("/reports/stock/export", StockExportHandler())
}

func respond(c *gin.Context, code int, success bool, message string, data interface{}) {
	c.JSON(code, gin.H{"success": success, "message": message, "data": data})
}

// SyncBillsHandler pulls all bills from Zoho and, when anything changed,
// chains into processing the freshly synced bills. Set ZOHO_ASYNC_PROCESSING
// to hand the processing leg to Pub/Sub instead of running it inline.
func SyncBillsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := config.GetDB()

		summary, _, err := SyncAllBills(ctx, db, models.SyncTriggeredManual)
		if err != nil {
			respond(c, http.StatusBadGateway, false, "bill sync failed: "+err.Error(), nil)
			return
		}

		// A sync that changed anything pushes inventory forward over every
		// processable PO, previously failed bills included. A no-op sync
		// does not re-trigger processing.
		data := gin.H{"sync": summary}
		if summary.Added+summary.Updated > 0 {
			if utils.EnvBoolDefault("ZOHO_ASYNC_PROCESSING", false) {
				// Empty bill list means "everything pending" to the consumer.
				if pubErr := PublishProcessRun(ctx, ProcessPubSubPayload{
					TriggeredBy: models.SyncTriggeredSystem,
				}); pubErr != nil {
					config.LogError(ctx, config.GetLogger(), "zohosync", "SyncBillsHandler", "publish process run", nil, pubErr)
					data["processing"] = gin.H{"queued": false, "error": pubErr.Error()}
				} else {
					data["processing"] = gin.H{"queued": true}
				}
			} else {
				procSummary, procErr := ProcessAllPending(ctx, db, models.SyncTriggeredSystem)
				if procErr != nil {
					data["processing"] = gin.H{"error": procErr.Error()}
				} else {
					data["processing"] = procSummary
				}
			}
		}

		respond(c, http.StatusOK, true,
			fmt.Sprintf("synced %d bills (%d new, %d updated, %d failed)",
				summary.Added+summary.Updated, summary.Added, summary.Updated, summary.Failed),
			data)
	}
}

func ProcessBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId := strings.TrimSpace(c.Param("billId"))
		if billId == "" {
			respond(c, http.StatusBadRequest, false, "billId is required", nil)
			return
		}

		result, err := ProcessBill(c.Request.Context(), config.GetDB(), billId, models.SyncTriggeredManual)
		if err != nil {
			status := http.StatusUnprocessableEntity
			if result.Status == "busy" {
				status = http.StatusConflict
			}
			respond(c, status, false, err.Error(), result)
			return
		}
		respond(c, http.StatusOK, true, "bill "+billId+" "+result.Status, result)
	}
}

func ProcessMultipleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessMultipleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond(c, http.StatusBadRequest, false, "invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			respond(c, http.StatusBadRequest, false, err.Error(), nil)
			return
		}

		summary, err := ProcessBills(c.Request.Context(), config.GetDB(), req.BillIds, models.SyncTriggeredManual)
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}
		respond(c, http.StatusOK, true,
			fmt.Sprintf("processed %d, skipped %d, failed %d", summary.Processed, summary.Skipped, summary.Failed),
			summary)
	}
}

func ProcessAllSyncedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := ProcessAllPending(c.Request.Context(), config.GetDB(), models.SyncTriggeredManual)
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}
		respond(c, http.StatusOK, true,
			fmt.Sprintf("processed %d, skipped %d, failed %d", summary.Processed, summary.Skipped, summary.Failed),
			summary)
	}
}

func BillStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId := strings.TrimSpace(c.Param("billId"))
		if billId == "" {
			respond(c, http.StatusBadRequest, false, "billId is required", nil)
			return
		}

		po, err := models.GetPurchaseOrderByBillId(c.Request.Context(), config.GetDB(), billId)
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}
		if po == nil {
			respond(c, http.StatusNotFound, false, "bill "+billId+" has not been synced", nil)
			return
		}
		respond(c, http.StatusOK, true, "", gin.H{
			"bill_id":           po.ZohoBillId,
			"po_number":         po.PONumber,
			"po_status":         po.Status,
			"sync_status":       po.SyncStatus,
			"processing_status": po.ProcessingStatus,
			"processing_error":  po.ProcessingError,
			"last_synced_at":    po.LastSyncedAt,
			"last_processed_at": po.LastProcessedAt,
			"processed_by":      po.ProcessedBy,
			"location":          po.ZohoLocationName,
			"item_count":        len(po.Items),
		})
	}
}

func ListRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		kind := strings.TrimSpace(c.Query("kind"))

		runs, err := models.ListSyncRuns(c.Request.Context(), config.GetDB(), kind, limit)
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}
		respond(c, http.StatusOK, true, "", runs)
	}
}

func GetRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			respond(c, http.StatusBadRequest, false, "invalid run id", nil)
			return
		}

		run, syncErrors, err := models.GetSyncRun(c.Request.Context(), config.GetDB(), uint(id))
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}
		if run == nil {
			respond(c, http.StatusNotFound, false, "run not found", nil)
			return
		}
		respond(c, http.StatusOK, true, "", gin.H{"run": run, "errors": syncErrors})
	}
}

// StockExportHandler streams the current stock of every outlet as one xlsx
// workbook, one sheet per stock table.
func StockExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := config.GetDB()

		f := excelize.NewFile()
		defer f.Close()

		first := true
		for _, target := range models.StockTables() {
			sheet := target.Table
			if first {
				f.SetSheetName(f.GetSheetName(0), sheet)
				first = false
			} else {
				if _, err := f.NewSheet(sheet); err != nil {
					respond(c, http.StatusInternalServerError, false, err.Error(), nil)
					return
				}
			}

			headers := []interface{}{"Code", "Name", "Category", "Unit", "Unit Price", "Current Stock", "Min Level", "Max Level", "Reorder Level", "Status"}
			_ = f.SetSheetRow(sheet, "A1", &headers)

			row := 2
			switch target.Kind {
			case models.StockKindRawMaterial:
				stocks, err := models.ListRawMaterialStocks(ctx, db, target.Table)
				if err != nil {
					respond(c, http.StatusInternalServerError, false, err.Error(), nil)
					return
				}
				for _, s := range stocks {
					_ = f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &[]interface{}{
						s.MaterialCode, s.MaterialName, s.Category, s.Unit,
						s.UnitPrice.String(), s.CurrentStock.String(),
						s.MinLevel.String(), s.MaxLevel.String(), s.ReorderLevel.String(),
						s.Status,
					})
					row++
				}
			case models.StockKindFinishedGood:
				stocks, err := models.ListFinishedGoodStocks(ctx, db, target.Table)
				if err != nil {
					respond(c, http.StatusInternalServerError, false, err.Error(), nil)
					return
				}
				for _, s := range stocks {
					_ = f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &[]interface{}{
						s.ProductCode, s.ProductName, s.Category, s.Unit,
						s.UnitPrice.String(), s.CurrentStock.String(),
						s.MinLevel.String(), s.MaxLevel.String(), s.ReorderLevel.String(),
						s.Status,
					})
					row++
				}
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			respond(c, http.StatusInternalServerError, false, err.Error(), nil)
			return
		}

		filename := "stock-report-" + time.Now().Format("2006-01-02") + ".xlsx"
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			buf.Bytes())
	}
}
