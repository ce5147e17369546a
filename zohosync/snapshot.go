package zohosync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/utils"
)

// saveBillSnapshot persists the raw bill list fetched from Zoho before any
// mapping happens, for audit and replay. Snapshot failures are logged and
// swallowed: losing an audit copy must never fail a sync.
func saveBillSnapshot(ctx context.Context, bills []ZohoBill) {
	logger := config.GetLogger()

	data, err := json.MarshalIndent(bills, "", "  ")
	if err != nil {
		config.LogError(ctx, logger, "zohosync", "saveBillSnapshot", "marshal bills", nil, err)
		return
	}

	name := fmt.Sprintf("zoho-bills-%s.json", time.Now().UTC().Format("20060102-150405"))

	if utils.GetStorageProvider() == utils.StorageProviderGCS {
		if err := utils.UploadObjectToGCS(ctx, "snapshots/"+name, "application/json", data); err != nil {
			config.LogError(ctx, logger, "zohosync", "saveBillSnapshot", "upload snapshot to gcs", map[string]interface{}{"object": name}, err)
		}
		return
	}

	dir := strings.TrimSpace(os.Getenv("SNAPSHOT_DIR"))
	if dir == "" {
		dir = "./snapshots"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		config.LogError(ctx, logger, "zohosync", "saveBillSnapshot", "create snapshot dir", map[string]interface{}{"dir": dir}, err)
		return
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		config.LogError(ctx, logger, "zohosync", "saveBillSnapshot", "write snapshot file", map[string]interface{}{"path": path}, err)
	}
}
