//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"billtracker/internal/core"
	"billtracker/internal/export"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	creds := []byte(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if file := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"); len(creds) == 0 && file != "" {
		var err error
		if creds, err = os.ReadFile(file); err != nil {
			t.Fatalf("read credentials: %v", err)
		}
	}
	if len(creds) == 0 {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewFromCredentials(ctx, spreadsheetID, creds)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	r := export.BuildReport([]core.Bill{{
		SerialNo: 1, Network: "BSNL", Vendor: "Integration", QuarterString: "Q1-FY2024",
		BillWithTax: decimal.NewFromInt(118), BillWithoutTax: decimal.NewFromInt(100),
	}})
	ref, err := client.WriteReport(ctx, r)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	t.Logf("Wrote %s", ref)
}
