package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"billtracker/internal/export"
	ports "billtracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// pixelsPerChar converts xlsx character widths to sheet pixel widths.
const pixelsPerChar = 7

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// NewFromCredentials creates a Sheets client authenticated with a service
// account key.
func NewFromCredentials(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)
	return NewClient(ctx, spreadsheetID,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewClient creates a Sheets client with explicit API options.
func NewClient(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// WriteReport overwrites one tab per report sheet, creating missing tabs,
// and clears export tabs the report does not carry.
func (c *Client) WriteReport(ctx context.Context, r export.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.sheetIDs(ctx)
	if err != nil {
		return "", err
	}

	for _, name := range []string{export.BillsSheet, export.AnalyticsSheet} {
		if _, ok := r.Sheet(name); ok {
			continue
		}
		if _, exists := ids[name]; exists {
			if err := c.clear(ctx, name); err != nil {
				return "", err
			}
		}
	}

	var refs []string
	var formats []*gsheet.Request
	for _, s := range r.Sheets {
		id, ok := ids[s.Name]
		if !ok {
			if id, err = c.addSheet(ctx, s.Name); err != nil {
				return "", err
			}
		}
		if err := c.clear(ctx, s.Name); err != nil {
			return "", err
		}
		resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(s.Name, "A1"), &gsheet.ValueRange{Values: s.Values()}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to update sheet %s: %w", s.Name, err)
		}
		refs = append(refs, resp.UpdatedRange)
		formats = append(formats, formatRequests(id, s)...)
	}

	if len(formats) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: formats}).
			Context(ctx).Do()
		if err != nil {
			// Values are already written; formatting is cosmetic.
			slog.WarnContext(ctx, "Failed to format mirrored sheets", "error", err)
		}
	}
	return strings.Join(refs, ","), nil
}

func (c *Client) sheetIDs(ctx context.Context) (map[string]int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids, nil
}

func (c *Client) addSheet(ctx context.Context, name string) (int64, error) {
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}}}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", name, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", name)
	}
	slog.InfoContext(ctx, "Created sheet", "sheet", name)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func (c *Client) clear(ctx context.Context, name string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(name, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", name, err)
	}
	return nil
}

// formatRequests styles the header row and sets column widths.
func formatRequests(sheetID int64, s export.Sheet) []*gsheet.Request {
	var reqs []*gsheet.Request
	if len(s.Header) > 0 {
		reqs = append(reqs, &gsheet.Request{RepeatCell: &gsheet.RepeatCellRequest{
			Range: &gsheet.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    0,
				EndRowIndex:      1,
				StartColumnIndex: 0,
				EndColumnIndex:   int64(len(s.Header)),
				ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
			},
			Cell: &gsheet.CellData{UserEnteredFormat: &gsheet.CellFormat{
				BackgroundColor:     hexColor(s.HeaderColor),
				HorizontalAlignment: "CENTER",
				VerticalAlignment:   "MIDDLE",
				TextFormat: &gsheet.TextFormat{
					Bold:            true,
					ForegroundColor: &gsheet.Color{Red: 1, Green: 1, Blue: 1},
				},
			}},
			Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment,verticalAlignment)",
		}})
	}
	for i, w := range s.Widths {
		reqs = append(reqs, &gsheet.Request{UpdateDimensionProperties: &gsheet.UpdateDimensionPropertiesRequest{
			Range: &gsheet.DimensionRange{
				SheetId:         sheetID,
				Dimension:       "COLUMNS",
				StartIndex:      int64(i),
				EndIndex:        int64(i + 1),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
			Properties: &gsheet.DimensionProperties{PixelSize: int64(w * pixelsPerChar)},
			Fields:     "pixelSize",
		}})
	}
	return reqs
}

// a1 builds a range on a quoted sheet name.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// hexColor parses an RRGGBB color; malformed input yields black.
func hexColor(hex string) *gsheet.Color {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return &gsheet.Color{}
	}
	return &gsheet.Color{
		Red:   float64(v>>16&0xff) / 255,
		Green: float64(v>>8&0xff) / 255,
		Blue:  float64(v&0xff) / 255,
	}
}
