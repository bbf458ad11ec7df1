package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheets appends one row per transaction to a spreadsheet tab.
type Sheets struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// SheetHeader is the column order of appended rows.
var SheetHeader = []string{
	"Date", "Time", "Amount", "Merchant", "Category", "Subcategory", "Note", "Confidence", "Transcript",
}

func NewSheets(svc *gsheet.Service, spreadsheetID, sheetName string) *Sheets {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// NewSheetsService builds a Sheets API client from service account
// credentials: inline JSON, a file path, or GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsService(ctx context.Context, credentialsJSON, credentialsFile string, opts ...goption.ClientOption) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) Deliver(ctx context.Context, p Payload) error {
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:I", s.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row(p)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}
	return nil
}

func row(p Payload) []any {
	return []any{
		p.Date,
		p.Timestamp.Format("15:04:05"),
		string(p.Amount),
		p.Merchant,
		p.Category,
		p.Subcategory,
		p.Note,
		p.Confidence,
		p.RawTranscript,
	}
}
