package Sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsScope is the OAuth scope the service account needs.
const SheetsScope = sheets.SpreadsheetsScope

// GoogleStore reads and writes one Google spreadsheet. Values are written in
// USER_ENTERED mode so dates and numbers are parsed the same way as when a
// person types them.
type GoogleStore struct {
	srv           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewGoogleStore builds a Sheets client from an authorized token source.
func NewGoogleStore(ctx context.Context, ts oauth2.TokenSource, spreadsheetID string) (*GoogleStore, error) {
	srv, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &GoogleStore{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func quoteSheet(sheet string) string {
	if strings.ContainsAny(sheet, " '!:") {
		return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet
}

func cellRange(sheet string, rowNumber int) string {
	return fmt.Sprintf("%s!A%d", quoteSheet(sheet), rowNumber)
}

func toValues(row []string) [][]interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return [][]interface{}{values}
}

// missingSheet maps the API's range parse failure onto ErrSheetNotFound.
func missingSheet(sheet string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	return err
}

func (s *GoogleStore) Read(ctx context.Context, sheet string) (*Snapshot, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, missingSheet(sheet, err))
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, cell := range r {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return NewSnapshot(sheet, rows), nil
}

func (s *GoogleStore) Append(ctx context.Context, sheet string, row []string) error {
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, cellRange(sheet, 1), &sheets.ValueRange{Values: toValues(row)}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", sheet, missingSheet(sheet, err))
	}
	return nil
}

func (s *GoogleStore) Update(ctx context.Context, sheet string, rowNumber int, row []string) error {
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, cellRange(sheet, rowNumber), &sheets.ValueRange{Values: toValues(row)}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", sheet, rowNumber, missingSheet(sheet, err))
	}
	return nil
}

func (s *GoogleStore) SetHeader(ctx context.Context, sheet string, header []string) error {
	return s.Update(ctx, sheet, 1, header)
}

func (s *GoogleStore) sheetID(ctx context.Context, sheet string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sheetIDs[sheet]; ok {
		return id, nil
	}
	resp, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("spreadsheet metadata: %w", err)
	}
	s.sheetIDs = make(map[string]int64, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok := s.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	return id, nil
}

// DeleteRow removes a whole row so the rows below it shift up.
func (s *GoogleStore) DeleteRow(ctx context.Context, sheet string, rowNumber int) error {
	if rowNumber < 2 {
		return fmt.Errorf("delete %s: row %d out of range", sheet, rowNumber)
	}
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return fmt.Errorf("delete %s row %d: %w", sheet, rowNumber, err)
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(rowNumber - 1),
					EndIndex:   int64(rowNumber),
					// The first tab has id 0.
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s row %d: %w", sheet, rowNumber, err)
	}
	return nil
}
