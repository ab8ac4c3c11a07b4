package gateway_service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const maxCSVSize = 10 << 20

// UploadCSV sends the file to the backend for parsing and returns the rows.
// The file is read once into the request body.
func (c *Client) UploadCSV(ctx context.Context, name string, r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxCSVSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := validateCSV(name, data); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="csv_file"; filename=%q`, filepath.Base(name)))
	header.Set("Content-Type", "text/csv")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/upload-csv/"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp uploadResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		return nil, fmt.Errorf("%w: rows missing", ErrMalformedResponse)
	}

	rows := make([]Row, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		row := make(Row, len(raw))
		for column, value := range raw {
			if value == nil {
				row[column] = ""
				continue
			}
			row[column] = fmt.Sprint(value)
		}
		rows = append(rows, row)
	}

	c.logger.Info("csv uploaded", "file", filepath.Base(name), "rows", len(rows))
	return rows, nil
}

// validateCSV accepts textual content that either carries a .csv name or
// sniffs as CSV.
func validateCSV(name string, data []byte) error {
	if len(data) == 0 {
		return &ValidationError{Field: "csv_file", Message: "CSV file is empty"}
	}
	if len(data) > maxCSVSize {
		return &ValidationError{Field: "csv_file", Message: "CSV file is larger than 10 MiB"}
	}

	detected := mimetype.Detect(data)
	textual := false
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			textual = true
			break
		}
	}

	isCSVName := strings.EqualFold(filepath.Ext(name), ".csv")
	if !textual || (!isCSVName && !detected.Is("text/csv")) {
		return &ValidationError{
			Field:   "csv_file",
			Message: fmt.Sprintf("%s is not a CSV file (detected %s)", filepath.Base(name), detected.String()),
		}
	}
	return nil
}
