package domain

import (
	"errors"
	"sort"

	"bulk_mail_client/internal/pkg/gateway/gateway_service"
)

var ErrSendInProgress = errors.New("a bulk send is already in progress")

// Dataset is the decoded CSV held for the current authoring session. It is
// never persisted and is replaced as a whole on each upload.
type Dataset struct {
	Source string
	Rows   []gateway_service.Row
}

func (d Dataset) Len() int {
	return len(d.Rows)
}

// Columns returns the column names of the first row in sorted order.
func (d Dataset) Columns() []string {
	if len(d.Rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(d.Rows[0]))
	for column := range d.Rows[0] {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// Draft is the message template. Placeholder syntax is checked by the backend.
type Draft struct {
	Template string
}

// Preview is the head of a dataset plus how many rows were left out.
type Preview struct {
	Rows      []gateway_service.Row
	Remaining int
}

// SendResult is what a finished bulk send reports.
type SendResult struct {
	Message    string
	Recipients int
	Sender     string
}
