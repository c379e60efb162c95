package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one spreadsheet record with its columns resolved by name.
// Number is the 1-based data row, the header excluded.
type Row struct {
	Number           int
	Name             string
	Start            string
	Link             string
	ShortDescription string
	LongDescription  string
	Organizer        string
	Image            string
	Err              error
}

type rowField int

const (
	fieldName rowField = iota
	fieldStart
	fieldLink
	fieldShortDescription
	fieldLongDescription
	fieldOrganizer
	fieldImage
)

var columnAliases = map[string]rowField{
	"name":             fieldName,
	"title":            fieldName,
	"event":            fieldName,
	"eventname":        fieldName,
	"eventtitle":       fieldName,
	"start":            fieldStart,
	"startdate":        fieldStart,
	"starttime":        fieldStart,
	"startdatetime":    fieldStart,
	"startsat":         fieldStart,
	"eventstart":       fieldStart,
	"date":             fieldStart,
	"link":             fieldLink,
	"url":              fieldLink,
	"eventurl":         fieldLink,
	"eventlink":        fieldLink,
	"tickets":          fieldLink,
	"ticketurl":        fieldLink,
	"ticketsurl":       fieldLink,
	"website":          fieldLink,
	"shortdescription": fieldShortDescription,
	"summary":          fieldShortDescription,
	"excerpt":          fieldShortDescription,
	"longdescription":  fieldLongDescription,
	"description":      fieldLongDescription,
	"details":          fieldLongDescription,
	"content":          fieldLongDescription,
	"organizer":        fieldOrganizer,
	"organiser":        fieldOrganizer,
	"organizedby":      fieldOrganizer,
	"host":             fieldOrganizer,
	"image":            fieldImage,
	"imageurl":         fieldImage,
	"poster":           fieldImage,
	"featuredimage":    fieldImage,
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReadRows reads a CSV document with a header line. A missing header or an
// I/O failure is fatal and wraps ErrUnreadableInput; malformed records are
// returned as rows carrying Err.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrUnreadableInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	columns := make(map[rowField]int, len(header))
	for i, h := range header {
		field, ok := columnAliases[normalizeColumn(h)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}

	var rows []Row
	for number := 1; ; number++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
			}
			rows = append(rows, Row{Number: number, Err: err})
			continue
		}
		rows = append(rows, rowFromRecord(number, record, columns))
	}
}

func rowFromRecord(number int, record []string, columns map[rowField]int) Row {
	cell := func(field rowField) string {
		i, ok := columns[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return Row{
		Number:           number,
		Name:             cell(fieldName),
		Start:            cell(fieldStart),
		Link:             cell(fieldLink),
		ShortDescription: cell(fieldShortDescription),
		LongDescription:  cell(fieldLongDescription),
		Organizer:        cell(fieldOrganizer),
		Image:            cell(fieldImage),
	}
}
