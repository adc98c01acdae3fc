package identity

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Roster column names. The roster may carry extra columns; these three
// are required.
const (
	ColUPN        = "UserPrincipalName"
	ColDepartment = "Department"
	ColOffice     = "OfficeLocation"
)

// LoadRoster reads the identity roster from a CSV file.
func LoadRoster(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &RosterError{Op: "Open", Err: err}
	}
	defer f.Close()

	return ReadRoster(f)
}

// ReadRoster reads an identity roster from CSV data. The first record
// is the header; required columns may appear in any order. An empty
// roster (header only) is valid and yields an empty corpus.
func ReadRoster(r io.Reader) (*Corpus, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &RosterError{Op: "Header", Err: fmt.Errorf("roster has no header row")}
	}
	if err != nil {
		return nil, &RosterError{Op: "Header", Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{ColUPN, ColDepartment, ColOffice} {
		if _, ok := cols[required]; !ok {
			return nil, &RosterError{Op: "Header", Err: fmt.Errorf("%w: %s", ErrMissingColumn, required)}
		}
	}

	var principals []Principal
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RosterError{Op: "Row", Row: row, Err: err}
		}

		upn := record[cols[ColUPN]]
		if upn == "" {
			return nil, &RosterError{Op: "Row", Row: row, Err: fmt.Errorf("empty %s", ColUPN)}
		}

		principals = append(principals, Principal{
			UserPrincipalName: upn,
			Department:        record[cols[ColDepartment]],
			OfficeLocation:    record[cols[ColOffice]],
		})
	}

	return NewCorpus(principals), nil
}
