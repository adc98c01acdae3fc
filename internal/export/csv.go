// Package export writes the generated streams to their destinations:
// CSV files always, plus optional ClickHouse, Kafka, and S3 sinks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tenantsim/internal/schema"
)

// Stream headers. Column order is part of the fixture contract.
var (
	auditHeader    = []string{"TimeGenerated", "OperationName", "InitiatedBy", "TargetProperties"}
	activityHeader = []string{
		"TimeGenerated", "UserPrincipalName", "OperationName", "SiteUrl",
		"FileName", "TargetFolder", "ClientAppUsed", "IPAddress", "IsManagedDevice",
	}
	signinHeader = []string{
		"TimeGenerated", "UserPrincipalName", "AppDisplayName", "ResultType",
		"ResultDescription", "IPAddress", "Location", "DeviceDetail",
	}
)

// WriteAudit writes the audit stream as CSV, header first. An empty
// stream produces a header-only table.
func WriteAudit(w io.Writer, events []schema.AuditEvent) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(auditHeader); err != nil {
		return fmt.Errorf("export: audit header: %w", err)
	}
	for _, e := range events {
		record := []string{
			e.TimeGenerated.Format(schema.TimeFormat),
			e.OperationName,
			e.InitiatedBy,
			e.TargetProperties,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: audit row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteActivity writes the office-activity stream as CSV.
func WriteActivity(w io.Writer, events []schema.OfficeActivityEvent) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(activityHeader); err != nil {
		return fmt.Errorf("export: activity header: %w", err)
	}
	for _, e := range events {
		record := []string{
			e.TimeGenerated.Format(schema.TimeFormat),
			e.UserPrincipalName,
			e.OperationName,
			e.SiteUrl,
			e.FileName,
			e.TargetFolder,
			e.ClientAppUsed,
			e.IPAddress,
			formatBool(e.IsManagedDevice),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: activity row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSignIns writes the sign-in stream as CSV.
func WriteSignIns(w io.Writer, events []schema.SignInEvent) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(signinHeader); err != nil {
		return fmt.Errorf("export: sign-in header: %w", err)
	}
	for _, e := range events {
		record := []string{
			e.TimeGenerated.Format(schema.TimeFormat),
			e.UserPrincipalName,
			e.AppDisplayName,
			strconv.Itoa(e.ResultType),
			e.ResultDescription,
			e.IPAddress,
			e.Location,
			e.DeviceDetail.Encode(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: sign-in row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadSignIns reads a pre-existing sign-in table for the merge variant.
// The column layout must match what WriteSignIns produces.
func ReadSignIns(r io.Reader) ([]schema.SignInEvent, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("export: sign-in table has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("export: sign-in header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range signinHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("export: sign-in table missing column %s", required)
		}
	}

	var events []schema.SignInEvent
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: sign-in row %d: %w", row, err)
		}

		ts, err := parseTime(record[cols["TimeGenerated"]])
		if err != nil {
			return nil, fmt.Errorf("export: sign-in row %d: %w", row, err)
		}

		resultType, err := strconv.Atoi(record[cols["ResultType"]])
		if err != nil {
			return nil, fmt.Errorf("export: sign-in row %d: bad ResultType: %w", row, err)
		}

		var device schema.DeviceDetail
		if raw := record[cols["DeviceDetail"]]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &device); err != nil {
				return nil, fmt.Errorf("export: sign-in row %d: bad DeviceDetail: %w", row, err)
			}
		}

		events = append(events, schema.SignInEvent{
			TimeGenerated:     ts,
			UserPrincipalName: record[cols["UserPrincipalName"]],
			AppDisplayName:    record[cols["AppDisplayName"]],
			ResultType:        resultType,
			ResultDescription: record[cols["ResultDescription"]],
			IPAddress:         record[cols["IPAddress"]],
			Location:          record[cols["Location"]],
			DeviceDetail:      device,
		})
	}

	return events, nil
}

// LoadSignIns reads a pre-existing sign-in table from a CSV file.
func LoadSignIns(path string) ([]schema.SignInEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open sign-in table: %w", err)
	}
	defer f.Close()

	return ReadSignIns(f)
}

// WriteFiles writes the three streams under dir, creating it as needed,
// and returns the written paths keyed by stream name.
func WriteFiles(dir string, auditFile string, auditRows []schema.AuditEvent,
	activityFile string, activityRows []schema.OfficeActivityEvent,
	signinFile string, signinRows []schema.SignInEvent) (map[string]string, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}

	paths := map[string]string{
		"audit":          filepath.Join(dir, auditFile),
		"officeactivity": filepath.Join(dir, activityFile),
		"signin":         filepath.Join(dir, signinFile),
	}

	if err := writeFile(paths["audit"], func(w io.Writer) error {
		return WriteAudit(w, auditRows)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(paths["officeactivity"], func(w io.Writer) error {
		return WriteActivity(w, activityRows)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(paths["signin"], func(w io.Writer) error {
		return WriteSignIns(w, signinRows)
	}); err != nil {
		return nil, err
	}

	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatBool renders booleans the way the downstream tabular tooling
// expects them, capitalized.
func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// parseTime accepts both the bare fixture format and RFC 3339 so hand
// edited tables still merge.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(schema.TimeFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad TimeGenerated %q", s)
	}
	return t, nil
}
