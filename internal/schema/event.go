// Package schema defines the row shapes for the three synthesized
// telemetry streams. Generators produce these structs; exporters encode
// them as CSV rows, ClickHouse inserts, or Kafka messages.
package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is the timestamp layout used in every output stream.
// Matches ISO-8601 without a zone offset; all generated times are
// tenant-local.
const TimeFormat = "2006-01-02T15:04:05"

// Audit operation names.
const (
	OpAddMemberToRole       = "AddMemberToRole"
	OpRemoveMemberFromRole  = "RemoveMemberFromRole"
	OpAddMemberToGroup      = "AddMemberToGroup"
	OpRemoveMemberFromGroup = "RemoveMemberFromGroup"
	OpUpdateDevice          = "UpdateDevice"
	OpUpdateUser            = "UpdateUser"
	OpAddUser               = "AddUser"
	OpDeleteUser            = "DeleteUser"
)

// Office-activity operation names.
const (
	OpTeamsSessionStarted = "TeamsSessionStarted"
	OpFileAccessed        = "FileAccessed"
	OpFileModified        = "FileModified"
	OpMailItemsAccessed   = "MailItemsAccessed"
	OpMoveToDeletedItems  = "MoveToDeletedItems"
)

// ResultSuccess is the sign-in result code for a successful attempt.
const ResultSuccess = 0

// AuditEvent is one row of the identity/role audit stream.
type AuditEvent struct {
	TimeGenerated    time.Time `json:"TimeGenerated"`
	OperationName    string    `json:"OperationName" validate:"required"`
	InitiatedBy      string    `json:"InitiatedBy" validate:"required,initiated_by"`
	TargetProperties string    `json:"TargetProperties" validate:"required,json"`
}

// OfficeActivityEvent is one row of the productivity-suite activity stream.
type OfficeActivityEvent struct {
	TimeGenerated     time.Time `json:"TimeGenerated"`
	UserPrincipalName string    `json:"UserPrincipalName" validate:"required,email"`
	OperationName     string    `json:"OperationName" validate:"required"`
	SiteUrl           string    `json:"SiteUrl" validate:"omitempty,url"`
	FileName          string    `json:"FileName"`
	TargetFolder      string    `json:"TargetFolder"`
	ClientAppUsed     string    `json:"ClientAppUsed"`
	IPAddress         string    `json:"IPAddress" validate:"required,ip"`
	IsManagedDevice   bool      `json:"IsManagedDevice"`
}

// SignInEvent is one row of the authentication sign-in stream.
type SignInEvent struct {
	TimeGenerated     time.Time    `json:"TimeGenerated"`
	UserPrincipalName string       `json:"UserPrincipalName" validate:"required,email"`
	AppDisplayName    string       `json:"AppDisplayName" validate:"required"`
	ResultType        int          `json:"ResultType" validate:"min=0"`
	ResultDescription string       `json:"ResultDescription" validate:"required"`
	IPAddress         string       `json:"IPAddress" validate:"required,ip"`
	Location          string       `json:"Location" validate:"required"`
	DeviceDetail      DeviceDetail `json:"DeviceDetail"`
}

// DeviceDetail describes the device a sign-in attempt came from. It is
// serialized as a JSON object inside the DeviceDetail column.
type DeviceDetail struct {
	DisplayName     string `json:"DisplayName"`
	IsCompliant     bool   `json:"IsCompliant"`
	IsManaged       bool   `json:"IsManaged"`
	OperatingSystem string `json:"OperatingSystem"`
	Browser         string `json:"Browser"`
}

// Encode returns the JSON encoding used in the output column.
func (d DeviceDetail) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// Succeeded reports whether the sign-in attempt was successful.
func (e SignInEvent) Succeeded() bool {
	return e.ResultType == ResultSuccess
}

// InitiatedBy composes the audit-stream actor column from a principal
// and the network origin the action came from.
func InitiatedBy(upn, ip string) string {
	return fmt.Sprintf("%s (%s)", upn, ip)
}
