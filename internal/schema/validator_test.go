package schema

import (
	"testing"
	"time"
)

func testTime() time.Time {
	return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
}

func TestValidateAudit(t *testing.T) {
	v := NewValidator()

	valid := func() AuditEvent {
		return AuditEvent{
			TimeGenerated:    testTime(),
			OperationName:    OpAddMemberToRole,
			InitiatedBy:      InitiatedBy("casey.reed@contoso.com", "86.23.123.45"),
			TargetProperties: `{"RoleName":"User Administrator","User":"drew.vance@contoso.com"}`,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AuditEvent)
		wantErr bool
	}{
		{"valid row", func(e *AuditEvent) {}, false},
		{"missing operation", func(e *AuditEvent) { e.OperationName = "" }, true},
		{"bare principal without origin", func(e *AuditEvent) { e.InitiatedBy = "casey.reed@contoso.com" }, true},
		{"malformed properties", func(e *AuditEvent) { e.TargetProperties = "{not json" }, true},
		{"empty properties object", func(e *AuditEvent) { e.TargetProperties = "{}" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(&e)
			err := v.ValidateAudit([]AuditEvent{e})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAudit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSignIns(t *testing.T) {
	v := NewValidator()

	valid := func() SignInEvent {
		return SignInEvent{
			TimeGenerated:     testTime(),
			UserPrincipalName: "casey.reed@contoso.com",
			AppDisplayName:    "Azure Portal",
			ResultType:        ResultSuccess,
			ResultDescription: "Sign-in succeeded",
			IPAddress:         "86.23.123.45",
			Location:          "London, UK",
			DeviceDetail: DeviceDetail{
				DisplayName:     "device-lon-7",
				IsCompliant:     true,
				IsManaged:       true,
				OperatingSystem: "Windows",
				Browser:         "Edge",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*SignInEvent)
		wantErr bool
	}{
		{"valid row", func(e *SignInEvent) {}, false},
		{"principal not email-shaped", func(e *SignInEvent) { e.UserPrincipalName = "not-an-email" }, true},
		{"bad ip", func(e *SignInEvent) { e.IPAddress = "999.1.2.3" }, true},
		{"negative result code", func(e *SignInEvent) { e.ResultType = -1 }, true},
		{"failure code", func(e *SignInEvent) { e.ResultType = 50126; e.ResultDescription = "Invalid username or password." }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(&e)
			err := v.ValidateSignIns([]SignInEvent{e})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignIns() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceDetailEncode(t *testing.T) {
	d := DeviceDetail{
		DisplayName:     "unknown-A1B2C3D",
		OperatingSystem: "Linux",
		Browser:         "Tor",
	}
	got := d.Encode()
	want := `{"DisplayName":"unknown-A1B2C3D","IsCompliant":false,"IsManaged":false,"OperatingSystem":"Linux","Browser":"Tor"}`
	if got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}
