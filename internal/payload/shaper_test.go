package payload

import (
	"encoding/json"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"tenantsim/internal/schema"
)

var (
	testRoles = []string{"Global Administrator", "User Administrator", "Security Administrator", "Exchange Administrator"}
	testDepts = []string{"Sales", "Legal", "Marketing"}
)

func newTestShaper(seed int64) *Shaper {
	return NewShaper(testRoles, testDepts, rand.New(rand.NewSource(seed)))
}

func decode(t *testing.T, payload string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload is not a JSON object: %s (%v)", payload, err)
	}
	return out
}

func TestShapeRoleOperations(t *testing.T) {
	s := newTestShaper(1)

	for _, op := range []string{schema.OpAddMemberToRole, schema.OpRemoveMemberFromRole} {
		t.Run(op, func(t *testing.T) {
			got := decode(t, s.Shape(op, Request{Actor: "a@x.com", Target: "b@x.com"}))

			if got["User"] != "b@x.com" {
				t.Errorf("User = %s, want b@x.com", got["User"])
			}
			role := got["RoleName"]
			found := false
			for _, r := range testRoles {
				if role == r {
					found = true
				}
			}
			if !found {
				t.Errorf("RoleName %q not in the fixed role pool", role)
			}
		})
	}
}

func TestShapeRoleHint(t *testing.T) {
	s := newTestShaper(1)
	got := decode(t, s.Shape(schema.OpAddMemberToRole, Request{Target: "b@x.com", RoleHint: "Global Administrator"}))
	if got["RoleName"] != "Global Administrator" {
		t.Errorf("RoleName = %s, want the hinted role", got["RoleName"])
	}
}

func TestShapeUserOperations(t *testing.T) {
	s := newTestShaper(2)

	for _, op := range []string{schema.OpAddUser, schema.OpDeleteUser} {
		t.Run(op, func(t *testing.T) {
			got := decode(t, s.Shape(op, Request{Actor: "admin@x.com", Target: "temp@x.com"}))

			if got["UserPrincipalName"] != "temp@x.com" {
				t.Errorf("UserPrincipalName = %s", got["UserPrincipalName"])
			}
			if got["CreatedBy"] != "admin@x.com" {
				t.Errorf("CreatedBy = %s", got["CreatedBy"])
			}
			dept := got["Department"]
			if dept != "Sales" && dept != "Legal" && dept != "Marketing" {
				t.Errorf("Department %q not in the fixed pool", dept)
			}
		})
	}
}

func TestShapeUpdateUserIsConstant(t *testing.T) {
	s := newTestShaper(3)

	first := s.Shape(schema.OpUpdateUser, Request{Target: "temp@x.com"})
	for i := 0; i < 10; i++ {
		if got := s.Shape(schema.OpUpdateUser, Request{Target: "temp@x.com"}); got != first {
			t.Fatalf("UpdateUser payload varied: %s vs %s", got, first)
		}
	}

	got := decode(t, first)
	if got["UpdatedField"] != "Title" || got["OldValue"] != "Analyst" || got["NewValue"] != "Senior Analyst" {
		t.Errorf("UpdateUser payload = %s", first)
	}
}

func TestShapeDevice(t *testing.T) {
	s := newTestShaper(4)
	deviceID := regexp.MustCompile(`^device-[1-9][0-9]{3}$`)

	for i := 0; i < 50; i++ {
		got := decode(t, s.Shape(schema.OpUpdateDevice, Request{}))
		if !deviceID.MatchString(got["DeviceId"]) {
			t.Fatalf("DeviceId = %q, want device-<1000..9999>", got["DeviceId"])
		}
		if got["ComplianceStatus"] != "Updated" {
			t.Fatalf("ComplianceStatus = %q", got["ComplianceStatus"])
		}
	}
}

func TestShapeGroup(t *testing.T) {
	s := newTestShaper(5)
	groupID := regexp.MustCompile(`^group-[1-9][0-9]{2}$`)

	for _, op := range []string{schema.OpAddMemberToGroup, schema.OpRemoveMemberFromGroup} {
		got := decode(t, s.Shape(op, Request{Target: "b@x.com"}))
		if !groupID.MatchString(got["Group"]) {
			t.Errorf("%s: Group = %q, want group-<100..999>", op, got["Group"])
		}
		if got["User"] != "b@x.com" {
			t.Errorf("%s: User = %q", op, got["User"])
		}
	}
}

func TestShapeUnknownKind(t *testing.T) {
	s := newTestShaper(6)
	if got := s.Shape("ResetStrongAuthentication", Request{Target: "b@x.com"}); got != "{}" {
		t.Errorf("unknown kind shaped to %s, want {}", got)
	}
}

func TestShapeKeepsShapePerKind(t *testing.T) {
	s := newTestShaper(7)

	keys := func(payload string) string {
		m := decode(t, payload)
		ks := make([]string, 0, len(m))
		for k := range m {
			ks = append(ks, k)
		}
		// Map iteration order is random; compare as a set via sorted join.
		for i := 0; i < len(ks); i++ {
			for j := i + 1; j < len(ks); j++ {
				if ks[j] < ks[i] {
					ks[i], ks[j] = ks[j], ks[i]
				}
			}
		}
		return strings.Join(ks, ",")
	}

	first := keys(s.Shape(schema.OpAddUser, Request{Actor: "a@x.com", Target: "b@x.com"}))
	for i := 0; i < 20; i++ {
		if got := keys(s.Shape(schema.OpAddUser, Request{Actor: "a@x.com", Target: "c@x.com"})); got != first {
			t.Fatalf("AddUser payload keys varied: %s vs %s", got, first)
		}
	}
}
