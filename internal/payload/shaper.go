// Package payload shapes the TargetProperties detail object for each
// audit operation kind. One shaping rule per kind, kept in a dispatch
// table so the payload shape stays consistent across the whole corpus.
package payload

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"tenantsim/internal/schema"
)

// Request carries the inputs a shaping rule may use.
type Request struct {
	Actor    string
	Target   string
	RoleHint string // forces the role for role operations; empty samples one
}

type shapeFunc func(*Shaper, Request) any

// Shaper maps an operation kind to its structured detail payload.
// Unknown kinds shape to an empty object rather than failing, so new
// operation kinds degrade gracefully.
type Shaper struct {
	roles       []string
	departments []string
	rng         *rand.Rand
	rules       map[string]shapeFunc
}

type roleDetail struct {
	RoleName string `json:"RoleName"`
	User     string `json:"User"`
}

type userDetail struct {
	UserPrincipalName string `json:"UserPrincipalName"`
	Department        string `json:"Department"`
	CreatedBy         string `json:"CreatedBy"`
}

type updateUserDetail struct {
	UserPrincipalName string `json:"UserPrincipalName"`
	UpdatedField      string `json:"UpdatedField"`
	OldValue          string `json:"OldValue"`
	NewValue          string `json:"NewValue"`
}

type deviceDetail struct {
	DeviceId         string `json:"DeviceId"`
	ComplianceStatus string `json:"ComplianceStatus"`
}

type groupDetail struct {
	Group string `json:"Group"`
	User  string `json:"User"`
}

// NewShaper creates a Shaper over the fixed role and department pools.
func NewShaper(roles, departments []string, rng *rand.Rand) *Shaper {
	s := &Shaper{
		roles:       roles,
		departments: departments,
		rng:         rng,
	}

	s.rules = map[string]shapeFunc{
		schema.OpAddMemberToRole:       (*Shaper).shapeRole,
		schema.OpRemoveMemberFromRole:  (*Shaper).shapeRole,
		schema.OpAddUser:               (*Shaper).shapeUser,
		schema.OpDeleteUser:            (*Shaper).shapeUser,
		schema.OpUpdateUser:            (*Shaper).shapeUpdateUser,
		schema.OpUpdateDevice:          (*Shaper).shapeDevice,
		schema.OpAddMemberToGroup:      (*Shaper).shapeGroup,
		schema.OpRemoveMemberFromGroup: (*Shaper).shapeGroup,
	}

	return s
}

// Shape returns the JSON-encoded detail payload for an operation kind.
func (s *Shaper) Shape(op string, req Request) string {
	rule, ok := s.rules[op]
	if !ok {
		return "{}"
	}

	b, err := json.Marshal(rule(s, req))
	if err != nil {
		// The detail structs are all marshalable; this cannot happen.
		return "{}"
	}
	return string(b)
}

func (s *Shaper) shapeRole(req Request) any {
	role := req.RoleHint
	if role == "" {
		role = s.roles[s.rng.Intn(len(s.roles))]
	}
	return roleDetail{RoleName: role, User: req.Target}
}

func (s *Shaper) shapeUser(req Request) any {
	return userDetail{
		UserPrincipalName: req.Target,
		Department:        s.departments[s.rng.Intn(len(s.departments))],
		CreatedBy:         req.Actor,
	}
}

// shapeUpdateUser is deliberately constant: a stable "benign update"
// fixture downstream queries can assert against.
func (s *Shaper) shapeUpdateUser(req Request) any {
	return updateUserDetail{
		UserPrincipalName: req.Target,
		UpdatedField:      "Title",
		OldValue:          "Analyst",
		NewValue:          "Senior Analyst",
	}
}

func (s *Shaper) shapeDevice(Request) any {
	return deviceDetail{
		DeviceId:         fmt.Sprintf("device-%d", 1000+s.rng.Intn(9000)),
		ComplianceStatus: "Updated",
	}
}

func (s *Shaper) shapeGroup(req Request) any {
	return groupDetail{
		Group: fmt.Sprintf("group-%d", 100+s.rng.Intn(900)),
		User:  req.Target,
	}
}
