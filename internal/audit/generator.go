// Package audit generates the identity/role administration stream: a
// daily privileged-role add/remove pair per IT actor, a batch of generic
// directory operations against throwaway principals, and the deferred
// DeleteUser correlation for every AddUser.
package audit

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"tenantsim/internal/identity"
	"tenantsim/internal/payload"
	"tenantsim/internal/schema"
	"tenantsim/internal/timedist"
)

// Generic-operation count bounds per (actor, day), inclusive.
const (
	minGenericOps = 5
	maxGenericOps = 10
)

// Delete lag bound in days, inclusive. Every AddUser is followed by a
// DeleteUser 0 to 3 days later.
const maxDeleteLagDays = 3

// pendingDelete is the correlation obligation created by an AddUser
// event and consumed exactly once to emit the matching DeleteUser.
type pendingDelete struct {
	target  string
	actor   string
	office  string
	baseDay time.Time
	addedAt time.Time
}

// Generator produces the audit stream.
type Generator struct {
	sampler    *timedist.Sampler
	shaper     *payload.Shaper
	fabricator *identity.Fabricator
	resolver   *identity.Resolver
	roles      []string
	genericOps []string
	rng        *rand.Rand
	logger     *slog.Logger

	// OnActor, when set, is called once per processed actor. Used for
	// progress reporting.
	OnActor func()
}

// NewGenerator creates an audit Generator.
func NewGenerator(
	sampler *timedist.Sampler,
	shaper *payload.Shaper,
	fabricator *identity.Fabricator,
	resolver *identity.Resolver,
	roles, genericOps []string,
	rng *rand.Rand,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		sampler:    sampler,
		shaper:     shaper,
		fabricator: fabricator,
		resolver:   resolver,
		roles:      roles,
		genericOps: genericOps,
		rng:        rng,
		logger:     logger,
	}
}

// Generate runs the two-phase pipeline over every actor and day.
// Phase 1 emits the daily events and accumulates pending deletes;
// phase 2 resolves every pending delete into exactly one DeleteUser.
// The principal named by excluded is skipped as an actor: its audit
// trail belongs entirely to the anomaly storyline.
func (g *Generator) Generate(ctx context.Context, actors []identity.Principal, days []time.Time, excluded string) ([]schema.AuditEvent, error) {
	var events []schema.AuditEvent
	var pending []pendingDelete

	for _, actor := range actors {
		if actor.Is(excluded) {
			continue
		}

		ip := g.resolver.Resolve(actor.OfficeLocation)
		initiatedBy := schema.InitiatedBy(actor.UserPrincipalName, ip)

		for _, day := range days {
			events = g.rolePair(events, initiatedBy, actor, actors, day)

			var err error
			events, pending, err = g.genericOperations(ctx, events, pending, initiatedBy, actor, day)
			if err != nil {
				return nil, err
			}
		}

		if g.OnActor != nil {
			g.OnActor()
		}
	}

	events = g.resolveDeletes(events, pending)

	g.logger.Debug("audit stream generated",
		"actors", len(actors),
		"events", len(events),
		"deletes", len(pending),
	)

	return events, nil
}

// rolePair emits an AddMemberToRole/RemoveMemberFromRole pair sharing
// one payload. The timestamps are drawn independently, so Remove may
// precede Add on the clock; accepted noise, the source systems do not
// order these either.
func (g *Generator) rolePair(events []schema.AuditEvent, initiatedBy string, actor identity.Principal, pool []identity.Principal, day time.Time) []schema.AuditEvent {
	target := identity.Sample(pool, g.rng)
	role := g.roles[g.rng.Intn(len(g.roles))]

	props := g.shaper.Shape(schema.OpAddMemberToRole, payload.Request{
		Actor:    actor.UserPrincipalName,
		Target:   target.UserPrincipalName,
		RoleHint: role,
	})

	for _, op := range []string{schema.OpAddMemberToRole, schema.OpRemoveMemberFromRole} {
		events = append(events, schema.AuditEvent{
			TimeGenerated:    g.sampler.WorkingHours(day),
			OperationName:    op,
			InitiatedBy:      initiatedBy,
			TargetProperties: props,
		})
	}

	return events
}

// genericOperations emits 5-10 operations against freshly fabricated
// targets and registers a pending delete for every AddUser.
func (g *Generator) genericOperations(ctx context.Context, events []schema.AuditEvent, pending []pendingDelete, initiatedBy string, actor identity.Principal, day time.Time) ([]schema.AuditEvent, []pendingDelete, error) {
	count := minGenericOps + g.rng.Intn(maxGenericOps-minGenericOps+1)

	for i := 0; i < count; i++ {
		op := g.genericOps[g.rng.Intn(len(g.genericOps))]

		target, err := g.fabricator.Fabricate(ctx)
		if err != nil {
			return nil, nil, err
		}

		ts := g.sampler.WorkingHours(day)
		events = append(events, schema.AuditEvent{
			TimeGenerated: ts,
			OperationName: op,
			InitiatedBy:   initiatedBy,
			TargetProperties: g.shaper.Shape(op, payload.Request{
				Actor:  actor.UserPrincipalName,
				Target: target,
			}),
		})

		if op == schema.OpAddUser {
			pending = append(pending, pendingDelete{
				target:  target,
				actor:   actor.UserPrincipalName,
				office:  actor.OfficeLocation,
				baseDay: day,
				addedAt: ts,
			})
		}
	}

	return events, pending, nil
}

// resolveDeletes materializes every pending delete at baseDay plus a
// uniform 0-3 day lag, within working hours. A zero-lag draw that lands
// at or before the AddUser instant moves to the next day so the delete
// is always strictly later.
func (g *Generator) resolveDeletes(events []schema.AuditEvent, pending []pendingDelete) []schema.AuditEvent {
	for _, pd := range pending {
		deleteDay := pd.baseDay.AddDate(0, 0, g.rng.Intn(maxDeleteLagDays+1))

		ts := g.sampler.WorkingHours(deleteDay)
		if !ts.After(pd.addedAt) {
			ts = g.sampler.WorkingHours(deleteDay.AddDate(0, 0, 1))
		}

		events = append(events, schema.AuditEvent{
			TimeGenerated: ts,
			OperationName: schema.OpDeleteUser,
			InitiatedBy:   schema.InitiatedBy(pd.actor, g.resolver.Resolve(pd.office)),
			TargetProperties: g.shaper.Shape(schema.OpDeleteUser, payload.Request{
				Actor:  pd.actor,
				Target: pd.target,
			}),
		})
	}

	return events
}
