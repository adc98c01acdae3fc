// Package anomaly overlays the fixed compromise storyline onto the
// generated streams: a privileged escalation and an out-of-hours
// activity burst for one reserved principal, all from one suspicious
// network origin. This storyline is the detectable signal the whole
// engine exists to produce.
package anomaly

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"tenantsim/internal/config"
	"tenantsim/internal/payload"
	"tenantsim/internal/schema"
)

// Escalation timing, relative to the storyline base timestamp. The two
// role grants land 58 minutes apart.
const (
	elevatedGrantOffset = 2 * time.Minute
	highestGrantOffset  = 60 * time.Minute
)

// activityBurst is the fixed post-sign-in activity sequence: mailbox
// read, mailbox purge, file pull, session start.
var activityBurst = []struct {
	op     string
	folder string
}{
	{schema.OpMailItemsAccessed, "Inbox"},
	{schema.OpMoveToDeletedItems, "Inbox"},
	{schema.OpFileAccessed, "SharedDocs"},
	{schema.OpTeamsSessionStarted, ""},
}

const (
	activityBurstStart   = 45 * time.Minute
	activityBurstSpacing = 2 * time.Minute
)

// Storyline fixes the compromise narrative: who, when, and from where.
type Storyline struct {
	Principal      string
	Day            time.Time
	EscalationBase time.Time
	SourceIP       string
	ElevatedRole   string
	HighestRole    string
	Site           string
}

// StorylineFromConfig resolves the configured anomaly parameters into
// concrete timestamps.
func StorylineFromConfig(cfg config.AnomalyConfig) (Storyline, error) {
	day, err := time.Parse(config.DayFormat, cfg.Day)
	if err != nil {
		return Storyline{}, fmt.Errorf("anomaly: invalid day: %w", err)
	}

	base, err := time.Parse("15:04", cfg.EscalationBase)
	if err != nil {
		return Storyline{}, fmt.Errorf("anomaly: invalid escalation base: %w", err)
	}

	return Storyline{
		Principal:      cfg.Principal,
		Day:            day,
		EscalationBase: day.Add(time.Duration(base.Hour())*time.Hour + time.Duration(base.Minute())*time.Minute),
		SourceIP:       cfg.SourceIP,
		ElevatedRole:   cfg.ElevatedRole,
		HighestRole:    cfg.HighestRole,
		Site:           cfg.Site,
	}, nil
}

// Injector appends the storyline events to the generated tables.
type Injector struct {
	story      Storyline
	shaper     *payload.Shaper
	clientApps []string
	fileName   func() string
	rng        *rand.Rand
}

// NewInjector creates an Injector. fileName fabricates document names
// for the file-bearing burst events.
func NewInjector(story Storyline, shaper *payload.Shaper, clientApps []string, fileName func() string, rng *rand.Rand) *Injector {
	return &Injector{
		story:      story,
		shaper:     shaper,
		clientApps: clientApps,
		fileName:   fileName,
		rng:        rng,
	}
}

// Story returns the storyline being injected.
func (in *Injector) Story() Storyline {
	return in.story
}

// InjectAudit appends the escalation pair: first a grant of the
// elevated-but-not-highest role, then the highest-privilege role 58
// minutes later, both self-targeted and attributed to the suspicious
// origin.
func (in *Injector) InjectAudit(events []schema.AuditEvent) []schema.AuditEvent {
	grants := []struct {
		offset time.Duration
		role   string
	}{
		{elevatedGrantOffset, in.story.ElevatedRole},
		{highestGrantOffset, in.story.HighestRole},
	}

	for _, g := range grants {
		events = append(events, schema.AuditEvent{
			TimeGenerated: in.story.EscalationBase.Add(g.offset),
			OperationName: schema.OpAddMemberToRole,
			InitiatedBy:   schema.InitiatedBy(in.story.Principal, in.story.SourceIP),
			TargetProperties: in.shaper.Shape(schema.OpAddMemberToRole, payload.Request{
				Actor:    in.story.Principal,
				Target:   in.story.Principal,
				RoleHint: g.role,
			}),
		})
	}

	return events
}

// InjectActivity appends the four-event burst on the anomaly day, two
// minutes apart, explicitly flagged as an unmanaged device.
func (in *Injector) InjectActivity(events []schema.OfficeActivityEvent) []schema.OfficeActivityEvent {
	for i, step := range activityBurst {
		fileName := ""
		if strings.Contains(step.op, "File") {
			fileName = in.fileName()
		}

		events = append(events, schema.OfficeActivityEvent{
			TimeGenerated:     in.story.Day.Add(activityBurstStart + time.Duration(i)*activityBurstSpacing),
			UserPrincipalName: in.story.Principal,
			OperationName:     step.op,
			SiteUrl:           in.story.Site,
			FileName:          fileName,
			TargetFolder:      step.folder,
			ClientAppUsed:     in.clientApps[in.rng.Intn(len(in.clientApps))],
			IPAddress:         in.story.SourceIP,
			IsManagedDevice:   false,
		})
	}

	return events
}
