// Package officeactivity generates the productivity-suite usage stream:
// file, mail, and session events per principal per day, all from managed
// devices on office network origins.
package officeactivity

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"tenantsim/internal/identity"
	"tenantsim/internal/schema"
	"tenantsim/internal/timedist"
)

// Activity count bounds per (principal, day), inclusive.
const (
	minActivities = 5
	maxActivities = 15
)

// FileNamer fabricates document names: base term, numeric suffix,
// extension, all from fixed pools.
type FileNamer struct {
	bases []string
	exts  []string
	rng   *rand.Rand
}

// NewFileNamer creates a FileNamer over the fixed pools.
func NewFileNamer(bases, exts []string, rng *rand.Rand) *FileNamer {
	return &FileNamer{bases: bases, exts: exts, rng: rng}
}

// Next returns a fresh fabricated file name, e.g. "Budget_42.xlsx".
func (f *FileNamer) Next() string {
	return fmt.Sprintf("%s_%d%s",
		f.bases[f.rng.Intn(len(f.bases))],
		1+f.rng.Intn(100),
		f.exts[f.rng.Intn(len(f.exts))],
	)
}

// Generator produces the office-activity stream.
type Generator struct {
	sampler    *timedist.Sampler
	resolver   *identity.Resolver
	namer      *FileNamer
	sites      []string
	clientApps []string
	activities []string
	rng        *rand.Rand
	logger     *slog.Logger

	// OnPrincipal, when set, is called once per processed principal.
	OnPrincipal func()
}

// NewGenerator creates an office-activity Generator.
func NewGenerator(
	sampler *timedist.Sampler,
	resolver *identity.Resolver,
	namer *FileNamer,
	sites, clientApps, activities []string,
	rng *rand.Rand,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		sampler:    sampler,
		resolver:   resolver,
		namer:      namer,
		sites:      sites,
		clientApps: clientApps,
		activities: activities,
		rng:        rng,
		logger:     logger,
	}
}

// Generate emits 5-15 activity events per principal per day. File-bearing
// kinds get a fabricated file name; a mailbox purge targets the Inbox
// folder; everything else leaves those fields empty. All benign events
// come from managed devices.
func (g *Generator) Generate(principals []identity.Principal, days []time.Time) []schema.OfficeActivityEvent {
	var events []schema.OfficeActivityEvent

	for _, p := range principals {
		ip := g.resolver.Resolve(p.OfficeLocation)

		for _, day := range days {
			count := minActivities + g.rng.Intn(maxActivities-minActivities+1)

			for i := 0; i < count; i++ {
				op := g.activities[g.rng.Intn(len(g.activities))]

				fileName := ""
				if strings.Contains(op, "File") {
					fileName = g.namer.Next()
				}

				targetFolder := ""
				if op == schema.OpMoveToDeletedItems {
					targetFolder = "Inbox"
				}

				events = append(events, schema.OfficeActivityEvent{
					TimeGenerated:     g.sampler.WorkingHours(day),
					UserPrincipalName: p.UserPrincipalName,
					OperationName:     op,
					SiteUrl:           g.sites[g.rng.Intn(len(g.sites))],
					FileName:          fileName,
					TargetFolder:      targetFolder,
					ClientAppUsed:     g.clientApps[g.rng.Intn(len(g.clientApps))],
					IPAddress:         ip,
					IsManagedDevice:   true,
				})
			}
		}

		if g.OnPrincipal != nil {
			g.OnPrincipal()
		}
	}

	g.logger.Debug("office-activity stream generated",
		"principals", len(principals),
		"events", len(events),
	)

	return events
}
