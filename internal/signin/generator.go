// Package signin generates the authentication stream: successful
// sign-ins during office hours, benign failures at any hour, and — for
// suspicious-eligible principals — occasional failures from known-bad
// network origins on unknown devices.
package signin

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"tenantsim/internal/identity"
	"tenantsim/internal/schema"
	"tenantsim/internal/timedist"
)

// Per-day sampling bounds, inclusive.
const (
	minSuccesses = 3
	maxSuccesses = 10
	maxBenign    = 2
)

const successDescription = "Sign-in succeeded"

// Fixed device-fingerprint pools per result class.
var (
	successOS      = []string{"Windows", "macOS", "iOS", "Android"}
	successBrowser = []string{"Chrome", "Edge", "Firefox"}
	benignOS       = []string{"Windows", "Linux"}
	benignBrowser  = []string{"Unknown", "Chrome"}
	suspectOS      = []string{"Linux", "Unknown"}
	suspectBrowser = []string{"Unknown", "Tor", "Firefox"}
)

const unknownDeviceChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// FailureCode is one entry of the weighted-free failure pool.
type FailureCode struct {
	Code        int
	Description string
}

// SuspiciousOrigin is a known-bad address with its displayed location.
type SuspiciousOrigin struct {
	IP       string
	Location string
}

// Generator produces the sign-in stream.
type Generator struct {
	sampler     *timedist.Sampler
	resolver    *identity.Resolver
	apps        []string
	failures    []FailureCode
	suspicious  []SuspiciousOrigin
	compromised string
	eligibleP   float64
	dailyP      float64
	rng         *rand.Rand
	logger      *slog.Logger

	// OnPrincipal, when set, is called once per processed principal.
	OnPrincipal func()
}

// NewGenerator creates a sign-in Generator. compromised names the
// reserved principal that is always suspicious-eligible.
func NewGenerator(
	sampler *timedist.Sampler,
	resolver *identity.Resolver,
	apps []string,
	failures []FailureCode,
	suspicious []SuspiciousOrigin,
	compromised string,
	eligibleP, dailyP float64,
	rng *rand.Rand,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		sampler:     sampler,
		resolver:    resolver,
		apps:        apps,
		failures:    failures,
		suspicious:  suspicious,
		compromised: compromised,
		eligibleP:   eligibleP,
		dailyP:      dailyP,
		rng:         rng,
		logger:      logger,
	}
}

// Generate produces the standalone sign-in table.
func (g *Generator) Generate(principals []identity.Principal, days []time.Time) []schema.SignInEvent {
	var events []schema.SignInEvent

	for _, p := range principals {
		events = g.generatePrincipal(events, p, days)

		if g.OnPrincipal != nil {
			g.OnPrincipal()
		}
	}

	g.logger.Debug("sign-in stream generated",
		"principals", len(principals),
		"events", len(events),
	)

	return events
}

// GenerateMerged produces the same rows as Generate and merges them
// against a pre-existing sign-in table: concatenate, then global
// time-sort. Both variants share the per-day sampling path, so results
// stay statistically comparable regardless of variant.
func (g *Generator) GenerateMerged(principals []identity.Principal, days []time.Time, existing []schema.SignInEvent) []schema.SignInEvent {
	merged := make([]schema.SignInEvent, 0, len(existing))
	merged = append(merged, existing...)
	merged = append(merged, g.Generate(principals, days)...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TimeGenerated.Before(merged[j].TimeGenerated)
	})

	return merged
}

func (g *Generator) generatePrincipal(events []schema.SignInEvent, p identity.Principal, days []time.Time) []schema.SignInEvent {
	ip := g.resolver.Resolve(p.OfficeLocation)
	location := g.resolver.DisplayLocation(p.OfficeLocation)
	eligible := p.Is(g.compromised) || g.rng.Float64() < g.eligibleP

	for _, day := range days {
		successes := minSuccesses + g.rng.Intn(maxSuccesses-minSuccesses+1)
		benignFails := g.rng.Intn(maxBenign + 1)
		suspiciousFail := eligible && g.rng.Float64() < g.dailyP

		for i := 0; i < successes; i++ {
			events = append(events, schema.SignInEvent{
				TimeGenerated:     g.sampler.WorkingHours(day),
				UserPrincipalName: p.UserPrincipalName,
				AppDisplayName:    g.apps[g.rng.Intn(len(g.apps))],
				ResultType:        schema.ResultSuccess,
				ResultDescription: successDescription,
				IPAddress:         ip,
				Location:          location,
				DeviceDetail: schema.DeviceDetail{
					DisplayName:     g.deviceName(p.OfficeLocation),
					IsCompliant:     true,
					IsManaged:       true,
					OperatingSystem: successOS[g.rng.Intn(len(successOS))],
					Browser:         successBrowser[g.rng.Intn(len(successBrowser))],
				},
			})
		}

		for i := 0; i < benignFails; i++ {
			failure := g.failures[g.rng.Intn(len(g.failures))]
			events = append(events, schema.SignInEvent{
				TimeGenerated:     g.sampler.AnyTime(day),
				UserPrincipalName: p.UserPrincipalName,
				AppDisplayName:    g.apps[g.rng.Intn(len(g.apps))],
				ResultType:        failure.Code,
				ResultDescription: failure.Description,
				IPAddress:         ip,
				Location:          location,
				DeviceDetail: schema.DeviceDetail{
					DisplayName:     g.deviceName(p.OfficeLocation),
					IsCompliant:     false,
					IsManaged:       false,
					OperatingSystem: benignOS[g.rng.Intn(len(benignOS))],
					Browser:         benignBrowser[g.rng.Intn(len(benignBrowser))],
				},
			})
		}

		if suspiciousFail {
			origin := g.suspicious[g.rng.Intn(len(g.suspicious))]
			failure := g.failures[g.rng.Intn(len(g.failures))]
			events = append(events, schema.SignInEvent{
				TimeGenerated:     g.sampler.AnyTime(day),
				UserPrincipalName: p.UserPrincipalName,
				AppDisplayName:    g.apps[g.rng.Intn(len(g.apps))],
				ResultType:        failure.Code,
				ResultDescription: failure.Description,
				IPAddress:         origin.IP,
				Location:          origin.Location,
				DeviceDetail: schema.DeviceDetail{
					DisplayName:     g.unknownDevice(),
					IsCompliant:     false,
					IsManaged:       false,
					OperatingSystem: suspectOS[g.rng.Intn(len(suspectOS))],
					Browser:         suspectBrowser[g.rng.Intn(len(suspectBrowser))],
				},
			})
		}
	}

	return events
}

// deviceName composes a managed-device fingerprint from the office
// location, e.g. "device-lon-17".
func (g *Generator) deviceName(city string) string {
	prefix := strings.ToLower(city)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("device-%s-%d", prefix, 1+g.rng.Intn(50))
}

// unknownDevice fabricates the fingerprint used only on suspicious
// failures, e.g. "unknown-K3J9Q2Z".
func (g *Generator) unknownDevice() string {
	b := make([]byte, 7)
	for i := range b {
		b[i] = unknownDeviceChars[g.rng.Intn(len(unknownDeviceChars))]
	}
	return "unknown-" + string(b)
}
