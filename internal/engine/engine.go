// Package engine wires the corpus, the time model, and the three
// generators into one batch run: generate, inject the compromise
// storyline, time-sort each stream, and hand the result to exporters.
// A run either produces three complete, internally consistent streams
// or fails before anything is written.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"tenantsim/internal/anomaly"
	"tenantsim/internal/audit"
	"tenantsim/internal/config"
	"tenantsim/internal/identity"
	"tenantsim/internal/officeactivity"
	"tenantsim/internal/payload"
	"tenantsim/internal/schema"
	"tenantsim/internal/signin"
	"tenantsim/internal/timedist"
)

// Stream names used for progress reporting and sink routing.
const (
	StreamAudit    = "audit"
	StreamActivity = "officeactivity"
	StreamSignIn   = "signin"
)

// Reporter receives generation progress. Implementations must be cheap;
// they are called from the generation hot path.
type Reporter interface {
	StreamStarted(stream string, totalPrincipals int)
	PrincipalDone(stream string)
	StreamDone(stream string, rows int)
}

// nopReporter is used when no progress surface is attached.
type nopReporter struct{}

func (nopReporter) StreamStarted(string, int) {}
func (nopReporter) PrincipalDone(string)      {}
func (nopReporter) StreamDone(string, int)    {}

// Result is one complete run: three time-ordered streams plus run
// metadata.
type Result struct {
	RunID    uuid.UUID
	Seed     int64
	Audit    []schema.AuditEvent
	Activity []schema.OfficeActivityEvent
	SignIns  []schema.SignInEvent
}

// Rows returns the total row count across the three streams.
func (r *Result) Rows() int {
	return len(r.Audit) + len(r.Activity) + len(r.SignIns)
}

// Engine orchestrates one generation run.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	reporter Reporter
	store    identity.ReservationStore
}

// New creates an Engine. store may be nil for per-run in-memory
// identifier deduplication.
func New(cfg *config.Config, logger *slog.Logger, store identity.ReservationStore) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		reporter: nopReporter{},
		store:    store,
	}
}

// WithReporter attaches a progress reporter.
func (e *Engine) WithReporter(r Reporter) *Engine {
	e.reporter = r
	return e
}

// Run executes the full pipeline against a loaded corpus. existing is
// the optional pre-existing sign-in table for the merge variant; pass
// nil for a standalone sign-in stream.
func (e *Engine) Run(ctx context.Context, corpus *identity.Corpus, existing []schema.SignInEvent) (*Result, error) {
	start, end, err := e.cfg.DateRange()
	if err != nil {
		return nil, err
	}
	days := timedist.Days(start, end)

	rng := rand.New(rand.NewSource(e.cfg.Scenario.Seed))

	sampler, err := timedist.NewSampler(timedist.Window{
		Start: e.cfg.Scenario.OfficeHours.Start,
		End:   e.cfg.Scenario.OfficeHours.End,
	}, rng)
	if err != nil {
		return nil, err
	}

	fabricator, err := identity.NewFabricator(
		e.cfg.Pools.FirstNames,
		e.cfg.Pools.LastNames,
		e.cfg.Identity.Domain,
		e.cfg.Identity.MaxFabAttempts,
		e.store,
		rng,
	)
	if err != nil {
		return nil, err
	}

	resolver := identity.NewResolver(officeMap(e.cfg.Network.Offices), e.cfg.Network.DefaultIP)
	shaper := payload.NewShaper(e.cfg.Pools.Roles, e.cfg.Pools.Departments, rng)
	namer := officeactivity.NewFileNamer(e.cfg.Pools.FileBases, e.cfg.Pools.FileExts, rng)

	story, err := anomaly.StorylineFromConfig(e.cfg.Scenario.Anomaly)
	if err != nil {
		return nil, err
	}
	injector := anomaly.NewInjector(story, shaper, e.cfg.Pools.ClientApps, namer.Next, rng)

	result := &Result{
		RunID: uuid.New(),
		Seed:  e.cfg.Scenario.Seed,
	}

	e.logger.Info("generation run starting",
		"run_id", result.RunID,
		"seed", result.Seed,
		"principals", corpus.Len(),
		"days", len(days),
	)

	itActors := corpus.FilterDepartments(e.cfg.Identity.ITDepartments)

	// The storyline only exists when its principal does: an empty (or
	// foreign) roster yields purely benign — possibly empty — streams
	// instead of orphaned anomaly events.
	injectStoryline := false
	for _, p := range corpus.Principals() {
		if p.Is(story.Principal) {
			injectStoryline = true
			break
		}
	}

	// Audit stream: IT actors only, then the escalation overlay.
	auditGen := audit.NewGenerator(sampler, shaper, fabricator, resolver,
		e.cfg.Pools.Roles, e.cfg.Pools.GenericOps, rng, e.logger)
	e.reporter.StreamStarted(StreamAudit, len(itActors))
	auditGen.OnActor = func() { e.reporter.PrincipalDone(StreamAudit) }

	result.Audit, err = auditGen.Generate(ctx, itActors, days, story.Principal)
	if err != nil {
		return nil, err
	}
	if injectStoryline {
		result.Audit = injector.InjectAudit(result.Audit)
	}
	sortAudit(result.Audit)
	e.reporter.StreamDone(StreamAudit, len(result.Audit))

	// Office-activity stream: every principal, then the burst overlay.
	activityGen := officeactivity.NewGenerator(sampler, resolver, namer,
		e.cfg.Pools.Sites, e.cfg.Pools.ClientApps, e.cfg.Pools.Activities, rng, e.logger)
	e.reporter.StreamStarted(StreamActivity, corpus.Len())
	activityGen.OnPrincipal = func() { e.reporter.PrincipalDone(StreamActivity) }

	result.Activity = activityGen.Generate(corpus.Principals(), days)
	if injectStoryline {
		result.Activity = injector.InjectActivity(result.Activity)
	}
	sortActivity(result.Activity)
	e.reporter.StreamDone(StreamActivity, len(result.Activity))

	// Sign-in stream: suspicious eligibility handles the storyline here.
	signinGen := signin.NewGenerator(sampler, resolver,
		e.cfg.Pools.SignInApps, failurePool(e.cfg.Pools.Failures), suspiciousPool(e.cfg.Network.Suspicious),
		story.Principal, e.cfg.Scenario.SuspiciousPF, e.cfg.Scenario.DailyPF, rng, e.logger)
	e.reporter.StreamStarted(StreamSignIn, corpus.Len())
	signinGen.OnPrincipal = func() { e.reporter.PrincipalDone(StreamSignIn) }

	if existing != nil {
		result.SignIns = signinGen.GenerateMerged(corpus.Principals(), days, existing)
	} else {
		result.SignIns = signinGen.Generate(corpus.Principals(), days)
		sortSignIns(result.SignIns)
	}
	e.reporter.StreamDone(StreamSignIn, len(result.SignIns))

	e.logger.Info("generation run complete",
		"run_id", result.RunID,
		"audit_rows", len(result.Audit),
		"activity_rows", len(result.Activity),
		"signin_rows", len(result.SignIns),
	)

	return result, nil
}

// Validate checks every generated row against the output schema.
func (e *Engine) Validate(result *Result) error {
	v := schema.NewValidator()
	if err := v.ValidateAudit(result.Audit); err != nil {
		return err
	}
	if err := v.ValidateActivity(result.Activity); err != nil {
		return err
	}
	return v.ValidateSignIns(result.SignIns)
}

func sortAudit(events []schema.AuditEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeGenerated.Before(events[j].TimeGenerated)
	})
}

func sortActivity(events []schema.OfficeActivityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeGenerated.Before(events[j].TimeGenerated)
	})
}

func sortSignIns(events []schema.SignInEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeGenerated.Before(events[j].TimeGenerated)
	})
}

func officeMap(offices map[string]config.OfficeNet) map[string]identity.Office {
	out := make(map[string]identity.Office, len(offices))
	for city, net := range offices {
		out[city] = identity.Office{IP: net.IP, Country: net.Country}
	}
	return out
}

func failurePool(failures []config.FailureCode) []signin.FailureCode {
	out := make([]signin.FailureCode, len(failures))
	for i, f := range failures {
		out[i] = signin.FailureCode{Code: f.Code, Description: f.Description}
	}
	return out
}

func suspiciousPool(origins []config.SuspiciousOrigin) []signin.SuspiciousOrigin {
	out := make([]signin.SuspiciousOrigin, len(origins))
	for i, o := range origins {
		out[i] = signin.SuspiciousOrigin{IP: o.IP, Location: o.Location}
	}
	return out
}
