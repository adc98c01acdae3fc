package signin

import (
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"tenantsim/internal/identity"
	"tenantsim/internal/schema"
	"tenantsim/internal/timedist"
)

const compromised = "jason.bourne@contoso.com"

var (
	testApps     = []string{"Azure Portal", "OneDrive", "Power BI"}
	testFailures = []FailureCode{
		{Code: 50126, Description: "Invalid username or password."},
		{Code: 50074, Description: "Strong Authentication is required."},
	}
	testSuspicious = []SuspiciousOrigin{
		{IP: "185.254.75.23", Location: "Moscow, RU"},
		{IP: "45.142.120.5", Location: "Amsterdam, NL"},
	}
)

func newTestGenerator(t *testing.T, seed int64, eligibleP, dailyP float64) *Generator {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))

	sampler, err := timedist.NewSampler(timedist.Window{Start: 9, End: 17}, rng)
	if err != nil {
		t.Fatal(err)
	}

	resolver := identity.NewResolver(map[string]identity.Office{
		"London": {IP: "86.23.123.45", Country: "UK"},
		"Dublin": {IP: "78.137.97.10", Country: "IE"},
	}, "10.0.0.1")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewGenerator(sampler, resolver, testApps, testFailures, testSuspicious,
		compromised, eligibleP, dailyP, rng, logger)
}

func testPrincipals() []identity.Principal {
	return []identity.Principal{
		{UserPrincipalName: "casey.reed@contoso.com", OfficeLocation: "London"},
		{UserPrincipalName: compromised, OfficeLocation: "London"},
		{UserPrincipalName: "drew.vance@contoso.com", OfficeLocation: "Dublin"},
	}
}

func testDays() []time.Time {
	days := make([]time.Time, 0, 10)
	for d := 1; d <= 10; d++ {
		days = append(days, time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC))
	}
	return days
}

func suspiciousIPs() map[string]bool {
	out := make(map[string]bool)
	for _, s := range testSuspicious {
		out[s.IP] = true
	}
	return out
}

func TestGenerateBoundedCounts(t *testing.T) {
	g := newTestGenerator(t, 1, 0.3, 0.3)

	events := g.Generate(testPrincipals(), testDays())
	bad := suspiciousIPs()

	type key struct {
		upn string
		day int
	}
	successes := make(map[key]int)
	benign := make(map[key]int)
	suspect := make(map[key]int)

	for _, e := range events {
		k := key{e.UserPrincipalName, e.TimeGenerated.Day()}
		switch {
		case e.Succeeded():
			successes[k]++
		case bad[e.IPAddress]:
			suspect[k]++
		default:
			benign[k]++
		}
	}

	for k, n := range successes {
		if n < 3 || n > 10 {
			t.Errorf("successes for %v = %d, want [3,10]", k, n)
		}
	}
	for k, n := range benign {
		if n > 2 {
			t.Errorf("benign failures for %v = %d, want [0,2]", k, n)
		}
	}
	for k, n := range suspect {
		if n > 1 {
			t.Errorf("suspicious failures for %v = %d, want at most 1", k, n)
		}
	}
}

func TestGenerateSuccessesDuringOfficeHours(t *testing.T) {
	g := newTestGenerator(t, 2, 0.3, 0.3)

	for _, e := range g.Generate(testPrincipals(), testDays()) {
		if !e.Succeeded() {
			continue
		}
		minute := e.TimeGenerated.Hour()*60 + e.TimeGenerated.Minute()
		if minute < 9*60 || minute > 17*60 {
			t.Errorf("success at %v outside office hours", e.TimeGenerated)
		}
	}
}

func TestGenerateSuccessShape(t *testing.T) {
	g := newTestGenerator(t, 3, 0, 0)
	deviceName := regexp.MustCompile(`^device-(lon|dub)-([1-9]|[1-4][0-9]|50)$`)

	for _, e := range g.Generate(testPrincipals()[:1], testDays()[:2]) {
		if e.ResultDescription != "Sign-in succeeded" {
			t.Errorf("ResultDescription = %q", e.ResultDescription)
		}
		if e.IPAddress != "86.23.123.45" || e.Location != "London, UK" {
			t.Errorf("origin = %s / %s", e.IPAddress, e.Location)
		}
		if !e.DeviceDetail.IsCompliant || !e.DeviceDetail.IsManaged {
			t.Errorf("success from non-compliant device: %+v", e.DeviceDetail)
		}
		if !deviceName.MatchString(e.DeviceDetail.DisplayName) {
			t.Errorf("device name = %q", e.DeviceDetail.DisplayName)
		}
	}
}

// Suspicious markers (bad origins, unknown devices) must only ever
// appear on suspicious rows, and with eligibility probability zero only
// the compromised principal can receive them.
func TestGenerateSuspiciousIsolation(t *testing.T) {
	g := newTestGenerator(t, 4, 0, 1)

	events := g.Generate(testPrincipals(), testDays())
	bad := suspiciousIPs()

	sawSuspicious := false
	for _, e := range events {
		fromBad := bad[e.IPAddress]
		unknownDev := strings.HasPrefix(e.DeviceDetail.DisplayName, "unknown-")

		if fromBad != unknownDev {
			t.Errorf("suspicious markers split: ip=%s device=%s", e.IPAddress, e.DeviceDetail.DisplayName)
		}
		if fromBad {
			sawSuspicious = true
			if e.UserPrincipalName != compromised {
				t.Errorf("suspicious failure for %s, want only the compromised principal", e.UserPrincipalName)
			}
			if e.Succeeded() {
				t.Error("suspicious row marked successful")
			}
			if e.DeviceDetail.IsCompliant || e.DeviceDetail.IsManaged {
				t.Errorf("suspicious row from compliant device: %+v", e.DeviceDetail)
			}
		}
	}

	if !sawSuspicious {
		t.Fatal("daily probability 1 produced no suspicious failures for the compromised principal")
	}
}

func TestGenerateUnknownDeviceFormat(t *testing.T) {
	g := newTestGenerator(t, 5, 0, 1)
	pattern := regexp.MustCompile(`^unknown-[A-Z0-9]{7}$`)

	for _, e := range g.Generate(testPrincipals()[1:2], testDays()) {
		if strings.HasPrefix(e.DeviceDetail.DisplayName, "unknown-") {
			if !pattern.MatchString(e.DeviceDetail.DisplayName) {
				t.Errorf("unknown device fingerprint = %q", e.DeviceDetail.DisplayName)
			}
		}
	}
}

func TestGenerateFailureCodesFromPool(t *testing.T) {
	g := newTestGenerator(t, 6, 0.5, 0.5)

	known := make(map[int]string)
	for _, f := range testFailures {
		known[f.Code] = f.Description
	}

	for _, e := range g.Generate(testPrincipals(), testDays()) {
		if e.Succeeded() {
			continue
		}
		desc, ok := known[e.ResultType]
		if !ok {
			t.Errorf("failure code %d not in the pool", e.ResultType)
		} else if desc != e.ResultDescription {
			t.Errorf("code %d paired with %q", e.ResultType, e.ResultDescription)
		}
	}
}

// The standalone and merge variants must share sampling logic exactly:
// same seed plus an empty pre-existing table yields the same row set.
func TestMergeVariantParity(t *testing.T) {
	standalone := newTestGenerator(t, 7, 0.3, 0.3).Generate(testPrincipals(), testDays())
	merged := newTestGenerator(t, 7, 0.3, 0.3).GenerateMerged(testPrincipals(), testDays(), nil)

	if len(standalone) != len(merged) {
		t.Fatalf("standalone %d rows, merged %d rows", len(standalone), len(merged))
	}

	sorted := make([]schema.SignInEvent, len(standalone))
	copy(sorted, standalone)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeGenerated.Before(sorted[j].TimeGenerated)
	})

	if !reflect.DeepEqual(sorted, merged) {
		t.Error("merge variant with empty table diverged from standalone output")
	}
}

func TestGenerateMergedKeepsExisting(t *testing.T) {
	existing := []schema.SignInEvent{{
		TimeGenerated:     time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC),
		UserPrincipalName: "old.row@contoso.com",
		AppDisplayName:    "Azure Portal",
		ResultType:        0,
		ResultDescription: "Sign-in succeeded",
		IPAddress:         "86.23.123.45",
		Location:          "London, UK",
	}}

	merged := newTestGenerator(t, 8, 0.3, 0.3).GenerateMerged(testPrincipals(), testDays(), existing)

	if merged[0].UserPrincipalName != "old.row@contoso.com" {
		t.Error("pre-existing row did not sort to the front")
	}

	for i := 1; i < len(merged); i++ {
		if merged[i].TimeGenerated.Before(merged[i-1].TimeGenerated) {
			t.Fatalf("merged output not time-ordered at row %d", i)
		}
	}
}

func TestGenerateEmptyCorpus(t *testing.T) {
	g := newTestGenerator(t, 9, 0.3, 0.3)
	if events := g.Generate(nil, testDays()); len(events) != 0 {
		t.Errorf("empty corpus produced %d events", len(events))
	}
}
