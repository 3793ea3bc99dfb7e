package model

import (
	"encoding/json"
	"testing"
)

// TestRouteSet tests set semantics and sorted listing.
func TestRouteSet(t *testing.T) {
	t.Parallel()

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()

		var rs RouteSet
		if rs.Len() != 0 {
			t.Errorf("expected empty set, got %d", rs.Len())
		}
		if rs.Contains("/") {
			t.Error("empty set should not contain /")
		}
		rs.Add("/")
		if !rs.Contains("/") {
			t.Error("expected / after Add")
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		t.Parallel()

		rs := NewRouteSet("/login", "/login", "/")
		if rs.Len() != 2 {
			t.Errorf("expected 2 routes, got %d", rs.Len())
		}
	})

	t.Run("sorted listing", func(t *testing.T) {
		t.Parallel()

		rs := NewRouteSet("/z", "/a", "/")
		got := rs.Sorted()
		want := []string{"/", "/a", "/z"}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	})

	t.Run("JSON round trip", func(t *testing.T) {
		t.Parallel()

		rs := NewRouteSet("/b", "/a")
		data, err := json.Marshal(rs)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `["/a","/b"]` {
			t.Errorf("unexpected JSON %s", data)
		}

		var decoded RouteSet
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if !decoded.Contains("/a") || !decoded.Contains("/b") {
			t.Errorf("decoded set missing routes: %v", decoded.Sorted())
		}
	})
}

// newSampleResult builds a result with one link in every bucket.
func newSampleResult() *AuditResult {
	r := NewAuditResult("/project")
	r.Routes = NewRouteSet("/", "/login")
	r.Add(CategoryInternal, LinkOccurrence{Link: "/login", File: "a.tsx", Line: 1})
	r.Add(CategoryInternal, LinkOccurrence{Link: "/missing", File: "a.tsx", Line: 2})
	r.Add(CategoryExternal, LinkOccurrence{Link: "https://ext.com", File: "a.tsx", Line: 3})
	r.Add(CategoryEmpty, LinkOccurrence{Link: "#", File: "a.tsx", Line: 4})
	r.Add(CategoryRelativeOrSpecial, LinkOccurrence{Link: "mailto:a@b.com", File: "a.tsx", Line: 5})
	r.Valid = append(r.Valid, r.Internal[0])
	r.Broken = append(r.Broken, r.Internal[1])
	r.AddFindings(NewFinding(FindingBrokenRoute, r.Internal[1], "route not found: /missing"))
	return r
}

// TestAuditResultSummary tests summary counts.
func TestAuditResultSummary(t *testing.T) {
	t.Parallel()

	s := newSampleResult().Summary()

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"total", s.TotalLinks, 5},
		{"internal", s.InternalLinks, 2},
		{"external", s.ExternalLinks, 1},
		{"empty", s.EmptyLinks, 1},
		{"relative", s.RelativeOrSpecial, 1},
		{"valid", s.ValidLinks, 1},
		{"broken", s.BrokenLinks, 1},
		{"routes", s.ValidRoutes, 2},
		{"critical", s.CriticalCount, 1},
		{"medium", s.MediumCount, 0},
		{"low", s.LowCount, 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.got, c.want)
		}
	}
	if s.TotalFindings() != 1 {
		t.Errorf("expected 1 finding, got %d", s.TotalFindings())
	}
	if s.SeverityCounts()["critical"] != 1 {
		t.Errorf("unexpected severity counts %v", s.SeverityCounts())
	}
}

// TestFindingsBySeverity tests filtering findings by severity.
func TestFindingsBySeverity(t *testing.T) {
	t.Parallel()

	r := newSampleResult()
	r.AddFindings(NewFinding(FindingExternalUnreachable, r.External[0], "timeout"))

	if got := len(r.FindingsBySeverity(SeverityCritical)); got != 1 {
		t.Errorf("expected 1 critical finding, got %d", got)
	}
	if got := len(r.FindingsBySeverity(SeverityLow)); got != 1 {
		t.Errorf("expected 1 low finding, got %d", got)
	}
	if got := len(r.FindingsBySeverity(SeverityMedium)); got != 0 {
		t.Errorf("expected no medium findings, got %d", got)
	}
}

// TestFingerprint tests that the fingerprint is stable and content-sensitive.
func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := newSampleResult()
	b := newSampleResult()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("expected identical fingerprints for identical results")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a.Fingerprint()))
	}

	b.AddFindings(NewFinding(FindingBrokenRoute, LinkOccurrence{Link: "/other", File: "b.tsx", Line: 9}, "route not found: /other"))
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("expected fingerprint to change when findings change")
	}
}
