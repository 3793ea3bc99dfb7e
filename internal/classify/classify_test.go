package classify

import (
	"testing"

	"github.com/nao1215/linkaudit/internal/model"
)

// TestClassify tests every rule and the rule ordering.
func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		link string
		want model.Category
	}{
		{"", model.CategoryEmpty},
		{"#", model.CategoryEmpty},
		{"javascript:void(0)", model.CategoryEmpty},
		{"https://x.com", model.CategoryExternal},
		{"http://example.com/path?q=1", model.CategoryExternal},
		{"/dash", model.CategoryInternal},
		{"/", model.CategoryInternal},
		{"./img.png", model.CategoryRelativeOrSpecial},
		{"../up/one", model.CategoryRelativeOrSpecial},
		{"mailto:a@b.com", model.CategoryRelativeOrSpecial},
		{"tel:+15551234", model.CategoryRelativeOrSpecial},
		{"dashboard/settings", model.CategoryInternal},
		{"#section", model.CategoryInternal},
		{"//cdn.example.com/lib.js", model.CategoryInternal},
		{"HTTPS://X.COM", model.CategoryInternal},
		{"ftp://files.example.com", model.CategoryInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.link, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.link); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.link, got, tc.want)
			}
		})
	}
}

// TestPartition tests that partitioning is total and exclusive.
func TestPartition(t *testing.T) {
	t.Parallel()

	occs := []model.LinkOccurrence{
		{Link: "/login", File: "a.tsx", Line: 1},
		{Link: "#", File: "a.tsx", Line: 2},
		{Link: "https://ext.com", File: "a.tsx", Line: 3},
		{Link: "./x", File: "a.tsx", Line: 4},
		{Link: "other", File: "a.tsx", Line: 5},
	}

	result := model.NewAuditResult("/project")
	Partition(result, occs)

	total := 0
	for _, c := range model.Categories {
		total += len(result.Bucket(c))
	}
	if total != len(occs) {
		t.Errorf("expected %d classified occurrences, got %d", len(occs), total)
	}
	if len(result.Internal) != 2 {
		t.Errorf("expected 2 internal, got %d", len(result.Internal))
	}
	if len(result.Empty) != 1 || len(result.External) != 1 || len(result.RelativeOrSpecial) != 1 {
		t.Errorf("unexpected buckets: empty=%d external=%d relative=%d",
			len(result.Empty), len(result.External), len(result.RelativeOrSpecial))
	}
}
