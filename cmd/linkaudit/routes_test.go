package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/linkaudit/internal/model"
)

// TestRouteDepth tests counting route segments.
func TestRouteDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		route string
		want  int
	}{
		{route: "/", want: 0},
		{route: "/login", want: 1},
		{route: "/dashboard/settings", want: 2},
		{route: "/blog/[slug]/comments", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			t.Parallel()
			if got := routeDepth(tt.route); got != tt.want {
				t.Errorf("routeDepth(%q) = %d, want %d", tt.route, got, tt.want)
			}
		})
	}
}

// TestWriteRoutesTable tests the table output.
func TestWriteRoutesTable(t *testing.T) {
	t.Parallel()

	t.Run("lists routes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		routes := model.NewRouteSet("/login", "/", "/dashboard/settings")
		if err := writeRoutesTable(&buf, "/srv/web/app", routes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Routes under /srv/web/app (3)") {
			t.Errorf("expected heading, got %q", out)
		}
		if strings.Index(out, "/dashboard/settings") > strings.Index(out, "/login") {
			t.Errorf("expected routes in lexical order, got %q", out)
		}
	})

	t.Run("reports empty route set", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := writeRoutesTable(&buf, "/srv/web/app", model.RouteSet{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No routes found under /srv/web/app") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})
}

// TestWriteRoutesJSON tests the JSON output.
func TestWriteRoutesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := writeRoutesJSON(&buf, model.NewRouteSet("/login", "/")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if strings.Join(got, ",") != "/,/login" {
		t.Errorf("unexpected routes: %v", got)
	}
}

// TestRoutesCommand tests the routes command end to end.
func TestRoutesCommand(t *testing.T) {
	t.Parallel()

	root := sampleProject(t)
	configPath := filepath.Join(t.TempDir(), "audit.yaml")
	if err := os.WriteFile(configPath, []byte("routeDir: app\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := NewRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"routes", "--json", "--config", configPath, root})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, stdout.String())
	}
	if strings.Join(got, ",") != "/,/login" {
		t.Errorf("unexpected routes: %v", got)
	}
}
