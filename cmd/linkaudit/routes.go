package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/linkaudit/internal/config"
	"github.com/nao1215/linkaudit/internal/model"
	"github.com/nao1215/linkaudit/internal/route"
)

// NewRoutesCmd creates the routes command.
func NewRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes [project-root]",
		Short: "List the routes derived from the route directory",
		Long: `Routes prints every route the project serves, as derived from the
route directory. Grouping directories such as (dashboard) do not appear
in routes.

Use this command to check what 'linkaudit scan' will accept as a valid
internal link target.

Examples:
  # List routes of the project in the current directory
  linkaudit routes

  # Use a different route directory
  linkaudit routes --route-dir src/app ./web

  # Print routes as a JSON array
  linkaudit routes --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRoutesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkaudit in the project, current or home directory)")
	cmd.Flags().String("route-dir", "",
		"Route directory relative to the project root (default \"app\")")
	cmd.Flags().BoolP("json", "j", false,
		"Output routes as a JSON array")

	return cmd
}

// runRoutesCmd executes the routes command.
func runRoutesCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()

	roots, err := projectRoots(args)
	if err != nil {
		return err
	}
	cfg.Roots = roots

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if err := applyConfigFile(cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("route-dir") {
		if cfg.RouteDir, err = cmd.Flags().GetString("route-dir"); err != nil {
			return err
		}
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	index := route.NewIndex(
		route.WithRouteFiles(cfg.RouteFiles),
		route.WithLogger(logger),
	)
	routeRoot := filepath.Join(cfg.Roots[0], filepath.FromSlash(cfg.RouteDir))
	routes := index.Build(routeRoot)

	if jsonOutput {
		return writeRoutesJSON(cmd.OutOrStdout(), routes)
	}
	return writeRoutesTable(cmd.OutOrStdout(), routeRoot, routes)
}

// writeRoutesJSON prints routes as an indented JSON array.
func writeRoutesJSON(w io.Writer, routes model.RouteSet) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(routes)
}

// writeRoutesTable prints routes as a table with their depth.
func writeRoutesTable(w io.Writer, routeRoot string, routes model.RouteSet) error {
	if routes.Len() == 0 {
		fmt.Fprintf(w, "No routes found under %s\n", routeRoot)
		return nil
	}

	fmt.Fprintf(w, "Routes under %s (%d):\n\n", routeRoot, routes.Len())

	table := tablewriter.NewWriter(w)
	table.Header("#", "Route", "Depth")
	for i, r := range routes.Sorted() {
		if err := table.Append([]string{strconv.Itoa(i + 1), r, strconv.Itoa(routeDepth(r))}); err != nil {
			return fmt.Errorf("failed to render routes: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render routes: %w", err)
	}
	return nil
}

// routeDepth returns the number of path segments of a route; "/" has depth 0.
func routeDepth(r string) int {
	trimmed := strings.Trim(r, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}
