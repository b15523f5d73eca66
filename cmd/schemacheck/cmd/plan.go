package cmd

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/catalog"
)

var planSQL bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the snapshot stage order and membership rules",
	Long: `Plan displays how a snapshot is assembled without touching a database.

The plan shows:
  - Stage order (parent stages first, Kahn's algorithm)
  - Membership rule of every category
  - Document field order

With --sql the generated catalog query is printed instead.

Example:
  schemacheck plan
  schemacheck plan --sql | psql -At postgres://localhost/app`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planSQL, "sql", false,
		"Print the catalog query instead of the plan")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := catalog.DefaultPlan()
	if err != nil {
		return fmt.Errorf("failed to build snapshot plan: %w", err)
	}

	if planSQL {
		fmt.Fprint(outputWriter, plan.Query())
		return nil
	}

	printPlan(plan)
	return nil
}

func printPlan(plan *catalog.Plan) {
	depths := plan.Depths()
	order := plan.Order()

	printHeader("Snapshot Plan (introspection version %d)", catalog.IntrospectionVersion)

	fmt.Fprintln(outputWriter)
	printSection("Stage Order (parent stages first)")
	rows := [][]string{{"#", "STAGE", "KIND", "DEPTH", "PARENTS"}}
	for i, c := range order {
		kind := "category"
		switch {
		case c.Hidden:
			kind = "hidden"
		case c.Singleton:
			kind = "singleton"
		}
		parents := strings.Join(c.Parents(), ", ")
		if parents == "" {
			parents = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("[%d]", i+1),
			c.Name,
			kind,
			fmt.Sprintf("%d", depths[c.Name]),
			parents,
		})
	}
	printTable(rows, 2)

	fmt.Fprintln(outputWriter)
	printSection("Membership Rules")
	for _, c := range order {
		fmt.Fprintf(outputWriter, "  • %s: %s\n", c.Name, oneLine(c.Membership()))
	}

	fmt.Fprintln(outputWriter)
	printSection("Document Fields")
	fmt.Fprintf(outputWriter, "  %s\n", strings.Join(catalog.DocumentFields(), ", "))
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printTable prints rows with every column padded to its widest cell.
// padding is the number of spaces between columns.
func printTable(rows [][]string, padding int) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		sb.WriteString("  ")
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]+padding))
		}
		fmt.Fprintln(outputWriter, strings.TrimRight(sb.String(), " "))
	}
}

// oneLine collapses runs of whitespace so multi-line rules print on one line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
