package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/survivalbot/internal/survival"
)

var (
	exportFile string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Fetch the survival world and display the context sentences",
	Long: `Fetch monsters, survivors and resources and display the context sentences
the chatbot answers from.

Unreachable sources do not fail the command: they fall back to their
defaults and are listed as warnings below the table.

Examples:
  survivalbot context
  survivalbot context --export snapshot.json`,
	Args: cobra.NoArgs,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVar(&exportFile, "export", "", "Export the snapshot to JSON file: --export <filename>")
}

func runContext(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fetcher := survival.NewFetcher(cfg.Endpoints(), cfg.Sources.Timeout, getLogger(cfg.Logging.Level))
	snap := fetcher.FetchAll(cmd.Context())

	contexts, err := survival.FormatSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to format context: %w", err)
	}

	// Handle export flag
	if exportFile != "" {
		return handleExport(snap, contexts, exportFile)
	}

	// Default: output table
	return outputTable(snap, contexts)
}

func handleExport(snap *survival.Snapshot, contexts []string, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := survival.ExportSnapshot(snap, contexts, "json", file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %d records to %s\n", snap.RecordCount(), filename)
	return nil
}

func outputTable(snap *survival.Snapshot, contexts []string) error {
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		numberColor  = lipgloss.Color("#FF79C6") // Pink
		textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		summaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
	)

	const (
		indexWidth   = 6
		contextWidth = 72
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	indexStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(indexWidth).
		Align(lipgloss.Right)
	textStyle := lipgloss.NewStyle().
		Foreground(textColor).
		Padding(0, 1).
		Width(contextWidth)

	headers := []string{
		headerStyle.Width(indexWidth).Render("#"),
		headerStyle.Width(contextWidth).Render("CONTEXT"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))
	fmt.Println(borderStyle.Render(strings.Repeat("─", indexWidth) + "┼" + strings.Repeat("─", contextWidth)))

	for i, c := range contexts {
		// Wrap long sentences so both columns keep the same height.
		text := textStyle.Render(wordwrap.String(c, contextWidth-2))
		index := indexStyle.Height(lipgloss.Height(text)).Render(fmt.Sprintf("%d", i))
		sep := borderStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", lipgloss.Height(text)), "\n"))
		fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, index, sep, text))
	}

	fmt.Println()
	summaryStyle := lipgloss.NewStyle().
		Foreground(summaryColor).
		Italic(true)
	fmt.Println(summaryStyle.Render(fmt.Sprintf("%d monsters, %d survivors, %d resources → %d context sentences",
		len(snap.Monsters), len(snap.Survivors), len(snap.Resources), len(contexts))))

	if warnings := snap.WarningMessages(); len(warnings) > 0 {
		warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
		fmt.Println()
		for _, w := range warnings {
			fmt.Println(warnStyle.Render("! " + w))
		}
	}

	return nil
}
