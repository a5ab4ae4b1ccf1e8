package output

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/stridebuild/stride/pkg/runner"
)

// PrintRunReport prints a colorized summary of a pipeline run
func PrintRunReport(pipelineName string, results []runner.TaskResult) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Printf("stride - %s\n", pipelineName)
	bold.Println("========================")

	var upToDate, executed, incremental, failed int
	for _, result := range results {
		switch result.Status {
		case runner.StatusUpToDate:
			upToDate++
			green.Printf("  %-24s up to date\n", result.Task)
		case runner.StatusIncremental:
			incremental++
			cyan.Printf("  %-24s executed incrementally (%s)\n", result.Task, result.Duration.Round(1e6))
		case runner.StatusExecuted:
			executed++
			yellow.Printf("  %-24s executed (%s)\n", result.Task, result.Duration.Round(1e6))
		case runner.StatusFailed:
			failed++
			red.Printf("  %-24s FAILED\n", result.Task)
		}

		for _, reason := range result.Reasons {
			fmt.Printf("    %s\n", reason)
		}
		if result.Error != "" {
			red.Printf("    %s\n", result.Error)
		}
	}

	fmt.Println()
	summary := fmt.Sprintf("Summary: %d up to date, %d executed, %d incremental, %d failed",
		upToDate, executed, incremental, failed)
	switch {
	case failed > 0:
		red.Println(summary)
	case executed+incremental == 0:
		green.Println(summary)
		green.Println("✓ Everything is up to date")
	default:
		yellow.Println(summary)
	}
}
