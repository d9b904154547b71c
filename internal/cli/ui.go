package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Run Summaries
// =============================================================================

// statsLine joins non-empty parts with a dim separator.
func statsLine(parts ...string) string {
	line := "  "
	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if !first {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
		first = false
	}
	return line
}

func countPart(n int, label string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", n, label)
}

// printSummary prints the outcome of an enrichment run.
func printSummary(s *pipeline.Summary) {
	if s.OK() {
		printSuccess("Enriched %s of %s records in %s",
			StyleNumber.Render(fmt.Sprint(s.Enriched)),
			StyleNumber.Render(fmt.Sprint(s.Total)),
			s.Duration.Round(time.Millisecond))
	} else {
		printWarning("Enriched %d of %d records, %d failed", s.Enriched, s.Total, len(s.Failed))
	}
	fmt.Println(statsLine(
		countPart(s.Skipped, "skipped"),
		countPart(s.Degraded, "degraded"),
		countPart(s.Fetched, "images fetched"),
		countPart(s.Cropped, "cropped"),
	))

	codes := s.FailuresByCode()
	keys := make([]string, 0, len(codes))
	for code := range codes {
		keys = append(keys, string(code))
	}
	sort.Strings(keys)
	for _, code := range keys {
		printKeyValue(code, fmt.Sprint(codes[scmerrors.Code(code)]))
	}
	for _, f := range s.Failed {
		printError("%s: %s", f.Extension, scmerrors.UserMessage(f.Err))
	}
	printLinks(s)
}

// printCropSummary prints the outcome of a crop replay.
func printCropSummary(s *pipeline.Summary) {
	printSuccess("Cropped %s images", StyleNumber.Render(fmt.Sprint(s.Cropped)))
	fmt.Println(statsLine(
		countPart(s.CropIgnored, "ignored"),
		countPart(s.CropFailed, "failed"),
	))
	printLinks(s)
}

func printLinks(s *pipeline.Summary) {
	for _, l := range s.Dangling {
		printWarning("Record %s: predicted %s, cropped %s (patched)", l.RecordID, l.Predicted, l.Actual)
	}
	if len(s.Pending) > 0 {
		printWarning("%d project images not cropped yet", len(s.Pending))
		printNextStep("Finish them with", appName+" crop")
	}
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}
