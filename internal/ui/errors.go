package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"ctrf/internal/config"
	"ctrf/internal/domain"
	"ctrf/internal/report"
)

// maxTraceLines bounds the trace shown in the details pane
const maxTraceLines = 40

// ErrorViewer displays failed and errored tests in an interactive TUI
type ErrorViewer struct {
	config *config.Config
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(cfg *config.Config) *ErrorViewer {
	return &ErrorViewer{config: cfg}
}

// View lists the failed and errored tests of rep next to their details
func (ev *ErrorViewer) View(rep *report.Report) error {
	problems := Problems(rep)
	if len(problems) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	// Resolved marks only live for the session
	resolved := make(map[int]bool)

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	getListItemText := func(index int) string {
		rec := problems[index]
		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("Test %d", index+1)
		}
		if resolved[index] {
			return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, name)
		}
		if rec.Status == domain.StatusError {
			return fmt.Sprintf("[yellow]%d.[purple] %s[white]", index+1, name)
		}
		return fmt.Sprintf("[yellow]%d.[white] %s", index+1, name)
	}

	updateListItem := func(index int) {
		if index < 0 || index >= list.GetItemCount() {
			return
		}
		list.SetItemText(index, getListItemText(index), "")
	}

	for i := range problems {
		list.AddItem(getListItemText(i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	// List on the left (1/3), details on the right (2/3)
	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		unresolved := 0
		for i := range problems {
			if !resolved[i] {
				unresolved++
			}
		}
		headerView.SetText(fmt.Sprintf(" Test Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, Ctrl+C to exit ", len(problems), unresolved))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(problems) {
			statsView.SetText(formatFailureStats(problems[index], index+1))
			detailsView.SetText(formatFailureDetails(problems[index]))
			detailsView.ScrollToBeginning()
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if index >= 0 && index < len(problems) {
					resolved[index] = !resolved[index]
					updateListItem(index)
					updateHeader()
				}
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// formatFailureDetails formats a record for display using tview color tags ([red], [cyan], etc.)
func formatFailureDetails(rec domain.TestRecord) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Test: %s[white]\n\n", tview.Escape(rec.Name))
	fmt.Fprintf(w, "[cyan]Status:[white]\t%s (%s)\n", rec.Status, rec.RawStatus)
	if rec.FilePath != "" {
		fmt.Fprintf(w, "[cyan]File:[white]\t%s\n", tview.Escape(rec.FilePath))
	}
	if len(rec.Suite) > 0 {
		fmt.Fprintf(w, "[cyan]Suite:[white]\t%s\n", tview.Escape(strings.Join(rec.Suite, " > ")))
	}
	if len(rec.Tags) > 0 {
		fmt.Fprintf(w, "[cyan]Tags:[white]\t%s\n", tview.Escape(strings.Join(rec.Tags, ", ")))
	}
	if rec.Browser != "" {
		fmt.Fprintf(w, "[cyan]Browser:[white]\t%s\n", tview.Escape(rec.Browser))
	}
	fmt.Fprintf(w, "[cyan]Duration:[white]\t%s\n\n", time.Duration(rec.Duration)*time.Millisecond)

	if rec.Message != "" {
		fmt.Fprintf(w, "[yellow]Message:[white]\n%s\n\n", tview.Escape(rec.Message))
	}

	if rec.Trace != "" {
		lines := strings.Split(rec.Trace, "\n")
		fmt.Fprintf(w, "[yellow]Trace:[white]\n")
		for i, line := range lines {
			if i == maxTraceLines {
				fmt.Fprintf(w, "  [gray]... and %d more lines[white]\n", len(lines)-maxTraceLines)
				break
			}
			fmt.Fprintf(w, "  %s\n", tview.Escape(line))
		}
	}

	w.Flush()
	return builder.String()
}

// formatFailureStats formats the header line of a record
func formatFailureStats(rec domain.TestRecord, number int) string {
	pkg := packageOf(rec.ID)
	if pkg == "" {
		pkg = "Unknown package"
	}
	name := rec.Name
	if name == "" {
		name = fmt.Sprintf("Test %d", number)
	}
	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n", tview.Escape(pkg), tview.Escape(name))
}
