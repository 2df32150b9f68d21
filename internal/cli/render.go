package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/store"
)

// listingStyles decorates rows printed by ls and the shell.
type listingStyles struct {
	dir      lipgloss.Style
	file     lipgloss.Style
	selected lipgloss.Style
	active   lipgloss.Style
	header   lipgloss.Style
	errText  lipgloss.Style
}

func newListingStyles(color bool) listingStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return listingStyles{dir: plain, file: plain, selected: plain, active: plain, header: plain, errText: plain}
	}
	return listingStyles{
		dir:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		file:     lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().Reverse(true),
		active:   lipgloss.NewStyle().Underline(true),
		header:   lipgloss.NewStyle().Faint(true),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// rowMarker is the two-character gutter in front of a row: "*" for a
// selected entry, ">" for the keyboard cursor.
func rowMarker(it browser.Item) string {
	sel, act := " ", " "
	if it.Selected {
		sel = "*"
	}
	if it.Active {
		act = ">"
	}
	return sel + act
}

// formatItem renders a row without styling. Directories carry a trailing
// separator; open editors show their text.
func formatItem(it browser.Item, sep string) string {
	name := it.Name
	if it.Kind == store.KindDirectory {
		name += sep
	}
	switch it.Edit {
	case browser.EditRename:
		name += " [rename: " + it.EditText + "]"
	case browser.EditNew:
		name = "[new " + strings.ToLower(it.Kind.String()) + ": " + it.EditText + "]"
	}
	return rowMarker(it) + name
}

// printListing writes the rows of inst to w.
func printListing(w io.Writer, inst *browser.Instance, st listingStyles) {
	fmt.Fprintln(w, st.header.Render(inst.Address()))
	items := inst.Items()
	if len(items) == 0 {
		fmt.Fprintln(w, st.header.Render("  (empty)"))
		return
	}
	sep := inst.Paths().Separator()
	for _, it := range items {
		style := st.file
		if it.Kind == store.KindDirectory {
			style = st.dir
		}
		if it.Selected {
			style = style.Inherit(st.selected)
		}
		if it.Active {
			style = style.Inherit(st.active)
		}
		row := formatItem(it, sep)
		fmt.Fprintln(w, row[:2]+style.Render(row[2:]))
	}
}
