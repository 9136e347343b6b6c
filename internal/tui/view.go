package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"courseforge/internal/autosave"
	"courseforge/internal/model"
)

func (m editorModel) View() string {
	header := m.viewHeader()
	footer := m.viewFooter()

	bodyH := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 2
	if bodyH < 3 {
		bodyH = 3
	}
	leftW := m.width / 2
	if leftW < 24 {
		leftW = 24
	}
	rightW := m.width - leftW - 4
	if rightW < 20 {
		rightW = 20
	}

	left := stylePane.Width(leftW - 4).Height(bodyH).Render(m.viewOutline(leftW-4, bodyH))
	right := stylePane.Width(rightW - 4).Height(bodyH).Render(m.viewDetail(rightW-4, bodyH))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		footer,
	)
}

func (m editorModel) viewHeader() string {
	c := m.sess.Course()
	title := styleHeader.Render(displayTitle(c.Title))
	parts := []string{title, styleMuted().Render("[" + string(c.Status) + "]"), saveStatus(m.sess.SaveState())}
	if m.sess.CanUndo() {
		parts = append(parts, styleMuted().Render("undo"))
	}
	if m.sess.CanRedo() {
		parts = append(parts, styleMuted().Render("redo"))
	}
	if n := len(m.sess.Selection()); n > 0 {
		target := "none"
		if id := m.sess.MoveTarget(); id != "" {
			target = id
		}
		parts = append(parts, styleSelected.Render(fmt.Sprintf("%d selected → %s", n, target)))
	}
	if m.busy {
		parts = append(parts, styleMuted().Render("working…"))
	}
	return xansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

func saveStatus(st autosave.State) string {
	switch st.Status {
	case autosave.StatusSaving:
		return styleMuted().Render("saving…")
	case autosave.StatusUnsaved:
		return styleWarning.Render("unsaved")
	case autosave.StatusError:
		return styleError.Render("save failed")
	}
	if st.LastSavedAt.IsZero() {
		return styleOK.Render("saved")
	}
	return styleOK.Render("saved " + st.LastSavedAt.Format(time.Kitchen))
}

func (m editorModel) viewOutline(width, height int) string {
	if len(m.rows) == 0 {
		return styleMuted().Render("No modules yet.")
	}
	marks := warningMarks(m.sess.Warnings())
	selected := m.sess.SelectedLessonID()
	target := m.sess.MoveTarget()

	lines := make([]string, 0, len(m.rows))
	for i, r := range m.rows {
		var line string
		if r.kind == rowModule {
			arrow := "▾"
			if r.module.Collapsed {
				arrow = "▸"
			}
			name := displayTitle(r.module.Title)
			if r.moduleID == target {
				name += " ◂"
			}
			line = arrow + " " + styleModule.Render(name)
		} else {
			box := "[ ]"
			if m.sess.IsSelected(r.lesson.ID) {
				box = styleSelected.Render("[x]")
			}
			name := displayTitle(r.lesson.Title)
			if r.lesson.ID == selected {
				name = styleSelected.Render(name)
			}
			line = "   " + box + " " + name + styleMuted().Render(" "+string(r.lesson.ContentType))
		}
		if mark := marks[r.id()]; mark != "" {
			line += " " + mark
		}
		line = xansi.Truncate(line, width, "…")
		if i == m.cursor {
			line = styleCursor.Render(padRight(line, width))
		}
		lines = append(lines, line)
	}

	// Keep the cursor in view.
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func warningMarks(ws []model.Warning) map[string]string {
	out := map[string]string{}
	for _, w := range ws {
		if w.Scope == model.ScopeCourse {
			continue
		}
		if w.Severity == model.SeverityError {
			out[w.ID] = styleError.Render("!!")
		} else if out[w.ID] == "" {
			out[w.ID] = styleWarning.Render("!")
		}
	}
	return out
}

func (m editorModel) viewDetail(width, height int) string {
	switch m.mode {
	case modeEditTitle:
		return styleHeader.Render("Edit title") + "\n\n" + m.titleInput.View() + "\n\n" +
			styleMuted().Render("enter save · esc cancel")
	case modeEditContent:
		return styleHeader.Render("Edit content") + "\n\n" + m.contentArea.View() + "\n" +
			styleMuted().Render("ctrl+s apply · esc cancel")
	case modePickTemplate:
		return m.viewTemplates(width)
	case modeConfirmDelete:
		return styleError.Render(fmt.Sprintf("Delete %d selected lesson(s)?", len(m.sess.Selection()))) +
			"\n\n" + styleMuted().Render("y confirm · any other key cancels")
	}

	r, ok := m.current()
	if !ok {
		return m.viewWarnings(width)
	}
	if r.kind == rowModule {
		var b strings.Builder
		b.WriteString(styleHeader.Render(displayTitle(r.module.Title)))
		b.WriteString("\n")
		if r.module.Description != nil && *r.module.Description != "" {
			b.WriteString(renderMarkdown(*r.module.Description, width))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n%s\n\n", styleMuted().Render(fmt.Sprintf("%d lesson(s) · %s", len(r.module.Lessons), r.moduleID)))
		b.WriteString(m.viewWarnings(width))
		return clipLines(b.String(), height)
	}

	l := r.lesson
	var b strings.Builder
	b.WriteString(styleHeader.Render(displayTitle(l.Title)))
	meta := string(l.ContentType)
	if l.IsPreview {
		meta += " · preview"
	}
	b.WriteString("\n" + styleMuted().Render(meta+" · "+l.ID) + "\n\n")
	if body := renderMarkdown(l.Text(), width); body != "" {
		b.WriteString(body)
	} else {
		b.WriteString(styleMuted().Render("(no content)"))
	}
	return clipLines(b.String(), height)
}

func (m editorModel) viewTemplates(width int) string {
	tpls := m.sess.Templates()
	var b strings.Builder
	b.WriteString(styleHeader.Render("Add lesson from template") + "\n\n")
	for i, t := range tpls {
		line := fmt.Sprintf("%s  %s", t.Name, styleMuted().Render(string(t.ContentType)))
		line = xansi.Truncate(line, width, "…")
		if i == m.tplCursor {
			line = styleCursor.Render(padRight(line, width))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + styleMuted().Render("enter apply · esc cancel"))
	return b.String()
}

func (m editorModel) viewWarnings(width int) string {
	ws := m.sess.Warnings()
	if len(ws) == 0 {
		return styleOK.Render("Ready to publish.")
	}
	lines := make([]string, 0, len(ws))
	for _, w := range ws {
		st := styleWarning
		if w.Severity == model.SeverityError {
			st = styleError
		}
		lines = append(lines, xansi.Truncate(st.Render("• ")+w.Message, width, "…"))
	}
	return strings.Join(lines, "\n")
}

func (m editorModel) viewFooter() string {
	var lines []string
	if err := m.sess.Err(); err != nil {
		lines = append(lines, styleError.Render("error: "+err.Error())+styleMuted().Render("  (x to dismiss)"))
	}
	switch {
	case m.inlineErr != "":
		lines = append(lines, styleWarning.Render(m.inlineErr))
	case m.flash != "":
		lines = append(lines, styleMuted().Render(m.flash))
	}
	lines = append(lines, m.help.View(m.keys))
	for i := range lines {
		lines[i] = xansi.Truncate(lines[i], m.width, "…")
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if w := xansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
