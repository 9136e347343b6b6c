// Package tui is the interactive course-structure editor. It drives a
// session.Session and re-reads its state on a short tick.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"courseforge/internal/bulk"
	"courseforge/internal/logger"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
	"courseforge/internal/session"
)

type mode int

const (
	modeBrowse mode = iota
	modeEditTitle
	modeEditContent
	modePickTemplate
	modeConfirmDelete
)

type reloadTickMsg struct{}

// opDoneMsg carries the result of a session call run off the update loop.
type opDoneMsg struct {
	what string
	err  error
}

type editorModel struct {
	ctx  context.Context
	sess *session.Session
	log  *logger.Logger

	width  int
	height int

	rows     []row
	cursor   int
	cursorID string

	mode        mode
	editingID   string
	titleInput  textinput.Model
	contentArea textarea.Model
	tplCursor   int

	keys      keyMap
	help      help.Model
	flash     string
	inlineErr string
	busy      bool
}

func newEditorModel(ctx context.Context, s *session.Session, log *logger.Logger) editorModel {
	ti := textinput.New()
	ti.Placeholder = "Lesson title"
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Lesson content (markdown)"
	ta.ShowLineNumbers = false

	m := editorModel{
		ctx:         ctx,
		sess:        s,
		log:         log,
		titleInput:  ti,
		contentArea: ta,
		keys:        defaultKeyMap(),
		help:        help.New(),
		width:       100,
		height:      30,
	}
	m.reloadRows()
	return m
}

func (m editorModel) Init() tea.Cmd { return tickReload() }

func tickReload() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return reloadTickMsg{} })
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.contentArea.SetWidth(max(20, msg.Width/2-6))
		m.contentArea.SetHeight(max(5, msg.Height-12))
		return m, nil

	case reloadTickMsg:
		m.reloadRows()
		return m, tickReload()

	case opDoneMsg:
		m.busy = false
		m.reloadRows()
		var ve mutate.ValidationError
		var nf mutate.NotFoundError
		switch {
		case msg.err == nil:
			m.flash = msg.what
		case errors.As(msg.err, &ve), errors.As(msg.err, &nf):
			// Inline problems; gateway failures show in the session's error slot.
			m.inlineErr = msg.err.Error()
		default:
			m.log.Warn("operation failed", "op", msg.what, "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEditTitle:
			return m.updateEditTitle(msg)
		case modeEditContent:
			return m.updateEditContent(msg)
		case modePickTemplate:
			return m.updatePickTemplate(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m editorModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash, m.inlineErr = "", ""

	// Session-level bindings (save/undo/redo) win over everything else.
	if _, ok := m.sess.Keymap().Lookup(msg.String()); ok {
		k := msg.String()
		return m, m.run("ok", func(ctx context.Context) error {
			m.sess.HandleKey(ctx, k)
			return nil
		})
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.DismissError):
		m.sess.DismissError()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.run("reloaded", m.sess.Refresh)
	}

	r, ok := m.current()
	if !ok {
		if key.Matches(msg, m.keys.Template) {
			m.inlineErr = "add a module first"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Enter):
		if r.kind == rowModule {
			m.sess.ToggleModuleCollapse(r.moduleID)
		} else {
			m.sess.SelectLesson(r.lesson.ID)
		}
		m.reloadRows()

	case key.Matches(msg, m.keys.EditTitle):
		if r.kind == rowLesson {
			m.mode = modeEditTitle
			m.editingID = r.lesson.ID
			m.titleInput.SetValue(r.lesson.Title)
			m.titleInput.CursorEnd()
			return m, m.titleInput.Focus()
		}

	case key.Matches(msg, m.keys.EditContent):
		if r.kind == rowLesson {
			m.mode = modeEditContent
			m.editingID = r.lesson.ID
			m.contentArea.SetValue(r.lesson.Text())
			return m, m.contentArea.Focus()
		}

	case key.Matches(msg, m.keys.CycleType):
		if r.kind == rowLesson {
			ct := nextContentType(r.lesson.ContentType)
			m.patch(r.lesson.ID, model.LessonPatch{ContentType: &ct})
		}

	case key.Matches(msg, m.keys.TogglePreview):
		if r.kind == rowLesson {
			v := !r.lesson.IsPreview
			m.patch(r.lesson.ID, model.LessonPatch{IsPreview: &v})
		}

	case key.Matches(msg, m.keys.ToggleSelect):
		if r.kind == rowLesson {
			m.sess.ToggleLessonSelection(r.lesson.ID)
		}

	case key.Matches(msg, m.keys.SetTarget):
		m.sess.SetMoveTarget(r.moduleID)
		m.flash = "target module: " + displayTitle(r.module.Title)

	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		delta := 1
		if key.Matches(msg, m.keys.MoveUp) {
			delta = -1
		}
		over := neighbor(m.sess.Modules(), r, delta)
		if over == "" {
			return m, nil
		}
		container := r.moduleID
		if r.kind == rowModule {
			container = m.sess.CourseID()
		}
		active := r.id()
		return m, m.run("moved", func(ctx context.Context) error {
			return m.sess.OnReorder(ctx, container, active, over)
		})

	case key.Matches(msg, m.keys.Template):
		m.mode = modePickTemplate
		m.tplCursor = 0

	case key.Matches(msg, m.keys.BulkMove):
		return m, m.bulk(bulk.ActionMove)
	case key.Matches(msg, m.keys.BulkCopy):
		return m, m.bulk(bulk.ActionCopy)
	case key.Matches(msg, m.keys.BulkDelete):
		if len(m.sess.Selection()) == 0 {
			m.inlineErr = "select at least one lesson (space)"
			return m, nil
		}
		m.mode = modeConfirmDelete
	}
	return m, nil
}

func (m editorModel) updateEditTitle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.titleInput.Blur()
		return m, nil
	case tea.KeyEnter:
		title := m.titleInput.Value()
		if err := m.sess.UpdateLesson(m.editingID, model.LessonPatch{Title: &title}); err != nil {
			m.inlineErr = err.Error()
			return m, nil
		}
		m.mode = modeBrowse
		m.titleInput.Blur()
		m.reloadRows()
		return m, nil
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m editorModel) updateEditContent(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.contentArea.Blur()
		return m, nil
	case tea.KeyCtrlS:
		text := m.contentArea.Value()
		m.patch(m.editingID, model.LessonPatch{ContentText: &text})
		m.mode = modeBrowse
		m.contentArea.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.contentArea, cmd = m.contentArea.Update(msg)
	return m, cmd
}

func (m editorModel) updatePickTemplate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tpls := m.sess.Templates()
	switch {
	case msg.Type == tea.KeyEsc:
		m.mode = modeBrowse
	case key.Matches(msg, m.keys.Up):
		if m.tplCursor > 0 {
			m.tplCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.tplCursor < len(tpls)-1 {
			m.tplCursor++
		}
	case msg.Type == tea.KeyEnter:
		m.mode = modeBrowse
		if m.tplCursor >= len(tpls) {
			return m, nil
		}
		tplID := tpls[m.tplCursor].ID
		explicit := ""
		if r, ok := m.current(); ok {
			explicit = r.moduleID
		}
		return m, m.run("lesson added", func(ctx context.Context) error {
			res, err := m.sess.ApplyTemplate(ctx, tplID, explicit)
			if err == nil {
				m.log.Debug("template applied", "lessonId", res.LessonID)
			}
			return err
		})
	}
	return m, nil
}

func (m editorModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() == "y" {
		return m, m.bulk(bulk.ActionDelete)
	}
	m.flash = "delete cancelled"
	return m, nil
}

func (m *editorModel) patch(lessonID string, p model.LessonPatch) {
	if err := m.sess.UpdateLesson(lessonID, p); err != nil {
		m.inlineErr = err.Error()
		return
	}
	m.reloadRows()
}

func (m *editorModel) bulk(action bulk.Action) tea.Cmd {
	return m.run(string(action)+" done", func(ctx context.Context) error {
		return m.sess.RunBulkAction(ctx, action)
	})
}

func (m *editorModel) run(what string, fn func(context.Context) error) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m *editorModel) quit() tea.Cmd {
	ctx := m.ctx
	s := m.sess
	return tea.Sequence(func() tea.Msg {
		if err := s.SaveNow(ctx); err != nil {
			return opDoneMsg{what: "save", err: err}
		}
		return nil
	}, tea.Quit)
}

func (m *editorModel) reloadRows() {
	m.rows = flattenRows(m.sess.Modules())
	if m.cursorID != "" {
		for i, r := range m.rows {
			if r.id() == m.cursorID {
				m.cursor = i
				return
			}
		}
	}
	m.clampCursor()
}

func (m *editorModel) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *editorModel) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < len(m.rows) {
		m.cursorID = m.rows[m.cursor].id()
	} else {
		m.cursorID = ""
	}
}

func (m editorModel) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func displayTitle(s string) string {
	if s == "" {
		return "(untitled)"
	}
	return s
}
