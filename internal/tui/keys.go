package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the editor's bindings. SaveUndoRedo only feeds the help view;
// those keys are resolved by the session's keymap.
type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	Enter         key.Binding
	EditTitle     key.Binding
	EditContent   key.Binding
	CycleType     key.Binding
	TogglePreview key.Binding
	ToggleSelect  key.Binding
	SetTarget     key.Binding
	MoveUp        key.Binding
	MoveDown      key.Binding
	Template      key.Binding
	BulkMove      key.Binding
	BulkCopy      key.Binding
	BulkDelete    key.Binding
	Refresh       key.Binding
	DismissError  key.Binding
	SaveUndoRedo  key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select/collapse")),
		EditTitle:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		EditContent:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "edit content")),
		CycleType:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "content type")),
		TogglePreview: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview flag")),
		ToggleSelect:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "bulk select")),
		SetTarget:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "set target module")),
		MoveUp:        key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:      key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Template:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add from template")),
		BulkMove:      key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "move selected")),
		BulkCopy:      key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "copy selected")),
		BulkDelete:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		DismissError:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
		SaveUndoRedo:  key.NewBinding(key.WithKeys("ctrl+s", "ctrl+z", "ctrl+y"), key.WithHelp("^s/^z/^y", "save/undo/redo")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "save & quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.EditTitle, k.EditContent, k.ToggleSelect, k.Template, k.SaveUndoRedo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.MoveUp, k.MoveDown},
		{k.EditTitle, k.EditContent, k.CycleType, k.TogglePreview, k.Template},
		{k.ToggleSelect, k.SetTarget, k.BulkMove, k.BulkCopy, k.BulkDelete},
		{k.SaveUndoRedo, k.Refresh, k.DismissError, k.Help, k.Quit},
	}
}
