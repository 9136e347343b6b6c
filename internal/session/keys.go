package session

import (
	"context"
	"strings"
)

type KeyAction string

const (
	KeySave KeyAction = "save"
	KeyUndo KeyAction = "undo"
	KeyRedo KeyAction = "redo"
)

// Keymap binds key strings (bubbletea style, e.g. "ctrl+s") to session actions.
type Keymap struct {
	bindings map[string]KeyAction
}

func DefaultKeymap() Keymap {
	return Keymap{bindings: map[string]KeyAction{
		"ctrl+s":       KeySave,
		"ctrl+z":       KeyUndo,
		"ctrl+y":       KeyRedo,
		"ctrl+shift+z": KeyRedo,
	}}
}

// Bind returns a copy of k with key bound to action.
func (k Keymap) Bind(key string, action KeyAction) Keymap {
	out := Keymap{bindings: make(map[string]KeyAction, len(k.bindings)+1)}
	for kk, a := range k.bindings {
		out.bindings[kk] = a
	}
	out.bindings[normalizeKey(key)] = action
	return out
}

func (k Keymap) Lookup(key string) (KeyAction, bool) {
	a, ok := k.bindings[normalizeKey(key)]
	return a, ok
}

// Keys lists the keys bound to action.
func (k Keymap) Keys(action KeyAction) []string {
	var out []string
	for key, a := range k.bindings {
		if a == action {
			out = append(out, key)
		}
	}
	return sortStrings(out)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Keymap returns the session's key bindings.
func (s *Session) Keymap() Keymap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keymap
}

// KeysInstalled reports whether the session key bindings are active.
func (s *Session) KeysInstalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysInstalled
}

// HandleKey runs the action bound to key. It returns false when the key is not
// bound or the bindings were removed by Close.
func (s *Session) HandleKey(ctx context.Context, key string) bool {
	s.mu.Lock()
	installed := s.keysInstalled
	km := s.keymap
	s.mu.Unlock()
	if !installed {
		return false
	}
	action, ok := km.Lookup(key)
	if !ok {
		return false
	}
	switch action {
	case KeySave:
		_ = s.SaveNow(ctx)
	case KeyUndo:
		s.Undo()
	case KeyRedo:
		s.Redo()
	default:
		return false
	}
	return true
}
