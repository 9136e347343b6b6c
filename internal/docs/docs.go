// Package docs serves the embedded `courseforge docs <topic>` pages.
package docs

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed content/*.md
var contentFS embed.FS

// aliases maps course vocabulary onto the page that covers it.
var aliases = map[string]string{
	"course":    "overview",
	"module":    "editing",
	"modules":   "editing",
	"lesson":    "editing",
	"lessons":   "editing",
	"undo":      "editing",
	"reorder":   "editing",
	"save":      "autosave",
	"publish":   "validation",
	"readiness": "validation",
	"warnings":  "validation",
	"move":      "bulk",
	"copy":      "bulk",
	"delete":    "bulk",
	"template":  "templates",
	"serve":     "server",
	"api":       "server",
}

// Entry is one page in the topic index.
type Entry struct {
	Topic string   `json:"topic"`
	Title string   `json:"title"`
	Also  []string `json:"also,omitempty"`
}

func Topics() []string {
	entries, err := fs.Glob(contentFS, "content/*.md")
	if err != nil {
		return []string{}
	}
	topics := make([]string, 0, len(entries))
	for _, p := range entries {
		if t := strings.TrimSuffix(path.Base(p), ".md"); t != "" {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	return topics
}

// Index lists every page with its first heading and the aliases that reach it.
func Index() []Entry {
	also := map[string][]string{}
	for a, t := range aliases {
		also[t] = append(also[t], a)
	}
	var out []Entry
	for _, t := range Topics() {
		body, _ := Get(t)
		a := also[t]
		sort.Strings(a)
		out = append(out, Entry{Topic: t, Title: title(body, t), Also: a})
	}
	return out
}

// Get returns the page for topic or one of its aliases.
func Get(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" || strings.ContainsAny(topic, "/\\") {
		return "", false
	}
	if t, ok := aliases[topic]; ok {
		topic = t
	}
	b, err := contentFS.ReadFile(path.Join("content", topic+".md"))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func title(body, fallback string) string {
	first, _, _ := strings.Cut(body, "\n")
	if h, ok := strings.CutPrefix(first, "# "); ok {
		return strings.TrimSpace(h)
	}
	return fallback
}
