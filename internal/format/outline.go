package format

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"courseforge/internal/model"
)

// Outline is the `show` payload: the course tree plus its readiness warnings.
type Outline struct {
	Course   model.Course    `json:"course"`
	Modules  []model.Module  `json:"modules"`
	Warnings []model.Warning `json:"warnings"`
}

func (o Outline) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	flagged := map[string]model.Severity{}
	for _, wn := range o.Warnings {
		flagged[wn.ID] = wn.Severity
	}

	fmt.Fprintf(bw, "%s  [%s]  %s\n", o.Course.Title, orDraft(o.Course.Status), o.Course.ID)
	for i, m := range o.Modules {
		fmt.Fprintf(bw, "%d. %s  (%s)%s\n", i+1, untitled(m.Title), m.ID, mark(flagged[m.ID]))
		for j, l := range m.Lessons {
			preview := ""
			if l.IsPreview {
				preview = " preview"
			}
			fmt.Fprintf(bw, "   %d.%d %s  <%s%s>  (%s)%s\n", i+1, j+1, untitled(l.Title), l.ContentType, preview, l.ID, mark(flagged[l.ID]))
		}
	}
	if len(o.Warnings) > 0 {
		fmt.Fprintln(bw)
		for _, wn := range o.Warnings {
			fmt.Fprintf(bw, "%-7s %s\n", wn.Severity, wn.Message)
		}
	}
	return bw.Flush()
}

func mark(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "  !!"
	case model.SeverityWarning:
		return "  !"
	default:
		return ""
	}
}

func orDraft(s model.CourseStatus) model.CourseStatus {
	if s == "" {
		return model.CourseStatusDraft
	}
	return s
}

func untitled(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}
