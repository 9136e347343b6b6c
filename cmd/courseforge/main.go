package main

import (
	"os"
	"strings"

	"courseforge/internal/cli"
)

func isCourseID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "crs-") && len(s) > len("crs-")
}

// rewriteDirectCourseArgs makes `courseforge <course-id>` behave like
// `courseforge show --course <course-id>`. Persistent flags may come first, so
// the first positional token is what counts.
func rewriteDirectCourseArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--db":     true,
		"--driver": true,
		"--remote": true,
		"--format": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isCourseID(a) {
			out := make([]string, 0, len(argv)+2)
			out = append(out, argv[:i]...)
			out = append(out, "show", "--course", a)
			out = append(out, argv[i+1:]...)
			return out
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectCourseArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
