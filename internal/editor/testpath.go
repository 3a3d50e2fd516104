package editor

import (
	"path/filepath"
	"strings"
)

// TestPath returns where the unit tests of the source file at path belong:
// the Maven/Gradle test tree for Java and Kotlin, a _test.go sibling for Go.
func TestPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	switch ext {
	case ".go":
		if strings.HasSuffix(base, "_test") {
			return path
		}
		return base + "_test.go"
	case ".java", ".kt":
		if strings.HasSuffix(base, "Test") {
			return path
		}
		slashed := filepath.ToSlash(base)
		for _, lang := range []string{"java", "kotlin"} {
			main := "src/main/" + lang + "/"
			if i := strings.Index(slashed, main); i >= 0 {
				slashed = slashed[:i] + "src/test/" + lang + "/" + slashed[i+len(main):]
				break
			}
		}
		return filepath.FromSlash(slashed) + "Test" + ext
	default:
		return base + "_test" + ext
	}
}
