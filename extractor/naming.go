package extractor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileExtension is appended to every extracted moveset
const FileExtension = ".tkmvst"

// maxNameAttempts bounds the " (n)" suffix search
const maxNameAttempts = 1000

// PrettyCharacterName turns a name table entry such as "[DEVIL_JIN]" into "Devil Jin".
// Brackets are dropped, underscores and unprintable bytes become spaces and every word
// is capitalized. Words are separated by spaces, dashes, dots and colons.
func PrettyCharacterName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	wordStart := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '[' || c == ']':
			continue
		case c == '_' || c < 0x20 || c > 0x7E:
			c = ' '
		case c >= 'a' && c <= 'z' && wordStart:
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z' && !wordStart:
			c += 'a' - 'A'
		}
		b.WriteByte(c)
		wordStart = strings.IndexByte(" -.:", c) >= 0
	}

	return strings.TrimSpace(b.String())
}

// OutputPath picks the file name for a character inside dir. Unless overwrite is set,
// existing files are kept by trying "Name (2)", "Name (3)" and so on.
func OutputPath(dir, name string, overwrite bool) (string, error) {
	if name == "" {
		name = "Unknown"
	}
	base := filepath.Join(dir, name)
	path := base + FileExtension
	if overwrite {
		return path, nil
	}

	for n := 2; n <= maxNameAttempts; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = fmt.Sprintf("%s (%d)%s", base, n, FileExtension)
	}

	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// tempPath is where a file is written before it is renamed into place
func tempPath(path string) string {
	return path + ".tmp"
}
