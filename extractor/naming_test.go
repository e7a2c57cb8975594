package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyCharacterName(t *testing.T) {
	tests := map[string]string{
		"[DEVIL_JIN]":       "Devil Jin",
		"JACK-8":            "Jack-8",
		"TRUE_DEVIL_KAZUYA": "True Devil Kazuya",
		"lee":               "Lee",
		"  [KUMA] ":         "Kuma",
		"dr.b":              "Dr.B",
		"ARMOR_KING\x01":    "Armor King",
		"":                  "",
		"NINA:WILLIAMS":     "Nina:Williams",
	}
	for in, want := range tests {
		assert.Equal(t, want, PrettyCharacterName(in), in)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	path, err := OutputPath(dir, "Devil Jin", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Devil Jin.tkmvst"), path)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	path, err = OutputPath(dir, "Devil Jin", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Devil Jin (2).tkmvst"), path)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	path, err = OutputPath(dir, "Devil Jin", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Devil Jin (3).tkmvst"), path)

	path, err = OutputPath(dir, "Devil Jin", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Devil Jin.tkmvst"), path)

	path, err = OutputPath(dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Unknown.tkmvst"), path)
}
