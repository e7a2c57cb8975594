package process_manage_linux

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"tkmoveset/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProc(t *testing.T, procs map[int][2]string) *ProcessManager {
	t.Helper()
	root := t.TempDir()
	for pid, p := range procs {
		dir := filepath.Join(root, strconv.Itoa(pid))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(p[0]+"\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(p[1]), 0o644))
	}
	// Entries that are not processes
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self_test"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uptime"), []byte("1 1"), 0o644))
	return &ProcessManager{Root: root}
}

func TestFindPID(t *testing.T) {
	pm := fakeProc(t, map[int][2]string{
		1:    {"systemd", "/sbin/init\x00splash\x00"},
		4242: {"Polaris-Win64-S", `Z:\games\Tekken 8\Polaris\Binaries\Win64\Polaris-Win64-Shipping.exe` + "\x00-dx12\x00"},
		77:   {"wineserver", "/usr/bin/wineserver\x00"},
	})

	pid, err := pm.FindPID("Polaris-Win64-Shipping.exe")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(4242), pid)

	pid, err = pm.FindPID("systemd")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(1), pid)

	_, err = pm.FindPID("TekkenGame-Win64-Shipping.exe")
	assert.Error(t, err)
}

func TestGetProcess(t *testing.T) {
	pm := fakeProc(t, map[int][2]string{
		10: {"game.exe", "C:/Games/game.exe\x00--windowed\x00"},
	})

	p, err := pm.GetProcess(10)
	require.NoError(t, err)
	assert.Equal(t, "game.exe", p.Name)
	assert.Equal(t, "game.exe", p.Executable)
	assert.Equal(t, "C:/Games/game.exe --windowed", p.Cmdline)

	_, err = pm.GetProcess(11)
	assert.Error(t, err)

	all, err := pm.ListProcesses()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFindPIDAmbiguous(t *testing.T) {
	pm := fakeProc(t, map[int][2]string{
		20: {"game.exe", "game.exe\x00"},
		21: {"game.exe", "game.exe\x00"},
	})

	_, err := pm.FindPID("game.exe")
	assert.Error(t, err)

	matches, err := pm.FindProcessesByName("game.exe")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
