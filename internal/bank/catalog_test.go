package bank

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/keyclack/internal/audio"
	"github.com/jmylchreest/keyclack/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadBundled(t *testing.T) {
	entries, err := LoadBundled()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, DefaultBankName, entries[0].Bank.Name)
	assert.Equal(t, "typewriter", entries[1].Bank.Name)
	for _, e := range entries {
		assert.Equal(t, SourceBundled, e.Source)
	}

	classic := entries[0].Bank
	idx, ok := classic.AudioIndex(model.KeyReturn)
	assert.True(t, ok)
	assert.Equal(t, 4, idx)
}

func TestBundledBanksDecode(t *testing.T) {
	entries, err := LoadBundled()
	require.NoError(t, err)

	store := audio.NewSampleStore(nil, 0)
	for _, e := range entries {
		t.Run(e.Bank.Name, func(t *testing.T) {
			set, report, err := store.Load(context.Background(), e.Bank, e.Resolver)
			require.NoError(t, err)
			assert.Empty(t, report.Failures)
			assert.Equal(t, len(e.Bank.Files), set.Len())
		})
	}
}

func TestCatalog_UserBanks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "classic", "bank.yaml"), `
display_name: My Classic
files: [a.wav]
non_unique_count: 1
`)
	writeFile(t, filepath.Join(dir, "mine", "bank.toml"), `
name = "mine"
files = ["x.wav", "y.wav"]
non_unique_count = 2

[key_audio_map]
"36" = 1
`)
	writeFile(t, filepath.Join(dir, "broken", "bank.json"), `{"files": [`)
	writeFile(t, filepath.Join(dir, "empty", "readme.txt"), "no descriptor here")
	writeFile(t, filepath.Join(dir, "stray.json"), `{}`)

	c := NewCatalog(dir, nil)
	require.NoError(t, c.Reload())

	assert.Equal(t, []string{"classic", "typewriter", "mine"}, c.Names())

	classic, err := c.Find("classic")
	require.NoError(t, err)
	assert.Equal(t, SourceUser, classic.Source)
	assert.Equal(t, "My Classic", classic.Bank.Title())
	assert.Equal(t, filepath.Join(dir, "classic"), classic.Dir)

	mine, err := c.Find("mine")
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Bank.KeyToIndex[model.KeyReturn])

	_, err = c.Find("broken")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_MissingUserDir(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, c.Reload())
	assert.Equal(t, []string{"classic", "typewriter"}, c.Names())
	assert.Len(t, c.List(), 2)
}

func TestCatalog_Restore(t *testing.T) {
	c := NewCatalog("", nil)
	require.NoError(t, c.Reload())

	tests := []struct {
		last string
		want string
	}{
		{last: "typewriter", want: "typewriter"},
		{last: "gone", want: "classic"},
		{last: "", want: "classic"},
	}
	for _, tt := range tests {
		t.Run(tt.last, func(t *testing.T) {
			e, err := c.Restore(tt.last)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Bank.Name)
		})
	}

	empty := NewCatalog("", nil)
	_, err := empty.Restore("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor("bank.json", []byte(`{"name":"j","files":["a.wav"],"non_unique_count":1}`))
	require.NoError(t, err)
	assert.Equal(t, "j", d.Name)

	d, err = ParseDescriptor("bank.yml", []byte("name: y\nfiles: [a.wav]\n"))
	require.NoError(t, err)
	assert.Equal(t, "y", d.Name)

	_, err = ParseDescriptor("bank.ini", nil)
	assert.ErrorContains(t, err, "unsupported descriptor format")

	_, err = ParseDescriptor("bank.toml", []byte("name = "))
	assert.Error(t, err)
}

func TestLoadDescriptorDir_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bank.json"), `{"name":"x","files":[]}`)

	_, err := LoadDescriptorDir(dir)
	assert.ErrorIs(t, err, model.ErrNoFiles)
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.wav"), "data")
	writeFile(t, filepath.Join(dir, "sub", "b.wav"), "more")

	r := DirResolver{Dir: dir}

	rc, err := r.Open("a.wav")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "data", string(data))

	rc, err = r.Open("sub/b.wav")
	require.NoError(t, err)
	_ = rc.Close()

	for _, bad := range []string{"../a.wav", "/etc/passwd", "sub/../../a.wav"} {
		_, err := r.Open(bad)
		assert.ErrorIs(t, err, fs.ErrInvalid, bad)
	}

	_, err = r.Open("missing.wav")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFSResolver(t *testing.T) {
	r := FSResolver{FS: fstest.MapFS{"a.wav": {Data: []byte("x")}}}

	rc, err := r.Open("a.wav")
	require.NoError(t, err)
	_ = rc.Close()

	_, err = r.Open("../a.wav")
	assert.ErrorIs(t, err, fs.ErrInvalid)

	_, err = r.Open("b.wav")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWatcher_ReloadsOnNewBank(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir, nil)
	require.NoError(t, c.Reload())

	var reloads atomic.Int32
	w, err := NewWatcher(c, func() { reloads.Add(1) }, nil)
	require.NoError(t, err)
	w.SetDelay(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	writeFile(t, filepath.Join(dir, "fresh", "bank.json"), `{"name":"fresh","files":["a.wav"],"non_unique_count":1}`)

	require.Eventually(t, func() bool {
		_, err := c.Find("fresh")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
