package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.log")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.Equal(t, fpath, f.Name())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	tf, err := lfs.CreateTemp(dir, "test.log.gz.tmp-*")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(tf.Name()), "test.log.gz.tmp-")
	assert.NoError(t, tf.Close())

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	newPath := filepath.Join(dir, "renamed.log")
	assert.NoError(t, lfs.Rename(fpath, newPath))

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	ffs.SetLimit(5) // Fail after 5 bytes

	fpath := filepath.Join(tmp, "faulty.txt")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	assert.Equal(t, int64(5), ffs.GetWritten())
	require.NoError(t, f.Close())

	assert.NoError(t, ffs.Rename(fpath, fpath+".renamed"))
	_, err = ffs.Stat(fpath + ".renamed")
	assert.NoError(t, err)
}

func TestFaultyFS_Rules(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	boom := errors.New("boom")

	ffs.AddRule("a.log", Fault{FailOnOpen: true, Times: 1, Err: boom})
	ffs.AddRule("b.log", Fault{FailOnSync: true})
	ffs.AddRule("c.log", Fault{FailWrites: true, FailAfterBytes: 3})

	apath := filepath.Join(tmp, "a.log")
	_, err := ffs.OpenFile(apath, os.O_CREATE|os.O_WRONLY, 0644)
	assert.ErrorIs(t, err, boom)

	// Times exhausted: second open succeeds.
	a, err := ffs.OpenFile(apath, os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := ffs.OpenFile(filepath.Join(tmp, "b.log"), os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Sync(), ErrInjected)
	require.NoError(t, b.Close())

	c, err := ffs.OpenFile(filepath.Join(tmp, "c.log"), os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = c.Write([]byte("abc"))
	assert.NoError(t, err)
	_, err = c.Write([]byte("d"))
	assert.ErrorIs(t, err, ErrInjected)
	require.NoError(t, c.Close())

	ffs.ClearRules()
	b2, err := ffs.OpenFile(filepath.Join(tmp, "b.log"), os.O_WRONLY, 0644)
	require.NoError(t, err)
	assert.NoError(t, b2.Sync())
	require.NoError(t, b2.Close())
}

func TestReplace_Atomic(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.tmp")
	dst := filepath.Join(tmp, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	atomic, err := Replace(Default, src, dst)
	require.NoError(t, err)
	assert.True(t, atomic)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestReplace_Fallback(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.tmp")
	dst := filepath.Join(tmp, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("previous archive"), 0644))

	ffs := NewFaultyFS(nil)
	ffs.AddRule("src.tmp", Fault{FailOnRename: true, Err: ErrAtomicRenameUnsupported})

	atomic, err := Replace(ffs, src, dst)
	require.NoError(t, err)
	assert.False(t, atomic)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestReplace_FallbackCopyFailureRemovesTarget(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.tmp")
	dst := filepath.Join(tmp, "out.gz")
	require.NoError(t, os.WriteFile(src, []byte("payload that will not fit"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("previous archive"), 0644))

	ffs := NewFaultyFS(nil)
	ffs.AddRule("src.tmp", Fault{FailOnRename: true, Err: ErrAtomicRenameUnsupported})
	ffs.AddRule("out.gz", Fault{FailWrites: true, FailAfterBytes: 4})

	_, err := Replace(ffs, src, dst)
	assert.ErrorIs(t, err, ErrInjected)

	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "torn copy must not stay visible")
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "payload that will not fit", string(data))
}

func TestReplace_OtherErrorsPropagate(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.tmp")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	ffs := NewFaultyFS(nil)
	ffs.AddRule("src.tmp", Fault{FailOnRename: true})

	_, err := Replace(ffs, src, filepath.Join(tmp, "dst"))
	assert.ErrorIs(t, err, ErrInjected)
	_, err = os.Stat(src)
	assert.NoError(t, err, "source must survive a failed replace")
}

func TestIsAtomicRenameUnsupported(t *testing.T) {
	assert.False(t, IsAtomicRenameUnsupported(nil))
	assert.False(t, IsAtomicRenameUnsupported(os.ErrPermission))
	assert.True(t, IsAtomicRenameUnsupported(&os.LinkError{Op: "rename", Err: ErrAtomicRenameUnsupported}))
}
