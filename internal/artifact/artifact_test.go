package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/stretchr/testify/require"
)

// TestWrite creates missing directories and replaces existing content.
func TestWrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")

	first, err := Write(context.Background(), dir, "udunits2_combined.xml", []byte("<first/>"))
	require.NoError(t, err)
	require.Equal(t, "udunits2_combined.xml", first.Name)
	require.Equal(t, filepath.Join(dir, "udunits2_combined.xml"), first.Path)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	require.Equal(t, "<first/>", string(data))

	second, err := Write(context.Background(), dir, "udunits2_combined.xml", []byte("<second/>"))
	require.NoError(t, err)
	require.NotEqual(t, first.Checksum, second.Checksum)

	data, err = os.ReadFile(second.Path)
	require.NoError(t, err)
	require.Equal(t, "<second/>", string(data))

	onDisk, err := fileChecksum(second.Path)
	require.NoError(t, err)
	require.Equal(t, second.Checksum, onDisk)
	require.Contains(t, second.String(), second.Path)
}

// TestChecksum is a SHA-512 digest.
func TestChecksum(t *testing.T) {
	t.Parallel()

	sum, err := Checksum([]byte("udunits"))
	require.NoError(t, err)
	require.Len(t, sum, 64)

	again, err := Checksum([]byte("udunits"))
	require.NoError(t, err)
	require.Equal(t, sum, again)

	_, err = fileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFile_Open reads back the written content.
func TestFile_Open(t *testing.T) {
	t.Parallel()

	file, err := Write(context.Background(), t.TempDir(), "UDUNITS-2_COPYRIGHT", []byte("Copyright"))
	require.NoError(t, err)

	f, err := file.Open()
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 9)
	_, err = f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "Copyright", string(buf))

	_, err = Write(context.Background(), t.TempDir(), "", []byte("x"))
	require.Error(t, err)
}

// TestWrite_ChecksumMismatch rejects a target that differs after the swap.
func TestWrite_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	corrupting := func(update io.Reader, opts goupdate.Options) error {
		if _, err := io.ReadAll(update); err != nil {
			return err
		}

		return os.WriteFile(opts.TargetPath, []byte("<truncat"), DefaultFileMode)
	}

	_, err := write(context.Background(), t.TempDir(), "udunits2_combined.xml", []byte("<truncated/>"), corrupting)
	require.ErrorIs(t, err, errChecksumMismatch)
}
