package artifact

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/udunits2-publisher/internal/logger"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// DefaultFileMode is used for written artifacts.
	DefaultFileMode os.FileMode = 0o644

	// DefaultDirectoryMode is used when the output directory has to be created.
	DefaultDirectoryMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to verify written files.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errEmptyName       = errors.New("artifact name must be provided")
	// errChecksumMismatch is returned when the file on disk differs from what was written.
	errChecksumMismatch = errors.New("written file does not match its checksum")
)

// File is an artifact written to disk.
type File struct {
	// Name is the base filename, also used as the remote asset name.
	Name string
	// Path is the location on disk.
	Path string
	// Checksum is the DefaultChecksumFunction digest of the content.
	Checksum []byte
}

// String returns the path and the base64 checksum.
func (f *File) String() string {
	return fmt.Sprintf("%s (sha512 %s)", f.Path, base64.StdEncoding.EncodeToString(f.Checksum))
}

// Open opens the file for reading.
func (f *File) Open() (*os.File, error) {
	return os.Open(filepath.Clean(f.Path))
}

// Checksum returns the DefaultChecksumFunction digest of data.
func Checksum(data []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// fileChecksum returns the checksum of the file at path.
func fileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Checksum(contents)
}

// applyFunc swaps the target for the content read from update.
type applyFunc func(update io.Reader, opts goupdate.Options) error

// Write replaces dir/name with data. The swap is atomic, so readers never see
// a partial file, and the result is read back and checked against the
// checksum of data.
func Write(ctx context.Context, dir, name string, data []byte) (*File, error) {
	return write(ctx, dir, name, data, goupdate.Apply)
}

func write(ctx context.Context, dir, name string, data []byte, apply applyFunc) (*File, error) {
	if name == "" {
		return nil, errEmptyName
	}

	if err := os.MkdirAll(dir, DefaultDirectoryMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	checksum, err := Checksum(data)
	if err != nil {
		return nil, err
	}

	target := filepath.Clean(filepath.Join(dir, name))

	if _, err = os.Stat(target); err != nil && errors.Is(err, os.ErrNotExist) {
		created, createErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if createErr != nil {
			return nil, createErr
		}

		if err = created.Close(); err != nil {
			return nil, err
		}
	}

	logger.DebugKV(ctx, "Writing artifact", "path", target, "size", len(data))

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
	}

	if err = apply(bytes.NewReader(data), options); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}

	onDisk, err := fileChecksum(target)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", target, err)
	}

	if !bytes.Equal(checksum, onDisk) {
		return nil, fmt.Errorf("%s: %w", target, errChecksumMismatch)
	}

	file := &File{
		Name:     name,
		Path:     target,
		Checksum: checksum,
	}

	logger.InfoKV(ctx, "Wrote artifact", "file", file.String())

	return file, nil
}
