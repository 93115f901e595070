package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/udunits2-publisher/internal/credentials"
	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
	"github.com/oshokin/udunits2-publisher/internal/logger"
	"github.com/oshokin/udunits2-publisher/internal/repository/nexus"
)

// errNoFiles is returned when Publish is called without files.
var errNoFiles = errors.New("nothing to publish")

// Repository is the part of the raw repository API used for publishing.
type Repository interface {
	Upload(ctx context.Context, directory string, assets []nexus.Asset, creds credentials.Credentials) error
	Search(ctx context.Context, group string) ([]nexus.Component, error)
	Delete(ctx context.Context, id string, creds credentials.Credentials) error
}

// Publisher stores releases under a raw directory.
type Publisher struct {
	repo         Repository
	rawDirectory string
}

// New creates a Publisher writing below rawDirectory, for example "/udunits2".
func New(repo Repository, rawDirectory string) *Publisher {
	return &Publisher{
		repo:         repo,
		rawDirectory: rawDirectory,
	}
}

// Publish uploads files to the versioned directory of version, empties the
// current directory and uploads the same files there. Any failure stops the
// sequence; nothing is rolled back.
func (p *Publisher) Publish(ctx context.Context, version udunits.Version, files []nexus.Asset, creds credentials.Credentials) error {
	if len(files) == 0 {
		return errNoFiles
	}

	versioned := nexus.VersionDirectory(p.rawDirectory, version.Number())

	logger.InfoKV(ctx, "Publish versioned files", "directory", versioned)

	if err := p.repo.Upload(ctx, versioned, files, creds); err != nil {
		return fmt.Errorf("publish versioned files: %w", err)
	}

	if err := p.clearCurrent(ctx, creds); err != nil {
		return err
	}

	// The first upload consumed the readers.
	for _, file := range files {
		if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind %s: %w", file.Filename, err)
		}
	}

	current := nexus.CurrentDirectory(p.rawDirectory)

	logger.InfoKV(ctx, "Update current files", "directory", current)

	if err := p.repo.Upload(ctx, current, files, creds); err != nil {
		return fmt.Errorf("publish current files: %w", err)
	}

	logger.InfoKV(ctx, "Published", "version", version)

	return nil
}

// clearCurrent deletes every component found in the current group.
func (p *Publisher) clearCurrent(ctx context.Context, creds credentials.Credentials) error {
	group := nexus.CurrentGroup(p.rawDirectory)

	components, err := p.repo.Search(ctx, group)
	if err != nil {
		return fmt.Errorf("list current files: %w", err)
	}

	if len(components) == 0 {
		return nil
	}

	logger.InfoKV(ctx, "Clean out current files", "count", len(components))

	for _, component := range components {
		if component.ID == "" {
			continue
		}

		if err = p.repo.Delete(ctx, component.ID, creds); err != nil {
			return fmt.Errorf("clean out current files: %w", err)
		}

		logger.DebugKV(ctx, "Removed", "name", component.Name)
	}

	return nil
}
