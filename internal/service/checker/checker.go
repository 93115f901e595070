package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
	"github.com/oshokin/udunits2-publisher/internal/fetch"
	"github.com/oshokin/udunits2-publisher/internal/logger"
	"github.com/oshokin/udunits2-publisher/internal/repository/nexus"
	"github.com/oshokin/udunits2-publisher/internal/xmldoc"
)

// versionSegment is the position of the release tag in a namespace URL split on "/":
// https://raw.githubusercontent.com/Unidata/UDUNITS-2/<tag>/lib/udunits2-accepted.xml
const versionSegment = 5

// Downloader fetches assets of the raw repository.
type Downloader interface {
	DownloadAsset(ctx context.Context, name string) ([]byte, error)
}

// Checker compares the published version with upstream.
type Checker struct {
	repo         Downloader
	rawDirectory string
}

// New creates a Checker reading the current copy under rawDirectory.
func New(repo Downloader, rawDirectory string) *Checker {
	return &Checker{
		repo:         repo,
		rawDirectory: rawDirectory,
	}
}

// PublishedVersion returns the release the current combined document was built
// from. found is false when no current copy exists.
func (c *Checker) PublishedVersion(ctx context.Context) (version udunits.Version, found bool, err error) {
	name := nexus.CurrentAssetName(c.rawDirectory, udunits.CombinedFilename)

	logger.DebugKV(ctx, "Fetching current combined document", "name", name)

	data, err := c.repo.DownloadAsset(ctx, name)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return "", false, nil
		}

		return "", false, err
	}

	doc, err := xmldoc.Parse(data)
	if err != nil {
		return "", false, fmt.Errorf("current combined document: %w", err)
	}

	namespaces := xmldoc.Namespaces(doc)

	accepted, ok := namespaces.Get(udunits.AcceptedPrefix)
	if !ok {
		return "", false, fmt.Errorf("current combined document has no %q namespace: %w",
			udunits.AcceptedPrefix, udunits.ErrStructural)
	}

	version, err = VersionFromNamespace(accepted)
	if err != nil {
		return "", false, err
	}

	logger.InfoKV(ctx, "UDUNITS-2 release used to build current nexus version", "version", version)

	return version, true, nil
}

// Status is the outcome of comparing the published release with upstream.
type Status struct {
	// Latest is the newest upstream release.
	Latest udunits.Version
	// Published is the release of the current copy, empty when Found is false.
	Published udunits.Version
	// Found reports whether a current copy exists.
	Found bool
	// UpdateNeeded is true when nothing is published or the releases differ.
	UpdateNeeded bool
}

// Compare fetches the published release and compares it with latest.
func (c *Checker) Compare(ctx context.Context, latest udunits.Version) (*Status, error) {
	published, found, err := c.PublishedVersion(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Latest:    latest,
		Published: published,
		Found:     found,
	}

	switch {
	case !found:
		logger.Info(ctx, "Current combined document not found in nexus, update required")

		status.UpdateNeeded = true
	case published == latest:
		logger.InfoKV(ctx, "Nexus is up to date", "version", latest)
	default:
		logger.InfoKV(ctx, "Nexus is stale", "published", published, "latest", latest)

		status.UpdateNeeded = true
	}

	return status, nil
}

// ShouldUpdate reports whether latest differs from the published release.
// A missing current copy always needs an update.
func (c *Checker) ShouldUpdate(ctx context.Context, latest udunits.Version) (bool, error) {
	status, err := c.Compare(ctx, latest)
	if err != nil {
		return false, err
	}

	return status.UpdateNeeded, nil
}

// VersionFromNamespace extracts the release tag from the namespace URL of a
// system document.
func VersionFromNamespace(namespaceURL string) (udunits.Version, error) {
	segments := strings.Split(namespaceURL, "/")
	if len(segments) <= versionSegment {
		return "", fmt.Errorf("namespace URL %q is too short: %w", namespaceURL, udunits.ErrStructural)
	}

	version := udunits.Version(segments[versionSegment])
	if !version.LooksValid() {
		return "", fmt.Errorf("version %q from namespace URL %q: %w", version, namespaceURL, udunits.ErrValidation)
	}

	return version, nil
}
