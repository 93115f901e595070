package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
	"github.com/oshokin/udunits2-publisher/internal/fetch"
	"github.com/oshokin/udunits2-publisher/internal/logger"
	"github.com/oshokin/udunits2-publisher/internal/xmldoc"
)

const (
	copyrightPath = "COPYRIGHT"
	libraryPath   = "lib/"
)

// Client fetches release information and documents from the source repository.
type Client struct {
	// http performs the requests.
	http *fetch.Client
	// feedURL is the Atom release feed.
	feedURL string
	// baseURL is the raw content root; "<tag>/..." is resolved against it.
	baseURL *url.URL
}

// New creates a Client. baseURL must end with a slash.
func New(httpClient *fetch.Client, feedURL, baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source base URL: %w", err)
	}

	return &Client{
		http:    httpClient,
		feedURL: feedURL,
		baseURL: base,
	}, nil
}

// LatestRelease returns the title of the first entry of the release feed.
func (c *Client) LatestRelease(ctx context.Context) (udunits.Version, error) {
	data, err := c.http.Get(ctx, c.feedURL)
	if err != nil {
		return "", fmt.Errorf("fetch release feed: %w", err)
	}

	doc, err := xmldoc.Parse(data)
	if err != nil {
		return "", fmt.Errorf("release feed: %w", err)
	}

	feed, err := xmldoc.Root(doc)
	if err != nil {
		return "", fmt.Errorf("release feed: %w", err)
	}

	entry, err := xmldoc.FirstChildElement(feed, "entry")
	if err != nil {
		return "", fmt.Errorf("release feed: %w", err)
	}

	title, err := xmldoc.FirstChildElement(entry, "title")
	if err != nil {
		return "", fmt.Errorf("release feed: %w", err)
	}

	version := udunits.Version(strings.TrimSpace(title.InnerText()))
	if version == "" {
		return "", fmt.Errorf("release feed: empty entry title: %w", udunits.ErrStructural)
	}

	logger.InfoKV(ctx, "Most recent UDUNITS-2 release", "version", version)

	return version, nil
}

// Copyright downloads the COPYRIGHT file of the release.
func (c *Client) Copyright(ctx context.Context, version udunits.Version) ([]byte, error) {
	data, err := c.http.Get(ctx, c.resolve(version, copyrightPath))
	if err != nil {
		return nil, fmt.Errorf("fetch copyright: %w", err)
	}

	return data, nil
}

// DocumentURL is the location of a lib/ document of the release.
func (c *Client) DocumentURL(version udunits.Version, filename string) string {
	return c.resolve(version, libraryPath+filename)
}

// Document downloads a lib/ document of the release.
func (c *Client) Document(ctx context.Context, version udunits.Version, filename string) ([]byte, error) {
	data, err := c.http.Get(ctx, c.DocumentURL(version, filename))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", filename, err)
	}

	return data, nil
}

func (c *Client) resolve(version udunits.Version, rel string) string {
	ref := &url.URL{Path: version.String() + "/" + rel}

	return c.baseURL.ResolveReference(ref).String()
}
