package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/fluxcd/pkg/masktoken"

	"github.com/oshokin/udunits2-publisher/internal/credentials"
	"github.com/oshokin/udunits2-publisher/internal/fetch"
	"github.com/oshokin/udunits2-publisher/internal/logger"
)

const (
	componentsPath = "service/rest/v1/components"
	searchPath     = "service/rest/v1/search"
	downloadPath   = "service/rest/v1/search/assets/download"

	currentDirectory = "current"

	// maxSearchPages bounds pagination in case the server keeps returning tokens.
	maxSearchPages = 1000
)

var (
	// errNoAssets is returned when Upload is called without files.
	errNoAssets = errors.New("no assets to upload")
	// errTooManyPages is returned when search pagination does not terminate.
	errTooManyPages = errors.New("too many search result pages")
)

// Repository defines the remote operations used to check and publish documents.
type Repository interface {
	// DownloadAsset returns the content of the asset with the given name.
	// A missing asset yields fetch.ErrNotFound.
	DownloadAsset(ctx context.Context, name string) ([]byte, error)
	// Upload stores assets as one component under directory.
	Upload(ctx context.Context, directory string, assets []Asset, creds credentials.Credentials) error
	// Search lists every component in group.
	Search(ctx context.Context, group string) ([]Component, error)
	// Delete removes a component by id.
	Delete(ctx context.Context, id string, creds credentials.Credentials) error
}

// Asset is one file of an uploaded component. Content is read from its
// current offset.
type Asset struct {
	Filename string
	Content  io.ReadSeeker
}

// Component is a search result entry.
type Component struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	Group      string `json:"group"`
	Name       string `json:"name"`
}

// searchPage is one page of the search API response.
type searchPage struct {
	Items             []Component `json:"items"`
	ContinuationToken string      `json:"continuationToken"`
}

// Client implements Repository over HTTP.
type Client struct {
	// http performs the requests.
	http *fetch.Client
	// baseURL is the server root; API paths are resolved against it.
	baseURL *url.URL
	// repository is the raw repository name sent with every call.
	repository string
}

// New creates a Client for repository on the server at nexusURL.
func New(httpClient *fetch.Client, nexusURL, repository string) (*Client, error) {
	base, err := url.Parse(nexusURL)
	if err != nil {
		return nil, fmt.Errorf("parse nexus URL: %w", err)
	}

	return &Client{
		http:       httpClient,
		baseURL:    base,
		repository: repository,
	}, nil
}

// VersionDirectory is the upload directory of a release, for example "/udunits2/2.2.28/".
func VersionDirectory(rawDirectory, number string) string {
	return strings.TrimSuffix(rawDirectory, "/") + "/" + number + "/"
}

// CurrentDirectory is the upload directory of the current copy.
func CurrentDirectory(rawDirectory string) string {
	return VersionDirectory(rawDirectory, currentDirectory)
}

// CurrentGroup is the search group of the current copy, without the trailing slash.
func CurrentGroup(rawDirectory string) string {
	return strings.TrimSuffix(CurrentDirectory(rawDirectory), "/")
}

// CurrentAssetName is the asset name of filename in the current copy,
// for example "udunits2/current/udunits2_combined.xml".
func CurrentAssetName(rawDirectory, filename string) string {
	return strings.TrimPrefix(CurrentDirectory(rawDirectory), "/") + filename
}

// DownloadAsset uses the search-and-download API, which answers 404 when
// nothing matches.
func (c *Client) DownloadAsset(ctx context.Context, name string) ([]byte, error) {
	logger.DebugKV(ctx, "Downloading asset", "repository", c.repository, "name", name)

	data, err := c.http.Send(ctx, &fetch.Request{
		URL: c.resolve(downloadPath),
		Query: url.Values{
			"repository": {c.repository},
			"name":       {name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("download asset %s: %w", name, err)
	}

	return data, nil
}

// Upload posts assets as raw.assetN form parts.
func (c *Client) Upload(ctx context.Context, directory string, assets []Asset, creds credentials.Credentials) error {
	if len(assets) == 0 {
		return errNoAssets
	}

	body, contentType, err := uploadForm(directory, assets)
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}

	logger.DebugKV(ctx, "Uploading component", "directory", directory, "assets", len(assets), "size", len(body))

	_, err = c.http.Send(ctx, &fetch.Request{
		Method:      http.MethodPost,
		URL:         c.resolve(componentsPath),
		Query:       url.Values{"repository": {c.repository}},
		Body:        body,
		ContentType: contentType,
		Username:    creds.Username,
		Password:    creds.Password,
	})
	if err != nil {
		return mask(fmt.Errorf("upload to %s: %w", directory, err), creds.Password)
	}

	return nil
}

// Search follows continuation tokens until the last page.
func (c *Client) Search(ctx context.Context, group string) ([]Component, error) {
	var (
		components []Component
		token      string
	)

	for page := 0; page < maxSearchPages; page++ {
		query := url.Values{
			"repository": {c.repository},
			"group":      {group},
		}

		if token != "" {
			query.Set("continuationToken", token)
		}

		data, err := c.http.Send(ctx, &fetch.Request{
			URL:   c.resolve(searchPath),
			Query: query,
		})
		if err != nil {
			return nil, fmt.Errorf("search group %s: %w", group, err)
		}

		var result searchPage
		if err = json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}

		components = append(components, result.Items...)

		logger.DebugKV(ctx, "Search page", "group", group, "page", page, "items", len(result.Items))

		if result.ContinuationToken == "" {
			return components, nil
		}

		token = result.ContinuationToken
	}

	return nil, fmt.Errorf("search group %s: %w", group, errTooManyPages)
}

// Delete removes the component with id.
func (c *Client) Delete(ctx context.Context, id string, creds credentials.Credentials) error {
	_, err := c.http.Send(ctx, &fetch.Request{
		Method:   http.MethodDelete,
		URL:      c.resolve(componentsPath + "/" + id),
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return mask(fmt.Errorf("delete component %s: %w", id, err), creds.Password)
	}

	return nil
}

func (c *Client) resolve(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// uploadForm encodes the fields of a raw component upload.
func uploadForm(directory string, assets []Asset) ([]byte, string, error) {
	var (
		buf    bytes.Buffer
		writer = multipart.NewWriter(&buf)
	)

	if err := writer.WriteField("raw.directory", directory); err != nil {
		return nil, "", err
	}

	for i, asset := range assets {
		field := fmt.Sprintf("raw.asset%d", i+1)

		part, err := writer.CreateFormFile(field, asset.Filename)
		if err != nil {
			return nil, "", err
		}

		if _, err = io.Copy(part, asset.Content); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", asset.Filename, err)
		}

		if err = writer.WriteField(field+".filename", asset.Filename); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// maskedError keeps the chain of err while hiding a secret from its message.
type maskedError struct {
	message string
	err     error
}

func (e *maskedError) Error() string {
	return e.message
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func mask(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}

	message, maskErr := masktoken.MaskTokenFromString(err.Error(), secret)
	if maskErr != nil {
		message = "request failed, details withheld"
	}

	return &maskedError{message: message, err: err}
}
