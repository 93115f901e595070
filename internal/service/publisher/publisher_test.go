package publisher

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/udunits2-publisher/internal/credentials"
	"github.com/oshokin/udunits2-publisher/internal/repository/nexus"
)

var (
	testCreds = credentials.Credentials{Username: "deployer", Password: "hunter2"}
	errBoom   = errors.New("boom")
)

// recordingRepository keeps every call in order and can fail a chosen one.
type recordingRepository struct {
	calls      []string
	uploaded   map[string][]string
	components []nexus.Component
	failOn     string
}

func newRecordingRepository(components ...nexus.Component) *recordingRepository {
	return &recordingRepository{
		uploaded:   make(map[string][]string),
		components: components,
	}
}

func (r *recordingRepository) record(call string) error {
	r.calls = append(r.calls, call)

	if call == r.failOn {
		return errBoom
	}

	return nil
}

func (r *recordingRepository) Upload(_ context.Context, directory string, assets []nexus.Asset, creds credentials.Credentials) error {
	if creds != testCreds {
		return errors.New("bad credentials")
	}

	for _, asset := range assets {
		data, err := io.ReadAll(asset.Content)
		if err != nil {
			return err
		}

		r.uploaded[directory] = append(r.uploaded[directory], asset.Filename+"="+string(data))
	}

	return r.record("upload " + directory)
}

func (r *recordingRepository) Search(_ context.Context, group string) ([]nexus.Component, error) {
	if err := r.record("search " + group); err != nil {
		return nil, err
	}

	return r.components, nil
}

func (r *recordingRepository) Delete(_ context.Context, id string, _ credentials.Credentials) error {
	return r.record("delete " + id)
}

func testFiles() []nexus.Asset {
	return []nexus.Asset{
		{Filename: "udunits2_combined.xml", Content: strings.NewReader("<udunits-2/>")},
		{Filename: "UDUNITS-2_COPYRIGHT", Content: strings.NewReader("Copyright")},
	}
}

// TestPublish_Sequence uploads versioned, clears current in order, then uploads current.
func TestPublish_Sequence(t *testing.T) {
	t.Parallel()

	repo := newRecordingRepository(
		nexus.Component{ID: "c1", Name: "udunits2/current/udunits2_combined.xml"},
		nexus.Component{Name: "no id"},
		nexus.Component{ID: "c2", Name: "udunits2/current/UDUNITS-2_COPYRIGHT"},
	)

	err := New(repo, "/udunits2").Publish(context.Background(), "v2.2.28", testFiles(), testCreds)
	require.NoError(t, err)

	require.Equal(t, []string{
		"upload /udunits2/2.2.28/",
		"search /udunits2/current",
		"delete c1",
		"delete c2",
		"upload /udunits2/current/",
	}, repo.calls)

	want := []string{"udunits2_combined.xml=<udunits-2/>", "UDUNITS-2_COPYRIGHT=Copyright"}
	require.Equal(t, want, repo.uploaded["/udunits2/2.2.28/"])
	// Rewound before the second upload.
	require.Equal(t, want, repo.uploaded["/udunits2/current/"])
}

// TestPublish_EmptyCurrent skips deletes when nothing is published yet.
func TestPublish_EmptyCurrent(t *testing.T) {
	t.Parallel()

	repo := newRecordingRepository()

	err := New(repo, "/udunits2").Publish(context.Background(), "2.2.28", testFiles(), testCreds)
	require.NoError(t, err)
	require.Equal(t, []string{
		"upload /udunits2/2.2.28/",
		"search /udunits2/current",
		"upload /udunits2/current/",
	}, repo.calls)
}

// TestPublish_StopsOnFailure aborts at the first failing call.
func TestPublish_StopsOnFailure(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"upload /udunits2/2.2.28/": {"upload /udunits2/2.2.28/"},
		"search /udunits2/current": {"upload /udunits2/2.2.28/", "search /udunits2/current"},
		"delete c1":                {"upload /udunits2/2.2.28/", "search /udunits2/current", "delete c1"},
		"upload /udunits2/current/": {
			"upload /udunits2/2.2.28/", "search /udunits2/current", "delete c1", "delete c2", "upload /udunits2/current/",
		},
	}

	for failOn, wantCalls := range cases {
		repo := newRecordingRepository(nexus.Component{ID: "c1"}, nexus.Component{ID: "c2"})
		repo.failOn = failOn

		err := New(repo, "/udunits2").Publish(context.Background(), "v2.2.28", testFiles(), testCreds)
		require.ErrorIs(t, err, errBoom, failOn)
		require.Equal(t, wantCalls, repo.calls, failOn)
	}
}

// TestPublish_NoFiles refuses to publish nothing.
func TestPublish_NoFiles(t *testing.T) {
	t.Parallel()

	repo := newRecordingRepository()

	err := New(repo, "/udunits2").Publish(context.Background(), "v2.2.28", nil, testCreds)
	require.Error(t, err)
	require.Empty(t, repo.calls)
}
