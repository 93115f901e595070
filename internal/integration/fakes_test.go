package integration

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/udunits2-publisher/internal/config"
	"github.com/oshokin/udunits2-publisher/internal/credentials"
)

const (
	nexusUsername = "deployer"
	nexusPassword = "hunter2"
	testRelease   = "v2.2.28"
)

const releaseFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/" xml:lang="en-US">
  <id>tag:github.com,2008:https://github.com/Unidata/UDUNITS-2/releases</id>
  <title>Release notes from UDUNITS-2</title>
  <updated>2020-08-24T19:36:33Z</updated>
  <entry>
    <id>tag:github.com,2008:Repository/21766306/v2.2.28</id>
    <updated>2020-08-24T19:36:33Z</updated>
    <title>v2.2.28</title>
  </entry>
  <entry>
    <id>tag:github.com,2008:Repository/21766306/v2.2.27.6</id>
    <title>v2.2.27.6</title>
  </entry>
</feed>`

var releaseDocuments = map[string]string{
	"COPYRIGHT": "Copyright 2008-2020 University Corporation for Atmospheric Research\n",
	"lib/udunits2.xml": `<?xml version="1.0" encoding="US-ASCII"?>
<unit-system>
  <import>udunits2-prefixes.xml</import>
  <import>udunits2-base.xml</import>
  <import>udunits2-accepted.xml</import>
</unit-system>`,
	"lib/udunits2-prefixes.xml": `<?xml version="1.0" encoding="US-ASCII"?>
<unit-system>
  <prefix><value>1e3</value><name>kilo</name><symbol>k</symbol></prefix>
  <prefix><value>1e-3</value><name>milli</name><symbol>m</symbol></prefix>
</unit-system>`,
	"lib/udunits2-base.xml": `<?xml version="1.0" encoding="US-ASCII"?>
<unit-system>
  <!-- SI base units -->
  <unit><base/><name><singular>meter</singular></name><symbol>m</symbol></unit>
  <unit><base/><name><singular>second</singular></name><symbol>s</symbol></unit>
</unit-system>`,
	"lib/udunits2-accepted.xml": `<?xml version="1.0" encoding="US-ASCII"?>
<unit-system>
  <unit><def>60 s</def><name><singular>minute</singular></name><symbol>min</symbol></unit>
</unit-system>`,
}

// newGitHub serves the release feed and the raw files of testRelease.
func newGitHub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/Unidata/UDUNITS-2/releases.atom", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(releaseFeed))
	})

	for name, body := range releaseDocuments {
		mux.HandleFunc("/Unidata/UDUNITS-2/"+testRelease+"/"+name, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// storedComponent is one uploaded component of the fake Nexus.
type storedComponent struct {
	id        string
	directory string
	assets    map[string][]byte
}

// fakeNexus keeps raw components in memory and records every call.
type fakeNexus struct {
	mu         sync.Mutex
	nextID     int
	components map[string]*storedComponent
	calls      []string
}

func newFakeNexus(t *testing.T) (*fakeNexus, *httptest.Server) {
	t.Helper()

	n := &fakeNexus{components: make(map[string]*storedComponent)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /service/rest/v1/search/assets/download", n.download)
	mux.HandleFunc("GET /service/rest/v1/search", n.search)
	mux.HandleFunc("POST /service/rest/v1/components", n.upload)
	mux.HandleFunc("DELETE /service/rest/v1/components/{id}", n.delete)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return n, ts
}

// seed stores a component as if it had been uploaded earlier.
func (n *fakeNexus) seed(directory string, assets map[string][]byte) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.store(directory, assets)
}

func (n *fakeNexus) store(directory string, assets map[string][]byte) string {
	n.nextID++
	id := "component-" + strconv.Itoa(n.nextID)
	n.components[id] = &storedComponent{id: id, directory: directory, assets: assets}

	return id
}

func (n *fakeNexus) record(r *http.Request) {
	n.calls = append(n.calls, r.Method+" "+r.URL.Path)
}

// Calls returns the recorded requests.
func (n *fakeNexus) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.calls...)
}

// Asset returns the content of filename under directory.
func (n *fakeNexus) Asset(directory, filename string) ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, component := range n.components {
		if component.directory != directory {
			continue
		}

		if data, ok := component.assets[filename]; ok {
			return data, true
		}
	}

	return nil, false
}

// Components returns the sorted ids of components stored under directory.
func (n *fakeNexus) Components(directory string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var ids []string

	for id, component := range n.components {
		if component.directory == directory {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

// authorized answers 401 unless r carries the test account. Like some Nexus
// realms, the rejection echoes the submitted credentials.
func (n *fakeNexus) authorized(w http.ResponseWriter, r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if ok && user == nexusUsername && pass == nexusPassword {
		return true
	}

	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, "Login failed for %s with password %s", user, pass)

	return false
}

func (n *fakeNexus) download(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(r)

	name := "/" + r.URL.Query().Get("name")

	for _, component := range n.components {
		for filename, data := range component.assets {
			if component.directory+filename == name {
				_, _ = w.Write(data)
				return
			}
		}
	}

	w.WriteHeader(http.StatusNotFound)
}

// search returns one component per page to exercise continuation tokens.
func (n *fakeNexus) search(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(r)

	group := r.URL.Query().Get("group")

	var ids []string

	for id, component := range n.components {
		if strings.TrimSuffix(component.directory, "/") == group {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	offset, _ := strconv.Atoi(r.URL.Query().Get("continuationToken"))
	if offset >= len(ids) {
		_, _ = w.Write([]byte(`{"items":[],"continuationToken":null}`))
		return
	}

	token := "null"
	if offset+1 < len(ids) {
		token = strconv.Quote(strconv.Itoa(offset + 1))
	}

	_, _ = fmt.Fprintf(w, `{"items":[{"id":%q,"repository":"udunits-2-docs","group":%q,"name":"asset"}],"continuationToken":%s}`,
		ids[offset], group, token)
}

func (n *fakeNexus) upload(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(r)

	if !n.authorized(w, r) {
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	assets := make(map[string][]byte)

	for i := 1; ; i++ {
		field := "raw.asset" + strconv.Itoa(i)

		file, _, err := r.FormFile(field)
		if err != nil {
			break
		}

		data, _ := io.ReadAll(file)
		_ = file.Close()

		assets[r.FormValue(field+".filename")] = data
	}

	n.store(r.FormValue("raw.directory"), assets)

	w.WriteHeader(http.StatusNoContent)
}

func (n *fakeNexus) delete(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(r)

	if !n.authorized(w, r) {
		return
	}

	id := r.PathValue("id")
	if _, ok := n.components[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	delete(n.components, id)

	w.WriteHeader(http.StatusNoContent)
}

// writeConfig saves settings pointing at the fake servers.
func writeConfig(t *testing.T, github, nexus *httptest.Server, outputDir string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	require.NoError(t, config.Save(path, &config.Config{
		ReleaseFeedURL: github.URL + "/Unidata/UDUNITS-2/releases.atom",
		SourceBaseURL:  github.URL + "/Unidata/UDUNITS-2/",
		DocsBaseURL:    "https://docs.example.com/udunits2/",
		NexusURL:       nexus.URL + "/",
		Repository:     "udunits-2-docs",
		RawDirectory:   "/udunits2",
		OutputDir:      outputDir,
		LogLevel:       "debug",
		Timeout:        5 * time.Second,
	}))

	return path
}

// envCredentials returns a provider that finds the test account.
func envCredentials() credentials.Provider {
	values := map[string]string{
		config.DefaultUsernameEnv: nexusUsername,
		config.DefaultPasswordEnv: nexusPassword,
	}

	return &credentials.Env{
		UsernameVar: config.DefaultUsernameEnv,
		PasswordVar: config.DefaultPasswordEnv,
		Lookup: func(key string) (string, bool) {
			value, ok := values[key]
			return value, ok
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
}
