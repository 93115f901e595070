package merge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
	"github.com/oshokin/udunits2-publisher/internal/logger"
	"github.com/oshokin/udunits2-publisher/internal/xmldoc"
)

const (
	combinedRootName    = "udunits-2"
	combinedWrapperName = "unit-system"
	importElement       = "import"
	unitElement         = "unit"
	prefixElement       = "prefix"
)

// Source provides the documents of a release.
type Source interface {
	// Copyright returns the COPYRIGHT file of the release.
	Copyright(ctx context.Context, version udunits.Version) ([]byte, error)
	// DocumentURL is the location of a lib/ document; it becomes the namespace URL.
	DocumentURL(version udunits.Version, filename string) string
	// Document returns a lib/ document.
	Document(ctx context.Context, version udunits.Version, filename string) ([]byte, error)
}

// Result is the output of a merge, ready to be written and published.
type Result struct {
	// Version is the release the documents were taken from.
	Version udunits.Version
	// Combined is the serialized combined document.
	Combined []byte
	// Copyright is the COPYRIGHT file of the release, unchanged.
	Copyright []byte
	// Namespaces lists the declarations on the combined root, u2 first.
	Namespaces *udunits.Namespaces
	// Entries is the number of relabeled top-level elements.
	Entries int
}

// Merger builds combined documents from a Source.
type Merger struct {
	source      Source
	docsBaseURL string
	now         func() time.Time
}

// Option configures a Merger.
type Option func(*Merger)

// WithClock overrides the time source used for the copyright year.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Merger. docsBaseURL is referenced by the copyright comment.
func New(source Source, docsBaseURL string, opts ...Option) *Merger {
	m := &Merger{
		source:      source,
		docsBaseURL: docsBaseURL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Merge downloads the manifest and system documents of version and combines them.
func (m *Merger) Merge(ctx context.Context, version udunits.Version) (*Result, error) {
	copyright, err := m.source.Copyright(ctx, version)
	if err != nil {
		return nil, err
	}

	systems, err := m.manifest(ctx, version)
	if err != nil {
		return nil, err
	}

	var (
		namespaces udunits.Namespaces
		all        []*xmlquery.Node
	)

	namespaces.Set(udunits.RootPrefix, udunits.RootNamespace)

	for _, filename := range systems {
		elements, prefix, err := m.system(ctx, version, filename)
		if err != nil {
			return nil, err
		}

		namespaces.Set(prefix, m.source.DocumentURL(version, filename))
		all = append(all, elements...)
	}

	logger.Info(ctx, "Construct combined xml document")

	comment := CopyrightText(m.now().Year(), version, m.docsBaseURL)
	root := Build(&namespaces, comment, all)

	var buf bytes.Buffer
	if err = xmldoc.Encode(&buf, root); err != nil {
		return nil, fmt.Errorf("encode combined document: %w", err)
	}

	logger.InfoKV(ctx, "Combined entries", "total", len(all), "namespaces", namespaces.Len())

	return &Result{
		Version:    version,
		Combined:   buf.Bytes(),
		Copyright:  copyright,
		Namespaces: &namespaces,
		Entries:    len(all),
	}, nil
}

// manifest returns the system document filenames listed by the registry.
func (m *Merger) manifest(ctx context.Context, version udunits.Version) ([]string, error) {
	data, err := m.source.Document(ctx, version, udunits.ManifestFilename)
	if err != nil {
		return nil, err
	}

	root, err := parseRoot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", udunits.ManifestFilename, err)
	}

	imports, err := xmldoc.ChildElements(root, importElement)
	if err != nil {
		return nil, err
	}

	if len(imports) == 0 {
		return nil, fmt.Errorf("%s has no <%s> elements: %w", udunits.ManifestFilename, importElement, udunits.ErrStructural)
	}

	filenames := make([]string, 0, len(imports))
	for _, element := range imports {
		filenames = append(filenames, strings.TrimSpace(element.InnerText()))
	}

	return filenames, nil
}

// system downloads one system document and returns its relabeled elements.
func (m *Merger) system(ctx context.Context, version udunits.Version, filename string) ([]*xmlquery.Node, string, error) {
	logger.InfoKV(ctx, "Processing system document", "file", filename)

	prefix, err := udunits.PrefixFor(filename)
	if err != nil {
		return nil, "", err
	}

	data, err := m.source.Document(ctx, version, filename)
	if err != nil {
		return nil, "", err
	}

	root, err := parseRoot(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", filename, err)
	}

	elements, kind, err := SystemElements(root)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", filename, err)
	}

	logger.DebugKV(ctx, "Adding namespace prefix", "file", filename, "element", kind, "count", len(elements), "prefix", prefix)

	relabeled := Relabel(elements, prefix)

	logger.InfoKV(ctx, "Processed entries", "file", filename, "count", len(relabeled))

	return relabeled, prefix, nil
}

// SystemElements returns the <unit> children of root or, when there are none,
// its <prefix> children, together with the element name found.
func SystemElements(root *xmlquery.Node) ([]*xmlquery.Node, string, error) {
	for _, name := range []string{unitElement, prefixElement} {
		elements, err := xmldoc.ChildElements(root, name)
		if err != nil {
			return nil, "", err
		}

		if len(elements) > 0 {
			return elements, name, nil
		}
	}

	return nil, "", fmt.Errorf("no <%s> or <%s> elements found: %w", prefixElement, unitElement, udunits.ErrStructural)
}

// Relabel returns detached copies of elements with every tag, descendants
// included, placed under prefix.
func Relabel(elements []*xmlquery.Node, prefix string) []*xmlquery.Node {
	relabeled := make([]*xmlquery.Node, 0, len(elements))
	for _, element := range elements {
		relabeled = append(relabeled, xmldoc.Copy(element, prefix))
	}

	return relabeled
}

// Build assembles the combined tree. It copies elements, so the returned tree
// shares no nodes with its input.
func Build(namespaces *udunits.Namespaces, comment string, elements []*xmlquery.Node) *xmlquery.Node {
	root := xmldoc.NewElement("", combinedRootName)
	for _, ns := range namespaces.All() {
		xmlquery.AddAttr(root, "xmlns:"+ns.Prefix, ns.URL)
	}

	xmlquery.AddChild(root, xmldoc.NewComment(comment))

	wrapper := xmldoc.NewElement(udunits.RootPrefix, combinedWrapperName)
	for _, element := range elements {
		xmlquery.AddChild(wrapper, xmldoc.Copy(element, ""))
		xmlquery.AddChild(wrapper, xmldoc.NewText("\n"))
	}

	xmlquery.AddChild(root, wrapper)

	return root
}

// CopyrightText is the comment placed at the top of the combined document.
func CopyrightText(year int, version udunits.Version, docsBaseURL string) string {
	return fmt.Sprintf("Copyright %d University Corporation for Atmospheric Research\n\n"+
		"This file is derived from the UDUNITS-2 package.  See the %s\n"+
		"%s%s/%s for copying and\n"+
		"redistribution conditions.\n",
		year, udunits.CopyrightFilename, docsBaseURL, version.Number(), udunits.CopyrightFilename)
}

func parseRoot(data []byte) (*xmlquery.Node, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, err
	}

	return xmldoc.Root(doc)
}
