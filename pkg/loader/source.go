package loader

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SourceKind enumerates the supported document origins.
type SourceKind int

const (
	SourceKindFile SourceKind = iota + 1
	SourceKindFS
	SourceKindURL
)

// Source identifies where a FHIR document lives. Construct values with the
// From* helpers.
type Source struct {
	kind     SourceKind
	location string
}

// Kind reports the source strategy.
func (s Source) Kind() SourceKind { return s.kind }

// Location returns the path, fs name, or URL the source points at.
func (s Source) Location() string { return s.location }

// FromFile returns a Source pointing to a file path on disk.
func FromFile(path string) Source {
	return Source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// FromFS returns a Source identifying a name inside the loader's fs.FS.
func FromFS(name string) Source {
	return Source{kind: SourceKindFS, location: name}
}

// FromURL parses the supplied URL string and returns a Source. It panics on
// an invalid URL to surface configuration mistakes early.
func FromURL(raw string) Source {
	if raw == "" {
		panic("loader: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		panic(fmt.Sprintf("loader: invalid URL %q: %v", raw, err))
	}
	return Source{kind: SourceKindURL, location: raw}
}

// sourceForRef maps a reference string to a source: URLs go over HTTP, and
// everything else resolves against the configured fs.FS when present, the
// operating system otherwise.
func (l *Loader) sourceForRef(ref string) Source {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return Source{kind: SourceKindURL, location: ref}
	}
	if l.fs != nil {
		return FromFS(ref)
	}
	return FromFile(ref)
}
