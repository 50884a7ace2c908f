// Package sources defines the ingestable source kinds and classifies
// submission URLs against them.
package sources

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// Source kind name constants
const (
	KindYouTube = "youtube"
	KindAudio   = "audio"
)

// SourceKind describes one ingestable source type.
type SourceKind struct {
	Name        string
	Description string
	Matches     func(u *url.URL) bool
}

// Registry holds the known source kinds, indexed by name.
type Registry struct {
	kinds map[string]*SourceKind
	order []string
}

// NewRegistry creates a registry pre-populated with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]*SourceKind)}

	r.register(&SourceKind{
		Name:        KindYouTube,
		Description: "YouTube video or podcast episode",
		Matches: func(u *url.URL) bool {
			host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
		},
	})
	r.register(&SourceKind{
		Name:        KindAudio,
		Description: "Direct audio file URL",
		Matches: func(u *url.URL) bool {
			switch strings.ToLower(path.Ext(u.Path)) {
			case ".mp3", ".m4a", ".wav", ".ogg", ".flac", ".aac":
				return true
			}
			return false
		},
	})

	return r
}

func (r *Registry) register(kind *SourceKind) {
	r.kinds[kind.Name] = kind
	r.order = append(r.order, kind.Name)
}

// Get retrieves a source kind by name.
func (r *Registry) Get(name string) (*SourceKind, bool) {
	kind, ok := r.kinds[name]
	return kind, ok
}

// List returns all source kinds sorted by name for deterministic ordering.
func (r *Registry) List() []*SourceKind {
	kinds := make([]*SourceKind, 0, len(r.kinds))
	for _, k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Name < kinds[j].Name
	})
	return kinds
}

// Count returns the number of registered source kinds.
func (r *Registry) Count() int {
	return len(r.kinds)
}

// Classify validates a submission URL and returns the matching kind name.
// An explicit kind, when given, must match the URL's shape.
func (r *Registry) Classify(rawURL, explicitKind string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid submission URL: %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	if explicitKind != "" {
		kind, ok := r.kinds[explicitKind]
		if !ok {
			return "", fmt.Errorf("unknown source kind: %q", explicitKind)
		}
		if !kind.Matches(u) {
			return "", fmt.Errorf("URL does not look like a %s source: %q", explicitKind, rawURL)
		}
		return kind.Name, nil
	}

	for _, name := range r.order {
		if r.kinds[name].Matches(u) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no source kind matches URL: %q", rawURL)
}
