package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultVersionsAPI is the community-maintained list of Bedrock package identities
const DefaultVersionsAPI = "https://raw.githubusercontent.com/ddf8196/mc-w10-versiondb-auto-update/refs/heads/master/versions.json.min"

// ErrVersionNotFound is returned when a query matches no catalog entry
var ErrVersionNotFound = errors.New("version not found")

// VersionType is the numeric type tag of a catalog entry
type VersionType int

const (
	TypeRelease VersionType = 0
	TypeBeta    VersionType = 1
	TypePreview VersionType = 2
)

// String returns the human type label
func (t VersionType) String() string {
	switch t {
	case TypeRelease:
		return "Release"
	case TypeBeta:
		return "Beta"
	case TypePreview:
		return "Preview"
	default:
		return "Unknown"
	}
}

// ParseVersionType parses a type label such as "release", case-insensitively
func ParseVersionType(s string) (VersionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "release":
		return TypeRelease, nil
	case "beta":
		return TypeBeta, nil
	case "preview":
		return TypePreview, nil
	}
	return 0, fmt.Errorf("unknown version type %q (want release, beta or preview)", s)
}

// Version is one catalog entry
type Version struct {
	Name     string      `json:"name"`
	UUID     string      `json:"uuid"`
	Type     VersionType `json:"version_type"`
	TypeName string      `json:"type_name"`
}

// RequiresToken reports whether resolving the entry needs an MSA user token
func (v Version) RequiresToken() bool {
	return v.Type == TypeBeta
}

// Fetcher retrieves a document. *transport.Session implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// VersionList holds the catalog loaded from the versions API
type VersionList struct {
	api     string
	fetcher Fetcher
	logger  *zap.Logger

	mu       sync.RWMutex
	versions []Version
}

// NewVersionList creates an empty list bound to api, or DefaultVersionsAPI when api is empty
func NewVersionList(api string, fetcher Fetcher, logger *zap.Logger) *VersionList {
	if api == "" {
		api = DefaultVersionsAPI
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionList{api: api, fetcher: fetcher, logger: logger}
}

// API returns the URL the list is fetched from
func (vl *VersionList) API() string {
	return vl.api
}

// DownloadList fetches and replaces the catalog. The body is decoded as JSON
// whatever content type the server declares.
func (vl *VersionList) DownloadList(ctx context.Context) ([]Version, error) {
	body, err := vl.fetcher.Get(ctx, vl.api)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch version list: %w", err)
	}

	versions, err := ParseVersions(body)
	if err != nil {
		return nil, err
	}

	vl.logger.Debug("loaded version list", zap.String("api", vl.api), zap.Int("versions", len(versions)))
	vl.SetVersions(versions)
	return vl.Versions(), nil
}

// ParseVersions decodes a versions document: an array whose items are arrays
// of [name, uuid, type, ...]. Items with fewer than three elements are skipped.
func ParseVersions(data []byte) ([]Version, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode version list: %w", err)
	}

	versions := make([]Version, 0, len(items))
	for i, raw := range items {
		var fields []json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("version list item %d: %w", i, err)
		}
		if len(fields) < 3 {
			continue
		}

		var v Version
		if err := json.Unmarshal(fields[0], &v.Name); err != nil {
			return nil, fmt.Errorf("version list item %d name: %w", i, err)
		}
		if err := json.Unmarshal(fields[1], &v.UUID); err != nil {
			return nil, fmt.Errorf("version list item %d uuid: %w", i, err)
		}
		if err := json.Unmarshal(fields[2], &v.Type); err != nil {
			return nil, fmt.Errorf("version list item %d type: %w", i, err)
		}
		v.TypeName = v.Type.String()
		versions = append(versions, v)
	}
	return versions, nil
}

// SetVersions replaces the catalog, e.g. with entries loaded from a Store
func (vl *VersionList) SetVersions(versions []Version) {
	vl.mu.Lock()
	defer vl.mu.Unlock()
	vl.versions = slices.Clone(versions)
}

// Versions returns a copy of the catalog in document order
func (vl *VersionList) Versions() []Version {
	vl.mu.RLock()
	defer vl.mu.RUnlock()
	return slices.Clone(vl.versions)
}

// Len returns the number of entries
func (vl *VersionList) Len() int {
	vl.mu.RLock()
	defer vl.mu.RUnlock()
	return len(vl.versions)
}

// ByType returns the entries with the given type tag
func (vl *VersionList) ByType(t VersionType) []Version {
	return vl.filter(func(v Version) bool { return v.Type == t })
}

// Search returns the entries whose name contains query, ignoring case
func (vl *VersionList) Search(query string) []Version {
	needle := strings.ToLower(query)
	return vl.filter(func(v Version) bool { return strings.Contains(strings.ToLower(v.Name), needle) })
}

// ByUUID returns the first entry with the given identifier
func (vl *VersionList) ByUUID(id string) (Version, bool) {
	return vl.find(func(v Version) bool { return strings.EqualFold(v.UUID, id) })
}

// ByName returns the first entry with exactly the given name
func (vl *VersionList) ByName(name string) (Version, bool) {
	return vl.find(func(v Version) bool { return v.Name == name })
}

// Sorted returns the entries ordered by version number, newest first when reverse is set
func (vl *VersionList) Sorted(reverse bool) []Version {
	sorted := vl.Versions()
	slices.SortStableFunc(sorted, func(a, b Version) int {
		if reverse {
			return CompareVersions(b.Name, a.Name)
		}
		return CompareVersions(a.Name, b.Name)
	})
	return sorted
}

// Resolve looks up a locator: a UUID is matched by identifier, anything else by exact name
func (vl *VersionList) Resolve(query string) (Version, error) {
	q := ParseQuery(query)

	var (
		v  Version
		ok bool
	)
	switch q.Kind {
	case QueryByUUID:
		v, ok = vl.ByUUID(q.Value)
	case QueryByName:
		v, ok = vl.ByName(q.Value)
	}
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrVersionNotFound, query)
	}
	return v, nil
}

func (vl *VersionList) filter(keep func(Version) bool) []Version {
	vl.mu.RLock()
	defer vl.mu.RUnlock()

	var out []Version
	for _, v := range vl.versions {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (vl *VersionList) find(match func(Version) bool) (Version, bool) {
	vl.mu.RLock()
	defer vl.mu.RUnlock()

	for _, v := range vl.versions {
		if match(v) {
			return v, true
		}
	}
	return Version{}, false
}
