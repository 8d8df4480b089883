package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcbedrock-downloader/transport"
)

const sampleList = `[
	["1.20.0.1","00000000-0000-0000-0000-000000000001",0],
	["1.20.10.20","00000000-0000-0000-0000-000000000002",1],
	["1.9.0.15","00000000-0000-0000-0000-000000000003",0],
	["1.21.0.20","00000000-0000-0000-0000-000000000004",2,"extra"],
	["short","00000000-0000-0000-0000-000000000005"],
	["1.0.0.0","00000000-0000-0000-0000-000000000006",7]
]`

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (s *stubFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	s.urls = append(s.urls, url)
	return s.body, s.err
}

func loadedList(t *testing.T) *VersionList {
	t.Helper()
	vl := NewVersionList("http://versions.test/list", &stubFetcher{body: []byte(sampleList)}, nil)
	_, err := vl.DownloadList(context.Background())
	require.NoError(t, err)
	return vl
}

func TestDownloadList_ParsesAndSkipsShortItems(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(sampleList)}
	vl := NewVersionList("http://versions.test/list", fetcher, nil)

	versions, err := vl.DownloadList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://versions.test/list"}, fetcher.urls)
	require.Len(t, versions, 5)
	assert.Equal(t, Version{
		Name:     "1.20.0.1",
		UUID:     "00000000-0000-0000-0000-000000000001",
		Type:     TypeRelease,
		TypeName: "Release",
	}, versions[0])
	assert.Equal(t, "Preview", versions[3].TypeName)
	assert.Equal(t, "Unknown", versions[4].TypeName)
	assert.Equal(t, 5, vl.Len())
}

func TestDownloadList_OverHTTPWithAnyContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(sampleList))
	}))
	defer server.Close()

	session := transport.NewSession(transport.Config{})
	defer session.Close()

	vl := NewVersionList(server.URL, session, nil)
	versions, err := vl.DownloadList(context.Background())
	require.NoError(t, err)
	assert.Len(t, versions, 5)
}

func TestDownloadList_Errors(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		vl := NewVersionList("", &stubFetcher{err: errors.New("offline")}, nil)
		_, err := vl.DownloadList(context.Background())
		assert.ErrorContains(t, err, "offline")
		assert.Equal(t, DefaultVersionsAPI, vl.API())
	})

	t.Run("not an array", func(t *testing.T) {
		vl := NewVersionList("", &stubFetcher{body: []byte(`{"versions":[]}`)}, nil)
		_, err := vl.DownloadList(context.Background())
		assert.Error(t, err)
	})

	t.Run("wrong field type", func(t *testing.T) {
		vl := NewVersionList("", &stubFetcher{body: []byte(`[["1.0", "id", "zero"]]`)}, nil)
		_, err := vl.DownloadList(context.Background())
		assert.Error(t, err)
	})

	t.Run("previous list kept on failure", func(t *testing.T) {
		fetcher := &stubFetcher{body: []byte(sampleList)}
		vl := NewVersionList("", fetcher, nil)
		_, err := vl.DownloadList(context.Background())
		require.NoError(t, err)

		fetcher.body = []byte("not json")
		_, err = vl.DownloadList(context.Background())
		require.Error(t, err)
		assert.Equal(t, 5, vl.Len())
	})
}

func TestVersionList_ByType(t *testing.T) {
	vl := loadedList(t)

	releases := vl.ByType(TypeRelease)
	require.Len(t, releases, 2)
	assert.Equal(t, "1.20.0.1", releases[0].Name)
	assert.Equal(t, "1.9.0.15", releases[1].Name)

	assert.Len(t, vl.ByType(TypeBeta), 1)
	assert.Empty(t, vl.ByType(VersionType(42)))
}

func TestVersionList_Search(t *testing.T) {
	vl := NewVersionList("", nil, nil)
	vl.SetVersions([]Version{{Name: "Beta 1.2"}, {Name: "release 1.3"}, {Name: "BETA 2"}})

	results := vl.Search("beta")
	require.Len(t, results, 2)
	assert.Equal(t, "Beta 1.2", results[0].Name)
	assert.Equal(t, "BETA 2", results[1].Name)

	assert.Empty(t, vl.Search("nothing"))
}

func TestVersionList_Lookups(t *testing.T) {
	vl := loadedList(t)

	v, ok := vl.ByUUID("00000000-0000-0000-0000-000000000002")
	require.True(t, ok)
	assert.Equal(t, "1.20.10.20", v.Name)

	_, ok = vl.ByUUID("ffffffff-0000-0000-0000-000000000002")
	assert.False(t, ok)

	v, ok = vl.ByName("1.9.0.15")
	require.True(t, ok)
	assert.Equal(t, "00000000-0000-0000-0000-000000000003", v.UUID)

	_, ok = vl.ByName("1.9")
	assert.False(t, ok, "name lookup is exact")
}

func TestVersionList_Sorted(t *testing.T) {
	vl := loadedList(t)

	names := func(vs []Version) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name
		}
		return out
	}

	assert.Equal(t, []string{"1.21.0.20", "1.20.10.20", "1.20.0.1", "1.9.0.15", "1.0.0.0"}, names(vl.Sorted(true)))
	assert.Equal(t, []string{"1.0.0.0", "1.9.0.15", "1.20.0.1", "1.20.10.20", "1.21.0.20"}, names(vl.Sorted(false)))
}

func TestVersionList_Resolve(t *testing.T) {
	vl := loadedList(t)

	v, err := vl.Resolve("1.20.0.1")
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", v.UUID)
	assert.Equal(t, TypeRelease, v.Type)
	assert.False(t, v.RequiresToken())

	v, err = vl.Resolve("{00000000-0000-0000-0000-000000000002}")
	require.NoError(t, err)
	assert.Equal(t, "Beta", v.TypeName)
	assert.True(t, v.RequiresToken())

	_, err = vl.Resolve("00000000-0000-0000-0000-0000000000ff")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	_, err = vl.Resolve("2.0.0.0")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestVersionList_VersionsIsACopy(t *testing.T) {
	vl := loadedList(t)
	versions := vl.Versions()
	versions[0].Name = "changed"

	v, ok := vl.ByUUID("00000000-0000-0000-0000-000000000001")
	require.True(t, ok)
	assert.Equal(t, "1.20.0.1", v.Name)
}

func TestParseVersionType(t *testing.T) {
	for input, want := range map[string]VersionType{
		"release":  TypeRelease,
		"Beta":     TypeBeta,
		" PREVIEW": TypePreview,
	} {
		got, err := ParseVersionType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseVersionType("nightly")
	assert.Error(t, err)
}
