package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		url  string
		kind string
	}{
		{"https://www.youtube.com/watch?v=abc123", KindYouTube},
		{"https://youtu.be/abc123", KindYouTube},
		{"https://m.youtube.com/watch?v=abc123", KindYouTube},
		{"https://cdn.example.com/episodes/42.mp3", KindAudio},
		{"https://example.com/show.M4A", KindAudio},
	}
	for _, tc := range cases {
		kind, err := r.Classify(tc.url, "")
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.kind, kind, tc.url)
	}
}

func TestClassifyRejectsUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Classify("https://example.com/article.html", "")
	assert.Error(t, err)

	_, err = r.Classify("not a url", "")
	assert.Error(t, err)

	_, err = r.Classify("ftp://example.com/a.mp3", "")
	assert.Error(t, err)
}

func TestClassifyExplicitKind(t *testing.T) {
	r := NewRegistry()

	kind, err := r.Classify("https://youtu.be/abc", KindYouTube)
	require.NoError(t, err)
	assert.Equal(t, KindYouTube, kind)

	// Explicit kind must match the URL's shape.
	_, err = r.Classify("https://youtu.be/abc", KindAudio)
	assert.Error(t, err)

	_, err = r.Classify("https://youtu.be/abc", "rss")
	assert.Error(t, err)
}

func TestListDeterministic(t *testing.T) {
	r := NewRegistry()
	kinds := r.List()
	require.Equal(t, r.Count(), len(kinds))
	assert.Equal(t, KindAudio, kinds[0].Name)
	assert.Equal(t, KindYouTube, kinds[1].Name)
}
