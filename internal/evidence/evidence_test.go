package evidence

import (
	"testing"

	"github.com/AdamBeresnev/cue-bracket/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		link  *string
		kind  Kind
		embed string
	}{
		{"nil", nil, KindNone, ""},
		{"blank", utils.Ptr("  "), KindNone, ""},
		{"watch link", utils.Ptr("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"), KindYouTube, "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"short link", utils.Ptr("https://youtu.be/dQw4w9WgXcQ?si=abc"), KindYouTube, "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"embed link", utils.Ptr("https://youtube.com/embed/dQw4w9WgXcQ"), KindYouTube, "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"shorts", utils.Ptr("https://m.youtube.com/shorts/abc123"), KindYouTube, "https://www.youtube.com/embed/abc123"},
		{"video file", utils.Ptr("https://cdn.example.com/frames/rack7.MP4"), KindVideo, "https://cdn.example.com/frames/rack7.MP4"},
		{"anything else", utils.Ptr("https://twitch.tv/videos/123"), KindPage, "https://twitch.tv/videos/123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.link)
			assert.Equal(t, tt.kind, got.Kind, got.Kind.String())
			assert.Equal(t, tt.embed, got.EmbedURL)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate("https://youtu.be/abc"))
	assert.ErrorIs(t, Validate("javascript:alert(1)"), ErrInvalidURL)
	assert.ErrorIs(t, Validate("/relative/path"), ErrInvalidURL)
	assert.ErrorIs(t, Validate("ftp://example.com/x"), ErrInvalidURL)
}
