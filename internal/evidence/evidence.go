// Package evidence turns the link attached to a dispute into something an
// arbiter can look at inline. Files are never uploaded here, only linked.
package evidence

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindYouTube
	KindVideo
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindYouTube:
		return "youtube"
	case KindVideo:
		return "video"
	case KindPage:
		return "page"
	default:
		return "none"
	}
}

// Link is a classified evidence URL. EmbedURL is what goes into the iframe or
// video tag.
type Link struct {
	Kind     Kind
	EmbedURL string
}

var ErrInvalidURL = errors.New("evidence link must be an absolute http or https URL")

var videoExtensions = []string{".mp4", ".webm", ".ogg", ".mov"}

// Validate accepts an empty link or an absolute http(s) URL.
func Validate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

func Classify(link *string) Link {
	if link == nil || strings.TrimSpace(*link) == "" {
		return Link{Kind: KindNone}
	}

	raw := strings.TrimSpace(*link)
	u, err := url.Parse(raw)
	if err != nil {
		return Link{Kind: KindPage, EmbedURL: raw}
	}

	if id := youTubeID(u); id != "" {
		return Link{Kind: KindYouTube, EmbedURL: "https://www.youtube.com/embed/" + id}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, v := range videoExtensions {
		if ext == v {
			return Link{Kind: KindVideo, EmbedURL: raw}
		}
	}

	return Link{Kind: KindPage, EmbedURL: raw}
}

func youTubeID(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com":
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
		if id, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			return strings.Trim(id, "/")
		}
		if id, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return strings.Trim(id, "/")
		}
	}
	return ""
}
