package ytdlp

import (
	"fmt"
	"regexp"
	"strings"
)

var videoIDPatterns = []*regexp.Regexp{
	// watch URLs, including m. and music. hosts
	regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})(?:[&#].*)?$`),
	regexp.MustCompile(`^(?:https?://)?youtu\.be/([a-zA-Z0-9_-]{11})(?:[?#].*)?$`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?youtube\.com/(?:embed|v|shorts|live)/([a-zA-Z0-9_-]{11})(?:[/?#].*)?$`),
}

var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID returns the 11-character YouTube video ID in raw, which may be
// any common YouTube URL shape or a bare ID.
func ExtractVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1], nil
		}
	}
	if bareVideoID.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("not a YouTube video URL: %q", raw)
}

// WatchURL is the canonical URL handed to downloaders.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
