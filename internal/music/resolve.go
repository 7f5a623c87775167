package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

// YTDLPResolver searches and resolves stream URLs with the yt-dlp binary.
type YTDLPResolver struct {
	Binary string
}

func NewYTDLPResolver(binary string) *YTDLPResolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPResolver{Binary: binary}
}

func (r *YTDLPResolver) Search(ctx context.Context, query string) (Track, error) {
	target := strings.TrimSpace(query)
	if target == "" {
		return Track{}, ErrEmptyQuery
	}
	if !looksLikeURL(target) {
		target = "ytsearch1:" + target
	}

	output, err := r.run(ctx,
		"--no-warnings",
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--flat-playlist",
		target,
	)
	if err != nil {
		return Track{}, err
	}

	var root ytDLPItem
	if err := json.Unmarshal(output, &root); err != nil {
		return Track{}, fmt.Errorf("%w: invalid json: %v", ErrResolveFailed, err)
	}

	item, ok := pickYTDLPItem(root)
	if !ok {
		return Track{}, fmt.Errorf("%w: %q", ErrNoResults, query)
	}

	link := item.WebpageURL
	if link == "" {
		link = item.URL
	}
	if link == "" && item.ID != "" {
		link = watchURL(item.ID)
	}
	if link == "" {
		return Track{}, fmt.Errorf("%w: missing track url", ErrResolveFailed)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Unknown Title"
	}

	return Track{ID: item.ID, Title: title, URL: link}, nil
}

// StreamURL returns a direct media URL for the best audio format of link.
func (r *YTDLPResolver) StreamURL(ctx context.Context, link string) (string, error) {
	if strings.TrimSpace(link) == "" {
		return "", ErrEmptyQuery
	}

	output, err := r.run(ctx,
		"--no-warnings",
		"-f", "bestaudio",
		"-g",
		"--no-playlist",
		link,
	)
	if err != nil {
		return "", err
	}

	// yt-dlp prints one URL per line; the first one is the audio stream.
	streamURL := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if streamURL == "" {
		return "", fmt.Errorf("%w: empty stream url", ErrResolveFailed)
	}
	return streamURL, nil
}

func (r *YTDLPResolver) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%w: yt-dlp failed: %v: %s", ErrResolveFailed, err, detail)
	}
	return output, nil
}

type ytDLPItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	WebpageURL string      `json:"webpage_url"`
	URL        string      `json:"url"`
	Entries    []ytDLPItem `json:"entries"`
}

func pickYTDLPItem(root ytDLPItem) (ytDLPItem, bool) {
	if len(root.Entries) == 0 {
		return root, root.WebpageURL != "" || root.URL != "" || root.ID != ""
	}

	for _, entry := range root.Entries {
		if entry.WebpageURL != "" || entry.URL != "" || entry.ID != "" {
			return entry, true
		}
	}
	return ytDLPItem{}, false
}

func looksLikeURL(value string) bool {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return true
	}

	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// youTubeVideoID extracts the video id from a YouTube link.
func youTubeVideoID(raw string) (string, bool) {
	if !looksLikeURL(raw) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		return id, id != ""
	case "youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, true
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				return id, id != ""
			}
		}
	}
	return "", false
}
