//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type mediaInfo struct {
	DurationSec float64
	HasVideo    bool
	HasAudio    bool
}

// inspectMedia reports the duration and stream kinds of a rendered clip.
func inspectMedia(path string) (mediaInfo, error) {
	b, err := exec.Command("ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration:stream=codec_type",
		path,
	).Output()
	if err != nil {
		return mediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return mediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info mediaInfo
	if info.DurationSec, err = strconv.ParseFloat(raw.Format.Duration, 64); err != nil {
		return mediaInfo{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}
