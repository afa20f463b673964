// Package audio wraps ffmpeg and ffprobe to turn synthesized speech into voice notes.
package audio

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const waveformBytes = 256

type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
}

// Available reports whether both binaries are on PATH.
func (f *FFmpeg) Available() bool {
	if _, err := exec.LookPath(f.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(f.ffprobe)
	return err == nil
}

// ConvertToOpus re-encodes in as a 48kHz Opus stream in an OGG container.
func (f *FFmpeg) ConvertToOpus(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.ffmpeg,
		"-y", "-loglevel", "error",
		"-i", in,
		"-c:a", "libopus", "-b:a", "64k", "-ar", "48000",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Metadata returns the rounded duration in seconds and a placeholder waveform.
func (f *FFmpeg) Metadata(ctx context.Context, path string) (int, string, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, "", fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := parseDuration(string(out))
	if err != nil {
		return 0, "", err
	}

	waveform, err := Waveform()
	if err != nil {
		return 0, "", err
	}
	return duration, waveform, nil
}

func parseDuration(s string) (int, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(s), err)
	}
	return int(math.Round(secs)), nil
}

// Waveform returns base64 of random bytes, enough for clients that draw one.
func Waveform() (string, error) {
	buf := make([]byte, waveformBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("waveform: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
