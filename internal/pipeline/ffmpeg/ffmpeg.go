package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tags are written as ID3v2.3 frames.
type Tags struct {
	Title     string
	Artist    string
	Album     string
	Date      string
	Genre     string
	Publisher string
	Copyright string
	Comment   string
}

// Job converts Input to a 320k MP3 at Output, embedding Cover when set.
type Job struct {
	Input  string
	Cover  string
	Output string
	Tags   Tags
}

type Encoder struct {
	binary string
}

func New(binary string) *Encoder {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Encoder{binary: bin}
}

const maxEncodeTimeout = 5 * time.Minute

func (e *Encoder) Encode(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.Input) == "" || strings.TrimSpace(job.Output) == "" {
		return errors.New("input and output paths are required")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxEncodeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary, buildArgs(job)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := lastLines(stderr.String(), 5)
		if msg == "" {
			return fmt.Errorf("ffmpeg failed: %w", err)
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
	}
	return nil
}

func buildArgs(job Job) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", job.Input}
	if job.Cover != "" {
		args = append(args,
			"-i", job.Cover,
			"-map", "0:a", "-map", "1:0",
			"-c:v", "mjpeg",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	}
	args = append(args, "-c:a", "libmp3lame", "-b:a", "320k", "-id3v2_version", "3")

	tags := []struct{ key, value string }{
		{"title", job.Tags.Title},
		{"artist", job.Tags.Artist},
		{"album", job.Tags.Album},
		{"date", job.Tags.Date},
		{"genre", job.Tags.Genre},
		{"publisher", job.Tags.Publisher},
		{"copyright", job.Tags.Copyright},
		{"comment", job.Tags.Comment},
	}
	for _, tag := range tags {
		value := metadataValue(tag.value)
		if value == "" {
			continue
		}
		args = append(args, "-metadata", tag.key+"="+value)
	}
	return append(args, job.Output)
}

// metadataValue flattens line breaks; arguments bypass the shell so no
// quoting is needed.
func metadataValue(value string) string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	return strings.TrimSpace(value)
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
