package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Encoder produces an H.264 MP4 at dst from src. progress receives percent
// complete in [0, 100] as encoding advances; it may never be called.
type Encoder interface {
	Encode(ctx context.Context, src, dst string, duration time.Duration, progress func(float64)) error
}

// FFmpeg is the Encoder backed by the ffmpeg binary.
type FFmpeg struct {
	// Binary is the ffmpeg executable; "ffmpeg" when empty.
	Binary string
}

var progressTime = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// stderrTailLines is how much ffmpeg output is kept for error messages.
const stderrTailLines = 8

// EncodeArgs returns the ffmpeg arguments for transcoding src into dst.
func EncodeArgs(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", src,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		dst,
	}
}

// Encode runs ffmpeg and reports progress parsed from its stderr.
func (f *FFmpeg) Encode(ctx context.Context, src, dst string, duration time.Duration, progress func(float64)) error {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary, EncodeArgs(src, dst)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := scanProgress(stderr, duration, progress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg canceled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.Join(tail, " | "))
	}
	return nil
}

// scanProgress reads ffmpeg stderr to EOF, reporting progress, and returns
// the last few non-progress lines.
func scanProgress(r io.Reader, duration time.Duration, progress func(float64)) []string {
	var tail []string

	scanner := bufio.NewScanner(r)
	scanner.Split(scanLinesCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if elapsed, ok := ParseProgressTime(line); ok {
			if duration > 0 && progress != nil {
				progress(min(float64(elapsed)/float64(duration)*100, 100))
			}
			continue
		}

		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
	}

	// keep the pipe drained if the scanner gave up on an oversized line
	_, _ = io.Copy(io.Discard, r)
	return tail
}

// ParseProgressTime extracts the time=HH:MM:SS.xx position from an ffmpeg
// progress line.
func ParseProgressTime(line string) (time.Duration, bool) {
	m := progressTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	hours, err1 := strconv.Atoi(m[1])
	minutes, err2 := strconv.Atoi(m[2])
	seconds, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, true
}

// scanLinesCR splits on both \r and \n; ffmpeg rewrites its status line with \r.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
