package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"recview/internal/logging"
	"recview/internal/metrics"
)

// Codec labels shown in listings.
const (
	CodecH264    = "H.264"
	CodecH265    = "H.265"
	CodecUnknown = "Unknown"
)

// DefaultProbeTimeout bounds a single ffprobe run.
const DefaultProbeTimeout = 10 * time.Second

var codecLabels = map[string]string{
	"h264":  CodecH264,
	"hevc":  CodecH265,
	"h265":  CodecH265,
	"vp8":   "VP8",
	"vp9":   "VP9",
	"av1":   "AV1",
	"mpeg4": "MPEG-4",
	"mjpeg": "MJPEG",
}

// incompatibleCodecs are the labels browsers cannot decode natively.
var incompatibleCodecs = map[string]bool{
	CodecH265: true,
}

// Prober inspects media files. Implementations never return errors; a file
// that cannot be probed reports CodecUnknown and a zero duration.
type Prober interface {
	Codec(ctx context.Context, path string) string
	Duration(ctx context.Context, path string) time.Duration
}

// NormalizeCodec maps an ffprobe codec_name to a display label.
func NormalizeCodec(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return CodecUnknown
	}
	if label, ok := codecLabels[raw]; ok {
		return label
	}
	return strings.ToUpper(raw)
}

// NeedsConversion reports whether a codec label must be transcoded for
// browser playback. CodecUnknown is never converted.
func NeedsConversion(label string) bool {
	return incompatibleCodecs[label]
}

// FFprobe is the Prober backed by the ffprobe binary.
type FFprobe struct {
	// Binary is the ffprobe executable; "ffprobe" when empty.
	Binary string
	// Timeout bounds each run; DefaultProbeTimeout when zero.
	Timeout time.Duration
}

type probeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Codec returns the normalized label of the first video stream.
func (p *FFprobe) Codec(ctx context.Context, path string) string {
	out, err := p.probe(ctx, "codec", path)
	if err != nil || len(out.Streams) == 0 {
		return CodecUnknown
	}
	return NormalizeCodec(out.Streams[0].CodecName)
}

// Duration returns the container duration, or zero when unknown.
func (p *FFprobe) Duration(ctx context.Context, path string) time.Duration {
	out, err := p.probe(ctx, "duration", path)
	if err != nil || out.Format.Duration == "" {
		return 0
	}

	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || seconds < 0 {
		metrics.ProbeFailuresTotal.WithLabelValues("duration").Inc()
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func (p *FFprobe) probe(ctx context.Context, kind, path string) (*probeOutput, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name:format=duration",
		"-of", "json",
		path,
	}
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ProbeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProbeFailuresTotal.WithLabelValues(kind).Inc()
		logging.Debug("ffprobe %s failed for %s: %v %s", kind, path, err, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		metrics.ProbeFailuresTotal.WithLabelValues(kind).Inc()
		logging.Debug("ffprobe %s returned invalid JSON for %s: %v", kind, path, err)
		return nil, fmt.Errorf("ffprobe output: %w", err)
	}
	return &out, nil
}
