// Package export implements save_assets and copy_assets_to_clipboard (spec
// §4.8): resolving requested asset ids, materializing files on disk or
// staging them for the clipboard, and optionally piping audio through a
// transcoder collaborator.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"

	"github.com/pkg/errors"
)

// AudioFormat selects how audio assets are materialized on export.
type AudioFormat string

const (
	AudioFormatOriginal AudioFormat = "original"
	AudioFormatMP3      AudioFormat = "mp3"
	AudioFormatWAV      AudioFormat = "wav"
)

// Transcoder converts audio bytes of one extension to another. Non-audio
// assets never reach it (spec §4.8 step 4: "Non-audio assets ignore
// audioFormat").
type Transcoder interface {
	Transcode(ctx context.Context, data []byte, srcExt string, dstFormat AudioFormat) ([]byte, error)
}

// NopTranscoder passes audio through unchanged for audioFormat == original,
// and otherwise refuses: without a real encoder it has no way to produce
// mp3/wav bytes, and silently relabeling the source bytes under a different
// extension would hand back a file whose contents don't match its name.
type NopTranscoder struct{}

func (NopTranscoder) Transcode(ctx context.Context, data []byte, srcExt string, dstFormat AudioFormat) ([]byte, error) {
	if dstFormat == AudioFormatOriginal || dstFormat == "" {
		return data, nil
	}
	return nil, errors.Wrap(errkind.ErrTranscode, fmt.Sprintf("no transcoder available for %s->%s", srcExt, dstFormat))
}

// CommandTranscoder shells out to ffmpeg for mp3/wav re-encoding. It is
// selected only when ffmpeg is present on PATH; callers otherwise fall back
// to NopTranscoder and leave audioFormat=original requests as pass-through.
type CommandTranscoder struct {
	binary string
}

// NewCommandTranscoder locates ffmpeg on PATH. Returns an error if absent so
// callers can decide whether to degrade to NopTranscoder.
func NewCommandTranscoder() (*CommandTranscoder, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, errors.Wrap(errkind.ErrTranscode, "ffmpeg not found on PATH")
	}
	return &CommandTranscoder{binary: path}, nil
}

func (c *CommandTranscoder) Transcode(ctx context.Context, data []byte, srcExt string, dstFormat AudioFormat) ([]byte, error) {
	var outExt string
	switch dstFormat {
	case AudioFormatMP3:
		outExt = "mp3"
	case AudioFormatWAV:
		outExt = "wav"
	default:
		return data, nil
	}

	cmd := exec.CommandContext(ctx, c.binary,
		"-hide_banner", "-loglevel", "error",
		"-f", srcExt, "-i", "pipe:0",
		"-f", outExt, "pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Warnf("export: ffmpeg transcode %s->%s failed: %v: %s", srcExt, outExt, err, stderr.String())
		return nil, errors.Wrap(errkind.ErrTranscode, fmt.Sprintf("ffmpeg %s->%s: %v", srcExt, outExt, err))
	}
	return out.Bytes(), nil
}

// destinationExtension returns the extension save/copy should use for an
// asset of the given source extension and requested format.
func destinationExtension(srcExt string, format AudioFormat, isAudio bool) string {
	if !isAudio || format == AudioFormatOriginal || format == "" {
		return srcExt
	}
	switch format {
	case AudioFormatMP3:
		return "mp3"
	case AudioFormatWAV:
		return "wav"
	default:
		return srcExt
	}
}
