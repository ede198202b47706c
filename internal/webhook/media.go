package webhook

import (
	"context"
	"strings"

	"github.com/clinicflow/orchestrator/internal/platform"
)

const (
	attachmentAudio = "audio"
	attachmentImage = "image"
)

// Transcriber turns downloaded audio bytes into text. Audio transcription
// is an explicit non-goal (§1): production deployments supply a real
// implementation; NoopTranscriber below is the degrade-mode default.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Describer turns downloaded image bytes into a text description. Image
// description is an explicit non-goal (§1), same boundary shape as
// Transcriber.
type Describer interface {
	Describe(ctx context.Context, image []byte) (string, error)
}

// NoopTranscriber reports attachments present without transcribing them.
type NoopTranscriber struct{}

func (NoopTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "[audio attachment received, transcription unavailable]", nil
}

// NoopDescriber reports attachments present without describing them.
type NoopDescriber struct{}

func (NoopDescriber) Describe(ctx context.Context, image []byte) (string, error) {
	return "[image attachment received, description unavailable]", nil
}

// buildMediaContext downloads each attachment and combines the
// transcription/description results into one context string, passed to the
// orchestrator as Input.Context alongside the unchanged question (§4.L step 4). Download or transcription failures are
// skipped rather than failing the request: media context is best-effort.
func (h *Handler) buildMediaContext(ctx context.Context, adapter platform.Adapter, attachments []Attachment) string {
	var parts []string
	for _, a := range attachments {
		switch a.FileType {
		case attachmentAudio:
			data, err := adapter.DownloadAttachment(ctx, a.DataURL)
			if err != nil || len(data) == 0 {
				continue
			}
			text, err := h.transcriber.Transcribe(ctx, data)
			if err != nil {
				continue
			}
			parts = append(parts, text)
		case attachmentImage:
			data, err := adapter.DownloadAttachment(ctx, a.DataURL)
			if err != nil || len(data) == 0 {
				continue
			}
			text, err := h.describer.Describe(ctx, data)
			if err != nil {
				continue
			}
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
