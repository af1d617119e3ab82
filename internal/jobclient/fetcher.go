package jobclient

import (
	"context"
	"errors"
	"mime"
	"strings"

	"videogen/internal/domain"
)

const defaultExtension = ".mp4"

// ContentSource is the download half of the remote protocol.
type ContentSource interface {
	Fetch(ctx context.Context, handle domain.JobHandle) ([]byte, string, error)
}

// ArtifactFetcher turns a completed job into an Artifact. Call-count
// discipline is enforced by Client, not here.
type ArtifactFetcher struct {
	source   ContentSource
	observer Observer
}

func NewArtifactFetcher(source ContentSource, observer Observer) *ArtifactFetcher {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ArtifactFetcher{source: source, observer: observer}
}

// Fetch downloads the artifact of handle and labels it with name.
func (f *ArtifactFetcher) Fetch(ctx context.Context, handle domain.JobHandle, name string) (*domain.Artifact, error) {
	data, contentType, err := f.source.Fetch(ctx, handle)
	if err == nil && len(data) == 0 {
		err = errors.New("empty artifact")
	}
	if err != nil {
		rerr := &domain.RetrievalError{Handle: handle, Err: err}
		f.observer.ArtifactRetrieved(handle, nil, rerr)
		return nil, rerr
	}
	artifact := &domain.Artifact{
		Data:        data,
		Extension:   ExtensionFor(contentType),
		ContentType: contentType,
		Name:        name,
	}
	f.observer.ArtifactRetrieved(handle, artifact, nil)
	return artifact, nil
}

// ExtensionFor maps a Content-Type header onto a file extension hint.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return defaultExtension
	}
	switch strings.ToLower(mediaType) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "image/gif":
		return ".gif"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return defaultExtension
	}
}
