package mimetypes

import (
	"mime"
	"strings"
)

type MIME string

const (
	Unknown        MIME = "unknown"
	ApplicationOgg MIME = "application/ogg"
	AudioMPEG      MIME = "audio/mpeg"
	AudioWebM      MIME = "audio/webm"
	VideoMP4       MIME = "video/mp4"
	VideoWebM      MIME = "video/webm"
)

type Kind int

const (
	KindOther Kind = iota
	KindAudio
	KindVideo
)

// Classify tells whether a detected media type carries audio or video.
// Ogg is a container that may hold either, it is treated as audio.
func Classify(detected string) Kind {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return KindOther
	}
	switch {
	case strings.HasPrefix(mt, "audio/"), mt == string(ApplicationOgg):
		return KindAudio
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	default:
		return KindOther
	}
}

func (k Kind) Playable() bool {
	return k == KindAudio || k == KindVideo
}
