package domain

// DownloadRequest asks the transcode pipeline for a new asset.
// Width and Height are nil when the client only wants audio.
type DownloadRequest struct {
	URL    string
	Width  *int
	Height *int
}

// WantsVideo reports whether a video variant must be produced.
func (r DownloadRequest) WantsVideo() bool {
	return r.Width != nil && r.Height != nil
}

// Key identifies requests that produce the same files.
func (r DownloadRequest) Key() string {
	if !r.WantsVideo() {
		return r.URL
	}
	w, h := CapResolution(*r.Width, *r.Height)
	return r.URL + "|" + VideoFileName("", w, h)
}

type DownloadResult struct {
	ID       AssetID
	Title    string
	HasVideo bool
}

func (r DownloadResult) ToResponse() MediaResponse {
	return MediaResponse{
		Action:   ActionMedia,
		ID:       r.ID,
		Title:    r.Title,
		HasVideo: r.HasVideo,
	}
}
