package services

import (
	"context"
	"encoding/base64"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"

	"github.com/samber/lo"
)

func (d *Dispatcher) handshake(context.Context, Message, contract.ProgressSink) (domain.Response, error) {
	return domain.NewHandshakeResponse(), nil
}

// requestMedia waits for the background download, the session keeps
// serving keep-alives and other connections meanwhile.
func (d *Dispatcher) requestMedia(ctx context.Context, msg Message, progress contract.ProgressSink) (domain.Response, error) {
	request := RequestMediaRequest{URL: msg.String("url")}
	if msg.Has("width") {
		request.Width = lo.ToPtr(int(msg.Int("width")))
	}
	if msg.Has("height") {
		request.Height = lo.ToPtr(int(msg.Int("height")))
	}
	if err := validateRequest(d.validator, request); err != nil {
		return nil, err
	}

	result, err := d.runner.Submit(ctx, domain.DownloadRequest{
		URL:    request.URL,
		Width:  request.Width,
		Height: request.Height,
	}, progress)
	if err != nil {
		return nil, err
	}
	return result.ToResponse(), nil
}

func (d *Dispatcher) getChunk(_ context.Context, msg Message, _ contract.ProgressSink) (domain.Response, error) {
	request := GetChunkRequest{ChunkIndex: msg.Int("chunkindex"), ID: msg.String("id")}
	if err := validateRequest(d.validator, request); err != nil {
		return nil, err
	}
	if !domain.IsSafe(request.ID) {
		return nil, errs.ErrUnsafeID
	}

	chunk, err := d.store.ReadAudioChunk(request.ID, request.ChunkIndex)
	if err != nil {
		return nil, err
	}
	return domain.ChunkResponse{
		Action: domain.ActionChunk,
		Chunk:  base64.StdEncoding.EncodeToString(chunk),
	}, nil
}

func (d *Dispatcher) getVid(_ context.Context, msg Message, _ contract.ProgressSink) (domain.Response, error) {
	request := GetVidRequest{
		Tracker: msg.Int("tracker"),
		ID:      msg.String("id"),
		Width:   int(msg.Int("width")),
		Height:  int(msg.Int("height")),
	}
	if err := validateRequest(d.validator, request); err != nil {
		return nil, err
	}
	if !domain.IsSafe(request.ID) {
		return nil, errs.ErrUnsafeID
	}

	lines, err := d.store.ReadVideoLines(request.ID, request.Width, request.Height, request.Tracker)
	if err != nil {
		return nil, err
	}
	return domain.VidResponse{Action: domain.ActionVid, Lines: lines}, nil
}
