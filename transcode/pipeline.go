package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"youcube/contract"
	"youcube/domain"
	"youcube/domain/mimetypes"
	errs "youcube/errors"

	"github.com/gabriel-vasile/mimetype"
)

const (
	formatAudioOnly = "bestaudio/best"
	formatWithVideo = "best[height<=480]/best"
)

type Config struct {
	DataDir      string
	YtDlpPath    string
	FFmpegPath   string
	SanjuuniPath string
}

var _ contract.Downloader = (*Pipeline)(nil)

// Pipeline fetches a source with yt-dlp and transcodes it to DFPWM audio
// and, when a resolution is requested, 32vid video.
// Outputs are written in a per-download work directory and renamed into the
// data folder once complete, so readers never see partial files.
type Pipeline struct {
	log      *slog.Logger
	config   Config
	assets   contract.IAssetRepository
	resolver contract.URLResolver
	runner   CommandRunner
}

// NewPipeline builds the pipeline. resolver may be nil when no URL needs rewriting.
func NewPipeline(log *slog.Logger, config Config, assets contract.IAssetRepository,
	resolver contract.URLResolver, runner CommandRunner) *Pipeline {
	return &Pipeline{
		log:      log,
		config:   config,
		assets:   assets,
		resolver: resolver,
		runner:   runner,
	}
}

type mediaInfo struct {
	Title string `json:"title"`
}

func (p *Pipeline) Download(ctx context.Context, req domain.DownloadRequest, progress contract.ProgressSink) (domain.DownloadResult, error) {
	id := domain.NewAssetID(req.URL)
	width, height := 0, 0
	if req.WantsVideo() {
		width, height = domain.CapResolution(*req.Width, *req.Height)
	}

	if result, ok := p.cached(id, req.WantsVideo(), width, height); ok {
		p.log.Debug("Asset already transcoded", "id", id)
		return result, nil
	}

	source, err := p.resolve(ctx, req.URL)
	if err != nil {
		return domain.DownloadResult{}, err
	}

	workDir, err := os.MkdirTemp(p.config.DataDir, "download-")
	if err != nil {
		return domain.DownloadResult{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	notify(progress, "Getting resource information ...")
	sourceFile, info, err := p.fetch(ctx, workDir, source, req.WantsVideo())
	if err != nil {
		return domain.DownloadResult{}, err
	}

	if err := checkMedia(sourceFile); err != nil {
		return domain.DownloadResult{}, err
	}

	notify(progress, "Converting audio ...")
	if err := p.convertAudio(ctx, workDir, sourceFile, id); err != nil {
		return domain.DownloadResult{}, err
	}

	record := domain.AssetRecord{
		ID:        id,
		Title:     info.Title,
		SourceURL: req.URL,
		CreatedAt: time.Now().UTC(),
	}
	if req.WantsVideo() {
		notify(progress, "Converting video ...")
		if err := p.convertVideo(ctx, workDir, sourceFile, id, width, height); err != nil {
			return domain.DownloadResult{}, err
		}
		record.Resolutions = []domain.Resolution{{Width: width, Height: height}}
	}

	if err := p.assets.Save(record); err != nil {
		return domain.DownloadResult{}, fmt.Errorf("failed to index asset %s: %w", id, err)
	}
	p.log.Info("Asset ready", "id", id, "title", info.Title, "video", req.WantsVideo())

	return domain.DownloadResult{ID: id, Title: info.Title, HasVideo: req.WantsVideo()}, nil
}

func notify(progress contract.ProgressSink, message string) {
	if progress != nil {
		progress.Notify(message)
	}
}

func (p *Pipeline) cached(id domain.AssetID, wantsVideo bool, width, height int) (domain.DownloadResult, bool) {
	record, err := p.assets.Get(id)
	if err != nil {
		if !errors.Is(err, errs.ErrAssetNotFound) {
			p.log.Warn("Asset index lookup failed", "id", id, "error", err)
		}
		return domain.DownloadResult{}, false
	}
	if !p.exists(domain.AudioFileName(id)) {
		return domain.DownloadResult{}, false
	}
	if wantsVideo && (!record.HasResolution(width, height) || !p.exists(domain.VideoFileName(id, width, height))) {
		return domain.DownloadResult{}, false
	}
	return domain.DownloadResult{ID: id, Title: record.Title, HasVideo: wantsVideo}, true
}

func (p *Pipeline) exists(name string) bool {
	_, err := os.Stat(filepath.Join(p.config.DataDir, name))
	return err == nil
}

func (p *Pipeline) resolve(ctx context.Context, url string) (string, error) {
	if p.resolver == nil {
		return url, nil
	}
	resolved, ok, err := p.resolver.Resolve(ctx, url)
	if err != nil {
		return "", err
	}
	if !ok {
		return url, nil
	}
	p.log.Debug("URL resolved", "url", url, "source", resolved)
	return resolved, nil
}

// fetch downloads the source into workDir and returns the file and its metadata.
func (p *Pipeline) fetch(ctx context.Context, workDir, source string, wantsVideo bool) (string, mediaInfo, error) {
	format := formatAudioOnly
	if wantsVideo {
		format = formatWithVideo
	}

	out, err := p.runner.Run(ctx, p.config.YtDlpPath,
		"--no-playlist",
		"--no-progress",
		"--print-json",
		"--no-simulate",
		"-f", format,
		"-o", filepath.Join(workDir, "source.%(ext)s"),
		source,
	)
	if err != nil {
		return "", mediaInfo{}, toolFailure("download", err)
	}

	var info mediaInfo
	if err := json.Unmarshal(firstLine(out), &info); err != nil {
		p.log.Warn("Unreadable media information", "source", source, "error", err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "source.*"))
	if err != nil || len(matches) == 0 {
		return "", mediaInfo{}, fmt.Errorf("%w: no file downloaded for %s", errs.ErrTranscodeFailed, source)
	}
	return matches[0], info, nil
}

func firstLine(out []byte) []byte {
	if i := bytes.IndexByte(out, '\n'); i >= 0 {
		return out[:i]
	}
	return out
}

// checkMedia rejects downloads that are not audio or video, e.g. HTML error pages.
func checkMedia(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to sniff %s: %w", filepath.Base(path), err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if mimetypes.Classify(m.String()).Playable() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errs.ErrUnsupportedMedia, mtype.String())
}

func (p *Pipeline) convertAudio(ctx context.Context, workDir, sourceFile string, id domain.AssetID) error {
	return p.produce(workDir, domain.AudioFileName(id), func(tmp string) error {
		_, err := p.runner.Run(ctx, p.config.FFmpegPath,
			"-y",
			"-i", sourceFile,
			"-f", "dfpwm",
			"-ar", "48000",
			"-ac", "1",
			tmp,
		)
		return err
	})
}

func (p *Pipeline) convertVideo(ctx context.Context, workDir, sourceFile string, id domain.AssetID, width, height int) error {
	return p.produce(workDir, domain.VideoFileName(id, width, height), func(tmp string) error {
		_, err := p.runner.Run(ctx, p.config.SanjuuniPath,
			"--width="+strconv.Itoa(width),
			"--height="+strconv.Itoa(height),
			"-i", sourceFile,
			"--raw",
			"-o", tmp,
		)
		return err
	})
}

// toolFailure keeps missing tools and cancellations visible and folds
// everything else into ErrTranscodeFailed.
func toolFailure(step string, err error) error {
	if errors.Is(err, errs.ErrToolNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errs.ErrTranscodeFailed, step, err)
}

// produce lets write create name inside workDir then moves it into the data
// folder, so concurrent downloads of the same source never share a partial file.
func (p *Pipeline) produce(workDir, name string, write func(tmp string) error) error {
	tmp := filepath.Join(workDir, name)
	if err := write(tmp); err != nil {
		return toolFailure(name, err)
	}
	if _, err := os.Stat(tmp); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s was not produced", errs.ErrTranscodeFailed, name)
	}
	return os.Rename(tmp, filepath.Join(p.config.DataDir, name))
}
