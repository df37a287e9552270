package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"
)

var _ contract.IChunkStore = (*ChunkStore)(nil)

// ChunkStore serves size-bounded slices of the transcoded files under dataDir.
// Files are written once by the transcode pipeline and only read here.
type ChunkStore struct {
	log             *slog.Logger
	dataDir         string
	chunkSize       int
	linesPerRequest int
}

func NewChunkStore(log *slog.Logger, dataDir string, chunkSize, linesPerRequest int) *ChunkStore {
	return &ChunkStore{
		log:             log,
		dataDir:         dataDir,
		chunkSize:       chunkSize,
		linesPerRequest: linesPerRequest,
	}
}

// ReadAudioChunk returns the chunkIndex-th window of chunkSize bytes.
// The result is shorter than chunkSize (possibly empty) at the end of the file
// and empty when the file does not exist yet.
func (s *ChunkStore) ReadAudioChunk(id string, chunkIndex int64) ([]byte, error) {
	if !domain.IsSafe(id) {
		return nil, errs.ErrUnsafeID
	}
	if chunkIndex < 0 {
		return nil, fmt.Errorf("%w: chunkindex must be a non-negative int", errs.ErrInvalidField)
	}

	if chunkIndex > math.MaxInt64/int64(s.chunkSize) {
		return []byte{}, nil
	}

	file, err := s.open(domain.AudioFileName(domain.AssetID(id)))
	if err != nil {
		return nil, err
	}
	if file == nil {
		return []byte{}, nil
	}
	defer file.Close()

	offset := chunkIndex * int64(s.chunkSize)
	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(io.NewSectionReader(file, offset, int64(s.chunkSize)), buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("reading audio chunk %d of %s: %w", chunkIndex, id, err)
	}
	return buf[:n], nil
}

// ReadVideoLines seeks to the byte offset tracker and returns up to
// linesPerRequest frames without their line terminator.
// width and height are capped before the variant file is resolved.
func (s *ChunkStore) ReadVideoLines(id string, width, height int, tracker int64) ([]string, error) {
	if !domain.IsSafe(id) {
		return nil, errs.ErrUnsafeID
	}
	if tracker < 0 {
		return nil, fmt.Errorf("%w: tracker must be a non-negative int", errs.ErrInvalidField)
	}
	width, height = domain.CapResolution(width, height)

	lines := make([]string, 0, s.linesPerRequest)
	file, err := s.open(domain.VideoFileName(domain.AssetID(id), width, height))
	if err != nil {
		return nil, err
	}
	if file == nil {
		return lines, nil
	}
	defer file.Close()

	if _, err = file.Seek(tracker, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking %s to %d: %w", id, tracker, err)
	}

	reader := bufio.NewReader(file)
	for len(lines) < s.linesPerRequest {
		line, err := reader.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading frames of %s: %w", id, err)
		}
	}
	return lines, nil
}

// open returns a nil file and no error when the asset does not exist (yet).
func (s *ChunkStore) open(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.dataDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("Asset file not found", "file", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return file, nil
}
