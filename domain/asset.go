package domain

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
)

// AssetID names a downloaded and transcoded media asset.
// It is chosen by the server and must pass IsSafe before it is joined into a path.
type AssetID string

const (
	// ChunkUnit is the DFPWM frame size in bytes, every chunk holds a whole number of them.
	ChunkUnit = 16
	// ChunksPerRequest must stay small enough for a client to decode one chunk per tick.
	ChunksPerRequest = 256
	ChunkSize        = ChunkUnit * ChunksPerRequest

	FramesPerRequest = 10

	MinWidth  = 1
	MinHeight = 1
	MaxWidth  = 328
	MaxHeight = 243

	maxIDLength = 128
	idBytes     = 16
)

// assetDomainKey keys the BLAKE3 hash used for asset identifiers so the
// same URL bytes never collide with hashes from another context.
var assetDomainKey = [32]byte{
	'y', 'o', 'u', 'c', 'u', 'b', 'e', '.', 'a', 's', 's', 'e', 't', '.',
	'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// assetHasher is never written to, NewAssetID hashes on a clone of it.
// NewKeyed only fails on a key that is not 32 bytes long.
var assetHasher, assetHasherErr = blake3.NewKeyed(assetDomainKey[:])

// NewAssetID derives the identifier of the asset produced from source.
// The same source always maps to the same identifier.
func NewAssetID(source string) AssetID {
	hasher := assetHasher.Clone()
	_, _ = hasher.WriteString(source)
	sum := hasher.Sum(nil)
	return AssetID(hex.EncodeToString(sum[:idBytes]))
}

// IsSafe reports whether id may be used as a single path component.
// Only ASCII letters, digits, '-' and '_' are accepted, which rules out
// separators and parent directory sequences.
func IsSafe(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func AudioFileName(id AssetID) string {
	return fmt.Sprintf("%s.dfpwm", id)
}

func VideoFileName(id AssetID, width, height int) string {
	return fmt.Sprintf("%s(%dx%d).32vid", id, width, height)
}

// CapResolution clamps a requested resolution into the supported range.
func CapResolution(width, height int) (int, int) {
	return clamp(width, MinWidth, MaxWidth), clamp(height, MinHeight, MaxHeight)
}

func clamp(v, low, high int) int {
	return max(low, min(v, high))
}

type Resolution struct {
	Width  int `msgpack:"w"`
	Height int `msgpack:"h"`
}

// AssetRecord is the index entry written once a transcode completes.
type AssetRecord struct {
	ID          AssetID      `msgpack:"id"`
	Title       string       `msgpack:"title"`
	SourceURL   string       `msgpack:"source_url"`
	Resolutions []Resolution `msgpack:"resolutions"`
	CreatedAt   time.Time    `msgpack:"created_at"`
}

func (r AssetRecord) HasResolution(width, height int) bool {
	for _, res := range r.Resolutions {
		if res.Width == width && res.Height == height {
			return true
		}
	}
	return false
}
