package teximport

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/woozymasta/teximport/pixel"
	"github.com/woozymasta/teximport/texfile"
)

// RegionExt is the file extension of atlas region files.
const RegionExt = ".atex"

// Artifact is an imported texture ready to persist.
type Artifact struct {
	ID   uuid.UUID
	Path string
	// Buffer holds the stored pixels. Disk storage kinds keep the shrunk
	// buffer the file was encoded from.
	Buffer  *pixel.Buffer
	Storage texfile.Storage
	// Encoded is the PNG, QOI or WebP file of disk storage kinds.
	Encoded []byte
	// SizeOverride is the logical size when it differs from the stored one.
	SizeOverride image.Point
	Flags        TextureFlags
}

// Size returns the stored base level size.
func (a *Artifact) Size() image.Point {
	return image.Pt(a.Buffer.Width, a.Buffer.Height)
}

// LogicalSize returns the size consumers address the texture at.
func (a *Artifact) LogicalSize() image.Point {
	if a.SizeOverride != (image.Point{}) {
		return a.SizeOverride
	}

	return a.Size()
}

// Texture returns the container form of a.
func (a *Artifact) Texture() *texfile.Texture {
	var t *texfile.Texture
	if a.Storage.IsDisk() {
		t = &texfile.Texture{
			ID:      a.ID,
			Format:  a.Buffer.Format,
			Storage: a.Storage,
			Width:   a.Buffer.Width,
			Height:  a.Buffer.Height,
			Levels:  [][]byte{a.Encoded},
		}
	} else {
		t = texfile.FromBuffer(a.ID, a.Buffer)
	}
	t.LogicalWidth, t.LogicalHeight = a.SizeOverride.X, a.SizeOverride.Y
	t.Flags = uint32(a.Flags)

	return t
}

// AtlasEntry addresses one source inside an atlas artifact.
type AtlasEntry struct {
	Source string
	// Path is where the region file is written.
	Path      string
	AtlasID   uuid.UUID
	AtlasPath string
	// Region is the placed content rectangle, border excluded.
	Region image.Rectangle
	// Margin is zero unless cropping shrank the source. Min is the used
	// rectangle origin and Margin.Size() the full size minus the used size.
	Margin image.Rectangle
}

// RegionFile returns the persisted form of e.
func (e *AtlasEntry) RegionFile() *texfile.Region {
	return &texfile.Region{AtlasID: e.AtlasID, AtlasPath: e.AtlasPath, Rect: e.Region, Margin: e.Margin}
}

// entryPath returns <dir of target>/<source base name>.atex.
func entryPath(target, source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(filepath.Dir(target), base+RegionExt)
}

// ArtifactInfo is the metadata of a persisted artifact. It holds no pixel data.
type ArtifactInfo struct {
	ID          uuid.UUID
	Path        string
	Format      pixel.Format
	Storage     texfile.Storage
	Size        image.Point
	LogicalSize image.Point
	Flags       TextureFlags
}

// Info returns the metadata of a.
func (a *Artifact) Info() ArtifactInfo {
	return ArtifactInfo{
		ID:          a.ID,
		Path:        a.Path,
		Format:      a.Buffer.Format,
		Storage:     a.Storage,
		Size:        a.Size(),
		LogicalSize: a.LogicalSize(),
		Flags:       a.Flags,
	}
}

// maxReleased bounds how many released ids still report ErrAtlasReleased.
// Older ids report ErrUnknownArtifact.
const maxReleased = 4096

// Registry tracks persisted artifacts so atlas entries can resolve their
// atlas. It keeps metadata only. Registering a path again replaces the
// previous artifact.
type Registry struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]ArtifactInfo
	byPath   map[string]uuid.UUID
	released map[uuid.UUID]struct{}
	// order lists released ids oldest first.
	order []uuid.UUID
	limit int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return newRegistry(maxReleased)
}

func newRegistry(limit int) *Registry {
	return &Registry{
		byID:     make(map[uuid.UUID]ArtifactInfo),
		byPath:   make(map[string]uuid.UUID),
		released: make(map[uuid.UUID]struct{}),
		limit:    limit,
	}
}

// Register records the metadata of a. A previous artifact with the same
// path is destroyed.
func (r *Registry) Register(a *Artifact) {
	info := a.Info()

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byPath[info.Path]; ok && old != info.ID {
		r.destroyLocked(old)
	}
	r.byID[info.ID] = info
	r.byPath[info.Path] = info.ID
	delete(r.released, info.ID)
}

// Lookup returns the artifact registered under id.
func (r *Registry) Lookup(id uuid.UUID) (ArtifactInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	if _, ok := r.released[id]; ok {
		return ArtifactInfo{}, fmt.Errorf("%w: %s", ErrAtlasReleased, id)
	}

	return ArtifactInfo{}, fmt.Errorf("%w: %s", ErrUnknownArtifact, id)
}

// Resolve returns the atlas e points into.
func (r *Registry) Resolve(e *AtlasEntry) (ArtifactInfo, error) {
	return r.Lookup(e.AtlasID)
}

// Destroy releases the artifact with id. Entries pointing at it stop resolving.
func (r *Registry) Destroy(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.destroyLocked(id)
}

func (r *Registry) destroyLocked(id uuid.UUID) {
	a, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if r.byPath[a.Path] == id {
		delete(r.byPath, a.Path)
	}

	r.released[id] = struct{}{}
	r.order = append(r.order, id)
	for len(r.order) > r.limit {
		delete(r.released, r.order[0])
		r.order = r.order[1:]
	}
}

// Len returns the number of live artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
