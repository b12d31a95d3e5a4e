package teximport

import (
	"fmt"
	"image"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/woozymasta/teximport/codec"
	"github.com/woozymasta/teximport/packer"
	"github.com/woozymasta/teximport/pixel"
	"github.com/woozymasta/teximport/texfile"
)

// Config configures a Pipeline. Zero fields take defaults.
type Config struct {
	// Logger receives per-stage debug and per-artifact info records.
	Logger *log.Logger
	// Loader reads sources; FileLoader by default.
	Loader Loader
	// Codecs maps platform compression modes to codecs; codec.DefaultSet by default.
	Codecs codec.Set
	// Registry tracks written artifacts; a private registry by default.
	Registry *Registry
	// Lossless selects the FormatLosslessDisk file format.
	Lossless Lossless
	// BlockCompression compresses texture levels on disk.
	BlockCompression texfile.Compression
}

// Pipeline turns source images into persisted texture artifacts.
// Imports are synchronous and independent; a Pipeline is safe for
// concurrent use.
type Pipeline struct {
	logger   *log.Logger
	loader   Loader
	codecs   codec.Set
	registry *Registry
	lossless Lossless
	blocks   texfile.Compression
	packer   packer.Packer
}

// New returns a pipeline for cfg.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		logger:   cfg.Logger,
		loader:   cfg.Loader,
		codecs:   cfg.Codecs,
		registry: cfg.Registry,
		lossless: cfg.Lossless,
		blocks:   cfg.BlockCompression,
		packer:   packer.Packer{Border: packer.DefaultBorder},
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.loader == nil {
		p.loader = FileLoader{}
	}
	if p.codecs == nil {
		p.codecs = codec.DefaultSet(codec.Options{})
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}

	return p
}

// Registry returns the registry written artifacts are added to.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Request describes one import.
type Request struct {
	Sources []string
	// Target is the texture file path. Atlas region files go next to it.
	Target  string
	Options ImportOptions
	// Compression picks the codec for FormatPlatformCompressed.
	Compression codec.Mode
	// External records atlas regions on the Result instead of writing
	// region files.
	External bool
}

// Result describes a successful import.
type Result struct {
	Artifact *Artifact
	// Entries holds one entry per source of an atlas import.
	Entries []AtlasEntry
	// Codec names the codec that produced the levels; empty for disk formats.
	Codec string
}

// Import runs every stage for req. Options are validated before any I/O.
// A persist failure leaves files that were already written in place.
func (p *Pipeline) Import(req Request) (*Result, error) {
	c, err := p.validate(req)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("target", req.Target)
	logger.Debug("options validated", "format", req.Options.Format, "flags", req.Options.Flags, "sources", len(req.Sources))

	sources, err := p.loadSources(req.Sources)
	if err != nil {
		return nil, err
	}
	logger.Debug("sources loaded", "count", len(sources))

	id := uuid.New()
	var (
		base    *pixel.Buffer
		entries []AtlasEntry
	)
	if req.Options.Atlas {
		base, entries, err = p.composeAtlas(req, id, sources)
		if err != nil {
			return nil, err
		}
		logger.Debug("atlas composed", "size", base.Size(), "entries", len(entries))
	} else {
		base = sources[0]
	}

	base, err = applyFlags(base, req.Options.Flags)
	if err != nil {
		return nil, newError(KindEncode, req.Target, err)
	}
	logger.Debug("flags applied", "pixel_format", base.Format)

	art, err := p.encode(req, c, base)
	if err != nil {
		return nil, err
	}
	art.ID = id
	art.Path = req.Target
	art.Flags = req.Options.TextureFlags()
	logger.Debug("encoded", "storage", art.Storage, "pixel_format", art.Buffer.Format, "size", art.Size())

	if err := p.persist(req, art, entries); err != nil {
		return nil, err
	}
	logger.Info("artifact written", "storage", art.Storage, "pixel_format", art.Buffer.Format, "logical_size", art.LogicalSize())

	res := &Result{Artifact: art, Entries: entries}
	if c != nil {
		res.Codec = c.Name()
	}

	return res, nil
}

// validate checks req and resolves the codec for non-disk formats.
func (p *Pipeline) validate(req Request) (codec.Codec, error) {
	if req.Target == "" {
		return nil, newError(KindInvalidOptions, "", fmt.Errorf("%w: empty target", ErrInvalidOptions))
	}
	if err := req.Options.Validate(len(req.Sources)); err != nil {
		return nil, newError(KindInvalidOptions, req.Target, err)
	}

	switch req.Options.Format {
	case FormatUncompressed:
		return codec.None{}, nil
	case FormatPlatformCompressed:
		c, err := p.codecs.Lookup(req.Compression)
		if err != nil {
			return nil, newError(KindInvalidOptions, req.Target, err)
		}
		return c, nil
	default:
		return nil, nil
	}
}

func (p *Pipeline) loadSources(paths []string) ([]*pixel.Buffer, error) {
	out := make([]*pixel.Buffer, len(paths))
	for i, path := range paths {
		buf, err := p.loader.Load(path)
		if err != nil {
			return nil, newError(KindSourceLoad, path, err)
		}
		out[i] = buf
	}

	return out, nil
}

// composeAtlas packs sources into one buffer. Either every source keeps
// alpha or none does.
func (p *Pipeline) composeAtlas(req Request, id uuid.UUID, sources []*pixel.Buffer) (*pixel.Buffer, []AtlasEntry, error) {
	format := pixel.FormatRGB8
	for _, src := range sources {
		if src.DetectAlpha() {
			format = pixel.FormatRGBA8
			break
		}
	}

	crops := make([]image.Rectangle, len(sources))
	sizes := make([]image.Point, len(sources))
	converted := make([]*pixel.Buffer, len(sources))
	for i, src := range sources {
		crop := src.Bounds()
		if req.Options.Crop {
			// Fully transparent sources are kept whole.
			if used := src.UsedRect(); !used.Empty() {
				crop = used
			}
		}

		conv, err := src.Convert(format)
		if err != nil {
			return nil, nil, newError(KindEncode, req.Sources[i], err)
		}
		converted[i], crops[i], sizes[i] = conv, crop, crop.Size()
	}

	layout := p.packer.Fit(sizes)
	atlas, err := pixel.New(format, pixel.NextPowerOfTwo(layout.Size.X), pixel.NextPowerOfTwo(layout.Size.Y))
	if err != nil {
		return nil, nil, newError(KindEncode, req.Target, err)
	}

	entries := make([]AtlasEntry, len(sources))
	for i, src := range converted {
		region := layout.Content(i, sizes[i])
		if err := pixel.Blit(atlas, src, crops[i], region.Min); err != nil {
			return nil, nil, newError(KindEncode, req.Sources[i], err)
		}

		entries[i] = AtlasEntry{
			Source:    req.Sources[i],
			Path:      entryPath(req.Target, req.Sources[i]),
			AtlasID:   id,
			AtlasPath: req.Target,
			Region:    region,
		}
		if crops[i] != src.Bounds() {
			origin := crops[i].Min
			entries[i].Margin = image.Rectangle{Min: origin, Max: origin.Add(src.Size().Sub(sizes[i]))}
		}
	}

	return atlas, entries, nil
}

// applyFlags drops unused alpha and bleeds colour into transparent edges.
func applyFlags(buf *pixel.Buffer, flags Flags) (*pixel.Buffer, error) {
	var err error
	if buf.Format == pixel.FormatRGBA8 && !buf.DetectAlpha() {
		if buf, err = buf.Convert(pixel.FormatRGB8); err != nil {
			return nil, err
		}
	}
	if buf.Format == pixel.FormatRGBA8 && flags.Has(FlagFixBorderAlpha) {
		if buf, err = buf.FixAlphaEdges(); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// encode shrinks buf and produces the stored form for the requested format.
func (p *Pipeline) encode(req Request, c codec.Codec, buf *pixel.Buffer) (*Artifact, error) {
	opts := req.Options
	logical := buf.Size()

	buf, err := buf.Shrink(opts.ShrinkFactor())
	if err != nil {
		return nil, newError(KindEncode, req.Target, err)
	}

	art := &Artifact{}
	if opts.Format.IsDisk() {
		img, err := buf.Image()
		if err != nil {
			return nil, newError(KindEncode, req.Target, err)
		}

		var data []byte
		if opts.Format == FormatLosslessDisk {
			art.Storage = texfile.StorageLossless
			data, err = encodeLossless(img, p.lossless)
		} else {
			art.Storage = texfile.StorageLossy
			data, err = encodeLossy(img, opts.Quality)
		}
		if err != nil {
			return nil, newError(KindEncode, req.Target, err)
		}
		art.Buffer, art.Encoded = buf, data
	} else {
		if !opts.Flags.Has(FlagNoMipmaps) {
			if buf, err = buf.GenerateMipmaps(); err != nil {
				return nil, newError(KindEncode, req.Target, err)
			}
		}

		hints := codec.Hints{
			PreferSmaller: opts.Flags.Has(FlagExtraCompression),
			AlphaBit:      opts.Flags.Has(FlagAlphaBitHint),
		}
		out, err := codec.Compress(c, buf, hints)
		if err != nil {
			return nil, newError(KindEncode, req.Target, fmt.Errorf("%s: %w", c.Name(), err))
		}
		art.Buffer = out
		art.Storage = texfile.StorageRaw
		if out.Format.IsCompressed() {
			art.Storage = texfile.StoragePlatform
		}
	}

	if art.Size() != logical {
		art.SizeOverride = logical
	}

	return art, nil
}

// persist writes the texture first, then region files unless External.
func (p *Pipeline) persist(req Request, art *Artifact, entries []AtlasEntry) error {
	if err := texfile.WriteFile(art.Path, art.Texture(), p.blocks); err != nil {
		return newError(KindPersist, art.Path, err)
	}
	p.registry.Register(art)

	if req.External {
		return nil
	}
	for i := range entries {
		if err := texfile.WriteRegionFile(entries[i].Path, entries[i].RegionFile()); err != nil {
			return newError(KindPersist, entries[i].Path, err)
		}
	}

	return nil
}
