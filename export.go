package teximport

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/woozymasta/teximport/cache"
	"github.com/woozymasta/teximport/codec"
)

// lossyCompressionID replaces the codec mode in cache keys of lossy exports.
const lossyCompressionID = 255

// Action is the project wide handling of images without import options.
type Action uint8

const (
	// ActionNone keeps images lossless on disk.
	ActionNone Action = iota
	// ActionCompressDisk stores lossy WebP.
	ActionCompressDisk
	// ActionCompressRAM stores the platform codec output.
	ActionCompressRAM
)

var actionNames = [...]string{
	ActionNone:         "none",
	ActionCompressDisk: "compress_disk",
	ActionCompressRAM:  "compress_ram",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}

	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction parses the textual form returned by Action.String.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ActionNone, nil
	}
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}

	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidOptions, s)
}

func (a Action) format() Format {
	switch a {
	case ActionCompressDisk:
		return FormatLossyDisk
	case ActionCompressRAM:
		return FormatPlatformCompressed
	default:
		return FormatLosslessDisk
	}
}

// ExportGroup overrides the project action for matching images.
type ExportGroup struct {
	Name string
	// Patterns are path.Match globs tested against the slash separated path.
	Patterns []string
	// Action ActionNone falls back to the project action and quality.
	Action  Action
	Quality float32
	Shrink  int
}

func (g *ExportGroup) match(p string) bool {
	p = filepath.ToSlash(p)
	for _, pattern := range g.Patterns {
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(p)); ok {
			return true
		}
	}

	return false
}

// ExportDefaults derive import options for images that carry none.
type ExportDefaults struct {
	Action  Action
	Quality float32
	Shrink  int
	Filter  bool
	// GenMipmaps off sets FlagNoMipmaps.
	GenMipmaps bool
	Repeat     bool
	// Extensions limits handled images; empty handles every path.
	Extensions []string
	Groups     []ExportGroup
}

// Options returns the import options for p. ok is false when p is left to
// pass through unchanged.
// Groups are matched before the extension filter.
func (d ExportDefaults) Options(p string) (opts ImportOptions, ok bool) {
	var group *ExportGroup
	for i := range d.Groups {
		if d.Groups[i].match(p) {
			group = &d.Groups[i]
			break
		}
	}

	switch {
	case group != nil:
		opts.Format = group.Action.format()
		opts.Quality = group.Quality
		if group.Action == ActionNone {
			opts.Format = d.Action.format()
			opts.Quality = d.Quality
		}
		opts.Shrink = max(group.Shrink, 1) * max(d.Shrink, 1)
	case !d.handles(p), d.Action == ActionNone:
		return ImportOptions{}, false
	default:
		opts.Format = d.Action.format()
		opts.Quality = d.Quality
		opts.Shrink = max(d.Shrink, 1)
	}

	opts.Flags = FlagFixBorderAlpha
	if d.Filter {
		opts.Flags |= FlagFilter
	}
	if !d.GenMipmaps {
		opts.Flags |= FlagNoMipmaps
	}
	if d.Repeat {
		opts.Flags |= FlagRepeat
	}

	return opts, true
}

func (d ExportDefaults) handles(p string) bool {
	if len(d.Extensions) == 0 {
		return true
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), ".")
	for _, e := range d.Extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}

	return false
}

// Exporter re-encodes images for a target platform through the cache.
type Exporter struct {
	Pipeline *Pipeline
	Store    *cache.Store
	Defaults ExportDefaults
	Logger   *log.Logger
}

// Export returns the artifact bytes for path on a platform using
// compression. opts nil derives options from Defaults.
// Nil bytes with a nil error mean the source passes through unchanged:
// uncompressed and lossless formats are never re-encoded.
func (e *Exporter) Export(p string, opts *ImportOptions, compression codec.Mode) ([]byte, error) {
	logger := e.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var o ImportOptions
	if opts != nil {
		o = *opts
	} else {
		var ok bool
		if o, ok = e.Defaults.Options(p); !ok {
			logger.Debug("export pass-through", "source", p)
			return nil, nil
		}
	}
	o.Atlas, o.Crop = false, false

	compID := uint8(compression)
	switch o.Format {
	case FormatPlatformCompressed:
	case FormatLossyDisk:
		compID = lossyCompressionID
	default:
		logger.Debug("export pass-through", "source", p, "format", o.Format)
		return nil, nil
	}
	if err := o.Validate(1); err != nil {
		return nil, newError(KindInvalidOptions, p, err)
	}

	source, err := filepath.Abs(p)
	if err != nil {
		return nil, newError(KindSourceLoad, p, err)
	}
	key := cache.NewKey(filepath.ToSlash(source), uint32(o.Flags), uint8(o.Format), compID, uint8(o.ShrinkFactor()))

	data, hit, err := e.Store.Do(key, source, func(target string) error {
		_, err := e.Pipeline.Import(Request{
			Sources:     []string{source},
			Target:      target,
			Options:     o,
			Compression: compression,
			External:    true,
		})
		return err
	})
	if err != nil {
		var perr *Error
		switch {
		case errors.As(err, &perr):
			return nil, err
		case errors.Is(err, cache.ErrSource):
			return nil, newError(KindSourceLoad, source, err)
		default:
			return nil, newError(KindCacheIO, e.Store.ArtifactPath(key), err)
		}
	}
	logger.Debug("exported", "source", source, "key", key, "hit", hit, "bytes", len(data))

	return data, nil
}
