// Package config loads teximport settings from a TOML or YAML file.
//
// Loading starts from Default and merges the file on top, so a settings file
// only needs the keys it changes. Values are kept in their textual form and
// are parsed by Validate and the typed accessors.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/teximport"
	"github.com/woozymasta/teximport/codec"
	"github.com/woozymasta/teximport/texfile"
)

var (
	// ErrUnsupportedFile indicates a settings file with an unknown extension.
	ErrUnsupportedFile = errors.New("unsupported settings file")
	// ErrInvalid indicates a settings value that does not parse.
	ErrInvalid = errors.New("invalid settings")
	// ErrUnknownPlatform indicates a platform missing from the platform table.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Settings is the complete teximport configuration.
type Settings struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// CacheDir holds the export cache sidecars.
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`

	// Lossless selects png or qoi for lossless disk artifacts.
	Lossless string `toml:"lossless" yaml:"lossless"`

	// BlockCompression is none, lz4 or zstd for texture levels on disk.
	BlockCompression string `toml:"block_compression" yaml:"block_compression"`

	// BlockQuality is the BC encoder quality level, 1..10, 0 for balanced.
	BlockQuality int `toml:"block_quality" yaml:"block_quality"`

	// Workers bounds batch and block encoding parallelism. 0 uses all CPUs.
	Workers int `toml:"workers" yaml:"workers"`

	// Platforms maps export platform names to compression modes.
	Platforms map[string]string `toml:"platforms" yaml:"platforms"`

	// Export derives options for images imported without any.
	Export ExportSettings `toml:"export" yaml:"export"`
}

// ExportSettings are the project wide export defaults.
type ExportSettings struct {
	// Action is none, compress_disk or compress_ram.
	Action     string   `toml:"action" yaml:"action"`
	Quality    float32  `toml:"quality" yaml:"quality"`
	Shrink     int      `toml:"shrink" yaml:"shrink"`
	Filter     bool     `toml:"filter" yaml:"filter"`
	GenMipmaps bool     `toml:"gen_mipmaps" yaml:"gen_mipmaps"`
	Repeat     bool     `toml:"repeat" yaml:"repeat"`
	Extensions []string `toml:"extensions" yaml:"extensions"`

	Groups []GroupSettings `toml:"groups" yaml:"groups"`
}

// GroupSettings override the export action for matching paths.
type GroupSettings struct {
	Name     string   `toml:"name" yaml:"name"`
	Patterns []string `toml:"patterns" yaml:"patterns"`
	// Action none falls back to the project action.
	Action  string  `toml:"action" yaml:"action"`
	Quality float32 `toml:"quality" yaml:"quality"`
	Shrink  int     `toml:"shrink" yaml:"shrink"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		LogLevel:         "info",
		CacheDir:         filepath.Join(os.TempDir(), "teximport-cache"),
		Lossless:         "png",
		BlockCompression: "lz4",
		Platforms: map[string]string{
			"pc":      codec.ModeBlockCompressed.String(),
			"android": codec.ModeETC1.String(),
			"ios":     codec.ModeMobile4x4.String(),
		},
		Export: ExportSettings{
			Action:     teximport.ActionNone.String(),
			Quality:    0.7,
			Shrink:     1,
			Filter:     true,
			GenMipmaps: true,
			Extensions: []string{"png", "jpg", "jpeg", "bmp", "gif", "tif", "tiff", "webp", "qoi"},
		},
	}
}

// LoadFile reads path over Default and validates the result.
// The format follows the extension: .toml, .yaml or .yml.
func LoadFile(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	return s, nil
}

// Validate parses every textual value.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := s.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.LosslessCodec(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.Compression(); err != nil {
		errs = append(errs, err)
	}
	if s.BlockQuality < 0 || s.BlockQuality > 10 {
		errs = append(errs, fmt.Errorf("%w: block_quality %d out of range 0..10", ErrInvalid, s.BlockQuality))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers %d", ErrInvalid, s.Workers))
	}
	for name := range s.Platforms {
		if _, err := s.Platform(name); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := s.ExportDefaults(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (s *Settings) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}

	return lvl, nil
}

// LosslessCodec returns the lossless disk format.
func (s *Settings) LosslessCodec() (teximport.Lossless, error) {
	l, err := teximport.ParseLossless(s.Lossless)
	if err != nil {
		return 0, fmt.Errorf("%w: lossless: %v", ErrInvalid, err)
	}

	return l, nil
}

// Compression returns the texture block compression.
func (s *Settings) Compression() (texfile.Compression, error) {
	c, err := texfile.ParseCompression(s.BlockCompression)
	if err != nil {
		return 0, fmt.Errorf("%w: block_compression: %v", ErrInvalid, err)
	}

	return c, nil
}

// CodecOptions returns the options of the default codec set.
func (s *Settings) CodecOptions() codec.Options {
	return codec.Options{BlockQuality: s.BlockQuality, Workers: s.Workers}
}

// Platform returns the compression mode of a platform name.
func (s *Settings) Platform(name string) (codec.Mode, error) {
	v, ok := s.Platforms[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}

	m, err := codec.ParseMode(v)
	if err != nil {
		return 0, fmt.Errorf("%w: platform %q: %v", ErrInvalid, name, err)
	}

	return m, nil
}

// ExportDefaults returns the parsed export defaults.
func (s *Settings) ExportDefaults() (teximport.ExportDefaults, error) {
	e := s.Export
	action, err := teximport.ParseAction(e.Action)
	if err != nil {
		return teximport.ExportDefaults{}, fmt.Errorf("%w: export.action: %v", ErrInvalid, err)
	}
	if e.Quality < 0 || e.Quality > 1 {
		return teximport.ExportDefaults{}, fmt.Errorf("%w: export.quality %g out of range 0..1", ErrInvalid, e.Quality)
	}
	if e.Shrink < 0 {
		return teximport.ExportDefaults{}, fmt.Errorf("%w: export.shrink %d", ErrInvalid, e.Shrink)
	}

	d := teximport.ExportDefaults{
		Action:     action,
		Quality:    e.Quality,
		Shrink:     e.Shrink,
		Filter:     e.Filter,
		GenMipmaps: e.GenMipmaps,
		Repeat:     e.Repeat,
		Extensions: e.Extensions,
	}
	for i, g := range e.Groups {
		ga, err := teximport.ParseAction(g.Action)
		if err != nil {
			return teximport.ExportDefaults{}, fmt.Errorf("%w: export.groups[%d].action: %v", ErrInvalid, i, err)
		}
		if g.Shrink < 0 {
			return teximport.ExportDefaults{}, fmt.Errorf("%w: export.groups[%d].shrink %d", ErrInvalid, i, g.Shrink)
		}
		d.Groups = append(d.Groups, teximport.ExportGroup{
			Name:     g.Name,
			Patterns: g.Patterns,
			Action:   ga,
			Quality:  g.Quality,
			Shrink:   g.Shrink,
		})
	}

	return d, nil
}

// NewLogger returns a timestamped logger writing to w at level.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", ErrInvalid, err)
	}

	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "teximport",
	})
	l.SetLevel(lvl)

	return l, nil
}
