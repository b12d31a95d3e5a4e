// teximport converts source images into texture artifacts.
//
// Usage:
//
//	teximport import  [flags] -o TARGET SOURCE...
//	teximport export  [flags] --platform NAME -o DIR SOURCE...
//	teximport inspect [flags] FILE.tex
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/woozymasta/teximport"
	"github.com/woozymasta/teximport/cache"
	"github.com/woozymasta/teximport/codec"
	"github.com/woozymasta/teximport/config"
	"github.com/woozymasta/teximport/texfile"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return pflag.ErrHelp
	}

	switch args[0] {
	case "import":
		return runImport(args[1:], stderr)
	case "export":
		return runExport(args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout)
	case "-h", "--help", "help":
		printUsage(stderr)
		return pflag.ErrHelp
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `teximport converts source images into texture artifacts.

Usage:
  teximport import  [flags] -o TARGET SOURCE...
  teximport export  [flags] --platform NAME -o DIR SOURCE...
  teximport inspect [flags] FILE.tex

Run "teximport COMMAND --help" for the flags of a command.
`)
}

// env is the state shared by commands that run the pipeline.
type env struct {
	settings *config.Settings
	logger   *log.Logger
	pipeline *teximport.Pipeline
}

func loadEnv(configPath, logLevel string, stderr io.Writer) (*env, error) {
	settings := config.Default()
	if configPath != "" {
		var err error
		if settings, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}

	logger, err := config.NewLogger(stderr, settings.LogLevel)
	if err != nil {
		return nil, err
	}
	lossless, err := settings.LosslessCodec()
	if err != nil {
		return nil, err
	}
	blocks, err := settings.Compression()
	if err != nil {
		return nil, err
	}

	p := teximport.New(teximport.Config{
		Logger:           logger,
		Codecs:           codec.DefaultSet(settings.CodecOptions()),
		Lossless:         lossless,
		BlockCompression: blocks,
	})

	return &env{settings: settings, logger: logger, pipeline: p}, nil
}

func (e *env) compression(platform, mode string) (codec.Mode, error) {
	switch {
	case mode != "":
		return codec.ParseMode(mode)
	case platform != "":
		return e.settings.Platform(platform)
	default:
		return codec.ModeNone, nil
	}
}

// optionFlags registers the ImportOptions flags on fs.
type optionFlags struct {
	format  string
	flags   string
	quality float32
	shrink  int
	atlas   bool
	crop    bool
}

func (o *optionFlags) register(fs *pflag.FlagSet, defaultFormat string) {
	fs.StringVar(&o.format, "format", defaultFormat, "uncompressed, lossless, lossy or platform")
	fs.StringVar(&o.flags, "flags", "", "comma separated: stream,fix_border,alpha_bit,extra,no_mipmaps,repeat,filter")
	fs.Float32Var(&o.quality, "quality", 0.7, "lossy quality in 0..1")
	fs.IntVar(&o.shrink, "shrink", 1, "divide both dimensions")
	fs.BoolVar(&o.atlas, "atlas", false, "pack every source into one atlas")
	fs.BoolVar(&o.crop, "crop", false, "trim atlas sources to their used rectangle")
}

func (o *optionFlags) options() (teximport.ImportOptions, error) {
	format, err := teximport.ParseFormat(o.format)
	if err != nil {
		return teximport.ImportOptions{}, err
	}
	flags, err := teximport.ParseFlags(o.flags)
	if err != nil {
		return teximport.ImportOptions{}, err
	}

	return teximport.ImportOptions{
		Format:  format,
		Flags:   flags,
		Quality: o.quality,
		Atlas:   o.atlas,
		Crop:    o.crop,
		Shrink:  o.shrink,
	}, nil
}

func runImport(args []string, stderr io.Writer) error {
	var (
		configPath, logLevel, output, platform, mode string
		opts                                         optionFlags
	)

	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "settings file (.toml, .yaml)")
	fs.StringVar(&logLevel, "log-level", "", "override the configured log level")
	fs.StringVarP(&output, "output", "o", "", "target .tex file, or directory for several non-atlas sources")
	fs.StringVar(&platform, "platform", "", "platform name from the settings platform table")
	fs.StringVar(&mode, "compression", "", "compression mode, overrides --platform")
	opts.register(fs, "uncompressed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources := fs.Args()
	if len(sources) == 0 || output == "" {
		return errors.New("import needs --output and at least one source")
	}

	e, err := loadEnv(configPath, logLevel, stderr)
	if err != nil {
		return err
	}
	importOpts, err := opts.options()
	if err != nil {
		return err
	}
	comp, err := e.compression(platform, mode)
	if err != nil {
		return err
	}

	if importOpts.Atlas || len(sources) == 1 {
		_, err := e.pipeline.Import(teximport.Request{Sources: sources, Target: output, Options: importOpts, Compression: comp})
		return err
	}

	// One texture per source into the output directory.
	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	reqs := make([]teximport.Request, len(sources))
	for i, src := range sources {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		reqs[i] = teximport.Request{
			Sources:     []string{src},
			Target:      filepath.Join(output, base+".tex"),
			Options:     importOpts,
			Compression: comp,
		}
	}

	var errs []error
	for _, r := range e.pipeline.RunBatch(context.Background(), reqs, e.settings.Workers) {
		if r.Err != nil {
			e.logger.Error("import failed", "source", r.Request.Sources[0], "err", r.Err)
			errs = append(errs, r.Err)
		}
	}

	return errors.Join(errs...)
}

func runExport(args []string, stdout, stderr io.Writer) error {
	var (
		configPath, logLevel, output, platform, mode string
		useDefaults                                  bool
		opts                                         optionFlags
	)

	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "settings file (.toml, .yaml)")
	fs.StringVar(&logLevel, "log-level", "", "override the configured log level")
	fs.StringVarP(&output, "output", "o", "", "directory receiving exported .tex files")
	fs.StringVar(&platform, "platform", "", "platform name from the settings platform table")
	fs.StringVar(&mode, "compression", "", "compression mode, overrides --platform")
	fs.BoolVar(&useDefaults, "defaults", false, "derive options from the export settings")
	opts.register(fs, "platform")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources := fs.Args()
	if len(sources) == 0 || output == "" {
		return errors.New("export needs --output and at least one source")
	}

	e, err := loadEnv(configPath, logLevel, stderr)
	if err != nil {
		return err
	}
	comp, err := e.compression(platform, mode)
	if err != nil {
		return err
	}
	defaults, err := e.settings.ExportDefaults()
	if err != nil {
		return err
	}
	store, err := cache.New(e.settings.CacheDir, e.logger)
	if err != nil {
		return err
	}

	var explicit *teximport.ImportOptions
	if !useDefaults {
		o, err := opts.options()
		if err != nil {
			return err
		}
		explicit = &o
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	exporter := &teximport.Exporter{Pipeline: e.pipeline, Store: store, Defaults: defaults, Logger: e.logger}
	for _, src := range sources {
		data, err := exporter.Export(src, explicit, comp)
		if err != nil {
			return err
		}
		if data == nil {
			fmt.Fprintf(stdout, "%s: pass-through\n", src)
			continue
		}

		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		target := filepath.Join(output, base+".tex")
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %s (%d bytes)\n", src, target, len(data))
	}

	return nil
}

func runInspect(args []string, stdout io.Writer) error {
	var previewPath, ddsPath string

	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	fs.StringVar(&previewPath, "preview", "", "write the base level as PNG")
	fs.StringVar(&ddsPath, "dds", "", "write BC1, BC3 or RGBA8 levels as DDS")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect needs exactly one file")
	}
	path := fs.Arg(0)

	if reg, err := texfile.ReadRegionFile(path); err == nil {
		fmt.Fprintf(stdout, "region of %s (%s)\n  rect:   %v\n  margin: %v\n", reg.AtlasPath, reg.AtlasID, reg.Rect, reg.Margin)
		return nil
	} else if !errors.Is(err, texfile.ErrBadMagic) {
		return err
	}

	need := previewPath != "" || ddsPath != ""
	var (
		tex *texfile.Texture
		err error
	)
	if need {
		tex, err = texfile.ReadFile(path)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		defer func() { _ = f.Close() }()
		tex, err = texfile.ReadHeader(f)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\n  id:      %s\n  format:  %s\n  storage: %s\n  size:    %dx%d\n", path, tex.ID, tex.Format, tex.Storage, tex.Width, tex.Height)
	if tex.LogicalWidth != 0 {
		fmt.Fprintf(stdout, "  logical: %dx%d\n", tex.LogicalWidth, tex.LogicalHeight)
	}
	fmt.Fprintf(stdout, "  levels:  %d\n  flags:   %#x\n", len(tex.Levels), tex.Flags)

	if previewPath != "" {
		img, err := texfile.Preview(tex, nil)
		if err != nil {
			return err
		}
		if err := writePNG(previewPath, img); err != nil {
			return err
		}
	}
	if ddsPath != "" {
		buf, err := tex.Buffer()
		if err != nil {
			return err
		}
		f, err := os.Create(ddsPath)
		if err != nil {
			return err
		}
		if err := texfile.WriteDDS(f, buf); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
