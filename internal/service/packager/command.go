package packager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/modloader-dist/internal/archive"
	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/domain/dist"
	"github.com/oshokin/modloader-dist/internal/logger"
	"github.com/oshokin/modloader-dist/internal/service/manifest"
	"github.com/oshokin/modloader-dist/internal/version"
)

// Options contains inputs for the make-dist entry point.
type Options struct {
	// ConfigPath is an optional YAML file overriding the built-in defaults.
	ConfigPath string
	// Now returns the packaging time stamped on every entry; defaults to time.Now.
	Now func() time.Time
}

// output is one rendered archive waiting to be published.
type output struct {
	path     string
	manifest *dist.Manifest
	data     []byte
}

// packager renders and publishes the release archives.
// It is unexported: callers should use Run, which encapsulates setup and validation.
type packager struct {
	// cfg is the effective configuration.
	cfg *config.Config
	// builder assembles the per-platform manifests.
	builder *manifest.Builder
	// now is the packaging time source.
	now func() time.Time
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "make-dist")

	logger.InfoKV(ctx, "Starting", "version", version.Version)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	pkg := &packager{
		cfg:     cfg,
		builder: manifest.NewBuilder(manifest.LayoutFromConfig(&cfg.Dist)),
		now:     now,
	}

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// Run renders both archives and then publishes them.
func (p *packager) Run(ctx context.Context) error {
	packagedAt := p.now()

	zipOutput, err := p.render(ctx, dist.Windows, archive.NewZip(packagedAt), p.cfg.Dist.ZipOutput)
	if err != nil {
		return err
	}

	tarOutput, err := p.render(ctx, dist.Linux, archive.NewTar(packagedAt), p.cfg.Dist.TarOutput)
	if err != nil {
		return err
	}

	outputs := []*output{zipOutput, tarOutput}

	for _, out := range outputs {
		logger.InfoKV(ctx, "Publishing archive", "path", out.path)

		if err = archive.Publish(out.path, out.data); err != nil {
			return fmt.Errorf("publish %s: %w", out.path, err)
		}
	}

	p.printSummary(ctx, outputs)

	return nil
}

// render builds the manifest of platform and serializes it into memory.
func (p *packager) render(ctx context.Context, platform dist.Platform, s archive.Serializer, path string) (*output, error) {
	logger.InfoKV(ctx, "Building manifest", "platform", platform)

	m, err := p.builder.Build(platform)
	if err != nil {
		return nil, fmt.Errorf("build %s manifest: %w", platform, err)
	}

	data, err := archive.Render(s, m)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}

	return &output{
		path:     path,
		manifest: m,
		data:     data,
	}, nil
}

// printSummary logs what went into each archive.
func (p *packager) printSummary(ctx context.Context, outputs []*output) {
	var builder strings.Builder

	builder.WriteString("Release archives are ready:")

	for _, out := range outputs {
		fmt.Fprintf(&builder, "\n%s (%s): %d entries, %d bytes",
			out.path, out.manifest.Platform, out.manifest.Len(), len(out.data))
	}

	logger.Info(ctx, builder.String())
}
