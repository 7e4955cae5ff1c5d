package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/domain/dist"
	"github.com/oshokin/modloader-dist/internal/service/discovery"
)

// Launcher is a platform-specific installer binary.
type Launcher struct {
	// Source is the pre-built binary on disk.
	Source string
	// Name is its destination path in the archive.
	Name string
}

// Layout is the fixed part of the release payload.
type Layout struct {
	// Readme is the documentation file, shipped under its base name.
	Readme string
	// RuntimeLibrary is the mod-loader library.
	RuntimeLibrary string
	// RuntimeNames lists every destination the runtime library is installed under.
	RuntimeNames []string
	// ScriptingLibrary is the Lua DLL, shipped under its base name.
	ScriptingLibrary string
	// Launchers maps each platform to its installer.
	Launchers map[dist.Platform]Launcher
	// ArtifactsDir is the root of the nested build-artifact tree.
	ArtifactsDir string
	// ArtifactsPrefix is prepended to every discovered destination path.
	ArtifactsPrefix string
}

// LayoutFromConfig maps the dist configuration to a Layout.
func LayoutFromConfig(cfg *config.DistConfig) *Layout {
	return &Layout{
		Readme:           cfg.Readme,
		RuntimeLibrary:   cfg.RuntimeLibrary,
		RuntimeNames:     append([]string(nil), cfg.RuntimeNames...),
		ScriptingLibrary: cfg.ScriptingLibrary,
		Launchers: map[dist.Platform]Launcher{
			dist.Windows: {Source: cfg.WindowsLauncher, Name: cfg.WindowsLauncherName},
			dist.Linux:   {Source: cfg.LinuxLauncher, Name: cfg.LinuxLauncherName},
		},
		ArtifactsDir:    cfg.ArtifactsDir,
		ArtifactsPrefix: cfg.ArtifactsPrefix,
	}
}

// errUnknownPlatform is returned when the layout has no launcher for the platform.
var errUnknownPlatform = errors.New("no launcher configured for platform")

// Builder produces manifests from a Layout.
type Builder struct {
	layout *Layout
}

// NewBuilder creates a Builder for layout.
func NewBuilder(layout *Layout) *Builder {
	return &Builder{layout: layout}
}

// Build walks the artifacts directory and builds the manifest for platform.
func (b *Builder) Build(platform dist.Platform) (*dist.Manifest, error) {
	return b.BuildFrom(platform, discovery.Walk(b.layout.ArtifactsDir))
}

// BuildFrom builds the manifest for platform from already discovered listings.
func (b *Builder) BuildFrom(platform dist.Platform, listings iter.Seq2[discovery.Listing, error]) (*dist.Manifest, error) {
	launcher, ok := b.layout.Launchers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownPlatform, platform)
	}

	m := dist.NewManifest(platform)

	for _, e := range b.topLevel(platform, launcher) {
		if err := m.Add(e); err != nil {
			return nil, err
		}
	}

	for listing, err := range listings {
		if err != nil {
			return nil, fmt.Errorf("discover artifacts: %w", err)
		}

		if err = b.addListing(m, listing); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// topLevel returns the hand-enumerated entries in their fixed order.
func (b *Builder) topLevel(platform dist.Platform, launcher Launcher) []dist.Entry {
	l := b.layout
	entries := make([]dist.Entry, 0, len(l.RuntimeNames)+3)

	entries = append(entries, dist.File(filepath.Base(l.Readme), l.Readme, dist.DefaultFileMode))

	// Same bytes under every name; the game loads the hook name, tools look for the natural one.
	for _, name := range l.RuntimeNames {
		entries = append(entries, dist.File(name, l.RuntimeLibrary, dist.DefaultFileMode))
	}

	entries = append(entries,
		dist.File(filepath.Base(l.ScriptingLibrary), l.ScriptingLibrary, dist.DefaultFileMode),
		dist.File(launcher.Name, launcher.Source, launcherMode(platform)),
	)

	return entries
}

// addListing appends the directory entry of listing followed by its files.
func (b *Builder) addListing(m *dist.Manifest, listing discovery.Listing) error {
	dir := path.Join(b.layout.ArtifactsPrefix, listing.Dir)

	// With no prefix the walked root maps to the archive root, which has no entry of its own.
	if dir != "." {
		if err := m.Add(dist.Directory(dir)); err != nil {
			return err
		}
	}

	sourceDir := filepath.Join(b.layout.ArtifactsDir, filepath.FromSlash(listing.Dir))

	for _, name := range listing.Files {
		e := dist.File(path.Join(dir, name), filepath.Join(sourceDir, name), dist.DefaultFileMode)
		if err := m.Add(e); err != nil {
			return err
		}
	}

	return nil
}

// launcherMode returns the mode of the installer: executable only where the archive honors it.
func launcherMode(platform dist.Platform) fs.FileMode {
	if platform == dist.Linux {
		return dist.ExecutableMode
	}

	return dist.DefaultFileMode
}
