package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every table the build and packaging tools work from.
type Config struct {
	// Lua describes the upstream scripting engine and where it is built.
	Lua LuaConfig `yaml:"lua" mapstructure:"lua"`
	// Toolchain selects and configures the native compiler and linker.
	Toolchain ToolchainConfig `yaml:"toolchain" mapstructure:"toolchain"`
	// Dist is the release payload layout and the archive output names.
	Dist DistConfig `yaml:"dist" mapstructure:"dist"`
	// Timeout bounds the upstream download.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LuaConfig describes the upstream Lua source bundle and the build directory.
type LuaConfig struct {
	// Version is the upstream release, e.g. 5.4.4.
	Version string `yaml:"version" mapstructure:"version"`
	// BaseURL is the folder the source bundles are published in.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// BundleName is the bundle file prefix ("lua" in lua-5.4.4.tar.gz).
	BundleName string `yaml:"bundle_name" mapstructure:"bundle_name"`
	// BundleExtension selects the bundle compression (.tar.gz, .tgz or .tar.xz).
	BundleExtension string `yaml:"bundle_extension" mapstructure:"bundle_extension"`
	// BuildDir receives the library, its link stub and the include directory.
	BuildDir string `yaml:"build_dir" mapstructure:"build_dir"`
	// ExcludedSources are removed from src/ before compiling (standalone program entry points).
	ExcludedSources []string `yaml:"excluded_sources" mapstructure:"excluded_sources"`
}

// ToolchainConfig configures the external compiler and linker.
type ToolchainConfig struct {
	// Flavor is either "msvc" or "gnu".
	Flavor string `yaml:"flavor" mapstructure:"flavor"`
	// Compiler is the compiler command line; may carry leading arguments.
	Compiler string `yaml:"compiler" mapstructure:"compiler"`
	// Linker is the linker command line; may carry leading arguments.
	Linker string `yaml:"linker" mapstructure:"linker"`
	// CompileFlags are appended after the fixed compile flags.
	CompileFlags []string `yaml:"compile_flags" mapstructure:"compile_flags"`
	// LinkFlags are appended after the fixed link flags.
	LinkFlags []string `yaml:"link_flags" mapstructure:"link_flags"`
}

// DistConfig is the release payload layout.
type DistConfig struct {
	// Readme is the documentation file shipped at the archive root.
	Readme string `yaml:"readme" mapstructure:"readme"`
	// RuntimeLibrary is the built mod-loader library.
	RuntimeLibrary string `yaml:"runtime_library" mapstructure:"runtime_library"`
	// RuntimeNames are the destination names the runtime library is installed under.
	RuntimeNames []string `yaml:"runtime_names" mapstructure:"runtime_names"`
	// ScriptingLibrary is the Lua DLL; empty means the one produced by build-lua.
	ScriptingLibrary string `yaml:"scripting_library" mapstructure:"scripting_library"`
	// WindowsLauncher is the Windows installer binary.
	WindowsLauncher string `yaml:"windows_launcher" mapstructure:"windows_launcher"`
	// WindowsLauncherName is the destination name of the Windows installer.
	WindowsLauncherName string `yaml:"windows_launcher_name" mapstructure:"windows_launcher_name"`
	// LinuxLauncher is the Linux installer binary.
	LinuxLauncher string `yaml:"linux_launcher" mapstructure:"linux_launcher"`
	// LinuxLauncherName is the destination name of the Linux installer.
	LinuxLauncherName string `yaml:"linux_launcher_name" mapstructure:"linux_launcher_name"`
	// ArtifactsDir is the nested build-artifact tree walked into both archives.
	ArtifactsDir string `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`
	// ArtifactsPrefix is prepended to every discovered destination path.
	ArtifactsPrefix string `yaml:"artifacts_prefix" mapstructure:"artifacts_prefix"`
	// ZipOutput is the Windows archive file name.
	ZipOutput string `yaml:"zip_output" mapstructure:"zip_output"`
	// TarOutput is the Linux archive file name.
	TarOutput string `yaml:"tar_output" mapstructure:"tar_output"`
}

const (
	// FlavorMSVC selects cl.exe and link.exe.
	FlavorMSVC = "msvc"
	// FlavorGNU selects a gcc-compatible driver (mingw-w64 for cross builds).
	FlavorGNU = "gnu"

	// DefaultLuaVersion is the Lua release the mod loader embeds.
	DefaultLuaVersion = "5.4.4"

	// DefaultTimeout bounds the upstream download.
	DefaultTimeout = 60 * time.Second

	// DefaultFilePermissions is the permission used for saved configuration files.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLuaVersion is returned when the Lua version lacks major and minor parts.
	errInvalidLuaVersion = errors.New("lua version must have major and minor parts")
	// errUnknownFlavor is returned for toolchain flavors other than msvc and gnu.
	errUnknownFlavor = errors.New("unknown toolchain flavor")
	// errOutputRequired is returned when an archive output name is missing.
	errOutputRequired = errors.New("archive output names must be provided")
	// errOutputsCollide is returned when both archives would be written to the same file.
	errOutputsCollide = errors.New("zip and tar outputs must differ")
	// errRuntimeNamesRequired is returned when the runtime library has no destination name.
	errRuntimeNamesRequired = errors.New("at least one runtime library name must be provided")
)

// Default returns the configuration that reproduces the stock release layout.
func Default() *Config {
	return &Config{
		Lua: LuaConfig{
			Version:         DefaultLuaVersion,
			BaseURL:         "https://www.lua.org/ftp",
			BundleName:      "lua",
			BundleExtension: ".tar.gz",
			BuildDir:        filepath.Join("build", "lua54"),
			ExcludedSources: []string{"lua.c", "luac.c"},
		},
		Toolchain: ToolchainConfig{
			Flavor: FlavorMSVC,
		},
		Dist: DistConfig{
			Readme:              "README.md",
			RuntimeLibrary:      "target/release/chaudloader.dll",
			RuntimeNames:        []string{"chaudloader.dll", "dxgi.dll"},
			WindowsLauncher:     "target/release/install.exe",
			WindowsLauncherName: "install.exe",
			LinuxLauncher:       "target/x86_64-unknown-linux-musl/release/install",
			LinuxLauncherName:   "install",
			ArtifactsDir:        "build",
			ArtifactsPrefix:     "build",
			ZipOutput:           "dist.zip",
			TarOutput:           "dist.tar.bz2",
		},
		Timeout: DefaultTimeout,
	}
}

// Load builds the configuration from defaults, overridden by the YAML file at path.
// An empty path means defaults only; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every field of def so that viper can merge the file over it.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("lua.version", def.Lua.Version)
	v.SetDefault("lua.base_url", def.Lua.BaseURL)
	v.SetDefault("lua.bundle_name", def.Lua.BundleName)
	v.SetDefault("lua.bundle_extension", def.Lua.BundleExtension)
	v.SetDefault("lua.build_dir", def.Lua.BuildDir)
	v.SetDefault("lua.excluded_sources", def.Lua.ExcludedSources)

	v.SetDefault("toolchain.flavor", def.Toolchain.Flavor)
	v.SetDefault("toolchain.compiler", def.Toolchain.Compiler)
	v.SetDefault("toolchain.linker", def.Toolchain.Linker)
	v.SetDefault("toolchain.compile_flags", def.Toolchain.CompileFlags)
	v.SetDefault("toolchain.link_flags", def.Toolchain.LinkFlags)

	v.SetDefault("dist.readme", def.Dist.Readme)
	v.SetDefault("dist.runtime_library", def.Dist.RuntimeLibrary)
	v.SetDefault("dist.runtime_names", def.Dist.RuntimeNames)
	v.SetDefault("dist.scripting_library", def.Dist.ScriptingLibrary)
	v.SetDefault("dist.windows_launcher", def.Dist.WindowsLauncher)
	v.SetDefault("dist.windows_launcher_name", def.Dist.WindowsLauncherName)
	v.SetDefault("dist.linux_launcher", def.Dist.LinuxLauncher)
	v.SetDefault("dist.linux_launcher_name", def.Dist.LinuxLauncherName)
	v.SetDefault("dist.artifacts_dir", def.Dist.ArtifactsDir)
	v.SetDefault("dist.artifacts_prefix", def.Dist.ArtifactsPrefix)
	v.SetDefault("dist.zip_output", def.Dist.ZipOutput)
	v.SetDefault("dist.tar_output", def.Dist.TarOutput)

	v.SetDefault("timeout", def.Timeout)
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	return data, nil
}

// Save validates cfg and writes it to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills derived defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, err := parseLuaVersion(cfg.Lua.Version); err != nil {
		return err
	}

	if _, err := url.ParseRequestURI(cfg.Lua.BaseURL); err != nil {
		return fmt.Errorf("invalid lua base URL: %w", err)
	}

	if err := validateToolchain(&cfg.Toolchain); err != nil {
		return err
	}

	if cfg.Dist.ZipOutput == "" || cfg.Dist.TarOutput == "" {
		return errOutputRequired
	}

	if filepath.Clean(cfg.Dist.ZipOutput) == filepath.Clean(cfg.Dist.TarOutput) {
		return errOutputsCollide
	}

	if len(cfg.Dist.RuntimeNames) == 0 {
		return errRuntimeNamesRequired
	}

	if cfg.Dist.ScriptingLibrary == "" {
		cfg.Dist.ScriptingLibrary = cfg.Lua.LibraryPath()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}

// validateToolchain checks the flavor and fills the per-flavor command defaults.
func validateToolchain(tc *ToolchainConfig) error {
	tc.Flavor = strings.ToLower(strings.TrimSpace(tc.Flavor))

	switch tc.Flavor {
	case FlavorMSVC:
		if tc.Compiler == "" {
			tc.Compiler = "cl"
		}

		if tc.Linker == "" {
			tc.Linker = "link"
		}
	case FlavorGNU:
		if tc.Compiler == "" {
			tc.Compiler = "cc"
		}

		if tc.Linker == "" {
			tc.Linker = tc.Compiler
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownFlavor, tc.Flavor)
	}

	return nil
}

// parseLuaVersion parses a Lua release number and requires major and minor parts.
func parseLuaVersion(raw string) (*goversion.Version, error) {
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid lua version: %w", err)
	}

	// Segments pads missing parts with zeroes, so count what was actually written.
	if strings.Count(v.Original(), ".") < 1 {
		return nil, fmt.Errorf("%w: %q", errInvalidLuaVersion, raw)
	}

	return v, nil
}

// LibraryName returns the DLL base name upstream uses on Windows, e.g. lua54 for 5.4.x.
func (c *LuaConfig) LibraryName() string {
	v, err := parseLuaVersion(c.Version)
	if err != nil {
		return "lua"
	}

	segments := v.Segments()

	return fmt.Sprintf("lua%d%d", segments[0], segments[1])
}

// LibraryPath returns where build-lua leaves the DLL.
func (c *LuaConfig) LibraryPath() string {
	return filepath.Join(c.BuildDir, c.LibraryName()+".dll")
}

// SourceTreeName returns the top directory of the unpacked source bundle.
func (c *LuaConfig) SourceTreeName() string {
	return c.BundleName + "-" + c.Version
}
