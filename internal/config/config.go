package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the fully resolved inputs for one packaging run: the seven
// positional CLI parameters plus the settings resolved from the environment.
type Config struct {
	// BuildDir is the project build directory where generated artifacts land.
	BuildDir string `yaml:"build_dir"`
	// InstallPrefix is the install path prefix the project was configured with (e.g. /usr).
	InstallPrefix string `yaml:"install_prefix"`
	// Arch is the target architecture identifier passed to the linker (x86 or x64).
	Arch string `yaml:"arch"`
	// OutputPath is where the final MSI package is written.
	OutputPath string `yaml:"output_msi"`
	// WxsPath is the hand-authored package definition file.
	WxsPath string `yaml:"wxs_file"`
	// HeatPath is the harvester executable (wixl-heat).
	HeatPath string `yaml:"wixl_heat"`
	// WixlPath is the linker executable (wixl).
	WixlPath string `yaml:"wixl"`

	// StagingRoot is the virtual install root resolved from the environment.
	// It is runtime state, not a persisted setting.
	StagingRoot string `yaml:"-"`
	// Manufacturer is the package manufacturer propagated to the linker.
	Manufacturer string `yaml:"manufacturer"`
}

const (
	// EnvStagingRoot names the required environment variable pointing at the
	// virtual install root produced by the install step.
	EnvStagingRoot = "DESTDIR"

	// EnvManufacturer names the optional environment variable carrying the
	// package manufacturer read by the linker.
	EnvManufacturer = "MANUFACTURER"

	// DefaultManufacturer is used when EnvManufacturer is unset.
	DefaultManufacturer = "Msipack project"

	// DefaultSettingsFilename is the build record written next to the
	// generated fragment.
	DefaultSettingsFilename = "msipack-settings.yaml"

	// DefaultFilePermissions is the file mode for persisted settings.
	DefaultFilePermissions = 0o600
)

var (
	// ErrStagingRootNotSet is the fatal precondition failure for a missing DESTDIR.
	ErrStagingRootNotSet = errors.New(
		"$DESTDIR environment variable missing: run the install step first and set DESTDIR to point to the installation virtual root")

	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errMissingParameter is returned when a required positional parameter is empty.
	errMissingParameter = errors.New("required parameter is missing")
)

// Resolve reads the environment-derived settings into cfg and validates the
// whole configuration. It is the single place where process environment is
// consulted; callers downstream work off the struct only.
func Resolve(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	root, ok := os.LookupEnv(EnvStagingRoot)
	if !ok || root == "" {
		return ErrStagingRootNotSet
	}

	// The manifest lists absolute paths, so the root they are matched
	// against must be absolute too.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve staging root: %w", err)
	}

	cfg.StagingRoot = absRoot

	// Manufacturer is optional; normalize to the fixed default when unset.
	if manufacturer, ok := os.LookupEnv(EnvManufacturer); ok {
		cfg.Manufacturer = manufacturer
	} else {
		cfg.Manufacturer = DefaultManufacturer
	}

	return Validate(cfg)
}

// Validate checks that every required field of the configuration is present.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := []struct {
		name  string
		value string
	}{
		{"build directory", cfg.BuildDir},
		{"install prefix", cfg.InstallPrefix},
		{"target architecture", cfg.Arch},
		{"output MSI path", cfg.OutputPath},
		{"WXS file path", cfg.WxsPath},
		{"wixl-heat path", cfg.HeatPath},
		{"wixl path", cfg.WixlPath},
	}
	for _, param := range required {
		if param.value == "" {
			return fmt.Errorf("%s: %w", param.name, errMissingParameter)
		}
	}

	return nil
}

// Save writes the resolved settings to the provided path as YAML.
// It serves as a build record of the parameters a package was produced with.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Load reads previously saved settings from the provided path.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}
