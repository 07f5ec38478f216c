package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/msipack/internal/config"
	"github.com/oshokin/msipack/internal/logger"
	"github.com/oshokin/msipack/internal/staging"
	"github.com/oshokin/msipack/internal/wixl"
)

// Options contains inputs for the packaging entry point: the seven positional
// CLI parameters, plus an optional Toolset override used by tests.
type Options struct {
	// BuildDir is the project build directory.
	BuildDir string
	// InstallPrefix is the install path prefix (e.g. /usr).
	InstallPrefix string
	// Arch is the target architecture identifier.
	Arch string
	// OutputPath is the desired MSI output path.
	OutputPath string
	// WxsPath is the hand-authored package definition file.
	WxsPath string
	// HeatPath is the harvester executable.
	HeatPath string
	// WixlPath is the linker executable.
	WixlPath string

	// SettingsPath overrides where the resolved-settings build record is
	// written. Empty means <build-dir>/data/ next to the fragment.
	SettingsPath string

	// Toolset overrides the exec-backed tool drivers. Nil means real tools.
	Toolset wixl.Toolset
}

const (
	// ComponentGroup names the component group the generated fragment declares.
	ComponentGroup = "CG.AppFiles"

	// StagingRootVar is how the fragment refers to the staging root symbolically.
	StagingRootVar = "var.DESTDIR"

	// DirectoryRef anchors harvested components in the package directory tree.
	DirectoryRef = "INSTALLDIR"

	// FragmentFilename is the fixed name of the generated fragment
	// under the build directory's data/ subdirectory.
	FragmentFilename = "app-files.wxs"

	// fragmentDirName is the fixed subdirectory for generated artifacts.
	fragmentDirName = "data"

	// fragmentFileMode is the file mode for generated build artifacts.
	fragmentFileMode = 0o644
)

// FragmentPath returns the deterministic location of the generated fragment
// for the given build directory.
func FragmentPath(buildDir string) string {
	return filepath.Join(buildDir, fragmentDirName, FragmentFilename)
}

// packager executes one harvest-and-link run. It is unexported—callers use
// Run, which resolves configuration and wires the toolset.
type packager struct {
	// cfg is the fully resolved run configuration.
	cfg *config.Config
	// settingsPath is where the build record is persisted.
	settingsPath string
	// tools drives the external harvester and linker.
	tools wixl.Toolset
}

// Run executes the packaging workflow: resolve configuration, harvest the
// staging tree, persist the fragment, and link the MSI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "msipack")

	cfg := &config.Config{
		BuildDir:      opts.BuildDir,
		InstallPrefix: opts.InstallPrefix,
		Arch:          opts.Arch,
		OutputPath:    opts.OutputPath,
		WxsPath:       opts.WxsPath,
		HeatPath:      opts.HeatPath,
		WixlPath:      opts.WixlPath,
	}

	// Environment preconditions are checked before any side effect occurs.
	if err := config.Resolve(cfg); err != nil {
		return err
	}

	tools := opts.Toolset
	if tools == nil {
		tools = wixl.NewToolset(cfg.HeatPath, cfg.WixlPath)
	}

	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = filepath.Join(cfg.BuildDir, fragmentDirName, config.DefaultSettingsFilename)
	}

	pkg := &packager{cfg: cfg, settingsPath: settingsPath, tools: tools}
	if err := pkg.run(ctx); err != nil {
		return fmt.Errorf("packaging failed: %w", err)
	}

	logger.InfoKV(ctx, "Packaging completed successfully", "output", cfg.OutputPath)

	return nil
}

// run walks the staging root, harvests the fragment, persists it and links
// the final package. Stages are strictly sequential; the first failure aborts
// the whole run.
func (p *packager) run(ctx context.Context) error {
	manifest, err := staging.Collect(p.cfg.StagingRoot)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Collected staging manifest",
		"staging_root", p.cfg.StagingRoot, "files", len(manifest))

	fragment, err := p.harvest(ctx, manifest)
	if err != nil {
		return fmt.Errorf("harvest staging tree: %w", err)
	}

	fragmentPath, err := p.persistFragment(ctx, fragment)
	if err != nil {
		return err
	}

	if err = p.link(ctx, fragmentPath); err != nil {
		return fmt.Errorf("link package: %w", err)
	}

	return nil
}

// harvest feeds the manifest to the harvester and returns the fragment text.
func (p *packager) harvest(ctx context.Context, manifest []string) (string, error) {
	return p.tools.Harvest(ctx, manifest, wixl.HarvestOptions{
		// Plain concatenation: the prefix is rooted (e.g. /usr), so joining
		// would strip the root and mangle the path.
		SourcePrefix:   p.cfg.StagingRoot + p.cfg.InstallPrefix + "/",
		ComponentGroup: ComponentGroup,
		VarName:        StagingRootVar,
		DirectoryRef:   DirectoryRef,
	})
}

// persistFragment writes the harvested fragment (with a trailing newline) to
// its deterministic path under the build directory, overwriting previous
// content, and persists the resolved settings as a build record.
func (p *packager) persistFragment(ctx context.Context, fragment string) (string, error) {
	dataDir := filepath.Join(p.cfg.BuildDir, fragmentDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create fragment directory: %w", err)
	}

	fragmentPath := FragmentPath(p.cfg.BuildDir)
	if err := os.WriteFile(fragmentPath, []byte(fragment+"\n"), fragmentFileMode); err != nil {
		return "", fmt.Errorf("write fragment: %w", err)
	}

	logger.InfoKV(ctx, "Saved harvested fragment", "path", fragmentPath)

	if err := p.saveSettings(ctx); err != nil {
		return "", err
	}

	return fragmentPath, nil
}

// saveSettings persists the resolved settings as a build record. When a
// record from a previous run exists with different parameters, the change is
// surfaced before it is overwritten.
func (p *packager) saveSettings(ctx context.Context) error {
	if previous, err := config.Load(p.settingsPath); err == nil {
		current := *p.cfg
		// StagingRoot is runtime state and never persisted.
		current.StagingRoot = ""

		if *previous != current {
			logger.WarnKV(ctx, "Packaging settings changed since previous run", "path", p.settingsPath)
		}
	}

	return config.Save(p.settingsPath, p.cfg)
}

// link invokes the linker with path substitutions and the manufacturer
// propagated into the child environment.
func (p *packager) link(ctx context.Context, fragmentPath string) error {
	return p.tools.Link(ctx, wixl.LinkOptions{
		Defines: []wixl.Define{
			{Name: "SourceDir", Value: p.cfg.InstallPrefix},
			{Name: config.EnvStagingRoot, Value: p.cfg.StagingRoot + p.cfg.InstallPrefix},
		},
		Arch:       p.cfg.Arch,
		OutputPath: p.cfg.OutputPath,
		InputPaths: []string{p.cfg.WxsPath, fragmentPath},
		ExtraEnv:   []string{config.EnvManufacturer + "=" + p.cfg.Manufacturer},
	})
}
