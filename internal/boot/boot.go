// Package boot holds the startup steps shared by the birdhop binaries:
// configuration, asset loading and world construction.
package boot

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/birdhop/game/assets"
	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/config"
	"github.com/birdhop/game/internal/sim"
	"go.uber.org/zap"
)

// Flags are the command line options every binary accepts.
type Flags struct {
	ConfigPath string
	Overrides  config.Overrides
}

// Bind registers -config and the config overrides on fs.
func (f *Flags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	f.Overrides.Bind(fs)
}

// Config loads the configuration file and applies the overrides. found
// reports whether a file was read.
func (f *Flags) Config() (cfg *config.Config, path string, found bool, err error) {
	path = config.Path(f.ConfigPath)
	cfg, found, err = config.Load(path)
	if err != nil {
		return nil, path, found, err
	}
	f.Overrides.Apply(cfg)
	return cfg, path, found, cfg.Validate()
}

// AssetFS returns the embedded tree or the configured directory.
func AssetFS(cfg config.AssetsConfig) fs.FS {
	if cfg.Embedded {
		return assets.FS()
	}
	return os.DirFS(cfg.Dir)
}

// Assets is a loaded asset registry and the names a world requires.
type Assets struct {
	Registry *asset.Registry
	Required []string
	Progress asset.Progress
}

// LoadAssets requests every manifest entry and waits for the loads to
// settle. Individual failures are left in the registry for Initialize to
// judge; only an unreadable manifest or ctx ending is an error here.
func LoadAssets(ctx context.Context, cfg *config.Config, fsys fs.FS, log *zap.Logger) (*Assets, error) {
	descs, err := asset.LoadManifest(fsys, cfg.Assets.Manifest)
	if err != nil {
		return nil, err
	}
	reg := asset.NewRegistry(fsys, cfg.Assets.Workers, log)
	reg.RequestAll(descs)
	if err := reg.Wait(ctx); err != nil {
		reg.Close()
		return nil, fmt.Errorf("wait for assets: %w", err)
	}

	required := slices.Clone(cfg.Game.Models)
	for _, d := range descs {
		if d.Required && !slices.Contains(required, d.Name) {
			required = append(required, d.Name)
		}
	}
	p := reg.PollProgress()
	if len(p.Failed) > 0 {
		log.Warn("assets failed to load", zap.Strings("failed", p.Failed))
	}
	log.Info("assets loaded", zap.Int("loaded", p.Loaded), zap.Int("total", p.Total))
	return &Assets{Registry: reg, Required: required, Progress: p}, nil
}

// Options builds the world options from the configuration.
func (a *Assets) Options(cfg *config.Config, log *zap.Logger) sim.Options {
	return sim.Options{
		Level:    cfg.Game.Level,
		Required: a.Required,
		Scripts:  cfg.Script.Enabled,
		Logger:   log,
	}
}

// Watch starts hot reload polling when enabled. It returns at once.
func (a *Assets) Watch(ctx context.Context, cfg config.AssetsConfig, log *zap.Logger) {
	if !cfg.HotReload {
		return
	}
	if cfg.Embedded {
		log.Warn("hot reload ignored for the embedded asset tree")
		return
	}
	log.Info("watching assets", zap.String("dir", cfg.Dir), zap.Duration("interval", cfg.PollInterval))
	go a.Registry.Watch(ctx, cfg.PollInterval)
}
