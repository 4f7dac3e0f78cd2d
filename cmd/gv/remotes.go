package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server profile.
type Remote struct {
	URL      string `toml:"url"`
	GRPCAddr string `toml:"grpc_addr,omitempty"`
	Token    string `toml:"token,omitempty"`
	NATSURL  string `toml:"nats_url,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "graphview")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

var errNoActiveRemote = errors.New("no active remote; specify a name or run 'gv remote use <name>'")

func (c *RemotesConfig) lookup(name string) (Remote, error) {
	if name == "" {
		return Remote{}, errNoActiveRemote
	}
	r, ok := c.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

func (c *RemotesConfig) use(name string) error {
	if _, err := c.lookup(name); err != nil {
		return err
	}
	c.Active = name
	return nil
}

// remove deletes name and clears it as the active remote.
func (c *RemotesConfig) remove(name string) error {
	if _, err := c.lookup(name); err != nil {
		return err
	}
	delete(c.Remotes, name)
	if c.Active == name {
		c.Active = ""
	}
	return nil
}

func (c *RemotesConfig) names() []string {
	return slices.Sorted(maps.Keys(c.Remotes))
}

// updateRemotes loads the remotes file, applies fn and saves the result.
// Nothing is written when fn fails.
func updateRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

// The active remote is read once per process.
var (
	remoteOnce   sync.Once
	activeRemote Remote
)

func loadActiveRemote() Remote {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		activeRemote = cfg.Remotes[cfg.Active]
	})
	return activeRemote
}

func activeRemoteURL() string      { return loadActiveRemote().URL }
func activeRemoteGRPCAddr() string { return loadActiveRemote().GRPCAddr }
func activeRemoteToken() string    { return loadActiveRemote().Token }
func activeRemoteNATSURL() string  { return loadActiveRemote().NATSURL }

// maskToken shows at most the first eight characters of a token.
func maskToken(t string) string {
	if len(t) > 8 {
		return t[:8] + "..."
	}
	return t
}
