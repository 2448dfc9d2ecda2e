package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/washcycle"
)

// Blueprint is a validated configuration together with the cycle catalog
// it refers to. Build turns a blueprint into a fresh appliance, so one
// blueprint can back any number of independent washers.
type Blueprint struct {
	Config  *WasherConfig
	Catalog *washcycle.Catalog
}

// ConfigLoader parses, validates and caches appliance configurations.
// Use ConfigLoader to load configurations from files or readers while
// benefiting from SHA256-based caching of identical documents.
type ConfigLoader struct {
	// validator performs struct tag validation including the custom
	// semver, slotid and additive rules.
	validator *validator.Validate
	// cache stores blueprints indexed by the SHA256 hash of the normalized
	// configuration.
	// WARNING: Cached blueprints are shared and MUST NOT be mutated.
	cache   map[string]*Blueprint
	cacheMu sync.RWMutex
	// sf collapses concurrent loads of the same configuration.
	sf singleflight.Group
	// readFile reads catalog files. Tests replace it.
	readFile func(string) ([]byte, error)
}

// NewConfigLoader creates a loader with an empty cache.
// NewConfigLoader returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterWasherValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]*Blueprint),
		readFile:  os.ReadFile,
	}, nil
}

// LoadFromFile loads a configuration from a YAML file. A relative catalog
// path in the file resolves against the file's directory.
// WARNING: The returned blueprint is a cached instance and MUST NOT be
// mutated.
func (cl *ConfigLoader) LoadFromFile(path string) (*Blueprint, error) {
	cleanPath := filepath.Clean(path)
	data, err := cl.readFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data, filepath.Dir(cleanPath))
}

// LoadFromReader loads a configuration from r. A relative catalog path
// resolves against the working directory.
// WARNING: The returned blueprint is a cached instance and MUST NOT be
// mutated.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Blueprint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data, "")
}

// LoadConfig validates an in-memory configuration, such as one obtained
// from DefaultConfig and adjusted by flags.
func (cl *ConfigLoader) LoadConfig(cfg *WasherConfig) (*Blueprint, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config: %w", domain.ErrInvalidConfiguration)
	}
	return cl.compile(cfg, "")
}

func (cl *ConfigLoader) load(data []byte, baseDir string) (*Blueprint, error) {
	cfg, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cl.compile(cfg, baseDir)
}

// compile hashes the normalized configuration and, unless a blueprint for
// it is cached, validates it and loads its catalog. Concurrent compiles of
// the same configuration share one result.
func (cl *ConfigLoader) compile(cfg *WasherConfig, baseDir string) (*Blueprint, error) {
	// The blueprint outlives the call; never keep the caller's pointer.
	cfg = cfg.Clone()
	if cfg.Cycles.Catalog != "" && !filepath.IsAbs(cfg.Cycles.Catalog) && baseDir != "" {
		cfg.Cycles.Catalog = filepath.Join(baseDir, cfg.Cycles.Catalog)
	}

	hash, err := calculateConfigHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if bp, ok := cl.getCached(hash); ok {
			return bp, nil
		}

		if err := cl.validator.Struct(cfg); err != nil {
			return nil, domain.NewConfigError("struct", fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err))
		}

		catalog, err := cl.loadCatalog(cfg.Cycles.Catalog)
		if err != nil {
			return nil, domain.NewConfigError("cycles.catalog", err)
		}

		if err := validateSemantics(cfg, catalog); err != nil {
			return nil, fmt.Errorf("semantic validation failed: %w", err)
		}

		bp := &Blueprint{Config: cfg, Catalog: catalog}
		cl.putCached(hash, bp)
		return bp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Blueprint), nil
}

func (cl *ConfigLoader) loadCatalog(path string) (*washcycle.Catalog, error) {
	if path == "" {
		return washcycle.DefaultCatalog()
	}
	data, err := cl.readFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read cycle catalog: %w", err)
	}
	return washcycle.ParseCatalog(data)
}

// parseYAML decodes strictly so that a misspelt key fails instead of being
// silently ignored.
func (cl *ConfigLoader) parseYAML(data []byte) (*WasherConfig, error) {
	var cfg WasherConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &cfg, nil
}

// calculateConfigHash hashes the re-encoded configuration so that
// documents differing only in layout or key order share a cache entry.
func calculateConfigHash(cfg *WasherConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (cl *ConfigLoader) getCached(hash string) (*Blueprint, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	bp, ok := cl.cache[hash]
	return bp, ok
}

func (cl *ConfigLoader) putCached(hash string, bp *Blueprint) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache[hash] = bp
}

// CacheLen returns the number of cached blueprints.
func (cl *ConfigLoader) CacheLen() int {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	return len(cl.cache)
}

// ClearCache drops every cached blueprint, forcing later loads to
// revalidate.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache = make(map[string]*Blueprint)
}
