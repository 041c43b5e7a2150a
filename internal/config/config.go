// Package config loads pouchsim's on-disk YAML configuration: default game
// version, heap sizing, per-call block/instruction limits, executor worker
// count, HTTP bind address, and log verbosity (SPEC_FULL.md §5.4). It also
// supplies the ptr.Layout that internal/ptr otherwise leaves unconfigured,
// and a linker.Offsets table that holds only the seeded event-hook offsets;
// every other entry-point offset is still left to the caller
// (internal/linker: "supplied by whoever boots the process").
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
)

// Config is pouchsim.yaml's parsed shape.
type Config struct {
	GameVersion string `yaml:"game_version"`

	Heap struct {
		Size         uint64 `yaml:"size"`
		PreAllocated uint64 `yaml:"pre_allocated"`
	} `yaml:"heap"`

	Limits struct {
		MaxBlocksPerCall int `yaml:"max_blocks_per_call"`
		MaxInsnPerBlock  int `yaml:"max_insn_per_block"`
	} `yaml:"limits"`

	Executor struct {
		Workers int `yaml:"workers"`
	} `yaml:"executor"`

	HTTP struct {
		BindAddr string `yaml:"bind_addr"`
	} `yaml:"http"`

	LogVerbose bool `yaml:"log_verbose"`
}

// Default returns the configuration pouchsim runs with when no file is
// supplied: Ver150, a 4 MiB heap, unbounded per-call limits, a 4-worker
// executor pool, and the REST server on localhost:8080.
func Default() Config {
	var c Config
	c.GameVersion = "1.5.0"
	c.Heap.Size = 4 << 20
	c.Heap.PreAllocated = 0
	c.Limits.MaxBlocksPerCall = 0
	c.Limits.MaxInsnPerBlock = 0
	c.Executor.Workers = 4
	c.HTTP.BindAddr = "127.0.0.1:8080"
	c.LogVerbose = false
	return c
}

// Load reads and parses path, filling in any field the file omits with
// Default's value.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// GameVer resolves the configured version string to a program.GameVer.
func (c Config) GameVer() (program.GameVer, error) {
	switch c.GameVersion {
	case "1.5.0", "150":
		return program.Ver150, nil
	case "1.6.0", "160":
		return program.Ver160, nil
	default:
		return 0, fmt.Errorf("config: unrecognized game_version %q", c.GameVersion)
	}
}

// BlockLimits returns the configured per-call limits as the two fields of
// cpu.Limits. internal/cpu is not imported directly to keep this package's dependency
// surface to what it actually constructs; callers assemble cpu.Limits
// themselves from these two fields.
func (c Config) BlockLimits() (maxBlocks, maxInsn int) {
	return c.Limits.MaxBlocksPerCall, c.Limits.MaxInsnPerBlock
}

// Offsets returns the packaged entry-point/event-hook address table. Only
// the two event hooks pinned down in the retrieved reference material are
// seeded here (via linker.NewOffsets); every other entry point's address
// must still be supplied by Set before it can be resolved, matching
// internal/linker's own "don't fabricate ungrounded addresses" stance.
func (c Config) Offsets() *linker.Offsets {
	return linker.NewOffsets()
}

// Layout returns the packaged PouchItem/PMDM field-offset table for the
// configured game version. Both supported versions share a layout in the
// retrieved reference material, so GameVersion only selects which table a
// future per-version split would key on.
func (c Config) Layout() (ptr.Layout, error) {
	if _, err := c.GameVer(); err != nil {
		return ptr.Layout{}, err
	}
	return ptr.NewLayout(defaultPouchItemLayout, defaultPMDMLayout), nil
}

// defaultPouchItemLayout and defaultPMDMLayout are the packaged field-offset
// tables used until a per-version override is configured. Offsets follow
// PouchItem/PauseMenuDataMgr's field order as described in spec.md §3.
var defaultPouchItemLayout = ptr.PouchItemLayout{
	Size: 0x110,

	NameOff: 0x00,
	NameCap: 0x60,

	TypeOff:  0x60,
	UseOff:   0x64,
	ValueOff: 0x68,

	EquippedOff: 0x6C,
	InInvOff:    0x6D,

	HealthRecoverOff:  0x70,
	EffectDurationOff: 0x74,
	SellPriceOff:      0x78,
	EffectIDOff:       0x7C,
	EffectLevelOff:    0x80,

	IngredientOff: [5]uint64{0x84, 0x9C, 0xB4, 0xCC, 0xE4},
	IngredientCap: 0x18,

	ListNodeOff: 0x100,
	NextOff:     0x00,
	PrevOff:     0x08,
}

var defaultPMDMLayout = ptr.PMDMLayout{
	List1HeadOff:  0x98,
	List1CountOff: 0xA8,
	List2HeadOff:  0xB0,
	NumTabsOff:    0xC0,
	TabsOff:       0xC4,
	TabsTypeOff:   0x1B4,
	MaxTabs:       50,
}
