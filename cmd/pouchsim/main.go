// Command pouchsim is the simulator's command-line front end (SPEC_FULL.md
// §1-2): a cobra root command with a `run` subcommand that executes a
// script file against a freshly booted game and prints the resulting
// snapshots, a `serve` subcommand that starts the REST/websocket API
// (internal/hostapi) instead, and an `info` subcommand that prints a .blfm
// program image's header. This mirrors the retrieval pack's own
// root-command-plus-subcommands cobra tree, just pointed at different
// operations.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyrule-sim/pouchsim/internal/config"
	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/executor"
	"github.com/hyrule-sim/pouchsim/internal/hostapi"
	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
	"github.com/hyrule-sim/pouchsim/internal/script"
	"github.com/hyrule-sim/pouchsim/internal/sim"
	"github.com/hyrule-sim/pouchsim/internal/ui/colorize"
)

// conventionalHeapStart is the heap base address the retrieval pack's own
// memory fixtures boot with; it carries no meaning from the real game, it
// just has to sit above whatever program regions a .blfm image describes.
const conventionalHeapStart = 0x90000000

var (
	configPath string
	imagePath  string
	pmdmAddr   uint64
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pouchsim",
		Short: "Simulate Breath of the Wild's inventory runtime against synthesized process images",
		Long: `pouchsim runs real PauseMenuDataMgr item-management code through an
emulated ARM64 process built from a packaged .blfm program image, instead of
reimplementing the game's item rules in Go.

Examples:
  pouchsim run script.txt --image game.blfm      run a script, print each step
  pouchsim serve --config pouchsim.yaml          start the REST/websocket API
  pouchsim info game.blfm                        show a program image's header`,
		DisableFlagsInUseLine: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to pouchsim.yaml (built-in defaults if omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug logging")

	runCmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a script file against a freshly booted game",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	runCmd.Flags().StringVar(&imagePath, "image", "", "path to a .blfm program image")
	runCmd.Flags().Uint64Var(&pmdmAddr, "pmdm-addr", 0, "emulated-memory address of the already-booted PMDM singleton")
	rootCmd.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST/websocket API server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&imagePath, "image", "", "path to a .blfm program image")
	serveCmd.Flags().Uint64Var(&pmdmAddr, "pmdm-addr", 0, "emulated-memory address of the already-booted PMDM singleton")
	rootCmd.AddCommand(serveCmd)

	infoCmd := &cobra.Command{
		Use:   "info <image.blfm>",
		Short: "Show a .blfm program image's header",
		Args:  cobra.ExactArgs(1),
		RunE:  showInfo,
	}
	rootCmd.AddCommand(infoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// imageBootstrapper boots a fresh GameState by loading a .blfm program
// image and wiring it against the configured entry-point offsets and
// PouchItem/PMDM layout (internal/config). It does not replay PMDM's own
// constructor/init sequence — internal/bootstrap only has GdtManager's
// sequence authored, PMDM's own returns ErrSequenceNotReady — so the
// caller supplies the already-booted PMDM singleton's address directly,
// the same seam internal/hostapi's own tests fill with a fake bootstrapper
// wrapping a bare two-instruction process.
type imageBootstrapper struct {
	cfg       config.Config
	imagePath string
	pmdmAddr  uint64
}

func (b *imageBootstrapper) NewGame(ver program.GameVer) (*sim.GameState, error) {
	img, err := loadImage(b.imagePath)
	if err != nil {
		return nil, err
	}
	if img.Ver != ver {
		return nil, fmt.Errorf("pouchsim: image is for game version %s, requested %s", img.Ver, ver)
	}

	mem, err := newMemoryFromImage(img, b.cfg)
	if err != nil {
		return nil, err
	}

	proc := process.New(mem, proxy.New(), linker.NewRegistry(), ver, img.ProgramStart)
	ep := linker.NewEntryPoints(b.cfg.Offsets())

	layout, err := b.cfg.Layout()
	if err != nil {
		return nil, err
	}
	maxBlocks, maxInsn := b.cfg.BlockLimits()
	limits := cpu.Limits{MaxBlocksPerCall: maxBlocks, MaxInsnPerBlock: maxInsn}

	return sim.NewGameState(proc, cpu.NewCpu1(), limits, ep, layout, b.pmdmAddr), nil
}

func loadImage(path string) (*program.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("pouchsim: --image is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pouchsim: open image %s: %w", path, err)
	}
	defer f.Close()
	return program.Decode(f)
}

// newMemoryFromImage builds one memory.Region per region the image
// describes (text/rodata/data commonly arrive as separate permission
// spans) plus a zeroed heap sized from configuration.
func newMemoryFromImage(img *program.Image, cfg config.Config) (*memory.Memory, error) {
	regions := make([]*memory.Region, 0, len(img.Regions))
	for i, r := range img.Regions {
		region, err := memory.NewProgramRegion(
			"main",
			img.ProgramStart+uint64(r.RelStart),
			uint64(len(r.Data)),
			r.Permissions.ToMemory(),
			[]memory.ProgramSegment{{RelStart: 0, Data: r.Data}},
		)
		if err != nil {
			return nil, fmt.Errorf("pouchsim: build region %d: %w", i, err)
		}
		regions = append(regions, region)
	}

	heapSize := cfg.Heap.Size
	if heapSize == 0 {
		heapSize = 4 << 20
	}
	heap := memory.NewHeap(conventionalHeapStart, heapSize, cfg.Heap.PreAllocated)
	return memory.NewMemory(memory.DefaultFlags(), heap, regions...), nil
}

func runScript(cmd *cobra.Command, args []string) error {
	obslog.Init(verbose)
	defer obslog.L.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ver, err := cfg.GameVer()
	if err != nil {
		return err
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("pouchsim: read script %s: %w", args[0], err)
	}
	commands, err := script.Parse(string(src), script.LiteralResolver{})
	if err != nil {
		return fmt.Errorf("pouchsim: parse script: %w", err)
	}

	boot := &imageBootstrapper{cfg: cfg, imagePath: imagePath, pmdmAddr: pmdmAddr}
	gs, err := boot.NewGame(ver)
	if err != nil {
		return fmt.Errorf("pouchsim: boot game: %w", err)
	}

	handle := sim.NewRunHandle()
	initial := sim.State{Game: sim.Game{State: gs}}
	out := sim.RunParsed(handle, initial, commands)

	for i, snap := range out.States {
		printStep(i, snap)
	}
	if len(out.Errors) > 0 {
		fmt.Fprintln(os.Stderr, colorize.Error("errors:"))
		for _, e := range out.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", colorize.Error(e.Error()))
		}
		return fmt.Errorf("pouchsim: run finished with %d error(s)", len(out.Errors))
	}
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ver, err := cfg.GameVer()
	if err != nil {
		return err
	}

	obslog.Init(verbose || cfg.LogVerbose)
	defer obslog.L.Sync()

	workers := cfg.Executor.Workers
	if workers <= 0 {
		workers = 4
	}
	pool := executor.New(workers, obslog.L)
	defer pool.Shutdown()

	boot := &imageBootstrapper{cfg: cfg, imagePath: imagePath, pmdmAddr: pmdmAddr}
	srv := hostapi.NewServer(pool, boot, ver, obslog.L)
	router := hostapi.NewRouter(srv)

	addr := cfg.HTTP.BindAddr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	obslog.L.Sugar().Infof("pouchsim: serving on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("pouchsim: serve: %w", err)
	}
	return nil
}

// showInfo prints a .blfm image's header, the way the teacher's own `info`
// subcommand reports an ELF binary's base/entry/symbol counts — just
// pointed at this repo's own image format instead.
func showInfo(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("pouchsim: open image %s: %w", args[0], err)
	}
	defer f.Close()

	img, err := program.Decode(f)
	if err != nil {
		return fmt.Errorf("pouchsim: decode image: %w", err)
	}

	fmt.Printf("%s %s\n", colorize.Detail("version:"), img.Ver)
	fmt.Printf("%s %d\n", colorize.Detail("dlc:"), img.DLC)
	fmt.Printf("%s %s\n", colorize.Detail("program start:"), colorize.Address(img.ProgramStart))
	fmt.Printf("%s 0x%x\n", colorize.Detail("program size:"), img.ProgramSize)
	fmt.Printf("%s %d\n", colorize.Detail("regions:"), len(img.Regions))
	for i, r := range img.Regions {
		fmt.Printf("  %s rel=0x%x perm=0x%x size=%d\n", colorize.Detail(fmt.Sprintf("[%d]", i)), r.RelStart, r.Permissions, len(r.Data))
	}
	fmt.Printf("%s %d\n", colorize.Detail("static data blobs:"), len(img.Data))
	return nil
}
