package main

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/sim"
	"github.com/hyrule-sim/pouchsim/internal/ui/colorize"
)

// printStep renders one step's snapshot the way the teacher's own trace
// printer lays out a disassembly line: an address/label in yellow, detail
// text in gray, errors in pink — just pointed at pouch state instead of
// instruction text, since a pouchsim run has no per-instruction trace to
// show the user.
func printStep(index int, snap sim.StateSnapshot) {
	fmt.Printf("%s %s\n", colorize.Header("==="), colorize.Header(fmt.Sprintf("step %d", index)))

	g := snap.Game
	switch {
	case g.Uninit:
		fmt.Printf("  %s\n", colorize.Detail("(uninitialized)"))
	case g.Crashed != nil:
		fmt.Printf("  %s %s\n", colorize.Error("crashed at"), colorize.Address(g.Crashed.PC))
		fmt.Printf("  %s\n", colorize.Error(g.Crashed.Err.Error()))
	case g.Running != nil:
		printRunning(g.Running)
	}
}

func printRunning(r *sim.GameSnapshotRunning) {
	fmt.Printf("  %s %s\n", colorize.Detail("screen:"), r.Screen.String())
	fmt.Printf("  %s %s %d  %s %d\n",
		colorize.Detail("pouch:"),
		colorize.Detail("count="), r.Pouch.List1Count,
		colorize.Detail("tabs="), r.Pouch.NumTabs)

	for i, tab := range r.Pouch.Tabs {
		if len(tab.Items) == 0 {
			continue
		}
		fmt.Printf("    %s %s\n", colorize.Detail(fmt.Sprintf("tab[%02d]", i)), colorize.Detail(fmt.Sprintf("type=%d", tab.Type)))
		for _, item := range tab.Items {
			eq := ""
			if item.Equipped {
				eq = colorize.Detail(" (equipped)")
			}
			fmt.Printf("      %s %s%s\n", colorize.FuncName(item.Name), colorize.Detail(fmt.Sprintf("x%d", item.Value)), eq)
		}
	}
}
