package program

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/memory"
)

// LoadRegions splits the image's flat region table into one memory.Region
// per .blfm region, relocated to ProgramStart. Each region is given a
// descriptive module name since a program image has no symbol table beyond
// what the packer recorded.
func (img *Image) LoadRegions() ([]*memory.Region, error) {
	out := make([]*memory.Region, 0, len(img.Regions))
	for i, r := range img.Regions {
		start := img.ProgramStart + uint64(r.RelStart)
		size := alignUp(uint32(len(r.Data)), memory.PageSize)
		name := fmt.Sprintf("module[%d]@0x%x", i, r.RelStart)
		seg := memory.ProgramSegment{RelStart: 0, Data: r.Data}
		region, err := memory.NewProgramRegion(name, start, uint64(size), r.Permissions.ToMemory(), []memory.ProgramSegment{seg})
		if err != nil {
			return nil, fmt.Errorf("program: building region %d: %w", i, err)
		}
		out = append(out, region)
	}
	return out, nil
}
