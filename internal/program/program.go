// Package program implements the .blfm program image format (spec.md §6):
// binary, little-endian, produced by an off-line packer, describing the
// game's loaded modules and any static data blobs bundled alongside them.
package program

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hyrule-sim/pouchsim/internal/memory"
)

// GameVer identifies which shipped build of the game a program image and a
// singleton bootstrap sequence target.
type GameVer uint8

const (
	Ver150 GameVer = iota
	Ver160
)

func (v GameVer) String() string {
	switch v {
	case Ver150:
		return "1.5.0"
	case Ver160:
		return "1.6.0"
	default:
		return fmt.Sprintf("GameVer(%d)", uint8(v))
	}
}

// DataID enumerates the static-data blobs a program image may bundle
// (e.g. a decompressed actor info table used by item lookups).
type DataID uint8

const (
	DataActorInfo DataID = iota
)

// RegionPerm mirrors the .blfm on-disk permission bitmask.
type RegionPerm uint32

const (
	PermExecute RegionPerm = 0x1
	PermWrite   RegionPerm = 0x2
	PermRead    RegionPerm = 0x4
)

func (p RegionPerm) ToMemory() memory.Permission {
	var m memory.Permission
	if p&PermExecute != 0 {
		m |= memory.PermExecute
	}
	if p&PermWrite != 0 {
		m |= memory.PermWrite
	}
	if p&PermRead != 0 {
		m |= memory.PermRead
	}
	return m
}

// Region is one contiguous span of the program image, page-aligned data
// included.
type Region struct {
	RelStart    uint32 // relative to ProgramStart, 64 KiB aligned
	Permissions RegionPerm
	Data        []byte
}

// StaticData is a named blob bundled in the image (e.g. ActorInfo.byml).
type StaticData struct {
	ID   DataID
	Data []byte
}

// Image is the parsed contents of a .blfm file.
type Image struct {
	Ver          GameVer
	DLC          uint8 // advisory only; may be overridden at boot
	ProgramStart uint64
	ProgramSize  uint32
	Regions      []Region
	Data         []StaticData
}

// DataByID returns the first static-data blob with the given id, if any.
func (img *Image) DataByID(id DataID) ([]byte, bool) {
	for _, d := range img.Data {
		if d.ID == id {
			return d.Data, true
		}
	}
	return nil, false
}

// Decode parses a .blfm image from r.
func Decode(r io.Reader) (*Image, error) {
	br := &byteReader{r: r}

	ver, err := br.u8()
	if err != nil {
		return nil, fmt.Errorf("program: read game version: %w", err)
	}
	dlc, err := br.u8()
	if err != nil {
		return nil, fmt.Errorf("program: read dlc tag: %w", err)
	}
	programStart, err := br.u64()
	if err != nil {
		return nil, fmt.Errorf("program: read program_start: %w", err)
	}
	if programStart%memory.PageSize != 0 {
		return nil, fmt.Errorf("program: %w: program_start 0x%x not page aligned", ErrBadImage, programStart)
	}
	programSize, err := br.u32()
	if err != nil {
		return nil, fmt.Errorf("program: read program_size: %w", err)
	}

	regionCount, err := br.u32()
	if err != nil {
		return nil, fmt.Errorf("program: read region count: %w", err)
	}
	regions := make([]Region, 0, regionCount)
	for i := uint32(0); i < regionCount; i++ {
		relStart, err := br.u32()
		if err != nil {
			return nil, fmt.Errorf("program: region %d rel_start: %w", i, err)
		}
		if relStart%memory.RegionAlign != 0 {
			return nil, fmt.Errorf("program: %w: region %d rel_start 0x%x not 64KiB aligned", ErrBadImage, i, relStart)
		}
		perms, err := br.u32()
		if err != nil {
			return nil, fmt.Errorf("program: region %d permissions: %w", i, err)
		}
		dataLen, err := br.u32()
		if err != nil {
			return nil, fmt.Errorf("program: region %d data_len: %w", i, err)
		}
		padded := alignUp(dataLen, memory.PageSize)
		buf := make([]byte, padded)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("program: region %d data: %w", i, err)
		}
		regions = append(regions, Region{RelStart: relStart, Permissions: RegionPerm(perms), Data: buf[:dataLen]})
	}

	dataCount, err := br.u32()
	if err != nil {
		return nil, fmt.Errorf("program: read static data count: %w", err)
	}
	data := make([]StaticData, 0, dataCount)
	for i := uint32(0); i < dataCount; i++ {
		id, err := br.u8()
		if err != nil {
			return nil, fmt.Errorf("program: data %d id: %w", i, err)
		}
		length, err := br.u32()
		if err != nil {
			return nil, fmt.Errorf("program: data %d len: %w", i, err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("program: data %d bytes: %w", i, err)
		}
		data = append(data, StaticData{ID: DataID(id), Data: buf})
	}

	return &Image{
		Ver:          GameVer(ver),
		DLC:          dlc,
		ProgramStart: programStart,
		ProgramSize:  programSize,
		Regions:      regions,
		Data:         data,
	}, nil
}

// Encode writes img back out in .blfm form. encode(decode(image)) == image
// for a well-formed image (spec.md §8 property 5).
func (img *Image) Encode(w io.Writer) error {
	bw := &byteWriter{w: w}
	if err := bw.u8(uint8(img.Ver)); err != nil {
		return err
	}
	if err := bw.u8(img.DLC); err != nil {
		return err
	}
	if err := bw.u64(img.ProgramStart); err != nil {
		return err
	}
	if err := bw.u32(img.ProgramSize); err != nil {
		return err
	}
	if err := bw.u32(uint32(len(img.Regions))); err != nil {
		return err
	}
	for _, r := range img.Regions {
		if err := bw.u32(r.RelStart); err != nil {
			return err
		}
		if err := bw.u32(uint32(r.Permissions)); err != nil {
			return err
		}
		if err := bw.u32(uint32(len(r.Data))); err != nil {
			return err
		}
		padded := make([]byte, alignUp(uint32(len(r.Data)), memory.PageSize))
		copy(padded, r.Data)
		if _, err := w.Write(padded); err != nil {
			return err
		}
	}
	if err := bw.u32(uint32(len(img.Data))); err != nil {
		return err
	}
	for _, d := range img.Data {
		if err := bw.u8(uint8(d.ID)); err != nil {
			return err
		}
		if err := bw.u32(uint32(len(d.Data))); err != nil {
			return err
		}
		if _, err := w.Write(d.Data); err != nil {
			return err
		}
	}
	return nil
}

func alignUp(v, align uint32) uint32 { return (v + align - 1) &^ (align - 1) }

type byteReader struct{ r io.Reader }

func (b *byteReader) u8() (uint8, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.r, buf[:])
	return buf[0], err
}
func (b *byteReader) u32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
func (b *byteReader) u64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

type byteWriter struct{ w io.Writer }

func (b *byteWriter) u8(v uint8) error {
	_, err := b.w.Write([]byte{v})
	return err
}
func (b *byteWriter) u32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := b.w.Write(buf[:])
	return err
}
func (b *byteWriter) u64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := b.w.Write(buf[:])
	return err
}
