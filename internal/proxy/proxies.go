package proxy

// Proxies is a Process's full set of host-side proxy lists. Spec §3/§4.7
// leaves room for more than one proxy kind ("ProxyList"s, plural) but names
// only TriggerParam as implemented today; AocManager/InfoData accessors
// that would warrant their own proxy are out of scope per spec.md's
// bootstrap notes.
type Proxies struct {
	TriggerParam *TriggerParam

	// TriggerParamAddr is the address AllocateProxy(TriggerParam) reserved
	// in the emulated heap during singleton bootstrap: a small placeholder
	// that holds none of TriggerParam's data and exists only so pointers
	// the guest holds to its GDT manager compare as a stable, non-null
	// address. Nothing redirects guest access through this address to
	// TriggerParam (internal/linker registers no hook for it), so
	// TriggerParam is read and written only through this package's API.
	TriggerParamAddr uint64
}

// New returns an empty proxy set, ready for the singleton bootstrap
// sequence to populate.
func New() *Proxies {
	return &Proxies{TriggerParam: NewTriggerParam()}
}

// Clone duplicates every proxy list. The address is a plain value and
// needs no cloning of its own.
func (p *Proxies) Clone() *Proxies {
	return &Proxies{
		TriggerParam:     p.TriggerParam.Clone(),
		TriggerParamAddr: p.TriggerParamAddr,
	}
}
