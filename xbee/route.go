package xbee

// route.go is a passive source-route cache, learned entirely from
// unsolicited 0xA1 Route Record Indications the gateway radio forwards
// whenever the mesh discovers or changes the path to the target. Nothing
// here ever requests a route; it only remembers the last one observed and
// flags it dirty until a Create Source Route frame carries it back out.

const maxIntermediateHops = 40

// sourceRoute holds the ordered list of intermediate 16-bit addresses
// nearest-to-target first, or hops == -1 if no route has been learned.
type sourceRoute struct {
	hops  int
	addrs []byte // 2 bytes per hop
	dirty bool
}

func newSourceRoute() *sourceRoute {
	return &sourceRoute{hops: -1}
}

// observe records a route-record indication's hop list. It returns true
// if the route differs from what was previously stored, in which case
// dirty is set. dirty only ever gets set for an actual multi-hop route;
// a direct (zero-hop) path never triggers a route-set frame.
func (r *sourceRoute) observe(addrs []byte) bool {
	hops := len(addrs) / 2
	if hops > maxIntermediateHops {
		return false
	}
	if hops == r.hops && bytesEqual(addrs, r.addrs) {
		return false
	}
	r.hops = hops
	r.addrs = append([]byte(nil), addrs...)
	if hops >= 1 {
		r.dirty = true
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// chunkLimit returns the maximum outbound application-data length for
// the current route: a base of 54 bytes, reduced by 2*hops+2 once a
// route of one or more hops is known, to leave room for the source route
// table XBee prepends on the wire. If that reduction would leave nothing
// usable, the base limit is kept instead.
func (r *sourceRoute) chunkLimit() int {
	const base = 54
	if r.hops < 1 {
		return base
	}
	reduction := 2*r.hops + 2
	if reduction >= base {
		return base
	}
	return base - reduction
}

// consumeDirty clears the dirty flag and returns whether a route-set
// frame needs to be emitted before the next gateway-mode payload.
func (r *sourceRoute) consumeDirty() bool {
	if !r.dirty {
		return false
	}
	r.dirty = false
	return true
}
