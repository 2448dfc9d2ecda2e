package flow

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/logging"
)

// Network is the registry of every port for one commodity. Ports are held
// by index and connections live in a bidirectional index map, so neither
// side of a connection owns the other and severing it is a single atomic
// update.
type Network[U ~float64, F Flowable[U]] struct {
	name string
	log  logr.Logger

	mu sync.RWMutex
	// sources and drains map port indexes to their owners.
	sources []Source[U, F]
	drains  []Drain[U, F]
	// downstream maps a source port to its drain port; upstream is the
	// inverse. Both are updated together under mu.
	downstream map[int]int
	upstream   map[int]int
}

// NewNetwork creates an empty network for one commodity.
func NewNetwork[U ~float64, F Flowable[U]](name string, log logr.Logger) *Network[U, F] {
	return &Network[U, F]{
		name:       name,
		log:        logging.OrDiscard(log).WithName(name),
		downstream: make(map[int]int),
		upstream:   make(map[int]int),
	}
}

// Name returns the network name.
func (n *Network[U, F]) Name() string { return n.name }

// NewSourcePort registers an output port owned by owner.
func (n *Network[U, F]) NewSourcePort(owner Source[U, F]) SourcePort[U, F] {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sources = append(n.sources, owner)
	return SourcePort[U, F]{net: n, idx: len(n.sources) - 1}
}

// NewDrainPort registers an input port owned by owner.
func (n *Network[U, F]) NewDrainPort(owner Drain[U, F]) DrainPort[U, F] {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drains = append(n.drains, owner)
	return DrainPort[U, F]{net: n, idx: len(n.drains) - 1}
}

// Connections returns the number of active connections.
func (n *Network[U, F]) Connections() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.downstream)
}

// connect links source port s to drain port d. Any previous counterpart of
// either port is released first. Connecting an existing pair is a no-op.
func (n *Network[U, F]) connect(s, d int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if cur, ok := n.downstream[s]; ok && cur == d {
		return
	}
	if old, ok := n.downstream[s]; ok {
		delete(n.upstream, old)
	}
	if old, ok := n.upstream[d]; ok {
		delete(n.downstream, old)
	}
	n.downstream[s] = d
	n.upstream[d] = s
	n.log.V(logging.TRACE).Info("Connected ports", "source", s, "drain", d)
}

func (n *Network[U, F]) disconnectSource(s int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if d, ok := n.downstream[s]; ok {
		delete(n.downstream, s)
		delete(n.upstream, d)
		n.log.V(logging.TRACE).Info("Disconnected ports", "source", s, "drain", d)
	}
}

func (n *Network[U, F]) disconnectDrain(d int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.upstream[d]; ok {
		delete(n.upstream, d)
		delete(n.downstream, s)
		n.log.V(logging.TRACE).Info("Disconnected ports", "source", s, "drain", d)
	}
}

func (n *Network[U, F]) mustOwn(other *Network[U, F]) {
	if n == nil || other == nil {
		panic("flow: connecting an unregistered port")
	}
	if n != other {
		panic(fmt.Sprintf("flow: cannot connect ports of networks %q and %q", n.name, other.name))
	}
}

// SourcePort is a handle to an output port in a Network. The zero value is
// an unregistered port.
type SourcePort[U ~float64, F Flowable[U]] struct {
	net *Network[U, F]
	idx int
}

// Valid reports whether the port was registered with a network.
func (p SourcePort[U, F]) Valid() bool { return p.net != nil }

// Owner returns the source that owns the port.
func (p SourcePort[U, F]) Owner() Source[U, F] {
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	return p.net.sources[p.idx]
}

// ConnectTo connects the port to d, replacing any existing connection on
// either side. It panics if the ports belong to different networks.
func (p SourcePort[U, F]) ConnectTo(d DrainPort[U, F]) {
	p.net.mustOwn(d.net)
	p.net.connect(p.idx, d.idx)
}

// Disconnect severs the port's connection, if any, on both sides.
func (p SourcePort[U, F]) Disconnect() {
	if p.net != nil {
		p.net.disconnectSource(p.idx)
	}
}

// Connected returns the drain port this port is connected to.
func (p SourcePort[U, F]) Connected() (DrainPort[U, F], bool) {
	if p.net == nil {
		return DrainPort[U, F]{}, false
	}
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	d, ok := p.net.downstream[p.idx]
	if !ok {
		return DrainPort[U, F]{}, false
	}
	return DrainPort[U, F]{net: p.net, idx: d}, true
}

// IsConnected reports whether the port has a counterpart.
func (p SourcePort[U, F]) IsConnected() bool {
	_, ok := p.Connected()
	return ok
}

// Downstream returns the owner of the connected drain port.
func (p SourcePort[U, F]) Downstream() (Drain[U, F], bool) {
	if p.net == nil {
		return nil, false
	}
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	d, ok := p.net.downstream[p.idx]
	if !ok {
		return nil, false
	}
	return p.net.drains[d], true
}

// DrainPort is a handle to an input port in a Network. The zero value is an
// unregistered port.
type DrainPort[U ~float64, F Flowable[U]] struct {
	net *Network[U, F]
	idx int
}

// Valid reports whether the port was registered with a network.
func (p DrainPort[U, F]) Valid() bool { return p.net != nil }

// Owner returns the drain that owns the port.
func (p DrainPort[U, F]) Owner() Drain[U, F] {
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	return p.net.drains[p.idx]
}

// ConnectTo connects the port to s, replacing any existing connection on
// either side. It panics if the ports belong to different networks.
func (p DrainPort[U, F]) ConnectTo(s SourcePort[U, F]) {
	p.net.mustOwn(s.net)
	p.net.connect(s.idx, p.idx)
}

// Disconnect severs the port's connection, if any, on both sides.
func (p DrainPort[U, F]) Disconnect() {
	if p.net != nil {
		p.net.disconnectDrain(p.idx)
	}
}

// Connected returns the source port this port is connected to.
func (p DrainPort[U, F]) Connected() (SourcePort[U, F], bool) {
	if p.net == nil {
		return SourcePort[U, F]{}, false
	}
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	s, ok := p.net.upstream[p.idx]
	if !ok {
		return SourcePort[U, F]{}, false
	}
	return SourcePort[U, F]{net: p.net, idx: s}, true
}

// IsConnected reports whether the port has a counterpart.
func (p DrainPort[U, F]) IsConnected() bool {
	_, ok := p.Connected()
	return ok
}

// Upstream returns the owner of the connected source port.
func (p DrainPort[U, F]) Upstream() (Source[U, F], bool) {
	if p.net == nil {
		return nil, false
	}
	p.net.mu.RLock()
	defer p.net.mu.RUnlock()
	s, ok := p.net.upstream[p.idx]
	if !ok {
		return nil, false
	}
	return p.net.sources[s], true
}

// DisconnectOutputs severs every given output port.
func DisconnectOutputs[U ~float64, F Flowable[U]](ports ...SourcePort[U, F]) {
	for _, p := range ports {
		p.Disconnect()
	}
}

// DisconnectInputs severs every given input port.
func DisconnectInputs[U ~float64, F Flowable[U]](ports ...DrainPort[U, F]) {
	for _, p := range ports {
		p.Disconnect()
	}
}
