// Package transport implements connection-oriented, tiered delivery over a
// single UDP socket: handshake, heartbeat, timeout detection, sequenced and
// reliable channels, all advanced by an explicit non-blocking Poll.
package transport

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/util"
)

// Peer owns one UDP socket and every connection multiplexed over it.
//
// A Peer is not safe for concurrent use. One goroutine calls all of its
// methods, typically once per simulation tick; connection state only moves
// inside Poll. The only other goroutine is the socket reader, which never
// touches anything but the receive queue.
type Peer struct {
	opts   Options
	conn   *net.UDPConn
	local  netip.AddrPort
	listen bool

	recv    chan datagram
	readErr chan error
	fatal   error

	conns   map[netip.AddrPort]*Connection
	backlog []Event
	stopped bool
}

// Start binds the socket described by opts and starts reading from it.
// An empty opts.Bind binds an ephemeral port and only makes outgoing
// connections; anything else listens for handshakes on that address.
func Start(opts Options) (*Peer, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	bind := opts.Bind
	if bind == "" {
		bind = ":0"
	}
	laddr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", bind, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, &FatalError{Op: "bind", Err: err}
	}

	p := &Peer{
		opts:    opts,
		conn:    conn,
		local:   unmap(conn.LocalAddr().(*net.UDPAddr).AddrPort()),
		listen:  opts.Bind != "",
		recv:    make(chan datagram, opts.RecvQueue),
		readErr: make(chan error, 1),
		conns:   make(map[netip.AddrPort]*Connection),
	}
	go readDatagrams(conn, p.recv, p.readErr)

	if p.listen {
		util.LogInfo("listening on %s (protocol %s)", p.local, opts.ProtocolID)
	} else {
		util.LogDebug("bound ephemeral %s (protocol %s)", p.local, opts.ProtocolID)
	}
	return p, nil
}

// LocalAddr returns the bound socket address.
func (p *Peer) LocalAddr() netip.AddrPort { return p.local }

// Connections returns a snapshot of every connection, sorted by address.
func (p *Peer) Connections() []ConnInfo {
	out := make([]ConnInfo, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c.info())
	}
	slices.SortFunc(out, func(a, b ConnInfo) int { return a.Addr.Compare(b.Addr) })
	return out
}

// ---------------------------------------------------------------------------
// Public API
// ---------------------------------------------------------------------------

// Connect starts a handshake with remote. It does not wait: a later Poll
// reports EventNewPeer on success, and the attempt is silently dropped if
// no reply arrives within the timeout.
func (p *Peer) Connect(remote netip.AddrPort) error {
	if p.stopped {
		return ErrStopped
	}
	remote = unmap(remote)
	if !remote.IsValid() {
		return fmt.Errorf("invalid remote address: %v", remote)
	}
	if _, ok := p.conns[remote]; ok {
		return nil
	}

	now := p.opts.Now()
	c := newConnection(remote, Connecting, now, p.opts)
	p.conns[remote] = c
	util.LogInfo("[%s] connecting", remote)

	return p.sendHandshake(c, protocol.HandshakeRequest, now)
}

// Send transmits payload to a Connected remote on the given tier.
// Socket failures come back as *FatalError; everything else is non-fatal.
func (p *Peer) Send(remote netip.AddrPort, payload []byte, tier protocol.Tier) error {
	if p.stopped {
		return ErrStopped
	}
	if !tier.Valid() {
		return fmt.Errorf("can't send: invalid %v", tier)
	}
	if len(payload) > protocol.MaxPayloadSize {
		return ErrPayloadTooBig
	}

	c := p.conns[unmap(remote)]
	if c == nil || c.state != Connected {
		return ErrNoConnection
	}
	if c.overflowed {
		return ErrRetryBufferFull
	}

	now := p.opts.Now()
	pkt := &protocol.Packet{Kind: protocol.KindData, Tier: tier, Payload: payload}

	switch tier {
	case protocol.Unreliable:
		return p.write(c, pkt, now)

	case protocol.Sequenced:
		pkt.Seq = c.nextSeq(tier)
		return p.write(c, pkt, now)

	default:
		pkt.Seq = c.nextSeq(tier)
		data := protocol.Encode(pkt)
		if !c.retry.Add(pkt.Seq, data, now.Add(p.opts.ResendInterval)) {
			util.LogWarning("[%s] %d reliable packets unacked, dropping connection", c.addr, c.retry.Len())
			c.overflowed = true
			return ErrRetryBufferFull
		}
		return p.writeRaw(c, data, now)
	}
}

// Poll drains every datagram read so far, advances each connection
// (retransmits, heartbeats, timeouts) and returns the resulting events.
// It never blocks. At most Options.EventQueue events are returned; the rest
// wait for the next call.
func (p *Peer) Poll() ([]Event, error) {
	if p.stopped {
		return nil, ErrStopped
	}
	if p.fatal != nil {
		return p.flush(), p.fatal
	}

	now := p.opts.Now()

	// Bounded so a flood can't pin Poll; leftovers wait for the next call.
drain:
	for range cap(p.recv) {
		select {
		case d := <-p.recv:
			if err := p.handleDatagram(d, now); err != nil {
				p.fatal = err
				return p.flush(), err
			}
		default:
			break drain
		}
	}

	if err := p.advance(now); err != nil {
		p.fatal = err
		return p.flush(), err
	}

	select {
	case err := <-p.readErr:
		p.fatal = &FatalError{Op: "read", Err: err}
		return p.flush(), p.fatal
	default:
	}

	return p.flush(), nil
}

// Disconnect drops the connection to remote immediately and tells the
// remote so, best effort. No event is produced locally.
func (p *Peer) Disconnect(remote netip.AddrPort) error {
	if p.stopped {
		return ErrStopped
	}
	c := p.conns[unmap(remote)]
	if c == nil {
		return ErrNoConnection
	}

	delete(p.conns, c.addr)
	if c.state != Connected {
		return nil
	}
	util.Stats.RemoveConn()
	util.LogInfo("[%s] disconnecting (session %s)", c.addr, c.session)

	return p.write(c, &protocol.Packet{Kind: protocol.KindDisconnect}, p.opts.Now())
}

// ReportMalformed charges remote for a payload the application could not
// decode. Under PolicyDisconnect a peer that exhausts its budget is dropped
// on the next Poll.
func (p *Peer) ReportMalformed(remote netip.AddrPort) {
	if p.stopped {
		return
	}
	c := p.conns[unmap(remote)]
	if c == nil {
		return
	}
	util.Stats.AddMalformed()
	p.strike(c, p.opts.Now())
}

// Stop closes the socket and forgets every connection. Remote peers are
// not told; they time out on their own.
func (p *Peer) Stop() error {
	if p.stopped {
		return ErrStopped
	}
	p.stopped = true
	p.conns = nil
	p.backlog = nil
	util.LogDebug("stopped %s", p.local)
	return p.conn.Close()
}

// ---------------------------------------------------------------------------
// Receive path
// ---------------------------------------------------------------------------

func (p *Peer) handleDatagram(d datagram, now time.Time) error {
	util.Stats.AddRecv(len(d.data))
	c := p.conns[d.from]

	pkt, err := protocol.Decode(d.data)
	if err != nil {
		util.Stats.AddMalformed()
		util.LogDebug("[%s] dropping bad envelope: %v", d.from, err)
		if c != nil {
			p.strike(c, now)
		}
		return nil
	}

	if c == nil {
		return p.handleUnknown(d.from, pkt, now)
	}
	if pkt.Kind == protocol.KindHandshake {
		return p.handleHandshake(c, pkt, now)
	}
	if c.state != Connected {
		return nil
	}

	c.touch(now)
	c.gotData = true

	switch pkt.Kind {
	case protocol.KindPing:
	case protocol.KindAck:
		if pkt.Tier == protocol.Reliable {
			c.retry.Ack(pkt.Seq)
		}
	case protocol.KindDisconnect:
		p.remove(c, EventPeerDisconnected, "remote disconnected")
	case protocol.KindData:
		return p.handleData(c, pkt, now)
	}
	return nil
}

// handleUnknown admits a new connection on a valid handshake request.
// Everything else from an unknown address is dropped without a trace.
func (p *Peer) handleUnknown(from netip.AddrPort, pkt *protocol.Packet, now time.Time) error {
	if !p.listen || pkt.Kind != protocol.KindHandshake || pkt.Seq != protocol.HandshakeRequest {
		util.LogDebug("[%s] dropping %v from unknown address", from, pkt.Kind)
		return nil
	}
	if !protocol.MatchProtocolID(pkt.Payload, p.opts.ProtocolID) {
		util.LogDebug("[%s] refusing handshake %q", from, pkt.Payload)
		return nil
	}

	c := newConnection(from, Connected, now, p.opts)
	p.conns[from] = c
	p.established(c)

	return p.sendHandshake(c, protocol.HandshakeReply, now)
}

func (p *Peer) handleHandshake(c *Connection, pkt *protocol.Packet, now time.Time) error {
	if !protocol.MatchProtocolID(pkt.Payload, p.opts.ProtocolID) {
		util.LogDebug("[%s] ignoring handshake %q", c.addr, pkt.Payload)
		return nil
	}
	if c.state == Connected && c.gotData && pkt.Seq == protocol.HandshakeRequest {
		// A fresh request after traffic flowed means the remote restarted on
		// the same port. Its seqs start over, so the old state must go.
		p.remove(c, EventPeerDisconnected, "remote restarted")
		return p.handleUnknown(c.addr, pkt, now)
	}
	c.touch(now)

	if c.state == Connecting {
		c.state = Connected
		p.established(c)
	}
	if pkt.Seq == protocol.HandshakeRequest {
		// First contact from the other side, or our reply got lost.
		return p.sendHandshake(c, protocol.HandshakeReply, now)
	}
	return nil
}

func (p *Peer) handleData(c *Connection, pkt *protocol.Packet, now time.Time) error {
	switch pkt.Tier {
	case protocol.Unreliable:
		p.deliver(c, pkt)

	case protocol.Sequenced:
		if !c.seqIn.Accept(pkt.Seq) {
			util.LogDebug("[%s] discarding stale sequenced %d", c.addr, pkt.Seq)
			return nil
		}
		p.deliver(c, pkt)

	case protocol.Reliable:
		v := c.relIn.Accept(pkt.Seq)
		if v == deliverAhead {
			util.LogDebug("[%s] reliable %d ahead of window, awaiting retry", c.addr, pkt.Seq)
			return nil
		}
		// Ack duplicates too, the first ack may have been lost.
		ack := &protocol.Packet{Kind: protocol.KindAck, Tier: protocol.Reliable, Seq: pkt.Seq}
		if err := p.write(c, ack, now); err != nil {
			return err
		}
		if v == deliverNew {
			p.deliver(c, pkt)
		}
	}
	return nil
}

func (p *Peer) deliver(c *Connection, pkt *protocol.Packet) {
	p.backlog = append(p.backlog, Event{
		Type:    EventMessage,
		Peer:    c.addr,
		Session: c.session,
		Tier:    pkt.Tier,
		Payload: pkt.Payload,
	})
}

// strike draws one token from the connection's malformed budget.
func (p *Peer) strike(c *Connection, now time.Time) {
	if c.malformed.AllowN(now, 1) {
		return
	}
	if p.opts.MalformedPolicy == PolicyDisconnect {
		c.penalized = true
		return
	}
	util.LogDebug("[%s] sustained malformed traffic", c.addr)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// advance runs the per-poll timers of every connection.
func (p *Peer) advance(now time.Time) error {
	for _, c := range p.conns {
		switch c.state {
		case Connecting:
			if c.idle(now, p.opts.Timeout) {
				delete(p.conns, c.addr)
				util.LogWarning("[%s] no handshake reply, giving up", c.addr)
				continue
			}
			if now.Sub(c.lastSent) >= p.opts.ResendInterval {
				if err := p.sendHandshake(c, protocol.HandshakeRequest, now); err != nil {
					return err
				}
			}

		case Connected:
			if c.overflowed {
				c.state = TimedOut
				p.remove(c, EventPeerTimedOut, "reliable retry buffer overflow")
				continue
			}
			if c.penalized {
				err := p.write(c, &protocol.Packet{Kind: protocol.KindDisconnect}, now)
				p.remove(c, EventPeerDisconnected, "too much malformed traffic")
				if err != nil {
					return err
				}
				continue
			}
			if c.idle(now, p.opts.Timeout) {
				c.state = TimedOut
				p.remove(c, EventPeerTimedOut, "timed out")
				continue
			}

			for _, e := range c.retry.Due(now, p.opts.ResendInterval) {
				if err := p.writeRaw(c, e.data, now); err != nil {
					return err
				}
				util.Stats.AddResend()
			}

			if now.Sub(c.lastSent) >= p.opts.PingInterval {
				if err := p.write(c, &protocol.Packet{Kind: protocol.KindPing}, now); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Peer) established(c *Connection) {
	util.Stats.AddConn()
	util.LogInfo("[%s] connected (session %s)", c.addr, c.session)
	p.backlog = append(p.backlog, Event{Type: EventNewPeer, Peer: c.addr, Session: c.session})
}

// remove deletes c and queues exactly one terminal event for it.
func (p *Peer) remove(c *Connection, typ EventType, reason string) {
	delete(p.conns, c.addr)
	util.Stats.RemoveConn()
	util.LogInfo("[%s] %s (session %s)", c.addr, reason, c.session)
	p.backlog = append(p.backlog, Event{Type: typ, Peer: c.addr, Session: c.session})
}

// flush hands out at most EventQueue events and keeps the rest.
func (p *Peer) flush() []Event {
	n := min(len(p.backlog), p.opts.EventQueue)
	if n == 0 {
		return nil
	}
	out := make([]Event, n)
	copy(out, p.backlog)
	p.backlog = append(p.backlog[:0], p.backlog[n:]...)
	return out
}

// ---------------------------------------------------------------------------
// Send path
// ---------------------------------------------------------------------------

func (p *Peer) sendHandshake(c *Connection, kind uint16, now time.Time) error {
	return p.write(c, &protocol.Packet{
		Kind:    protocol.KindHandshake,
		Seq:     kind,
		Payload: []byte(p.opts.ProtocolID),
	}, now)
}

func (p *Peer) write(c *Connection, pkt *protocol.Packet, now time.Time) error {
	return p.writeRaw(c, protocol.Encode(pkt), now)
}

func (p *Peer) writeRaw(c *Connection, data []byte, now time.Time) error {
	if _, err := p.conn.WriteToUDPAddrPort(data, c.addr); err != nil {
		return &FatalError{Op: "write", Err: err}
	}
	util.Stats.AddSent(len(data))
	c.lastSent = now
	return nil
}
