package sim

import (
	"net/netip"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/transport"
)

// Compile-time interface check.
var _ Dialer = (*fakeTransport)(nil)

type sentMsg struct {
	to   netip.AddrPort
	tier protocol.Tier
	msg  protocol.Message
}

// fakeTransport records sends and hands out queued events on Poll.
type fakeTransport struct {
	queue    []transport.Event
	sent     []sentMsg
	reported []netip.AddrPort
	dialed   []netip.AddrPort
	pollErr  error
	sendErr  error
}

func (f *fakeTransport) Poll() ([]transport.Event, error) {
	events := f.queue
	f.queue = nil
	return events, f.pollErr
}

func (f *fakeTransport) Send(to netip.AddrPort, payload []byte, tier protocol.Tier) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	m, err := protocol.DecodeMessage(payload)
	if err != nil {
		panic("sim sent an undecodable payload: " + err.Error())
	}
	f.sent = append(f.sent, sentMsg{to: to, tier: tier, msg: m})
	return nil
}

func (f *fakeTransport) ReportMalformed(remote netip.AddrPort) {
	f.reported = append(f.reported, remote)
}

func (f *fakeTransport) Connect(remote netip.AddrPort) error {
	f.dialed = append(f.dialed, remote)
	return nil
}

func (f *fakeTransport) push(events ...transport.Event) {
	f.queue = append(f.queue, events...)
}

// takeSent returns and clears everything sent so far.
func (f *fakeTransport) takeSent() []sentMsg {
	out := f.sent
	f.sent = nil
	return out
}

func lifecycle(typ transport.EventType, from netip.AddrPort) transport.Event {
	return transport.Event{Type: typ, Peer: from}
}

func msgEvent(from netip.AddrPort, m protocol.Message) transport.Event {
	return transport.Event{
		Type:    transport.EventMessage,
		Peer:    from,
		Tier:    protocol.Sequenced,
		Payload: protocol.EncodeMessage(m),
	}
}

func approx(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

var (
	addrA   = netip.MustParseAddrPort("10.0.0.1:5000")
	addrB   = netip.MustParseAddrPort("10.0.0.2:5000")
	srvAddr = netip.MustParseAddrPort("127.0.0.1:25566")
)
