package transport

import (
	"errors"
	"net"
	"net/netip"

	"github.com/1ureka/blockgame/internal/protocol"
	"github.com/1ureka/blockgame/internal/util"
)

// datagram is one raw read from the socket.
type datagram struct {
	from netip.AddrPort
	data []byte
}

// readDatagrams copies datagrams from conn into out until conn is closed.
// It never touches Peer state; Poll drains out. When out is full the
// datagram is dropped, like a full socket buffer would. A read error other
// than a timeout or closure is handed to errs and ends the loop.
func readDatagrams(conn *net.UDPConn, out chan<- datagram, errs chan<- error) {
	for {
		buf := make([]byte, protocol.MaxPacketSize+1)
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			select {
			case errs <- err:
			default:
			}
			return
		}

		if n > protocol.MaxPacketSize {
			util.Stats.AddDropped()
			util.LogDebug("[%s] dropping oversized datagram", from)
			continue
		}

		select {
		case out <- datagram{from: unmap(from), data: buf[:n]}:
		default:
			util.Stats.AddDropped()
		}
	}
}

// unmap normalizes IPv4-mapped IPv6 addresses so one remote has one identity.
func unmap(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
