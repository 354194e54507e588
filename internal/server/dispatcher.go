// Package server is the dispatcher of spec.md §4.5: it binds the TCP
// socket and spawns a session goroutine per accepted connection.
package server

import (
	"net"

	"github.com/kdurus/durusd/internal/coordinator"
	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/session"
)

// acceptBacklog is the nominal listen backlog. Go's net package does
// not expose backlog tuning portably, so it is not passed to the
// listener, which uses the OS-default accept queue.
const acceptBacklog = 16

// Dispatcher owns the bound listener and the coordinator it spawns
// sessions against.
type Dispatcher struct {
	coord    *coordinator.Server
	listener net.Listener
}

// Listen binds addr for a Dispatcher fronting coord.
func Listen(addr string, coord *coordinator.Server) (*Dispatcher, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{coord: coord, listener: ln}, nil
}

// Addr reports the bound address.
func (d *Dispatcher) Addr() net.Addr {
	return d.listener.Addr()
}

// Serve runs the accept loop until Quit is handled or the listener is
// closed. It always returns nil on a clean shutdown.
func (d *Dispatcher) Serve() error {
	log := dlog.WithComponent("dispatcher")
	log.Info().Str("addr", d.listener.Addr().String()).Msg("listening")

	go func() {
		<-d.coord.Stopped()
		d.listener.Close()
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.coord.Stopped():
				return nil
			default:
				return err
			}
		}
		go d.handle(conn)
	}
}

// Close stops accepting new connections.
func (d *Dispatcher) Close() error {
	return d.listener.Close()
}

func (d *Dispatcher) handle(conn net.Conn) {
	defer conn.Close()

	c := session.New(conn)
	d.coord.AddClient(c)
	defer d.coord.RemoveClient(c)

	log := dlog.WithClient(c.RemoteAddr)
	log.Debug().Msg("session accepted")

	// A panic in one session's handler must not take the rest of the
	// server down with it, and the client set must still shed this
	// session on the way out.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("session handler panicked")
		}
	}()

	if err := session.Serve(c, d.coord); err != nil {
		log.Warn().Err(err).Msg("session terminated")
		return
	}
	log.Debug().Msg("session closed")
}
