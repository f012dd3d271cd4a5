package tracker

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

// Control socket protocol. One text verb per connection:
//
//	START  -> "ok\n", queues a start command
//	STOP   -> "ok\n", queues a stop command
//	STATUS -> "running\n" or "stopped\n"
//	FEED   -> streams one sample line per fix until the client disconnects
//
// Line format on FEED matches the sample log (see package gps).

const dialTimeout = 2 * time.Second

// ControlServer accepts commands for a Tracker on a unix socket.
type ControlServer struct {
	tracker *Tracker
	path    string

	ln net.Listener
	wg sync.WaitGroup
}

// NewControlServer creates a control server for t listening at socketPath.
func NewControlServer(t *Tracker, socketPath string) *ControlServer {
	return &ControlServer{tracker: t, path: socketPath}
}

// Listen binds the unix socket, removing any stale socket file left by a
// previous daemon first.
func (s *ControlServer) Listen() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("control: listen: %w", err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until ctx is cancelled. Listen must have been
// called first.
func (s *ControlServer) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			// Accept fails once the listener is closed on shutdown.
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}

	s.wg.Wait()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Printf("control: remove socket: %v", err)
	}
}

func (s *ControlServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "START":
		s.tracker.Start()
		fmt.Fprintln(conn, "ok")
	case "STOP":
		s.tracker.Stop()
		fmt.Fprintln(conn, "ok")
	case "STATUS":
		fmt.Fprintln(conn, s.tracker.State())
	case "FEED":
		s.streamFeed(ctx, conn)
	default:
		fmt.Fprintln(conn, "error: unknown command")
	}
}

// streamFeed subscribes the connection to the broadcast hub and forwards
// samples until the client goes away or the server shuts down. A slow client
// misses fixes rather than stalling the tracker.
func (s *ControlServer) streamFeed(ctx context.Context, conn net.Conn) {
	id, samples := s.tracker.Hub().Subscribe()
	defer s.tracker.Hub().Unsubscribe(id)

	// Watch for the client hanging up; reads return only then, since the
	// protocol has nothing further for the client to send.
	gone := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				close(gone)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case sample := <-samples:
			if _, err := fmt.Fprintln(conn, gps.FormatLine(sample)); err != nil {
				return
			}
		}
	}
}

// Client issues commands to a running daemon's control socket.
type Client struct {
	SocketPath string
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("control: daemon not reachable at %s: %w", c.SocketPath, err)
	}
	return conn, nil
}

func (c *Client) roundTrip(verb string) (string, error) {
	conn, err := c.dial()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, verb); err != nil {
		return "", fmt.Errorf("control: send %s: %w", verb, err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("control: read reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Start asks the daemon to start tracking.
func (c *Client) Start() error {
	reply, err := c.roundTrip("START")
	if err != nil {
		return err
	}
	if reply != "ok" {
		return fmt.Errorf("control: daemon refused start: %s", reply)
	}
	return nil
}

// Stop asks the daemon to stop tracking.
func (c *Client) Stop() error {
	reply, err := c.roundTrip("STOP")
	if err != nil {
		return err
	}
	if reply != "ok" {
		return fmt.Errorf("control: daemon refused stop: %s", reply)
	}
	return nil
}

// Status reports the daemon's run state ("running" or "stopped").
func (c *Client) Status() (string, error) {
	return c.roundTrip("STATUS")
}

// Feed streams live samples from the daemon, invoking fn for each until ctx
// is cancelled or the stream ends.
func (c *Client) Feed(ctx context.Context, fn func(gps.Sample)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if _, err := fmt.Fprintln(conn, "FEED"); err != nil {
		return fmt.Errorf("control: send FEED: %w", err)
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return nil
		}
		sample, ok := gps.ParseLine(strings.TrimSpace(line))
		if !ok {
			continue
		}
		fn(sample)
	}
}
