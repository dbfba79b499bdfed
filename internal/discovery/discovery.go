// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package discovery binds the UDP socket that talks to the console, locates
// it on the LAN by heartbeat/probe, and hands every received datagram to a
// decoder callback. It never itself knows whether a datagram decoded
// successfully - it only reacts to the callback's verdict to decide whether
// it has "locked onto" a peer.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// SendPort is where the one-byte probe is sent.
	SendPort = 33739
	// ReceivePort is where encrypted telemetry datagrams arrive.
	ReceivePort = 33740

	probeByte = 'A'
)

// Config configures a Discovery instance.
type Config struct {
	// ExplicitPeer, if set (e.g. from the PS5_IP environment override),
	// skips broadcast discovery entirely: the state machine starts locked.
	ExplicitPeer string

	HeartbeatInterval time.Duration
	SendPort          int
	ReceivePort       int
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.SendPort == 0 {
		c.SendPort = SendPort
	}
	if c.ReceivePort == 0 {
		c.ReceivePort = ReceivePort
	}
	return c
}

// DecodeFunc is called for every datagram the receive loop gets. It returns
// true when the datagram decoded into a usable frame, which is the signal
// Discovery uses to transition unlocked -> locked and collapse its target
// set onto the sender.
type DecodeFunc func(payload []byte, from *net.UDPAddr) bool

// Discovery owns the receive socket and the heartbeat ticker.
type Discovery struct {
	cfg    Config
	conn   *net.UDPConn
	decode DecodeFunc
	log    logrus.FieldLogger

	mu      sync.RWMutex
	locked  bool
	targets []*net.UDPAddr
}

// New creates a Discovery. Call Run to bind the socket and start working;
// construction alone does no I/O.
func New(cfg Config, decode DecodeFunc, log logrus.FieldLogger) *Discovery {
	return &Discovery{
		cfg:    cfg.withDefaults(),
		decode: decode,
		log:    log,
	}
}

// Run binds the receive socket, starts the heartbeat ticker and the receive
// loop, and blocks until ctx is cancelled or a fatal error occurs. Binding
// failure is fatal, per contract - Run returns the error and the caller is
// expected to exit.
func (d *Discovery) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: d.cfg.ReceivePort})
	if err != nil {
		return fmt.Errorf("discovery: bind :%d: %w", d.cfg.ReceivePort, err)
	}
	d.conn = conn
	defer conn.Close()

	if d.cfg.ExplicitPeer != "" {
		addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", d.cfg.ExplicitPeer, d.cfg.SendPort))
		if err != nil {
			return fmt.Errorf("discovery: resolve explicit peer %q: %w", d.cfg.ExplicitPeer, err)
		}
		d.mu.Lock()
		d.locked = true
		d.targets = []*net.UDPAddr{addr}
		d.mu.Unlock()
		d.log.WithField("peer", addr.String()).Info("discovery: explicit peer configured, skipping broadcast")
	} else {
		d.refreshUnlockedTargets()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.heartbeatLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		d.receiveLoop(ctx)
	}()

	wg.Wait()
	return ctx.Err()
}

func (d *Discovery) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()

	d.sendHeartbeats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sendHeartbeats()
		}
	}
}

func (d *Discovery) sendHeartbeats() {
	d.mu.RLock()
	targets := append([]*net.UDPAddr(nil), d.targets...)
	d.mu.RUnlock()

	for _, target := range targets {
		if _, err := d.conn.WriteToUDP([]byte{probeByte}, target); err != nil {
			// Transient network error: log and keep going. The network may
			// be asymmetric during discovery.
			d.log.WithError(err).WithField("target", target.String()).Debug("discovery: heartbeat send failed")
		}
	}
}

func (d *Discovery) receiveLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		if err := d.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			d.log.WithError(err).Warn("discovery: set read deadline failed")
		}

		n, from, err := d.conn.ReadFromUDP(buf)
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			d.log.WithError(err).Warn("discovery: receive error")
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		if d.decode(payload, from) {
			d.lockOnto(from)
		}
	}
}

// lockOnto transitions unlocked -> locked. Once locked, the state machine
// never reverts within a process lifetime (invariant in the discovery state
// machine).
func (d *Discovery) lockOnto(peer *net.UDPAddr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return
	}
	d.locked = true
	d.targets = []*net.UDPAddr{{IP: peer.IP, Port: d.cfg.SendPort}}
	d.log.WithField("peer", peer.String()).Info("discovery: locked onto peer")
}

// IsLocked reports whether discovery has found its peer.
func (d *Discovery) IsLocked() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locked
}

func (d *Discovery) refreshUnlockedTargets() {
	addrs, err := BroadcastAddresses()
	if err != nil || len(addrs) == 0 {
		addrs = []net.IP{net.IPv4bcast}
		d.log.WithError(err).Warn("discovery: no directed broadcast addresses found, falling back to limited broadcast")
	}

	targets := make([]*net.UDPAddr, 0, len(addrs))
	for _, ip := range addrs {
		targets = append(targets, &net.UDPAddr{IP: ip, Port: d.cfg.SendPort})
	}

	d.mu.Lock()
	d.targets = targets
	d.mu.Unlock()
}

// BroadcastAddresses enumerates the host's non-loopback IPv4 interfaces and
// computes each one's directed broadcast address (addr | ~mask).
func BroadcastAddresses() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("discovery: list interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			mask := ipNet.Mask
			if len(mask) != 4 {
				continue
			}
			bcast := make(net.IP, 4)
			for i := 0; i < 4; i++ {
				bcast[i] = ip4[i] | ^mask[i]
			}
			out = append(out, bcast)
		}
	}
	return out, nil
}
