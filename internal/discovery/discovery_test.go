// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"io"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestDiscovery() *Discovery {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(Config{SendPort: SendPort}, nil, log)
}

func TestLockOntoCollapsesTargets(t *testing.T) {
	d := newTestDiscovery()
	d.targets = []*net.UDPAddr{
		{IP: net.ParseIP("10.0.0.255"), Port: SendPort},
		{IP: net.ParseIP("192.168.1.255"), Port: SendPort},
	}

	if d.IsLocked() {
		t.Fatalf("discovery should start unlocked")
	}

	peer := &net.UDPAddr{IP: net.ParseIP("10.0.0.42"), Port: 54321}
	d.lockOnto(peer)

	if !d.IsLocked() {
		t.Fatalf("expected locked after lockOnto")
	}
	if len(d.targets) != 1 || !d.targets[0].IP.Equal(net.ParseIP("10.0.0.42")) {
		t.Fatalf("expected targets collapsed to {10.0.0.42}, got %v", d.targets)
	}
	if d.targets[0].Port != SendPort {
		t.Fatalf("expected target port %d, got %d", SendPort, d.targets[0].Port)
	}
}

func TestLockOntoIsOneWay(t *testing.T) {
	d := newTestDiscovery()
	first := &net.UDPAddr{IP: net.ParseIP("10.0.0.42")}
	second := &net.UDPAddr{IP: net.ParseIP("10.0.0.99")}

	d.lockOnto(first)
	d.lockOnto(second)

	if !d.targets[0].IP.Equal(net.ParseIP("10.0.0.42")) {
		t.Fatalf("lockOnto should be a one-way transition; target changed to %v", d.targets[0].IP)
	}
}

func TestBroadcastAddressesRunsWithoutError(t *testing.T) {
	// Environment-dependent; we only assert it doesn't error on a sane host.
	if _, err := BroadcastAddresses(); err != nil {
		t.Fatalf("BroadcastAddresses: %v", err)
	}
}
