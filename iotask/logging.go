//go:build linux || darwin

package iotask

import (
	"net/netip"
	"time"
)

func (x *Connector) logListening() {
	if b := x.cfg.logger.Info(); b.Enabled() {
		b.Str("addr", x.addr.String()).
			Int("backlog", x.cfg.backlog).
			Log("iotask: listening")
	}
}

func (x *Connector) logClosed() {
	if b := x.cfg.logger.Info(); b.Enabled() {
		b.Str("addr", x.addr.String()).
			Log("iotask: closed")
	}
}

func (x *Connector) logAccepted(peer netip.AddrPort) {
	if b := x.cfg.logger.Debug(); b.Enabled() {
		b.Str("peer", peer.String()).
			Int("conns", len(x.conns)).
			Log("iotask: accepted connection")
	}
}

func (x *Connector) logRateLimited(peer netip.AddrPort, next time.Time) {
	if b := x.cfg.logger.Notice(); b.Enabled() {
		b.Str("peer", peer.String()).
			Time("next", next).
			Log("iotask: connection rate limited")
	}
}

func (x *Connector) logReceived(peer netip.AddrPort, n int) {
	if b := x.cfg.logger.Trace(); b.Enabled() {
		b.Str("peer", peer.String()).
			Int("bytes", n).
			Log("iotask: received data")
	}
}

func (x *Connector) logReceiveFailed(peer netip.AddrPort, err error) {
	if b := x.cfg.logger.Warning(); b.Enabled() {
		b.Str("peer", peer.String()).
			Err(err).
			Log("iotask: receive hook failed, writing failure response")
	}
}

func (x *Connector) logEvicted(peer netip.AddrPort, reason string) {
	if b := x.cfg.logger.Debug(); b.Enabled() {
		b.Str("peer", peer.String()).
			Str("reason", reason).
			Log("iotask: evicted connection")
	}
}

func (x *Connector) logCloseFailed(peer netip.AddrPort, err error) {
	if b := x.cfg.logger.Warning(); b.Enabled() {
		b.Str("peer", peer.String()).
			Err(err).
			Log("iotask: failed to close connection")
	}
}

func (x *Connector) logFatal(err error) {
	if b := x.cfg.logger.Err(); b.Enabled() {
		b.Str("addr", x.addr.String()).
			Err(err).
			Log("iotask: fatal socket error")
	}
}
