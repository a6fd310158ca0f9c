// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package logregator

import "net"

// peerProcessID is unavailable on this platform; producers are
// authenticated by token alone.
func peerProcessID(net.Conn) (int, bool) {
	return 0, false
}
