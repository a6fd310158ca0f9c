// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"encoding/base64"
	"fmt"

	"github.com/bureau-foundation/logregator/lib/codec"
	"github.com/bureau-foundation/logregator/lib/logging"
)

// HandleEnv is the environment variable through which a child process
// receives the handle of its parent's transport.
const HandleEnv = "LOGREGATOR_HANDLE"

// Handle is everything a process needs to push records into a
// transport owned by another process. It is passed to children as an
// opaque token (see Encode) and grants write access to the transport,
// so it should not be logged.
type Handle struct {
	// Network and Address locate the transport's listener, as for
	// net.Dial.
	Network string `cbor:"network"`
	Address string `cbor:"address"`

	// Session identifies the aggregation session.
	Session string `cbor:"session"`

	// Token authenticates producers. A connection that does not
	// present it is dropped.
	Token []byte `cbor:"token"`

	// Level is the sink's level when the session started. Producers
	// discard records below it instead of shipping them.
	Level logging.Level `cbor:"level"`
}

// Encode renders the handle as an environment-safe token: CBOR in
// unpadded base64url.
func (h Handle) Encode() (string, error) {
	data, err := codec.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encoding transport handle: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeHandle parses a token produced by Handle.Encode. All failures
// wrap ErrInvalidHandle.
func DecodeHandle(token string) (Handle, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrInvalidHandle, err)
	}
	var handle Handle
	if err := codec.Unmarshal(data, &handle); err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrInvalidHandle, err)
	}
	if err := handle.validate(); err != nil {
		return Handle{}, err
	}
	return handle, nil
}

func (h Handle) validate() error {
	switch {
	case h.Network == "" || h.Address == "":
		return fmt.Errorf("%w: missing address", ErrInvalidHandle)
	case h.Session == "":
		return fmt.Errorf("%w: missing session", ErrInvalidHandle)
	case len(h.Token) == 0:
		return fmt.Errorf("%w: missing token", ErrInvalidHandle)
	}
	return nil
}

// hello is the first frame on every producer connection. Everything
// after it is a sequence of logging.Record frames.
type hello struct {
	Session   string `cbor:"session"`
	Token     []byte `cbor:"token"`
	ProcessID int    `cbor:"pid"`
}
