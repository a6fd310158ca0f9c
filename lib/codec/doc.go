// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by
// everything that crosses a process boundary in logregator: the frames
// of the aggregation transport and the transport handle handed to
// child processes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same logical value always produces identical bytes, with two
// deviations: encoding.TextMarshaler types encode as text strings and
// time.Time encodes as an RFC 3339 string with nanoseconds.
//
// For buffer-oriented operations (tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types serialized only through this package carry `cbor` struct tags.
package codec
