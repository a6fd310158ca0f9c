// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/logregator/lib/codec"
	"github.com/bureau-foundation/logregator/lib/logregator"
)

// handleCommand implements "logregator handle [TOKEN]": it prints the
// fields of a transport handle and its CBOR diagnostic notation.
func handleCommand(args []string, stdout io.Writer) error {
	var token string
	switch len(args) {
	case 0:
		token = os.Getenv(logregator.HandleEnv)
		if token == "" {
			return fmt.Errorf("no token given and %s is not set", logregator.HandleEnv)
		}
	case 1:
		token = args[0]
	default:
		return errors.New("usage: logregator handle [TOKEN]")
	}

	handle, err := logregator.DecodeHandle(token)
	if err != nil {
		return err
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return err
	}
	diagnostic, err := codec.Diagnose(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "session:  %s\n", handle.Session)
	fmt.Fprintf(stdout, "address:  %s:%s\n", handle.Network, handle.Address)
	fmt.Fprintf(stdout, "level:    %s\n", handle.Level)
	fmt.Fprintf(stdout, "cbor:     %s\n", diagnostic)
	return nil
}
