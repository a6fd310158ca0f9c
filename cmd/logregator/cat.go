// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// catCommand implements "logregator cat FILE". A sink file with a .zst
// suffix is a sequence of zstd frames, one flush per record; a file cut
// short by a crash is printed up to the last complete frame before the
// error is reported.
func catCommand(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: logregator cat FILE")
	}
	path := args[0]

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("opening zstd stream: %w", err)
		}
		defer decoder.Close()
		reader = decoder
	}

	if _, err := io.Copy(stdout, reader); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
