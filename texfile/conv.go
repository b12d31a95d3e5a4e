// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/teximport

package texfile

import "fmt"

// wireInt is an integer type stored in headers and block tables.
type wireInt interface {
	~int32 | ~uint32
}

// narrow converts a non-negative int to a wire integer, failing with
// ErrSizeOverflow when n does not fit.
func narrow[T wireInt](n int) (T, error) {
	v := T(n) // #nosec G115 -- round trip checked below.
	if n < 0 || int64(v) != int64(n) {
		return 0, fmt.Errorf("%w: %d", ErrSizeOverflow, n)
	}

	return v, nil
}

// narrowSize converts a width and height pair.
func narrowSize[T wireInt](w, h int) (T, T, error) {
	tw, err := narrow[T](w)
	if err != nil {
		return 0, 0, err
	}
	th, err := narrow[T](h)
	if err != nil {
		return 0, 0, err
	}

	return tw, th, nil
}
