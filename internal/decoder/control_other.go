// SPDX-License-Identifier: MIT

//go:build !unix

package decoder

import (
	"errors"
	"os"
)

func newControlFIFO(string) (*os.File, error) {
	return nil, errors.New("decoder control channel requires a unix fifo")
}
