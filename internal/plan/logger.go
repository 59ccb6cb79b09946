// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package plan

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/gogama/retryflow/config"
)

// NewLogger creates a logger writing to w. An unparseable level falls
// back to info.
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	var l zerolog.Logger
	if cfg.Pretty {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(w).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return l.Level(level)
}
