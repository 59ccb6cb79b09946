// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command retryplan dry-runs retry configurations.
package main

import (
	"fmt"
	"os"

	"github.com/gogama/retryflow/internal/plan"
)

func main() {
	if err := plan.NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
