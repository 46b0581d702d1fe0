package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/yarelycore/pkg/handler"
	"github.com/cuemby/yarelycore/pkg/log"
)

// DefaultRefreshRate is used when a Pull-handler's params reply carries no
// refresh_rate setting.
const DefaultRefreshRate = 5 * time.Minute

var handlerCmd = &cobra.Command{
	Use:   "handler <kind> <request-url> <spawn-token> [uri]",
	Short: "Run a single Pull-handler subprocess (internal, spawned by the Process Manager)",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]
		requestURL := args[1]
		spawnToken := args[2]
		var uri string
		if len(args) == 4 {
			uri = args[3]
		}
		return runHandler(kind, requestURL, spawnToken, uri)
	},
}

// runHandler registers with the Manager at requestURL, then runs a
// read-and-report loop for kind (file or http) until the process is
// signalled. A failed checkin ping is logged and does not stop the loop.
func runHandler(kind, requestURL, spawnToken, uri string) error {
	logger := log.Logger

	base, err := handler.NewBase(kind, requestURL, spawnToken, logger)
	if err != nil {
		return fmt.Errorf("dial manager: %w", err)
	}
	if err := base.Register(); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if uri == "" {
		if v, ok := base.Setting("uri"); ok {
			uri = v
		}
	}

	refreshRate := DefaultRefreshRate
	if v, ok := base.Setting("refresh_rate"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			refreshRate = d
		}
	}

	var reader handler.Reader
	switch kind {
	case "file":
		reader = handler.FilePullHandler{Path: uri}
	case "http":
		reader = handler.NewHTTPPullHandler(uri)
	default:
		return fmt.Errorf("unsupported handler kind %q", kind)
	}

	pull := handler.NewPullHandler(base, uri, refreshRate, reader)

	go base.RunCheckinLoop()
	go func() {
		waitForSignal()
		base.Stop()
	}()

	pull.Run()
	return nil
}
