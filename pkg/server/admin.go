package server

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/blocklayer/voxelkeep/pkg/authority"
)

// shutdownGrace bounds how long a shutdown request waits for the world task
// to accept it before the caller treats the task as gone and force-exits.
const shutdownGrace = 5 * time.Second

// RunAdmin reads line commands from stdin on a dedicated goroutine: "bind"
// prints the listen address, "exit" requests an orderly shutdown. Reaching
// EOF or a read error on stdin is treated the same as "exit". If the world
// task can't be reached within shutdownGrace, the process is force-exited
// with a nonzero status rather than hanging forever.
func RunAdmin(auth *authority.Authority, bindAddr string, logger *zap.Logger) {
	logger.Info("admin channel ready", zap.Bool("interactive", term.IsTerminal(int(os.Stdin.Fd()))))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "bind":
			fmt.Fprintln(os.Stdout, bindAddr)
		case "exit":
			requestShutdown(auth, logger)
			return
		default:
			logger.Warn("unrecognized admin command", zap.String("line", scanner.Text()))
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("admin stdin error", zap.Error(err))
	}
	requestShutdown(auth, logger)
}

func requestShutdown(auth *authority.Authority, logger *zap.Logger) {
	if !auth.TrySubmitShutdown(shutdownGrace) {
		logger.Error("world task unresponsive, forcing exit")
		os.Exit(1)
	}
}
