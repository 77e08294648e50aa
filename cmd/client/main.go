package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blocklayer/voxelkeep/pkg/client"
	"github.com/blocklayer/voxelkeep/pkg/protocol"
)

func main() {
	cmd := &cobra.Command{
		Use:   "client <server_spec> <username>",
		Short: "Connect to a voxel world as a reference client",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveAddr honors the rule that a server_spec lacking a colon names a
// world directory: an internal server is spawned as a child process, its
// bound address retrieved over its own admin stdin/stdout, and it is asked
// to exit when the client process ends.
func resolveAddr(spec string) (addr string, cleanup func(), err error) {
	if strings.Contains(spec, ":") {
		return spec, func() {}, nil
	}

	selfPath, err := os.Executable()
	if err != nil {
		return "", nil, fmt.Errorf("client: locating own executable: %w", err)
	}
	serverPath := strings.Replace(selfPath, "client", "server", 1)

	child := exec.Command(serverPath, "internal", spec)
	child.Stderr = os.Stderr
	stdin, err := child.StdinPipe()
	if err != nil {
		return "", nil, err
	}
	stdout, err := child.StdoutPipe()
	if err != nil {
		return "", nil, err
	}
	if err := child.Start(); err != nil {
		return "", nil, fmt.Errorf("client: spawning internal server: %w", err)
	}

	fmt.Fprintln(stdin, "bind")
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		child.Process.Kill()
		return "", nil, fmt.Errorf("client: internal server did not report a bind address")
	}
	addr = strings.TrimSpace(scanner.Text())

	cleanup = func() {
		fmt.Fprintln(stdin, "exit")
		child.Wait()
	}
	return addr, cleanup, nil
}

func run(cmd *cobra.Command, args []string) error {
	spec, username := args[0], args[1]

	addr, cleanup, err := resolveAddr(spec)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := client.Dial(context.Background(), addr, username)
	if err != nil {
		return fmt.Errorf("client: login: %w", err)
	}
	defer c.Close()

	fmt.Printf("connected as uid %d\n", c.UID)
	for msg := range c.Events {
		switch m := msg.(type) {
		case protocol.PlayerLogin:
			fmt.Printf("%s joined (uid %d)\n", m.Name, m.UID)
		case protocol.Logout:
			fmt.Printf("uid %d left\n", m.UID)
		case protocol.ServerPlayerPosition:
			fmt.Printf("uid %d moved to %v\n", m.UID, m.Pos)
		case protocol.ChunkData:
			fmt.Printf("chunk %v received\n", m.Pos)
		case protocol.BlockUpdate:
			fmt.Printf("block at %v set to %d\n", m.Pos, m.Block)
		}
	}
	return nil
}
