// Command camellia links crawled business listings into the directory record store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	c := &cli{}
	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	c.close()

	if err != nil {
		code := exitCodeOf(err)
		if code == exitFatal {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return code
	}
	return exitOK
}
