package main

import (
	"ntust-grades/cmd/ntust-grades/commands"
	"ntust-grades/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
