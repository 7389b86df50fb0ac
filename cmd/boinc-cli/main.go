package main

import (
	"boincstats/cmd/boinc-cli/commands"
	"boincstats/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
