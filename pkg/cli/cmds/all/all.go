// Package all registers all sbuscli commands.
package all

import (
	// commands
	_ "github.com/robotalks/sbus.go/pkg/cli/cmds/channels"
)
