package main

import (
	"github.com/robotalks/sbus.go/pkg/cli/sh"
	"github.com/robotalks/sbus.go/pkg/config"

	_ "github.com/robotalks/sbus.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
