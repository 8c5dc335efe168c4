package main

import (
	"github.com/reusee/dscope"

	"evac/pkg/configs"
	"evac/pkg/logs"
)

type Module struct {
	dscope.Module
	Logs    logs.Module
	Configs configs.Module
}
