// Package configs loads CUE configuration files.
package configs

import "github.com/reusee/dscope"

type Module struct {
	dscope.Module
}
