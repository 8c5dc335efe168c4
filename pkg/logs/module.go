// Package logs provides the driver's structured logger.
package logs

import "github.com/reusee/dscope"

type Module struct {
	dscope.Module
}
