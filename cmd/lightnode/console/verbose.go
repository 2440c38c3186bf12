package console

import (
	"context"

	"github.com/mklimuk/lightnode/snsctx"
)

func SetVerbose(parent context.Context, value bool) context.Context {
	return snsctx.SetVerbose(parent, value)
}
