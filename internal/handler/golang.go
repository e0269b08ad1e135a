package handler

import (
	"context"

	"github.com/leapstack-labs/pithos/internal/protosync"
	"github.com/leapstack-labs/pithos/internal/target"
)

func goAction(args ...string) Action {
	return func(ctx context.Context, d *Deps, t target.Target) error {
		if err := d.Tools.Require("go"); err != nil {
			return err
		}
		d.syncProtos(ctx, protosync.LangGo)
		return d.exec(ctx, t, t.Dir(), "go", args...)
	}
}

var (
	goBuild = goAction("build", ".")
	goTest  = goAction("test", "./...")
	goRun   = goAction("run", ".")
)
