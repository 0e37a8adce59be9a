package flagreconcile

import (
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *runtime.Context) error {
	userID, err := jc.RequireUUID("user_id")
	if err != nil {
		return err
	}
	changed, err := p.tracker.ReconcileFlag(dbctx.Context{Ctx: jc.Ctx}, userID)
	if err != nil {
		return err
	}
	if changed {
		p.log.Info("Corrected response flag", "user_id", userID)
	}
	return nil
}
