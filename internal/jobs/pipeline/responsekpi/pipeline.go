package responsekpi

import (
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *runtime.Context) error {
	messageID, err := jc.RequireUUID("message_id")
	if err != nil {
		return err
	}
	p.log.Debug("Response kpi stage", "message_id", messageID)
	return p.tracker.CreateResponseKpi(dbctx.Context{Ctx: jc.Ctx}, messageID)
}
