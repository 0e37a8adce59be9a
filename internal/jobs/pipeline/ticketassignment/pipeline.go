package ticketassignment

import (
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *runtime.Context) error {
	messageID, err := jc.RequireUUID("message_id")
	if err != nil {
		return err
	}
	p.log.Debug("Ticket assignment re-check", "message_id", messageID)
	return p.assigner.Reconcile(dbctx.Context{Ctx: jc.Ctx}, messageID)
}
