package responsealert

import (
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *runtime.Context) error {
	messageID, err := jc.RequireUUID("message_id")
	if err != nil {
		return err
	}
	senderID, err := jc.RequireUUID("sender_id")
	if err != nil {
		return err
	}
	recipientID, err := jc.RequireUUID("recipient_id")
	if err != nil {
		return err
	}
	delayMinutes, ok := jc.PayloadInt("delay_minutes")
	if !ok {
		delayMinutes = 30
	}
	p.log.Debug("Response alert check", "message_id", messageID)
	return p.escalator.CheckAndAlert(dbctx.Context{Ctx: jc.Ctx}, messageID, senderID, recipientID, delayMinutes)
}
