package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
)

// Context is the execution handle for a single claimed job. It carries the
// job row, the DB handle, and the decoded payload; handlers read inputs only
// through the Payload accessors.
type Context struct {
	Ctx context.Context
	DB  *gorm.DB
	Job *types.ScheduledJob

	payload map[string]any
}

// NewContext decodes the job payload eagerly. A malformed payload leaves the
// map empty; handlers surface the missing keys as a fatal job error.
func NewContext(ctx context.Context, db *gorm.DB, job *types.ScheduledJob) *Context {
	c := &Context{
		Ctx: ctx,
		DB:  db,
		Job: job,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.JobData) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.JobData, &m); err != nil {
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s, ok := c.PayloadString(key)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadInt(key string) (int, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// RequireUUID is the "payload must contain every key its executor requires"
// guard; a missing key is a fatal, non-retried failure for that job only.
func (c *Context) RequireUUID(key string) (uuid.UUID, error) {
	id, ok := c.PayloadUUID(key)
	if !ok {
		return uuid.Nil, fmt.Errorf("job payload missing required key %q", key)
	}
	return id, nil
}
