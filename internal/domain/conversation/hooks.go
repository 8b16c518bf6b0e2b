package conversation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are generated in Go so the schema carries no driver-specific defaults.

func (s *Session) BeforeCreate(*gorm.DB) error { s.ID = ensureID(s.ID); return nil }
func (n *Node) BeforeCreate(*gorm.DB) error { n.ID = ensureID(n.ID); return nil }
func (e *Edge) BeforeCreate(*gorm.DB) error { e.ID = ensureID(e.ID); return nil }
func (c *Context) BeforeCreate(*gorm.DB) error { c.ID = ensureID(c.ID); return nil }
func (m *ContextNode) BeforeCreate(*gorm.DB) error { m.ID = ensureID(m.ID); return nil }
func (p *QAPair) BeforeCreate(*gorm.DB) error { p.ID = ensureID(p.ID); return nil }
func (m *Message) BeforeCreate(*gorm.DB) error { m.ID = ensureID(m.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
