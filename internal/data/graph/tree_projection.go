// Package graph mirrors conversation trees into Neo4j for ad-hoc graph
// queries. The relational store stays authoritative: projection runs after
// commit and its failures are logged, never returned to API callers.
package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/samber/lo"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/pkg/pointers"
	"github.com/yungbote/syncraft-backend/internal/platform/neo4jdb"
)

type TreeProjector interface {
	UpsertNodes(ctx context.Context, session *types.Session, nodes []*types.Node) error
	DeleteNodes(ctx context.Context, nodeIDs []uuid.UUID) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

// NewTreeProjector returns a Neo4j projector, or a no-op one when client is nil.
func NewTreeProjector(client *neo4jdb.Client, log *logger.Logger) TreeProjector {
	if client == nil || client.Driver == nil {
		return NoopProjector{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &neo4jTreeProjector{client: client, log: log.With("graph", "TreeProjector")}
}

type NoopProjector struct{}

func (NoopProjector) UpsertNodes(context.Context, *types.Session, []*types.Node) error { return nil }
func (NoopProjector) DeleteNodes(context.Context, []uuid.UUID) error                   { return nil }
func (NoopProjector) DeleteSession(context.Context, uuid.UUID) error                   { return nil }

type neo4jTreeProjector struct {
	client     *neo4jdb.Client
	log        *logger.Logger
	schemaOnce sync.Once
}

func (p *neo4jTreeProjector) ensureSchema(ctx context.Context, session neo4j.SessionWithContext) {
	p.schemaOnce.Do(func() {
		stmts := []string{
			`CREATE CONSTRAINT conv_session_id_unique IF NOT EXISTS FOR (s:ConvSession) REQUIRE s.id IS UNIQUE`,
			`CREATE CONSTRAINT conv_node_id_unique IF NOT EXISTS FOR (n:ConvNode) REQUIRE n.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				p.log.Warn("neo4j schema init failed (continuing)", "error", err)
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	})
}

func (p *neo4jTreeProjector) UpsertNodes(ctx context.Context, s *types.Session, nodes []*types.Node) error {
	if s == nil || s.ID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	sessionProps := sessionRow(s, now)
	nodeRows, parentRels := nodeRows(s.ID, nodes, now)

	session := p.client.WriteSession(ctx)
	defer session.Close(ctx)
	p.ensureSchema(ctx, session)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (s:ConvSession {id: $session.id})
SET s += $session
`, map[string]any{"session": sessionProps}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(nodeRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MATCH (s:ConvSession {id: n.session_id})
MERGE (x:ConvNode {id: n.id})
SET x += n
MERGE (s)-[:HAS_NODE]->(x)
`, map[string]any{"nodes": nodeRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(parentRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (p:ConvNode {id: r.parent_id})
MATCH (c:ConvNode {id: r.child_id})
MERGE (p)-[e:PARENT_OF]->(c)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": parentRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (p *neo4jTreeProjector) DeleteNodes(ctx context.Context, nodeIDs []uuid.UUID) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	ids := lo.Map(nodeIDs, func(id uuid.UUID, _ int) string { return id.String() })

	session := p.client.WriteSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $ids AS id
MATCH (n:ConvNode {id: id})
DETACH DELETE n
`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (p *neo4jTreeProjector) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return nil
	}
	session := p.client.WriteSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:ConvSession {id: $id})
OPTIONAL MATCH (s)-[:HAS_NODE]->(n:ConvNode)
DETACH DELETE n, s
`, map[string]any{"id": sessionID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func sessionRow(s *types.Session, syncedAt string) map[string]any {
	root := ""
	if s.RootNodeID != nil {
		root = s.RootNodeID.String()
	}
	return map[string]any{
		"id":           s.ID.String(),
		"name":         s.Name,
		"user_id":      s.UserID,
		"root_node_id": root,
		"created_at":   s.CreatedAt.UTC().Format(time.RFC3339Nano),
		"synced_at":    syncedAt,
	}
}

// nodeRows flattens nodes into Cypher parameters. Nodes from other sessions
// are skipped.
func nodeRows(sessionID uuid.UUID, nodes []*types.Node, syncedAt string) ([]map[string]any, []map[string]any) {
	rows := make([]map[string]any, 0, len(nodes))
	rels := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.ID == uuid.Nil || n.SessionID != sessionID {
			continue
		}
		parent := ""
		if n.ParentID != nil {
			parent = n.ParentID.String()
			rels = append(rels, map[string]any{
				"parent_id": parent,
				"child_id":  n.ID.String(),
				"synced_at": syncedAt,
			})
		}
		rows = append(rows, map[string]any{
			"id":           n.ID.String(),
			"session_id":   sessionID.String(),
			"parent_id":    parent,
			"template_key": pointers.Deref(n.TemplateKey),
			"created_at":   n.CreatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":    syncedAt,
		})
	}
	return rows, rels
}
