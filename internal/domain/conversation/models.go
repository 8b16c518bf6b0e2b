package conversation

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&Session{},
		&Node{},
		&Edge{},
		&Context{},
		&ContextNode{},
		&QAPair{},
		&Message{},
	}
}
