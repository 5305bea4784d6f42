package stream

import "context"

// MemoryStream is an in-process Subscriber fake: Blocks is drained in order
// by Next, and AddFilter just records what was requested in Filters.
type MemoryStream struct {
	Blocks  []Block
	Filters []FilterEntry
	pos     int
}

func (m *MemoryStream) Next(ctx context.Context) (Block, error) {
	if m.pos >= len(m.Blocks) {
		<-ctx.Done()
		return Block{}, ctx.Err()
	}
	b := m.Blocks[m.pos]
	m.pos++
	return b, nil
}

func (m *MemoryStream) AddFilter(ctx context.Context, entries ...FilterEntry) error {
	m.Filters = append(m.Filters, entries...)
	return nil
}

func (m *MemoryStream) Close() error { return nil }
