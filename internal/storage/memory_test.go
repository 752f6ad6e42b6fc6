package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wa-relay/internal/model"
)

func msg(id string) model.Message {
	return model.Message{
		ID:        id,
		From:      "15550001",
		Type:      model.TypeText,
		Text:      "body " + id,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Status:    model.StatusDelivered,
	}
}

func seeded(n int) *MemoryStore {
	s := NewMemoryStore()
	for i := 0; i < n; i++ {
		s.Append(msg(fmt.Sprintf("m%d", i)))
	}
	return s
}

func ids(p model.Page) []string {
	out := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, m.ID)
	}
	return out
}

func TestListWindows(t *testing.T) {
	s := seeded(5)

	cases := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"first page", 2, 0, []string{"m0", "m1"}},
		{"middle", 2, 2, []string{"m2", "m3"}},
		{"tail shorter than limit", 2, 4, []string{"m4"}},
		{"limit larger than store", 50, 0, []string{"m0", "m1", "m2", "m3", "m4"}},
		{"offset at end", 10, 5, []string{}},
		{"offset past end", 10, 9, []string{}},
		{"negative offset", 2, -3, []string{"m0", "m1"}},
		{"zero limit", 0, 0, []string{}},
		{"negative limit", -1, 0, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := s.List(tc.limit, tc.offset)
			assert.Equal(t, tc.want, ids(p))
			assert.Equal(t, 5, p.Total)
		})
	}
}

func TestListEmptyStore(t *testing.T) {
	p := NewMemoryStore().List(50, 0)
	assert.NotNil(t, p.Messages)
	assert.Empty(t, p.Messages)
	assert.Zero(t, p.Total)
}

func TestListReturnsCopy(t *testing.T) {
	s := seeded(2)
	p := s.List(10, 0)
	p.Messages[0].Text = "mutated"

	got, ok := s.Get("m0")
	require.True(t, ok)
	assert.Equal(t, "body m0", got.Text)
}

func TestGet(t *testing.T) {
	s := seeded(3)

	m, ok := s.Get("m1")
	require.True(t, ok)
	assert.Equal(t, msg("m1"), m)

	_, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestGetReturnsFirstDuplicate(t *testing.T) {
	s := NewMemoryStore()
	first := msg("dup")
	second := msg("dup")
	second.Text = "second"
	s.Append(first)
	s.Append(second)

	got, ok := s.Get("dup")
	require.True(t, ok)
	assert.Equal(t, first.Text, got.Text)
	assert.Equal(t, 2, s.Len())
}

func TestConcurrentAppendAndList(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(msg(fmt.Sprintf("w%d-%d", w, i)))
				p := s.List(10, 0)
				assert.LessOrEqual(t, len(p.Messages), 10)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
	assert.Equal(t, 800, s.List(1000, 0).Total)
}
