package lottery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

func TestEqualDistributionAllocator_SplitsTicketsEvenly(t *testing.T) {
	a := NewEqualDistributionAllocator()
	itemA := &contentmodel.Item{ContentType: "image/png"}
	itemB := &contentmodel.Item{ContentType: "video/mp4"}
	cds := &contentmodel.Set{Children: []contentmodel.Node{itemA, itemB}}

	tickets := a.AllocateTickets(cds, 100)
	require.Len(t, tickets, 100)

	counts := map[*contentmodel.Item]int{}
	for _, ticket := range tickets {
		counts[ticket.AssignedItem]++
	}
	assert.Equal(t, 50, counts[itemA])
	assert.Equal(t, 50, counts[itemB])
}

func TestEqualDistributionAllocator_ReturnsNothingForAnEmptySet(t *testing.T) {
	a := NewEqualDistributionAllocator()
	assert.Nil(t, a.AllocateTickets(&contentmodel.Set{}, 100))
}
