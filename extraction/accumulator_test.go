package extraction

import (
	"testing"

	"catalog-scraper/models"

	"github.com/stretchr/testify/assert"
)

func recs(ids ...int64) []*models.Record {
	out := make([]*models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.Record{ID: id})
	}
	return out
}

func TestAccumulator_PartitionAcrossPasses(t *testing.T) {
	a := NewAccumulator()

	fresh, seen := a.Partition(recs(1, 2))
	assert.Equal(t, []int64{1, 2}, idsOf(fresh))
	assert.Equal(t, 0, seen)

	fresh, seen = a.Partition(recs(2, 3, 4))
	assert.Equal(t, []int64{3, 4}, idsOf(fresh))
	assert.Equal(t, 1, seen)

	fresh, seen = a.Partition(recs(1, 2, 3, 4))
	assert.Empty(t, fresh)
	assert.Equal(t, 4, seen)

	assert.Equal(t, 4, a.Committed())
	assert.Equal(t, 5, a.Dropped())
}

func TestAccumulator_DuplicateWithinPass(t *testing.T) {
	a := NewAccumulator()
	fresh, seen := a.Partition(recs(5, 6, 5, 7, 6))
	assert.Equal(t, []int64{5, 6, 7}, idsOf(fresh))
	assert.Equal(t, 2, seen)
}

func TestAccumulator_ChangedFieldsStillDuplicate(t *testing.T) {
	a := NewAccumulator()
	old := "$10"
	updated := "$12"

	fresh, _ := a.Partition([]*models.Record{{ID: 1, PriceRaw: &old}})
	assert.Len(t, fresh, 1)

	fresh, seen := a.Partition([]*models.Record{{ID: 1, PriceRaw: &updated}})
	assert.Empty(t, fresh)
	assert.Equal(t, 1, seen)
}

func TestAccumulator_Seed(t *testing.T) {
	a := NewAccumulator()
	a.Seed([]int64{1, 2, 3})

	fresh, seen := a.Partition(recs(3, 4))
	assert.Equal(t, []int64{4}, idsOf(fresh))
	assert.Equal(t, 1, seen)
	assert.Equal(t, 4, a.Committed())
}
