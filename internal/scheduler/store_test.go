package scheduler

import (
	"testing"

	"padelbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStoreKeepsInsertionOrder(t *testing.T) {
	store := NewTaskStore()
	store.Add(&models.Task{Date: "2026-09-01"})
	store.Add(&models.Task{Date: "2026-09-02"})
	store.Add(&models.Task{Date: "2026-09-03"})

	tasks := store.List()
	require.Len(t, tasks, 3)
	assert.Equal(t, "2026-09-01", tasks[0].Date)
	assert.Equal(t, "2026-09-03", tasks[2].Date)
}

func TestTaskStoreRemove(t *testing.T) {
	store := NewTaskStore()
	store.Add(&models.Task{Date: "2026-09-01"})
	store.Add(&models.Task{Date: "2026-09-02"})

	removed, err := store.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", removed.Date)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "2026-09-02", store.List()[0].Date)

	_, err = store.Remove(5)
	assert.Error(t, err)
	_, err = store.Remove(-1)
	assert.Error(t, err)
}

func TestTaskStoreListIsACopy(t *testing.T) {
	store := NewTaskStore()
	store.Add(&models.Task{Date: "2026-09-01"})

	tasks := store.List()
	tasks[0] = nil
	assert.NotNil(t, store.List()[0])
}
