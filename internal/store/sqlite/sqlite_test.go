package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psufleet/coldswap/pkg/redundancy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadPolicyEmptyStoreKeepsDefaults(t *testing.T) {
	store := openTestStore(t)

	policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())

	assert.Empty(t, errList)
	assert.Equal(t, redundancy.DefaultPolicy(), policy)
}

func TestPolicyRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveProperty(redundancy.PropEnabled, true))
	require.NoError(t, store.SaveProperty(redundancy.PropRotationEnabled, false))
	require.NoError(t, store.SaveProperty(redundancy.PropAlgorithm, string(redundancy.AlgoUserSpecific)))
	require.NoError(t, store.SaveProperty(redundancy.PropRankOrder, []uint8{2, 1, 4, 3}))
	require.NoError(t, store.SaveProperty(redundancy.PropRotationPeriod, 48*time.Hour))

	policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())

	assert.Empty(t, errList)
	assert.True(t, policy.Enabled)
	assert.False(t, policy.RotationEnabled)
	assert.Equal(t, redundancy.AlgoUserSpecific, policy.Algorithm)
	assert.Equal(t, []uint8{2, 1, 4, 3}, policy.RankOrder)
	assert.Equal(t, 48*time.Hour, policy.RotationPeriod)
}

func TestSavePropertyOverwrites(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveProperty(redundancy.PropRankOrder, []uint8{1, 2}))
	require.NoError(t, store.SaveProperty(redundancy.PropRankOrder, []uint8{2, 1}))

	policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())
	assert.Empty(t, errList)
	assert.Equal(t, []uint8{2, 1}, policy.RankOrder)
}

func TestLoadPolicyRejectsOutOfRangePeriod(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveProperty(redundancy.PropRotationPeriod, time.Minute))

	policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())

	require.Len(t, errList, 1)
	assert.Equal(t, redundancy.DefaultRotationPeriod, policy.RotationPeriod)
}

func TestLoadPolicyRejectsMalformedValues(t *testing.T) {
	store := openTestStore(t)

	// write garbage straight into the table
	sql := fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, value) VALUES (?, ?);`, TABLE_NAME)
	_, err := store.db.Exec(sql, redundancy.PropAlgorithm, `"NoSuchAlgo"`)
	require.NoError(t, err)
	_, err = store.db.Exec(sql, redundancy.PropEnabled, `not-json`)
	require.NoError(t, err)

	policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())

	assert.Len(t, errList, 2)
	assert.Equal(t, redundancy.AlgoBmcSpecific, policy.Algorithm)
	assert.False(t, policy.Enabled)
}
