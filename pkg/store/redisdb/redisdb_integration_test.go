//go:build integration

package redisdb

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/ixtopo/internal/testutil"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// testDB is a Redis database number reserved for these tests; it is flushed.
const testDB = 15

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	addr := testutil.SkipIfNoRedis(t)
	ctx := testutil.Context(t)
	b, err := Open(ctx, Options{Addr: addr, DB: testDB})
	require.NoError(t, err)
	testutil.FlushDB(t, b.client)
	t.Cleanup(func() {
		b.client.FlushDB(context.Background())
		b.Close()
	})
	return b
}

func TestRedis_CommitAndReload(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	s, err := store.Open(ctx, b)
	require.NoError(t, err)

	vendor := &model.Vendor{Name: "Arista", BundleName: "Port-Channel"}
	sw := &model.Switch{Name: "sw01", Vendor: vendor}
	sp := &model.SwitchPort{Name: "Ethernet1", Type: model.SwitchPortFanout, Switch: sw}
	pi := &model.PhysicalInterface{MonitorIndex: 3}
	sp.SetPhysicalInterface(pi)
	for _, e := range []model.Entity{vendor, sw, sp, pi} {
		s.Stage(e)
	}
	cs, err := s.Commit(ctx, "seed")
	require.NoError(t, err)
	assert.Equal(t, 4, cs.AppliedCount)

	fields, err := b.client.HGetAll(ctx, Key(store.TableSwitchPort, sp.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, "FANOUT", fields["type"])
	assert.Equal(t, strconv.FormatInt(sw.ID, 10), fields["switch_id"])

	reloaded, err := store.Open(ctx, b)
	require.NoError(t, err)
	got, err := store.Get[*model.PhysicalInterface](ctx, reloaded, store.TablePhysicalInterface, pi.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MonitorIndex)
	assert.Equal(t, "Ethernet1", got.SwitchPortName())

	s.StageRemoval(pi)
	sp.ClearPhysicalInterface()
	cs, err = s.Commit(ctx, "remove")
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Count(store.ChangeDelete))

	n, err := b.client.Exists(ctx, Key(store.TablePhysicalInterface, pi.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRedis_ConcurrentModificationConflicts(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	s, err := store.Open(ctx, b)
	require.NoError(t, err)
	vlan := &model.Vlan{Name: "LAN", Number: 10}
	s.Stage(vlan)
	_, err = s.Commit(ctx, "seed")
	require.NoError(t, err)

	stale, err := store.Open(ctx, b)
	require.NoError(t, err)

	// Another writer changes the row after the stale session loaded it
	require.NoError(t, b.client.HSet(ctx, Key(store.TableVlan, vlan.ID), "name", "Renamed").Err())

	v, err := store.Get[*model.Vlan](ctx, stale, store.TableVlan, vlan.ID)
	require.NoError(t, err)
	v.Number = 20
	_, err = stale.Commit(ctx, "stale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrConflict))

	name, err := b.client.HGet(ctx, Key(store.TableVlan, vlan.ID), "name").Result()
	require.NoError(t, err)
	assert.Equal(t, "Renamed", name)
}

func TestRedis_LoadSeeded(t *testing.T) {
	addr := testutil.SkipIfNoRedis(t)
	ctx := testutil.Context(t)
	client := testutil.Client(t, addr, testDB)
	testutil.FlushDB(t, client)
	t.Cleanup(func() { client.FlushDB(context.Background()) })
	testutil.SeedRedis(t, client, "testdata/seed.json")
	b := NewFromClient(client)

	s, err := store.Open(ctx, b)
	require.NoError(t, err)

	peering, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, 1)
	require.NoError(t, err)
	fanout := peering.FanoutInterface()
	require.NotNil(t, fanout)
	assert.Equal(t, int64(2), fanout.ID)
	assert.Same(t, peering, fanout.PeeringInterface())
	assert.Equal(t, "reseller", fanout.Customer().ShortName)
	assert.Equal(t, "example", peering.Customer().ShortName)

	next, err := s.NextMonitorIndex(ctx, fanout.Customer())
	require.NoError(t, err)
	assert.Equal(t, 7, next)
}

func TestRedis_LoadIgnoresForeignKeys(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.client.HSet(ctx, "PORT|Ethernet0", "speed", "100000").Err())
	require.NoError(t, b.client.Set(ctx, "unrelated", "x", 0).Err())

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	for _, table := range store.Tables {
		assert.Empty(t, snap[table], "table %s", table)
	}

	_, err = b.client.Get(ctx, "unrelated").Result()
	assert.NotEqual(t, redis.Nil, err)
}
