package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Snapshot{}))
	return conn
}

func TestRedisPersistence_RoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	p := NewRedisPersistence(client, "abc", 24*time.Hour)

	data, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, p.Save(ctx, []byte(`[]`)))
	assert.True(t, mr.Exists("cart:session:abc"))
	assert.Equal(t, 24*time.Hour, mr.TTL("cart:session:abc"))

	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, p.Clear(ctx))
	assert.False(t, mr.Exists("cart:session:abc"))
}

func TestRedisPersistence_ExpiredCartLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	logger, _ := test.NewNullLogger()

	store := NewStore(NewRedisPersistence(client, "s1", time.Hour), logger)
	store.Load(ctx)
	store.Add(ctx, beamer("p1", "4"))

	mr.FastForward(2 * time.Hour)

	reloaded := NewStore(NewRedisPersistence(client, "s1", time.Hour), logger)
	reloaded.Load(ctx)
	assert.Empty(t, reloaded.Items())
}

func TestRedisPersistence_Unavailable(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisPersistence(client, "s1", time.Hour).Load(ctx)
	assert.Error(t, err)
}

func TestDBPersistence_UpsertAndClear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewDBPersistence(db, UserKey("42"))

	data, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, p.Save(ctx, []byte(`[{"product_id":"a"}]`)))
	require.NoError(t, p.Save(ctx, []byte(`[{"product_id":"b"}]`)))

	var count int64
	require.NoError(t, db.Model(&Snapshot{}).Where("owner_key = ?", "user:42").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"product_id":"b"}]`, string(data))

	require.NoError(t, p.Clear(ctx))
	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}
