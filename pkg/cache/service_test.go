package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seatCount struct {
	Available int `json:"available"`
}

func TestGetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewService(client)

	mock.ExpectGet("k").RedisNil()

	var dest seatCount
	err := svc.Get(context.Background(), "k", &dest)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetFetchesAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewService(client)

	mock.ExpectGet("k").RedisNil()
	mock.ExpectSet("k", `{"available":3}`, time.Second).SetVal("OK")

	var dest seatCount
	calls := 0
	err := svc.GetOrSet(context.Background(), "k", time.Second, func() (interface{}, error) {
		calls++
		return seatCount{Available: 3}, nil
	}, &dest)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, dest.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewService(client)

	mock.ExpectGet("k").SetVal(`{"available":7}`)

	var dest seatCount
	err := svc.GetOrSet(context.Background(), "k", time.Second, func() (interface{}, error) {
		return nil, errors.New("fetcher must not run on a hit")
	}, &dest)

	require.NoError(t, err)
	assert.Equal(t, 7, dest.Available)
}

func TestDeletePatternScans(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewService(client)

	mock.ExpectScan(0, "ticketing:seats:*", 100).SetVal([]string{"a", "b"}, 5)
	mock.ExpectDel("a", "b").SetVal(2)
	mock.ExpectScan(5, "ticketing:seats:*", 100).SetVal([]string{}, 0)

	require.NoError(t, svc.DeletePattern(context.Background(), "ticketing:seats:*"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
