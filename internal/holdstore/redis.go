// Package holdstore implements the TTL side of the reservation split on
// Redis. Seat locks and hold entries share one TTL, so the store forgets a
// hold on its own; the relational ledger is reconciled separately by the
// sweeper.
package holdstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/redis/go-redis/v9"
)

// putHoldScript atomically replaces any prior hold of the same holder,
// refuses seat locks owned by someone else, and writes the hold entry plus
// one lock key per seat, all sharing the TTL.
var putHoldScript = redis.NewScript(`
	-- KEYS[1] = hold key, KEYS[2] = seat set key, KEYS[3..] = seat lock keys
	-- ARGV[1] = holder, ARGV[2] = ttl seconds, ARGV[3] = hold json,
	-- ARGV[4] = showtime id, ARGV[5..] = seat ids (aligned with KEYS[3..])

	local prior = redis.call("GET", KEYS[1])
	if prior then
		local hold = cjson.decode(prior)
		for _, seatId in ipairs(hold.seat_ids) do
			local lockKey = "seat_lock:" .. ARGV[4] .. ":" .. seatId
			if redis.call("GET", lockKey) == ARGV[1] then
				redis.call("DEL", lockKey)
				redis.call("SREM", KEYS[2], seatId)
			end
		end
	end

	for i = 3, #KEYS do
		local owner = redis.call("GET", KEYS[i])
		if owner and owner ~= ARGV[1] then
			return {err = "seat already locked"}
		end
	end

	redis.call("SET", KEYS[1], ARGV[3], "EX", ARGV[2])

	for i = 3, #KEYS do
		redis.call("SET", KEYS[i], ARGV[1], "EX", ARGV[2])
		redis.call("SADD", KEYS[2], ARGV[i + 2])
	end

	return "OK"
`)

// deleteHoldScript removes the hold entry and every seat lock the holder
// still owns. Locks grabbed by another holder in the meantime are left
// untouched.
var deleteHoldScript = redis.NewScript(`
	-- KEYS[1] = hold key, KEYS[2] = seat set key
	-- ARGV[1] = holder, ARGV[2] = showtime id

	local raw = redis.call("GET", KEYS[1])
	if not raw then
		return 0
	end

	local hold = cjson.decode(raw)
	for _, seatId in ipairs(hold.seat_ids) do
		local lockKey = "seat_lock:" .. ARGV[2] .. ":" .. seatId
		if redis.call("GET", lockKey) == ARGV[1] then
			redis.call("DEL", lockKey)
			redis.call("SREM", KEYS[2], seatId)
		end
	end

	redis.call("DEL", KEYS[1])

	return 1
`)

// filterValidLocksScript scans the per-showtime seat set, drops members
// whose lock key already expired, and returns the seats still locked.
var filterValidLocksScript = redis.NewScript(`
	local setKey = KEYS[1]
	local showtimeId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}
	local validSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatIds = result[2]

		for _, seatId in ipairs(seatIds) do
			local lockKey = "seat_lock:" .. showtimeId .. ":" .. seatId
			if redis.call("EXISTS", lockKey) == 0 then
				table.insert(expiredSeats, seatId)
			else
				table.insert(validSeats, seatId)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	return validSeats
`)

type RedisHoldStore struct {
	client redis.UniversalClient
}

func NewRedisHoldStore(client redis.UniversalClient) *RedisHoldStore {
	return &RedisHoldStore{
		client: client,
	}
}

func (s *RedisHoldStore) Put(ctx context.Context, hold domain.Hold, ttl time.Duration) error {
	holdBytes, err := json.Marshal(hold)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(hold.SeatIDs)+2)
	keys = append(keys, holdKey(hold.ShowtimeID, hold.HolderID), seatSetKey(hold.ShowtimeID))

	args := make([]interface{}, 0, len(hold.SeatIDs)+4)
	args = append(args, hold.HolderID, int(ttl.Seconds()), holdBytes, hold.ShowtimeID)

	for _, seatID := range hold.SeatIDs {
		keys = append(keys, seatLockKey(hold.ShowtimeID, seatID))
		args = append(args, seatID)
	}

	err = putHoldScript.Run(ctx, s.client, keys, args...).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *RedisHoldStore) Get(ctx context.Context, holderID string, showtimeID int) (*domain.Hold, error) {
	holdBytes, err := s.client.Get(ctx, holdKey(showtimeID, holderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoActiveHold
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var hold domain.Hold

	err = json.Unmarshal(holdBytes, &hold)
	if err != nil {
		return nil, err
	}

	return &hold, nil
}

func (s *RedisHoldStore) Delete(ctx context.Context, holderID string, showtimeID int) error {
	keys := []string{holdKey(showtimeID, holderID), seatSetKey(showtimeID)}

	err := deleteHoldScript.Run(ctx, s.client, keys, holderID, showtimeID).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *RedisHoldStore) LockedSeats(ctx context.Context, showtimeID int) ([]int, error) {
	cmd := filterValidLocksScript.Run(ctx, s.client, []string{seatSetKey(showtimeID)}, showtimeID)

	seatIDs, err := cmd.Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	seats := make([]int, len(seatIDs))
	for i, id := range seatIDs {
		seats[i] = int(id)
	}

	return seats, nil
}

func (s *RedisHoldStore) SeatOwners(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (map[int]string, error) {

	if len(seatIDs) == 0 {
		return map[int]string{}, nil
	}

	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = seatLockKey(showtimeID, seatID)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	owners := make(map[int]string, len(seatIDs))

	for i, value := range values {
		owner, ok := value.(string)
		if !ok {
			continue
		}

		owners[seatIDs[i]] = owner
	}

	return owners, nil
}

func holdKey(showtimeID int, holderID string) string {
	return fmt.Sprintf("hold:%d:%s", showtimeID, holderID)
}

func seatLockKey(showtimeID, seatID int) string {
	return fmt.Sprintf("seat_lock:%d:%d", showtimeID, seatID)
}

func seatSetKey(showtimeID int) string {
	return fmt.Sprintf("seat_locks:%d", showtimeID)
}
