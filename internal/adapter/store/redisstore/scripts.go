package redisstore

// Lua scripts for the atomic store primitives. Each runs as a single Redis
// transaction so concurrent callers observe linearised effects.

// Keys: [rate_limit_key]
// Args: [window_seconds, limit, current_time, request_id]
// Returns: [allowed (0/1), remaining, reset_timestamp]
const rateLimitScript = `
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local request_id = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, request_id)
    redis.call('EXPIRE', key, window * 2)
    return {1, limit - count - 1, math.floor(now + window)}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = now + window
    if oldest and #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, math.floor(reset_at)}
end
`

// Keys: [queue_key]
// Args: [job_id, score]
// Returns: [position] (1-indexed)
const queueEnqueueScript = `
local key = KEYS[1]
local job_id = ARGV[1]
local score = tonumber(ARGV[2])

redis.call('ZADD', key, score, job_id)

local position = redis.call('ZRANK', key, job_id)
return position + 1
`

// Keys: [queue_key]
// Returns: [job_id] or nil
const queueDequeueScript = `
local key = KEYS[1]

local items = redis.call('ZRANGE', key, 0, 0)

if #items == 0 then
    return nil
end

local job_id = items[1]
redis.call('ZREM', key, job_id)

return job_id
`

// Keys: [queue_key]
// Args: [job_id]
// Returns: [position] (1-indexed) or -1 if not found
const queueRankScript = `
local key = KEYS[1]
local job_id = ARGV[1]

local position = redis.call('ZRANK', key, job_id)

if position == false then
    return -1
end

return position + 1
`

// Keys: [daily_key, monthly_key]
// Args: [amount]
// Returns: [daily_count, monthly_count]
const usageIncrScript = `
local daily_key = KEYS[1]
local monthly_key = KEYS[2]
local amount = tonumber(ARGV[1])

local daily = redis.call('INCRBY', daily_key, amount)
local monthly = redis.call('INCRBY', monthly_key, amount)

-- 25 hours on the daily key to cover timezone edges, 32 days on the monthly
redis.call('EXPIRE', daily_key, 90000)
redis.call('EXPIRE', monthly_key, 2764800)

return {daily, monthly}
`
