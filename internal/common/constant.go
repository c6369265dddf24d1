package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// IdempotencyKeyHeaderName carries the per-record idempotency key on
// registration POSTs, so a confirmed-but-unacknowledged submit that gets
// re-sent by the reconciler cannot double-insert.
const IdempotencyKeyHeaderName = "Idempotency-Key"
