package postgres

const eventColumns = `id, annotation, description, title, category_id, initiator_id,
       lat, lon, event_date, created_on, published_on, paid,
       participant_limit, request_moderation, confirmed_requests, state`

const requestColumns = `id, requester_id, event_id, created, status`

const insertEventSQL = `
INSERT INTO events (
  annotation, description, title, category_id, initiator_id,
  lat, lon, event_date, created_on, published_on, paid,
  participant_limit, request_moderation, confirmed_requests, state
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id
`

const getEventSQL = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

const selectEventForUpdateSQL = getEventSQL + ` FOR UPDATE`

const updateEventSQL = `
UPDATE events SET
  annotation=$2, description=$3, title=$4, category_id=$5,
  lat=$6, lon=$7, event_date=$8, published_on=$9, paid=$10,
  participant_limit=$11, request_moderation=$12, state=$13
WHERE id=$1
`

const setConfirmedSQL = `UPDATE events SET confirmed_requests=$2 WHERE id=$1`

const getRequestSQL = `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

const selectRequestForUpdateSQL = getRequestSQL + ` FOR UPDATE`

const selectRequestsForUpdateSQL = `
SELECT ` + requestColumns + `
FROM requests
WHERE event_id = $1 AND id = ANY($2)
ORDER BY id
FOR UPDATE
`

const findActiveRequestSQL = `
SELECT ` + requestColumns + `
FROM requests
WHERE requester_id = $1 AND event_id = $2 AND status <> 'CANCELED'
LIMIT 1
`

const insertRequestSQL = `
INSERT INTO requests (requester_id, event_id, created, status)
VALUES ($1, $2, $3, $4)
RETURNING id
`

const setRequestStatusSQL = `UPDATE requests SET status=$2 WHERE id = ANY($1)`

const countConfirmedSQL = `SELECT COUNT(*) FROM requests WHERE event_id=$1 AND status='CONFIRMED'`

const listByRequesterSQL = `SELECT ` + requestColumns + ` FROM requests WHERE requester_id=$1 ORDER BY id`

const listByEventSQL = `SELECT ` + requestColumns + ` FROM requests WHERE event_id=$1 ORDER BY id`

const userExistsSQL = `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`

const categoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`
