// Package http provides HTTP handlers and middleware for the lab booking API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","principal":{"user_id","is_validator"}} with the token
//     also surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and clears
//     the cookie.
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id}: event
//     management endpoints exchanging the `eventDTO` payload defined in
//     event_handler.go. Events carry both proposed and accepted slot sets and a
//     derived validation_state.
//   - POST /events/{id}/transition: applies one lifecycle action
//     (validate/cancel/move/markInProgress/proposeSlots) with an optional slot
//     payload; an explicit empty slot array proposes clearing the schedule.
//   - GET /events/stream: server-sent events stream of observable booking
//     changes for the authenticated user.
//   - GET /occupancy?from=&to=&mode=&resources=: positioned occupancy blocks
//     for the requested window in byBooking or byResource mode.
//   - GET /resources, POST /resources, GET/PUT/DELETE /resources/{id}: catalog
//     endpoints; listing is open to any authenticated principal, mutations
//     require validator capability.
//   - GET /groups, POST /groups, GET/DELETE /groups/{id}: class group catalog.
//   - GET /users, POST /users, GET/PUT/DELETE /users/{id}: account management.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
