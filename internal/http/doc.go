// Package http provides HTTP handlers and middleware for the mentoring API.
//
// The router exposes the following endpoints:
//   - GET /health and GET /metrics: liveness and Prometheus metrics, no session needed.
//   - POST /accounts: student self-registration. Body: {"name","srn","email",
//     "department","year","password","confirmPassword"}.
//   - POST /sessions: sign-in. Body: {"role","username"|"srn"|"staffId","password"}.
//     The token is returned in the body and also through the `X-Session-Token`
//     header and a `session_token` cookie.
//   - DELETE /sessions/current: sign-out of the session presented by the caller.
//   - GET /me, PUT /me/role: the signed-in user and its role switch.
//   - GET /mentors[?available=true], /professors, /students and /{id} lookups.
//   - GET|POST /meetings, GET /meetings/upcoming, GET /meetings/stats,
//     GET /meetings/search, GET /meetings/analytics, GET /meetings/schedule,
//     GET /meetings/{id}, POST /meetings/{id}/cancel|complete|feedback,
//     GET|PUT /meetings/{id}/notes and GET /notes for mentors.
//   - GET /availability[?day=], GET /availability/occurrences?from=&to=,
//     GET /slots?date=&interval=, GET /slots/check?date=&start=&end=.
//
// Successful responses are wrapped as {"data":...,"notifications":[...]}; failures
// carry {"error_code","message","errors","notifications"}. Notifications are the
// user-facing messages the services raised while serving the request.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
