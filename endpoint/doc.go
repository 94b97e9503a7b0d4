// Package endpoint is the base every concrete API endpoint is built on.
//
// A concrete endpoint holds a Base, which carries its resource prefix and the
// Capabilities bundle (request/response transport, channel transport and
// serializer). The verb helpers Get, PostJSON, PostMultipart, Put and Delete
// compose the request path, resolve a tenant-scoped handle, issue one request
// and decode the body into the caller's type:
//
//	type Memory struct{ endpoint.Base }
//
//	func (m Memory) Points(ctx context.Context, agentID string) ([]Point, error) {
//		q := transport.QueryOf(map[string]interface{}{"limit": 10})
//		return endpoint.Get[[]Point](ctx, m.Base, "points", transport.ForAgent(agentID), q)
//	}
//
// Handles are resolved fresh on every call and nothing per-call is stored on
// the Base, so one endpoint value may serve many tenants concurrently. The
// helpers never retry and never translate errors: transport failures arrive
// as *transport.Error, decoding failures as *serializer.Error.
//
// Endpoint, Middleware and Chain describe a single round trip and are used by
// transports to layer behavior such as circuit breaking or rate limiting.
package endpoint
