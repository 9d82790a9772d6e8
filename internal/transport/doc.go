// Package transport carries toyo envelopes between clients and the broker.
//
// An Endpoint names where the broker listens (tcp://host:port or
// unix:///path). A Client holds one connection and enforces strict
// alternation: a second Exchange on the same Client waits until the first
// reply has arrived.
//
// Example:
//
//	c, err := transport.Dial("tcp://127.0.0.1:5151", transport.WithCodec("msgpack"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	reply, err := c.Exchange(ctx, &toyov1.Request{Command: toyov1.CommandGet})
package transport
