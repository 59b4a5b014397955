// Package dazeus provides client bindings for the DaZeus IRC bot core.
//
// A plugin connects to the core over a unix or TCP socket (or a WebSocket bridge), issues
// requests such as joining channels or sending messages, and receives events such as incoming
// messages through listeners.
//
// # Basic Usage
//
//	session, err := dazeus.Connect(ctx, "unix:/tmp/dazeus.sock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	// Reply to every message with the same text
//	_, _, err = session.Subscribe(ctx, dazeus.EventPrivMsg, func(evt dazeus.Event, s *dazeus.Session) {
//	    s.Reply(ctx, evt, evt.Param(3), true)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Handle events until the connection closes
//	err = session.Listen(ctx)
//
// # Requests and Responses
//
// Requests are built with the constructor functions (Join, Message, GetProperty, ...) and sent
// with Session.Send, or with the helper method of the same name on Session. Send blocks until the
// core answers; responses are matched to requests in the order the requests were sent.
//
//	resp, err := session.Send(ctx, dazeus.Join("freenode", "#dazeus"))
//	if err == nil && resp.Success() {
//	    fmt.Println("joined")
//	}
//
// Some failures never reach the core and are reported as failure responses instead of errors,
// for example unsubscribing an unknown listener handle or replying to an event without a
// sender. Check Response.Success and Response.Reason.
//
// # Events and Listeners
//
// Events are delivered when the plugin asks for them with NextEvent, TryNextEvent or Listen.
// Each of these calls the listeners registered for the event type before returning the event,
// on the calling goroutine. Listeners may send requests and subscribe or unsubscribe other
// listeners.
//
// Subscribing several listeners to the same event type subscribes once on the core.
// The core is told to stop sending the type when the last listener is removed. Commands
// registered with SubscribeCommand cannot be unregistered on the core, so removing a command
// listener is always local.
//
// # Errors
//
// Transport failures, malformed frames, invalid events and responses that arrive while no
// request is pending close the session. Every later call fails with an error matching
// ErrClosed; Session.Err reports what closed it.
//
//	if errors.Is(err, dazeus.ErrClosed) {
//	    log.Printf("core went away: %v", session.Err())
//	}
package dazeus
