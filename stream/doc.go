// Package stream implements self-healing push subscriptions.
//
// A Session owns one connection at a time. When a timeout is set, a
// watchdog replaces the connection whenever no event has arrived for that
// long; the caller's data handler survives the swap. Delivery is at most
// once: events in flight on a replaced connection are dropped.
//
//	s := stream.Open(stream.Options{
//		URL:     "http://host/sse/feed",
//		OnData:  func(v any) { fmt.Println(v) },
//		Timeout: 30 * time.Second,
//		Dialer:  &stream.SSEDialer{},
//	})
//	defer s.Close()
package stream
