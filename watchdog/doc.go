// Package watchdog provides a resettable one-shot inactivity timer.
//
// A Watchdog calls its fire function once when it has not been fed for the
// configured timeout. It does not re-arm itself; a later Feed does.
//
//	w := watchdog.New(30*time.Second, reconnect)
//	defer w.Stop()
//	for ev := range events {
//	    w.Feed()
//	    handle(ev)
//	}
package watchdog
