// Package events carries task change notifications from the services to
// connected clients.
//
// Services describe a change as a Message: the event itself plus the users
// who must receive it and, optionally, a task topic. A Publisher delivers
// it. The Hub delivers to live websocket connections, the ArchivingPublisher
// stores one notification row per recipient, and Fanout combines them.
// Delivery is best effort and never affects the outcome of the write that
// produced the event.
package events
