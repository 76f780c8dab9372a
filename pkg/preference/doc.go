// Package preference decides whether a user receives a given event type on
// a given channel.
//
// Explicit per-user rows always win. Without a row the immutable default
// table built by DefaultTable applies, and (channel, event type) pairs
// missing from the table are disabled.
//
//	r := preference.NewResolver(store, preference.DefaultTable(), directory)
//	ok, err := r.IsEnabled(ctx, userID, preference.ChannelInApp, "contribution.approved")
//
// Service wraps the store with the CRUD operations exposed to users:
// Get (effective settings), Update, BatchUpdate and Reset.
package preference
