// Package dispatch turns notification requests into deliveries.
//
// An Engine resolves the audience of a Request, filters recipients by their
// in-app preferences, stores in-app records, renders and sends webhook
// payloads with retries, and records delivery analytics. Requests scheduled
// in the future are kept in a Store and picked up by
// ProcessScheduledNotifications, which a Scheduler calls on a fixed interval.
//
// A scheduled row moves from pending to exactly one of sent, failed or
// cancelled:
//
//	pending -> sent       at least one delivery succeeded
//	pending -> failed     nothing was delivered, or the row expired first
//	pending -> cancelled  CancelScheduledNotification before processing
//
// Scans never overlap within a process, and a Locker such as RedisLocker
// keeps processes sharing one store from scanning at the same time.
//
//	engine, err := dispatch.NewEngine(deps, dispatch.WithLocker(dispatch.NewRedisLocker(rdb)))
//	if err != nil {
//		return err
//	}
//	g.Go(dispatch.NewScheduler(engine).Run(ctx))
package dispatch
