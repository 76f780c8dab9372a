// Package redis opens the go-redis client used by notifykit for real-time
// in-app fan-out (pub/sub) and the scheduler's scan lock.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
