// README: Background loop keeping the redis geo index in step with postgres.
package carrier

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultGeoSyncInterval = 30 * time.Second

// RunGeoSync periodically re-indexes the locations of active verified
// carriers. Postgres is authoritative; this loop repairs the index after
// redis restarts or missed best-effort writes. Blocks until ctx is done.
func RunGeoSync(ctx context.Context, store *Store, index *GeoIndex, interval time.Duration, log *logrus.Logger) {
	if interval <= 0 {
		interval = DefaultGeoSyncInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		syncOnce(ctx, store, index, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func syncOnce(ctx context.Context, store *Store, index *GeoIndex, log *logrus.Logger) {
	carriers, err := store.ActiveVerified(ctx)
	if err != nil {
		log.WithError(err).Warn("geo sync: load carriers")
		return
	}

	var indexed, dropped int
	for i := range carriers {
		c := &carriers[i]
		if c.Location == nil {
			if err := index.Remove(ctx, c.ID); err == nil {
				dropped++
			}
			continue
		}
		if err := index.SetLocation(ctx, c.ID, *c.Location); err != nil {
			log.WithError(err).WithField("carrier_id", c.ID).Warn("geo sync: set location")
			continue
		}
		indexed++
	}
	log.WithFields(logrus.Fields{"indexed": indexed, "dropped": dropped}).Debug("geo sync pass")
}
