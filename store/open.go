package store

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/mutena/fotomutena/config"
	"github.com/mutena/fotomutena/models"
	"github.com/mutena/fotomutena/utils"
)

// UploadsPrefix is the public path under which locally hosted media is served.
const UploadsPrefix = "/api/uploads/"

// Stores groups the documents the service works with.
type Stores struct {
	Backend  Backend
	Photos   *Collection
	Designs  *Collection
	Settings *Document[models.Settings]
}

// Open selects a backend from configuration. rc may be nil; a redis backend
// then dials its own client.
func Open(ctx context.Context, cfg config.AppConfig, rc *redis.Client) (*Stores, error) {
	var (
		backend Backend
		err     error
	)
	switch name := cfg.ResolveStoreBackend(); name {
	case config.BackendFile:
		backend, err = NewFileBackend(cfg.DataDir, cfg.ReadOnly)
	case config.BackendRedis:
		owned := rc == nil
		if owned {
			rc, err = utils.NewRedisClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
		}
		backend = NewRedisBackend(rc, cfg.RedisPrefix, owned)
	case config.BackendSQL:
		db, dbErr := config.OpenDatabase(cfg)
		if dbErr != nil {
			return nil, dbErr
		}
		backend = NewSQLBackend(db)
	case config.BackendMongo:
		backend, err = NewMongoBackend(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", name)
	}
	if err != nil {
		return nil, err
	}
	utils.Sugar.Infow("record store ready", "backend", backend.Name(), "readOnly", cfg.ReadOnly)
	return New(backend), nil
}

// New wires the well-known documents onto backend.
func New(backend Backend) *Stores {
	return &Stores{
		Backend:  backend,
		Photos:   NewCollection(KeyPhotos, backend, models.SeedPhotos),
		Designs:  NewCollection(KeyDesigns, backend, nil),
		Settings: NewDocument(backend, KeySettings, models.DefaultSettings, nil),
	}
}

// Collections returns the collections keyed by their public name.
func (s *Stores) Collections() map[string]*Collection {
	return map[string]*Collection{
		s.Photos.Name():  s.Photos,
		s.Designs.Name(): s.Designs,
	}
}

// Close releases the backend.
func (s *Stores) Close() error {
	var err error
	if s.Backend != nil {
		err = multierr.Append(err, s.Backend.Close())
	}
	return err
}

// ReferencedUploads lists the local upload file names any record still points at.
// It fails when a collection can only be served from fallback data, since the
// real references are unknown then.
func (s *Stores) ReferencedUploads(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	var errs error
	for _, c := range []*Collection{s.Photos, s.Designs} {
		snap := c.Items(ctx)
		if snap.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.Name(), snap.Err))
			continue
		}
		for _, r := range snap.Value {
			if idx := strings.Index(r.URL, UploadsPrefix); idx >= 0 {
				refs[path.Base(r.URL[idx+len(UploadsPrefix):])] = struct{}{}
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	return refs, nil
}
