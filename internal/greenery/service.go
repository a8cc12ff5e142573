package greenery

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"greenery/internal/logging"
	"greenery/internal/storage"
)

const contentTypeJSON = "application/json"

type Service struct {
	store  storage.ObjectStore
	logger logrus.FieldLogger
}

func NewService(store storage.ObjectStore, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, logger: logger}
}

// Read returns the stored JSON text for id.
func (s *Service) Read(ctx context.Context, id string) ([]byte, error) {
	key, err := ObjectKey(id)
	if err != nil {
		return nil, err
	}
	log := s.loggerFor(ctx).WithField("key", key)

	started := time.Now()
	data, err := s.store.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("record not found in object store")
			return nil, errors.Wrapf(ErrNotFound, "greenery_id %q", id)
		}
		logStoreError(log, err).Error("error reading record from object store")
		return nil, errors.Wrap(err, "read record")
	}
	if !utf8.Valid(data) {
		log.WithField("bytes", len(data)).Error("stored record is not valid UTF-8 text")
		return nil, errors.New("stored record is not valid UTF-8 text")
	}

	log.WithField("duration_ms", time.Since(started).Milliseconds()).Debug("record read")
	return data, nil
}

// Create writes info under its id, replacing any previous value.
func (s *Service) Create(ctx context.Context, info GeneralInfo) error {
	key, err := ObjectKey(info.GreeneryID)
	if err != nil {
		return err
	}
	log := s.loggerFor(ctx).WithField("key", key)

	payload, err := info.Marshal()
	if err != nil {
		log.WithError(err).Error("error serializing record")
		return err
	}

	started := time.Now()
	if err := s.store.PutObject(ctx, key, payload, contentTypeJSON); err != nil {
		logStoreError(log, err).Error("error creating record in object store")
		return errors.Wrap(err, "create record")
	}

	log.WithField("duration_ms", time.Since(started).Milliseconds()).Debug("record written")
	return nil
}

// Ready reports whether the object store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errors.Wrap(err, "object store not ready")
	}
	return nil
}

func (s *Service) loggerFor(ctx context.Context) logrus.FieldLogger {
	return logging.FromContext(ctx, s.logger)
}

func logStoreError(log logrus.FieldLogger, err error) logrus.FieldLogger {
	log = log.WithError(err)
	if status, ok := storage.StatusCode(err); ok {
		log = log.WithField("status", status)
	}
	return log
}
