package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/db/models"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
)

const (
	defaultPollInterval  = 5 * time.Second
	createFamilyAttempts = 3
)

// ServiceParams wires the Postgres-backed gateway. Broker is optional; without
// it subscriptions poll the family row.
type ServiceParams struct {
	Repo         *Repository
	Broker       Broker
	Logger       *logger.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

// Service implements Gateway on top of the family tables and a broker.
type Service struct {
	repo         *Repository
	broker       Broker
	logg         *logger.Logger
	pollInterval time.Duration
	now          func() time.Time
}

var _ Gateway = (*Service)(nil)

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repository required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:         params.Repo,
		broker:       params.Broker,
		logg:         params.Logger,
		pollInterval: interval,
		now:          now,
	}, nil
}

func (s *Service) ReadSnapshot(ctx context.Context, familyID string) (*Snapshot, error) {
	row, err := s.repo.FindData(ctx, familyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read family snapshot")
	}
	if row == nil {
		return nil, nil
	}
	snap, err := fromRow(*row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode family snapshot")
	}
	return &snap, nil
}

// WriteSnapshot upserts the row and then announces it on the family channel.
// A failed announcement is logged; the row is already durable.
func (s *Service) WriteSnapshot(ctx context.Context, familyID string, snap Snapshot) error {
	row, err := toRow(familyID, snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode family snapshot")
	}
	if err := s.repo.UpsertData(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write family snapshot")
	}
	if s.broker == nil {
		return nil
	}

	snap.FamilyID = familyID
	payload, err := json.Marshal(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode family event")
	}
	if err := s.broker.Publish(ctx, s.broker.Channel(familyID), payload); err != nil {
		ctx = s.logg.WithFamilyID(ctx, familyID)
		s.logg.Warn(ctx, "publish family snapshot failed: "+err.Error())
	}
	return nil
}

func (s *Service) Subscribe(ctx context.Context, familyID string, fn func(Snapshot)) (Subscription, error) {
	if fn == nil {
		return nil, errors.New("subscriber callback required")
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}

	if s.broker == nil {
		sub.wg.Add(1)
		go func() {
			defer sub.wg.Done()
			s.poll(subCtx, familyID, fn)
		}()
		return sub, nil
	}

	stream, err := s.broker.Subscribe(subCtx, s.broker.Channel(familyID))
	if err != nil {
		cancel()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to family channel")
	}
	sub.stream = stream
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		s.consume(subCtx, familyID, stream, fn)
	}()
	return sub, nil
}

func (s *Service) consume(ctx context.Context, familyID string, stream Stream, fn func(Snapshot)) {
	ctx = s.logg.WithFamilyID(ctx, familyID)
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-stream.Messages():
			if !ok {
				return
			}
			var snap Snapshot
			if err := json.Unmarshal(payload, &snap); err != nil {
				s.logg.Warn(ctx, "dropping undecodable family event: "+err.Error())
				continue
			}
			if snap.FamilyID == "" {
				snap.FamilyID = familyID
			}
			fn(snap)
		}
	}
}

// poll emits the row whenever its last_updated or device_id changes. The row
// present when polling starts is taken as the baseline and not emitted.
func (s *Service) poll(ctx context.Context, familyID string, fn func(Snapshot)) {
	ctx = s.logg.WithFamilyID(ctx, familyID)
	var lastSeen time.Time
	var lastDevice string
	if current, err := s.ReadSnapshot(ctx, familyID); err == nil && current != nil {
		lastSeen, lastDevice = current.LastUpdated, current.DeviceID
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.ReadSnapshot(ctx, familyID)
			if err != nil {
				s.logg.Warn(ctx, "poll family snapshot failed: "+err.Error())
				continue
			}
			if snap == nil || (snap.LastUpdated.Equal(lastSeen) && snap.DeviceID == lastDevice) {
				continue
			}
			lastSeen, lastDevice = snap.LastUpdated, snap.DeviceID
			fn(*snap)
		}
	}
}

func (s *Service) CreateFamily(ctx context.Context, name, deviceID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "family name is required")
	}
	var err error
	for attempt := 0; attempt < createFamilyAttempts; attempt++ {
		family := models.Family{FamilyID: NewFamilyID(), Name: name}
		err = s.repo.CreateFamily(ctx, family, deviceID, s.now().UTC())
		if err == nil {
			return family.FamilyID, nil
		}
		if !db.IsUniqueViolation(err, "") {
			break
		}
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create family")
}

func (s *Service) JoinFamily(ctx context.Context, familyID string) error {
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	exists, err := s.repo.FamilyExists(ctx, familyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up family")
	}
	if !exists {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "family %s not found", familyID)
	}
	return nil
}

type subscription struct {
	cancel context.CancelFunc
	stream Stream
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		if s.stream != nil {
			s.err = s.stream.Close()
		}
		s.wg.Wait()
	})
	return s.err
}
