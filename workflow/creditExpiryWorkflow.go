package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const creditExpiryLockKey = "sweeper:store-credit-expiry"

// CreditExpirySweeper periodically expires Active store-credit instruments
// whose expiry date has passed, zeroing their balances with Expiration
// transactions. The redis lock keeps multiple instances from sweeping at
// the same time; instrument row locks make a missed redis lock harmless.
type CreditExpirySweeper struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Locker *redislock.Client

	Interval time.Duration
}

func NewCreditExpirySweeper(db *gorm.DB, logger *logrus.Logger) *CreditExpirySweeper {
	return &CreditExpirySweeper{
		DB:       db,
		Logger:   logger,
		Locker:   config.GetRedisLock(),
		Interval: time.Hour,
	}
}

func (s *CreditExpirySweeper) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

func (s *CreditExpirySweeper) sweepOnce(ctx context.Context) {
	if s.Locker != nil {
		lock, err := s.Locker.Obtain(ctx, creditExpiryLockKey, time.Minute, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return
		}
		if err != nil {
			config.LogError(s.Logger, "creditExpiryWorkflow.go", "sweepOnce", "ObtainLock", creditExpiryLockKey, err)
			return
		}
		defer lock.Release(ctx)
	}

	var expired []int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		expired, err = models.ExpireDueStoreCredits(tx, time.Now())
		return err
	})
	if err != nil {
		config.LogError(s.Logger, "creditExpiryWorkflow.go", "sweepOnce", "ExpireDueStoreCredits", nil, err)
		return
	}
	if len(expired) > 0 && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":      "CreditExpirySweeper",
			"credit_ids": expired,
		}).Info("expired store credits")
	}
}
