package chronograph

import (
	"context"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/registry"
	"github.com/senyabanana/auction-service/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTickInterval - пауза опроса, когда истекших таймеров нет.
	DefaultTickInterval = time.Second
	// DefaultDBErrorInterval - пауза перед повтором после ошибки хранилища.
	DefaultDBErrorInterval = 5 * time.Second
	// MaxConsecutiveErrors - число неудачных тактов, после которого
	// аукцион снимается с обработки.
	MaxConsecutiveErrors = 1000
)

// Chronograph - цикл опроса: захватывает аукцион с истекшим таймером
// и выполняет для него один такт движка.
type Chronograph struct {
	Repo   repository.AuctionRepository
	Engine *Engine

	tickInterval    time.Duration
	dbErrorInterval time.Duration
	processingLock  time.Duration
	log             *logrus.Logger
	now             func() time.Time
}

// NewChronograph создает новый экземпляр Chronograph.
func NewChronograph(repo repository.AuctionRepository, engine *Engine, processingLock time.Duration, log *logrus.Logger) *Chronograph {
	return &Chronograph{
		Repo:            repo,
		Engine:          engine,
		tickInterval:    DefaultTickInterval,
		dbErrorInterval: DefaultDBErrorInterval,
		processingLock:  processingLock,
		log:             log,
		now:             time.Now,
	}
}

// Run крутит цикл опроса до отмены контекста. Ошибки хранилища на пути
// опроса не валят цикл: он повторяет попытки с фиксированной паузой.
func (c *Chronograph) Run(ctx context.Context) {
	c.log.Info("starting chronograph service")
	for ctx.Err() == nil {
		auction, err := c.Repo.ClaimDueAuction(ctx, c.now())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Warnf("read timer error: %v", err)
			if !sleepCtx(ctx, c.dbErrorInterval) {
				break
			}
			continue
		}
		if auction == nil {
			c.log.Debug("no auctions need to be updated, nooping")
			if !sleepCtx(ctx, c.tickInterval) {
				break
			}
			continue
		}
		c.processAuction(ctx, auction)
	}
	c.log.Info("received shutdown signal, stopping main loop")
}

func (c *Chronograph) processAuction(ctx context.Context, auction *models.Auction) {
	startTime := c.now()
	log := c.log.WithField("auction_id", auction.ID)

	if err := c.Engine.TickAuction(ctx, auction); err != nil {
		if _, ok := registry.IsRetryError(err); ok {
			log.Warnf("tick retry: %v", err)
		} else {
			log.Errorf("tick exception: %v", err)
		}
		c.postponeTimerOnError(ctx, auction)
		return
	}

	c.saveAuction(ctx, auction, repository.ChronographFields)

	processingTime := c.now().Sub(startTime)
	if processingTime >= c.processingLock {
		log.Errorf(
			"auction processing time %s is bigger than processing lock %s, this may lead to inconsistency of data",
			processingTime, c.processingLock)
	} else {
		log.Infof("processed auction, time - %s", processingTime)
	}
}

// postponeTimerOnError откладывает следующий такт линейно растущей паузой.
// После MaxConsecutiveErrors подряд аукцион снимается с обработки насовсем.
func (c *Chronograph) postponeTimerOnError(ctx context.Context, auction *models.Auction) {
	auction.ChronographErrorsCount++
	if auction.ChronographErrorsCount < MaxConsecutiveErrors && auction.Timer != nil {
		timer := auction.Timer.Add(time.Duration(auction.ChronographErrorsCount) * time.Second)
		auction.Timer = &timer
		c.log.Warnf("delaying auction processing %s for %d seconds",
			auction.ID, auction.ChronographErrorsCount)
	} else {
		auction.Timer = nil
		c.log.Errorf("discard auction processing %s", auction.ID)
	}
	c.saveAuction(ctx, auction, []string{"timer", "chronograph_errors_count"})
}

// saveAuction сохраняет поля аукциона, повторяя запись при ошибках хранилища
// до успеха или отмены контекста. Уровень логов растет после трех неудач.
func (c *Chronograph) saveAuction(ctx context.Context, auction *models.Auction, fields []string) {
	retries := 0
	for {
		err := c.Repo.SaveAuction(ctx, auction, fields, true)
		if err == nil {
			return
		}
		if retries > 3 {
			c.log.Errorf("save auction error: %v", err)
		} else {
			c.log.Warnf("save auction error: %v", err)
		}
		if !sleepCtx(ctx, c.dbErrorInterval) {
			return
		}
		retries++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
