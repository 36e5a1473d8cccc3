package chronograph

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/registry"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLatencyTime - допустимое опоздание к началу этапа.
	DefaultLatencyTime = 30 * time.Second
	// PostponeAnnouncement - продление таймера на время публикации результатов.
	PostponeAnnouncement = 2 * time.Minute
)

// AuctionStore - часть хранилища, нужная движку для промежуточных сохранений.
type AuctionStore interface {
	SaveAuction(ctx context.Context, auction *models.Auction, fields []string, touchModified bool) error
}

// TenderAPI - внешние вызовы, выполняемые на этапе объявления результатов.
type TenderAPI interface {
	GetTenderDocuments(ctx context.Context, tenderID string) ([]models.TenderDocument, error)
	GetTenderBids(ctx context.Context, tenderID string) ([]models.TenderBid, error)
	GetTenderPublicBids(ctx context.Context, tenderID string) ([]models.TenderBid, error)
	UploadDocument(ctx context.Context, fileName string, content []byte) (json.RawMessage, error)
	PublishTenderDocument(ctx context.Context, tenderID string, doc json.RawMessage, docID string) error
	PostTenderAuction(ctx context.Context, tenderID string, patch *models.ResultsPatch) error
}

type stageHandler func(ctx context.Context, auction *models.Auction) error

// Engine выполняет один такт аукциона: сторонние эффекты выхода из текущего
// этапа, входа в следующий и пересчет таймера.
type Engine struct {
	store   AuctionStore
	api     TenderAPI
	latency time.Duration
	log     *logrus.Logger
	now     func() time.Time

	entryHandlers map[models.StageType]stageHandler
	exitHandlers  map[models.StageType]stageHandler
}

// NewEngine создает новый экземпляр Engine.
func NewEngine(store AuctionStore, api TenderAPI, latency time.Duration, log *logrus.Logger) *Engine {
	if latency == 0 {
		latency = DefaultLatencyTime
	}
	e := &Engine{
		store:   store,
		api:     api,
		latency: latency,
		log:     log,
		now:     time.Now,
	}
	e.entryHandlers = map[models.StageType]stageHandler{
		models.StagePause:        e.onStartStagePause,
		models.StageAnnouncement: e.onStartStageAnnouncement,
		// вход в pre_announcement дешевый намеренно: долгие вызовы здесь
		// задержали бы завершение последнего раунда
	}
	e.exitHandlers = map[models.StageType]stageHandler{
		models.StageBids: e.onEndStageBids,
	}
	return e
}

// TickAuction продвигает аукцион ровно на один этап. Ошибка означает,
// что этап не пройден и такт нужно повторить позже.
func (e *Engine) TickAuction(ctx context.Context, auction *models.Auction) error {
	now := e.now()
	currentStage := auction.CurrentStage
	log := e.log.WithField("auction_id", auction.ID)

	if currentStage == models.CurrentStageRescheduled {
		log.Info("auction is waiting to be rescheduled")
		return nil
	}

	nextStageIndex := currentStage + 1
	if nextStageIndex < 0 || nextStageIndex >= len(auction.Stages) {
		auction.Timer = nil
		log.Errorf("chronograph tries to update auction to a non-existed stage %d", nextStageIndex)
		return nil
	}

	nextStage := &auction.Stages[nextStageIndex]
	if nextStage.Start.After(now) {
		log.Errorf("chronograph tries to update auction too early %s", nextStage.Start)
		return nil
	}

	if now.Sub(nextStage.Start) > e.latency &&
		nextStage.Type != models.StagePreAnnouncement &&
		nextStage.Type != models.StageAnnouncement {
		auction.CurrentStage = models.CurrentStageRescheduled
		auction.Results = []models.StageResult{}
		auction.Timer = nil
		log.Info("next stage has not started in time and auction will be rescheduled")
		return nil
	}

	if err := e.runStageMethods(ctx, auction, currentStage); err != nil {
		return err
	}

	auction.CurrentStage = nextStageIndex
	if nextStageIndex+1 < len(auction.Stages) {
		timer := auction.Stages[nextStageIndex+1].Start
		auction.Timer = &timer
	} else {
		auction.Timer = nil
	}
	return nil
}

// runStageMethods выполняет эффекты выхода из текущего этапа и входа
// в следующий. Выход выполняется не более одного раза на индекс,
// даже если последующие шаги такта упали и такт повторяется.
func (e *Engine) runStageMethods(ctx context.Context, auction *models.Auction, currentStage int) error {
	if currentStage > -1 &&
		(auction.FinishedStage == nil || *auction.FinishedStage != currentStage) {
		if handler := e.exitHandlers[auction.Stages[currentStage].Type]; handler != nil {
			if err := handler(ctx, auction); err != nil {
				return err
			}
		}
		finished := currentStage
		auction.FinishedStage = &finished
	}

	nextStage := &auction.Stages[currentStage+1]
	if handler := e.entryHandlers[nextStage.Type]; handler != nil {
		return handler(ctx, auction)
	}
	return nil
}

// onStartStagePause делает начальный снимок ставок при старте аукциона
// и назначает очередность ходов следующего раунда: худшее положение первым.
func (e *Engine) onStartStagePause(_ context.Context, auction *models.Auction) error {
	currentStage := auction.CurrentStage

	if currentStage == models.CurrentStageInitial {
		e.log.Info("set initial bids")
		auction.InitialBids = make([]models.StageResult, 0, len(auction.Bids))
		for n, bid := range SortBids(auction.Bids) {
			initialBid := models.StageResult{Label: GetLabel(n)}
			copyBidStageFields(&bid, &initialBid)
			auction.InitialBids = append(auction.InitialBids, initialBid)
		}
		UpdateAuctionResults(auction)
	}

	index := currentStage + 2
	e.log.Infof("set %d:%d bid stages order", index, index+len(auction.Bids))
	for i, bid := range SortBids(auction.Bids) {
		stage := &auction.Stages[index+i]
		stage.Label = GetLabel(GetBidderNumber(bid.ID, auction.InitialBids))
		copyBidStageFields(&bid, &stage.StageResult)
	}
	return nil
}

// onEndStageBids публикует ставку активного участника раунда и
// пересчитывает текущие результаты.
func (e *Engine) onEndStageBids(_ context.Context, auction *models.Auction) error {
	e.PublishBidsMadeInCurrentStage(auction)
	UpdateAuctionResults(auction)
	return nil
}

// onStartStageAnnouncement публикует итоги: сперва продлевается собственный
// таймер, затем идемпотентно загружается протокол, отправляются результаты
// в реестр и раскрываются имена участников.
func (e *Engine) onStartStageAnnouncement(ctx context.Context, auction *models.Auction) error {
	// внешние вызовы обычно не укладываются в штатный интервал
	timer := e.now().Add(PostponeAnnouncement)
	auction.Timer = &timer
	if err := e.store.SaveAuction(ctx, auction, []string{"timer"}, false); err != nil {
		return err
	}

	if !auction.AuditDocumentPosted {
		documents, err := e.api.GetTenderDocuments(ctx, auction.TenderID)
		if err != nil {
			return err
		}
		if err = e.uploadAuditDocument(ctx, auction, documents); err != nil {
			return err
		}
		auction.AuditDocumentPosted = true
		if err = e.store.SaveAuction(ctx, auction, []string{"_audit_document_posted"}, false); err != nil {
			return err
		}
	}

	if !auction.ResultsSent {
		tenderBids, err := e.api.GetTenderBids(ctx, auction.TenderID)
		if err != nil {
			return err
		}
		if err = e.sendAuctionResults(ctx, auction, tenderBids); err != nil {
			return err
		}
		auction.ResultsSent = true
		if err = e.store.SaveAuction(ctx, auction, []string{"_auction_results_sent"}, false); err != nil {
			return err
		}
	}

	publicBids, err := e.api.GetTenderPublicBids(ctx, auction.TenderID)
	if err != nil {
		if errors.Is(err, registry.ErrSkip) {
			e.log.Warnf("skip revealing bidder names for %s: %v", auction.TenderID, err)
			return nil
		}
		return err
	}
	SetAuctionBiddersRealNames(auction, publicBids)
	return nil
}

// uploadAuditDocument загружает протокол в сервис документов и публикует его
// у тендера. Повторная публикация кладет новую версию поверх существующей.
func (e *Engine) uploadAuditDocument(ctx context.Context, auction *models.Auction, documents []models.TenderDocument) error {
	fileName, fileData, err := BuildAuditDocument(auction)
	if err != nil {
		return err
	}
	docID := GetDocIDFromFilename(documents, fileName)

	data, err := e.api.UploadDocument(ctx, fileName, fileData)
	if err != nil {
		return err
	}
	if err = e.api.PublishTenderDocument(ctx, auction.TenderID, data, docID); err != nil {
		return err
	}
	e.log.Infof("published %s for tender %s", fileName, auction.TenderID)
	return nil
}

func (e *Engine) sendAuctionResults(ctx context.Context, auction *models.Auction, tenderBids []models.TenderBid) error {
	patch := BuildResultsBidsPatch(auction, tenderBids)
	if err := e.api.PostTenderAuction(ctx, auction.TenderID, patch); err != nil {
		return err
	}
	e.log.Infof("auction %s results sent", auction.ID)
	return nil
}
