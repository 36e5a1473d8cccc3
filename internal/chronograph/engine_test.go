package chronograph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/registry"
	"github.com/senyabanana/auction-service/internal/schedule"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeCall struct {
	fields        []string
	touchModified bool
}

type fakeStore struct {
	calls []storeCall
	err   error
}

func (s *fakeStore) SaveAuction(_ context.Context, _ *models.Auction, fields []string, touchModified bool) error {
	s.calls = append(s.calls, storeCall{fields: fields, touchModified: touchModified})
	return s.err
}

type fakeTenderAPI struct {
	documents    []models.TenderDocument
	documentsErr error
	bids         []models.TenderBid
	bidsErr      error
	publicBids   []models.TenderBid
	publicErr    error

	uploads   int
	published []string
	patches   []*models.ResultsPatch
}

func (a *fakeTenderAPI) GetTenderDocuments(_ context.Context, _ string) ([]models.TenderDocument, error) {
	return a.documents, a.documentsErr
}

func (a *fakeTenderAPI) GetTenderBids(_ context.Context, _ string) ([]models.TenderBid, error) {
	return a.bids, a.bidsErr
}

func (a *fakeTenderAPI) GetTenderPublicBids(_ context.Context, _ string) ([]models.TenderBid, error) {
	return a.publicBids, a.publicErr
}

func (a *fakeTenderAPI) UploadDocument(_ context.Context, fileName string, _ []byte) (json.RawMessage, error) {
	a.uploads++
	return json.RawMessage(`{"title":"` + fileName + `"}`), nil
}

func (a *fakeTenderAPI) PublishTenderDocument(_ context.Context, _ string, _ json.RawMessage, docID string) error {
	a.published = append(a.published, docID)
	return nil
}

func (a *fakeTenderAPI) PostTenderAuction(_ context.Context, _ string, patch *models.ResultsPatch) error {
	a.patches = append(a.patches, patch)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine(store *fakeStore, api *fakeTenderAPI, now time.Time) *Engine {
	engine := NewEngine(store, api, 0, quietLogger())
	engine.now = func() time.Time { return now }
	return engine
}

// scheduledAuction собирает аукцион, чей очередной этап наступил к моменту now.
func scheduledAuction(now time.Time, startedAgo time.Duration) *models.Auction {
	auction := models.NewTestAuction()
	auction.StartAt = now.Add(-startedAgo)
	auction.Stages = schedule.BuildStages(auction, now)
	return auction
}

func TestTickAuctionInitialPause(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Second)
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, 0, auction.CurrentStage)
	require.NotNil(t, auction.Timer)
	assert.Equal(t, auction.Stages[1].Start, *auction.Timer)

	// начальный снимок: худшая цена первой, с обезличенными метками
	require.Len(t, auction.InitialBids, 2)
	assert.Equal(t, 232.66, *auction.InitialBids[0].Amount)
	assert.Equal(t, "Bidder #1", auction.InitialBids[0].Label.En)
	assert.Equal(t, 132.22, *auction.InitialBids[1].Amount)

	// очередность первого раунда: худшее положение ходит первым
	assert.Equal(t, auction.Bids[1].ID, auction.Stages[1].BidderID)
	assert.Equal(t, auction.Bids[0].ID, auction.Stages[2].BidderID)
	assert.Equal(t, "Bidder #1", auction.Stages[1].Label.En)

	require.Len(t, auction.Results, 2)
}

func TestTickAuctionTooEarly(t *testing.T) {
	now := time.Now()
	auction := models.NewTestAuction()
	auction.StartAt = now.Add(10 * time.Minute)
	auction.Stages = schedule.BuildStages(auction, now)
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, models.CurrentStageInitial, auction.CurrentStage)
	assert.Empty(t, auction.InitialBids)
}

func TestTickAuctionRescheduledIsNoop(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Second)
	auction.CurrentStage = models.CurrentStageRescheduled
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))
	assert.Equal(t, models.CurrentStageRescheduled, auction.CurrentStage)
}

func TestTickAuctionMissedStageReschedules(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Hour)
	auction.CurrentStage = 0
	auction.Results = []models.StageResult{{BidderID: auction.Bids[0].ID}}
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, models.CurrentStageRescheduled, auction.CurrentStage)
	assert.Empty(t, auction.Results)
	assert.Nil(t, auction.Timer)
}

func TestTickAuctionPastLastStage(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Hour)
	auction.CurrentStage = len(auction.Stages) - 1
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, len(auction.Stages)-1, auction.CurrentStage)
	assert.Nil(t, auction.Timer)
}

// Опоздание к pre_announcement не переносит аукцион: финальные этапы
// проходят в любом случае.
func TestTickAuctionLatencySkipsFinalStages(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Hour)
	lastBids := len(auction.Stages) - 3
	auction.CurrentStage = lastBids
	auction.Stages[lastBids].BidderID = auction.Bids[0].ID
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, lastBids+1, auction.CurrentStage)
	require.NotNil(t, auction.FinishedStage)
	assert.Equal(t, lastBids, *auction.FinishedStage)
}

func announcementReadyAuction(now time.Time) *models.Auction {
	auction := scheduledAuction(now, time.Hour)
	auction.CurrentStage = len(auction.Stages) - 2
	auction.InitialBids = []models.StageResult{
		{BidderID: auction.Bids[1].ID, Label: GetLabel(0)},
		{BidderID: auction.Bids[0].ID, Label: GetLabel(1)},
	}
	return auction
}

func TestTickAuctionAnnouncement(t *testing.T) {
	now := time.Now()
	auction := announcementReadyAuction(now)
	store := &fakeStore{}
	api := &fakeTenderAPI{
		documents: []models.TenderDocument{{ID: "old-doc", Title: "audit_" + auction.ID + ".yaml"}},
		bids:      []models.TenderBid{{ID: auction.Bids[0].ID}, {ID: auction.Bids[1].ID}},
		publicBids: []models.TenderBid{
			{ID: auction.Bids[0].ID, Tenderers: []models.Tenderer{{Name: "ТОВ Один", NameEn: "One LLC"}}},
		},
	}
	engine := newTestEngine(store, api, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, len(auction.Stages)-1, auction.CurrentStage)
	assert.Nil(t, auction.Timer)

	// протокол загружен и опубликован поверх существующего документа
	assert.Equal(t, 1, api.uploads)
	require.Len(t, api.published, 1)
	assert.Equal(t, "old-doc", api.published[0])
	assert.True(t, auction.AuditDocumentPosted)

	// результаты отправлены в реестр одной строкой на предложение тендера
	require.Len(t, api.patches, 1)
	assert.Len(t, api.patches[0].Data.Bids, 2)
	assert.True(t, auction.ResultsSent)

	// имена раскрыты из публичных данных
	assert.Equal(t, "One LLC", auction.InitialBids[1].Label.En)

	// таймер продлевался и флаги сохранялись до продвижения этапа
	require.Len(t, store.calls, 3)
	assert.Equal(t, []string{"timer"}, store.calls[0].fields)
	assert.Equal(t, []string{"_audit_document_posted"}, store.calls[1].fields)
	assert.Equal(t, []string{"_auction_results_sent"}, store.calls[2].fields)
}

func TestTickAuctionAnnouncementIdempotent(t *testing.T) {
	now := time.Now()
	auction := announcementReadyAuction(now)
	store := &fakeStore{}
	api := &fakeTenderAPI{bidsErr: errors.New("registry down")}
	engine := newTestEngine(store, api, now)

	// первый такт падает после загрузки протокола
	err := engine.TickAuction(context.Background(), auction)
	require.Error(t, err)
	assert.Equal(t, len(auction.Stages)-2, auction.CurrentStage)
	assert.True(t, auction.AuditDocumentPosted)
	assert.Equal(t, 1, api.uploads)
	assert.Empty(t, api.patches)

	// повтор не перезаливает протокол и доводит этап до конца
	api.bidsErr = nil
	require.NoError(t, engine.TickAuction(context.Background(), auction))
	assert.Equal(t, len(auction.Stages)-1, auction.CurrentStage)
	assert.Equal(t, 1, api.uploads)
	assert.Len(t, api.patches, 1)
	assert.True(t, auction.ResultsSent)
}

func TestTickAuctionAnnouncementNamesSkipTolerated(t *testing.T) {
	now := time.Now()
	auction := announcementReadyAuction(now)
	api := &fakeTenderAPI{publicErr: registry.ErrSkip}
	engine := newTestEngine(&fakeStore{}, api, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))

	assert.Equal(t, len(auction.Stages)-1, auction.CurrentStage)
	// метки остаются обезличенными
	assert.Equal(t, "Bidder #1", auction.InitialBids[0].Label.En)
}

func TestTickAuctionRetryErrorPropagates(t *testing.T) {
	now := time.Now()
	auction := announcementReadyAuction(now)
	api := &fakeTenderAPI{
		documentsErr: registry.NewRetryError(10*time.Second, errors.New("too many requests")),
	}
	engine := newTestEngine(&fakeStore{}, api, now)

	err := engine.TickAuction(context.Background(), auction)
	require.Error(t, err)
	_, ok := registry.IsRetryError(err)
	assert.True(t, ok)
	assert.Equal(t, len(auction.Stages)-2, auction.CurrentStage)
}

func TestTickAuctionExitRunsOnce(t *testing.T) {
	now := time.Now()
	auction := scheduledAuction(now, time.Hour)
	lastBids := len(auction.Stages) - 3
	auction.CurrentStage = lastBids
	auction.Stages[lastBids].BidderID = auction.Bids[0].ID
	amount := 100.0
	auction.Bids[0].Stages[strconv.Itoa(lastBids)] = &models.PostedBid{
		Amount: &amount,
		Time:   now,
	}
	engine := newTestEngine(&fakeStore{}, &fakeTenderAPI{}, now)

	require.NoError(t, engine.TickAuction(context.Background(), auction))
	assert.Equal(t, 100.0, *auction.Bids[0].Value.Amount)

	// повтор того же такта после неудачного сохранения: выход из раунда
	// уже выполнен и новая ставка не публикуется повторно
	auction.CurrentStage = lastBids
	lower := 90.0
	auction.Bids[0].Stages[strconv.Itoa(lastBids)] = &models.PostedBid{
		Amount: &lower,
		Time:   now,
	}
	require.NoError(t, engine.TickAuction(context.Background(), auction))
	assert.Equal(t, 100.0, *auction.Bids[0].Value.Amount)
}
