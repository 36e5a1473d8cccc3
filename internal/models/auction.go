package models

import (
	"time"
)

type (
	StageType             string // Тип этапа аукциона
	AuctionType           string // Тип аукциона (способ оценки предложений)
	ProcurementMethodType string // Тип процедуры закупки
	FundingKind           string // Источник финансирования (esco)
)

const (
	StagePause           StageType = "pause"            // Пауза между раундами
	StageBids            StageType = "bids"             // Ход участника
	StagePreAnnouncement StageType = "pre_announcement" // Подготовка к объявлению результатов
	StageAnnouncement    StageType = "announcement"     // Объявление результатов

	AuctionDefault AuctionType = "default" // Оценка по цене
	AuctionMeat    AuctionType = "meat"    // Оценка по цене с неценовыми критериями
	AuctionLCC     AuctionType = "lcc"     // Оценка по стоимости жизненного цикла
	AuctionMixed   AuctionType = "mixed"   // Смешанная оценка

	ProcurementESCO ProcurementMethodType = "esco" // Энергосервисная процедура

	FundingOther  FundingKind = "other"  // Собственные средства заказчика
	FundingBudget FundingKind = "budget" // Бюджетные средства
)

const (
	// CurrentStageInitial - аукцион еще не начался.
	CurrentStageInitial = -1
	// CurrentStageRescheduled - аукцион пропустил этап и ждет внешнего перепланирования.
	CurrentStageRescheduled = -101
	// WithdrawalSentinel - значение ставки, означающее отзыв ставки в текущем раунде.
	WithdrawalSentinel = -1
)

// Label представляет отображаемое имя участника на трех языках.
type Label struct {
	En string `json:"en" yaml:"en"`
	Ru string `json:"ru" yaml:"ru"`
	Uk string `json:"uk" yaml:"uk"`
}

// ContractDuration представляет срок энергосервисного контракта.
type ContractDuration struct {
	Years int `json:"years" yaml:"years"`
	Days  int `json:"days" yaml:"days"`
}

// Value представляет ценовую часть предложения участника.
type Value struct {
	Amount                   *float64          `json:"amount,omitempty"`
	Currency                 string            `json:"currency,omitempty"`
	AmountPerformance        string            `json:"amountPerformance,omitempty"`
	YearlyPaymentsPercentage *float64          `json:"yearlyPaymentsPercentage,omitempty"`
	ContractDuration         *ContractDuration `json:"contractDuration,omitempty"`
	AnnualCostsReduction     []float64         `json:"annualCostsReduction,omitempty"`
}

// AmountValue возвращает сумму или 0, если она не задана.
func (v *Value) AmountValue() float64 {
	if v == nil || v.Amount == nil {
		return 0
	}
	return *v.Amount
}

// PostedBid представляет ставку, поданную участником в конкретном раунде,
// до ее публикации хронографом.
type PostedBid struct {
	Amount                   *float64          `json:"amount,omitempty"`
	AmountPerformance        string            `json:"amountPerformance,omitempty"`
	YearlyPaymentsPercentage *float64          `json:"yearlyPaymentsPercentage,omitempty"`
	ContractDuration         *ContractDuration `json:"contractDuration,omitempty"`
	Time                     time.Time         `json:"time"`
}

// Bid представляет состояние участника аукциона.
type Bid struct {
	ID             string                `json:"id"`
	Hash           string                `json:"hash"`
	Name           string                `json:"name,omitempty"`
	Date           time.Time             `json:"date"`
	Value          Value                 `json:"value"`
	Coeficient     string                `json:"coeficient,omitempty"`
	AmountFeatures string                `json:"amount_features,omitempty"`
	NonPriceCost   *float64              `json:"non_price_cost,omitempty"`
	AmountWeighted *float64              `json:"amount_weighted,omitempty"`
	Addition       *float64              `json:"addition,omitempty"`
	Denominator    *float64              `json:"denominator,omitempty"`
	Stages         map[string]*PostedBid `json:"stages"`
}

// StageResult представляет опубликованные данные участника: позицию в results,
// initial_bids или заполненный ход в раунде.
type StageResult struct {
	BidderID                 string     `json:"bidder_id,omitempty"`
	Label                    *Label     `json:"label,omitempty"`
	Time                     *time.Time `json:"time,omitempty"`
	Amount                   *float64   `json:"amount,omitempty"`
	AmountFeatures           string     `json:"amount_features,omitempty"`
	Coeficient               string     `json:"coeficient,omitempty"`
	AmountWeighted           *float64   `json:"amount_weighted,omitempty"`
	AmountPerformance        string     `json:"amountPerformance,omitempty"`
	YearlyPaymentsPercentage *float64   `json:"yearlyPaymentsPercentage,omitempty"`
	AnnualCostsReduction     []float64  `json:"annualCostsReduction,omitempty"`
	ContractDurationYears    *int       `json:"contractDurationYears,omitempty"`
	ContractDurationDays     *int       `json:"contractDurationDays,omitempty"`
}

// Stage представляет один слот в расписании аукциона.
type Stage struct {
	Type        StageType `json:"type"`
	Start       time.Time `json:"start"`
	Changed     bool      `json:"changed,omitempty"`
	StageResult           // опубликованные поля хода, плоско в json
}

// ProcuringEntity представляет заказчика.
type ProcuringEntity struct {
	Name   string `json:"name"`
	NameEn string `json:"name_en,omitempty"`
}

// Auction представляет документ аукциона - единицу работы хронографа.
// Timer и Modified живут в отдельных колонках хранилища и не сериализуются в data.
type Auction struct {
	ID                            string                `json:"_id"`
	TenderID                      string                `json:"tender_id"`
	TenderSlug                    string                `json:"tenderID,omitempty"`
	LotID                         string                `json:"lot_id,omitempty"`
	Mode                          string                `json:"mode,omitempty"`
	Title                         string                `json:"title,omitempty"`
	TitleEn                       string                `json:"title_en,omitempty"`
	ProcuringEntity               *ProcuringEntity      `json:"procuringEntity,omitempty"`
	AuctionType                   AuctionType           `json:"auction_type,omitempty"`
	ProcurementMethodType         ProcurementMethodType `json:"procurementMethodType,omitempty"`
	Features                      bool                  `json:"features"`
	StartAt                       time.Time             `json:"start_at"`
	Stages                        []Stage               `json:"stages"`
	CurrentStage                  int                   `json:"current_stage"`
	FinishedStage                 *int                  `json:"finished_stage,omitempty"`
	Bids                          []Bid                 `json:"bids"`
	InitialBids                   []StageResult         `json:"initial_bids,omitempty"`
	Results                       []StageResult         `json:"results"`
	MinimalStep                   *Value                `json:"minimalStep,omitempty"`
	MinimalStepPercentage         *float64              `json:"minimalStepPercentage,omitempty"`
	FundingKind                   FundingKind           `json:"fundingKind,omitempty"`
	YearlyPaymentsPercentageRange *float64              `json:"yearlyPaymentsPercentageRange,omitempty"`
	NBUDiscountRate               *float64              `json:"NBUdiscountRate,omitempty"`
	NoticePublicationDate         string                `json:"noticePublicationDate,omitempty"`
	ChronographErrorsCount        int                   `json:"chronograph_errors_count,omitempty"`
	AuditDocumentPosted           bool                  `json:"_audit_document_posted,omitempty"`
	ResultsSent                   bool                  `json:"_auction_results_sent,omitempty"`
	IsCancelled                   bool                  `json:"is_cancelled,omitempty"`

	Timer    *time.Time `json:"-"`
	Modified time.Time  `json:"-"`
}

// IsESCO сообщает, идет ли аукцион по энергосервисной процедуре.
func (a *Auction) IsESCO() bool {
	return a.ProcurementMethodType == ProcurementESCO
}

// GetBid возвращает предложение участника по его идентификатору.
func (a *Auction) GetBid(bidderID string) *Bid {
	for i := range a.Bids {
		if a.Bids[i].ID == bidderID {
			return &a.Bids[i]
		}
	}
	return nil
}

// BidPayload представляет тело запроса на подачу ставки.
type BidPayload struct {
	Amount                   *float64 `json:"amount,omitempty"`
	YearlyPaymentsPercentage *float64 `json:"yearlyPaymentsPercentage,omitempty"`
	ContractDuration         *int     `json:"contractDuration,omitempty"`
	ContractDurationDays     *int     `json:"contractDurationDays,omitempty"`
}

// BidView представляет ответ участнику после подачи ставки или проверки авторизации.
type BidView struct {
	Amount                   *float64 `json:"amount,omitempty"`
	ContractDurationYears    *int     `json:"contractDurationYears,omitempty"`
	ContractDurationDays     *int     `json:"contractDurationDays,omitempty"`
	YearlyPaymentsPercentage *float64 `json:"yearlyPaymentsPercentage,omitempty"`
	Changed                  bool     `json:"changed"`
	Coeficient               string   `json:"coeficient,omitempty"`
	NonPriceCost             *float64 `json:"non_price_cost,omitempty"`
	Addition                 *float64 `json:"addition,omitempty"`
	Denominator              *float64 `json:"denominator,omitempty"`
}

// AuctionListItem представляет строку публичного списка аукционов.
type AuctionListItem struct {
	ID                    string                `json:"_id"`
	Title                 string                `json:"title,omitempty"`
	TitleEn               string                `json:"title_en,omitempty"`
	StartAt               time.Time             `json:"start_at"`
	ProcurementMethodType ProcurementMethodType `json:"procurementMethodType,omitempty"`
	TenderSlug            string                `json:"tenderID,omitempty"`
}
